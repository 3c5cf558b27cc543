package domain

const (
	defaultName     = "Unknown"
	defaultCategory = "N/A"
)

// MatchResult — один элемент выдачи. Не сохраняется.
type MatchResult struct {
	Name            string
	Category        string
	ImageReference  string
	SimilarityScore float64 // косинусная близость * 100, округлённая до 2 знаков
}

// NewMatchResult подставляет значения по умолчанию для пустых имени и категории.
func NewMatchResult(entry *CatalogEntry, score float64) MatchResult {
	name := entry.Name
	if name == "" {
		name = defaultName
	}

	category := entry.Category
	if category == "" {
		category = defaultCategory
	}

	return MatchResult{
		Name:            name,
		Category:        category,
		ImageReference:  entry.ImageReference,
		SimilarityScore: score,
	}
}
