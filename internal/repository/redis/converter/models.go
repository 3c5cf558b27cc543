package converter

// CatalogEntryRedisModel — запись каталога в JSON-снимке кэша.
type CatalogEntryRedisModel struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Category     string    `json:"category"`
	ImageRef     string    `json:"image_ref"`
	Embedding    []float32 `json:"embedding"`
	ModelVersion string    `json:"model_version"`
}
