package http

import (
	"net/http"

	"github.com/DRSN-tech/visual-matcher/internal/domain"
	"github.com/DRSN-tech/visual-matcher/internal/usecase"
	"github.com/DRSN-tech/visual-matcher/pkg/e"
	"github.com/DRSN-tech/visual-matcher/pkg/logger"
	"github.com/go-chi/chi/v5/middleware"
)

// MatchDTO — один результат поиска.
type MatchDTO struct {
	Name       string  `json:"name"`
	Category   string  `json:"category"`
	ImageURL   string  `json:"image_url"`
	Similarity float64 `json:"similarity"`
}

// MatchResponse — ответ поиска похожих товаров.
type MatchResponse struct {
	Matches []MatchDTO `json:"matches"`
	Skipped int        `json:"skipped"`
}

type MatchHandler struct {
	matchUsecase   usecase.MatchUC
	maxUploadBytes int64
	logger         logger.Logger
}

func NewMatchHandler(matchUsecase usecase.MatchUC, maxUploadBytes int64, logger logger.Logger) *MatchHandler {
	return &MatchHandler{
		matchUsecase:   matchUsecase,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

// findSimilar
//
//	@Summary		Поиск похожих товаров
//	@Description	Принимает изображение файлом или ссылкой и возвращает до 10 наиболее похожих товаров каталога
//	@Tags			match
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file		formData	file			false	"Изображение"
//	@Param			image_url	formData	string			false	"Ссылка на изображение"
//	@Success		200			{object}	MatchResponse	"Отсортированная выдача"
//	@Failure		400			{object}	ErrorResponse	"Нет входа или нечитаемое изображение"
//	@Failure		404			{object}	ErrorResponse	"Каталог пуст"
//	@Failure		502			{object}	ErrorResponse	"Не удалось скачать изображение"
//	@Router			/match [post]
func (h *MatchHandler) findSimilar(w http.ResponseWriter, r *http.Request) {
	const maxMemory = 32 << 20

	log := h.logger.With("request_id", middleware.GetReqID(r.Context()))

	if r.ContentLength > h.maxUploadBytes {
		log.Warnf("%d %s: %d bytes", http.StatusRequestEntityTooLarge, e.ErrFileTooLarge.Error(), r.ContentLength)
		WriteError(w, e.ErrFileTooLarge)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	input, err := parseImageInput(r, maxMemory)
	if err != nil {
		log.Warnf("%d %s: %v", http.StatusBadRequest, e.ErrStatusBadRequest.Error(), err)
		WriteError(w, err)
		return
	}

	res, err := h.matchUsecase.FindSimilar(r.Context(), usecase.NewMatchReq(input))
	if err != nil {
		if e.KindOf(err) == e.KindUnknown {
			log.Errorf(err, "match failed")
		} else {
			log.Warnf("match rejected: %v", err)
		}
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, toMatchResponse(res))
}

func toMatchResponse(res *usecase.MatchRes) *MatchResponse {
	matches := make([]MatchDTO, 0, len(res.Matches))
	for _, m := range res.Matches {
		matches = append(matches, toMatchDTO(m))
	}

	return &MatchResponse{
		Matches: matches,
		Skipped: res.Skipped.Total(),
	}
}

func toMatchDTO(m domain.MatchResult) MatchDTO {
	return MatchDTO{
		Name:       m.Name,
		Category:   m.Category,
		ImageURL:   m.ImageReference,
		Similarity: m.SimilarityScore,
	}
}
