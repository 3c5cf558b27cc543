package http

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/DRSN-tech/visual-matcher/internal/domain"
	"github.com/DRSN-tech/visual-matcher/pkg/e"
	"github.com/jimlawless/whereami"
)

type ErrorResponse struct {
	Code    int    `json:"code"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

func NewErrorResponse(code int, kind string, message string) *ErrorResponse {
	return &ErrorResponse{
		Code:    code,
		Error:   kind,
		Message: message,
	}
}

// ToHTTPResponse сопоставляет ошибку статусу, машинному коду и сообщению для клиента.
// Внутренние детали наружу не отдаются.
func ToHTTPResponse(err error) (int, string, string) {
	switch kind := e.KindOf(err); kind {
	case e.KindInvalidInput:
		return http.StatusBadRequest, kind.Code(), e.ErrInvalidInput.Error()
	case e.KindUnreadableImage:
		return http.StatusBadRequest, kind.Code(), e.ErrUnreadableImage.Error()
	case e.KindFetchFailed:
		return http.StatusBadGateway, kind.Code(), e.ErrFetchFailed.Error()
	case e.KindEmptyCatalog:
		return http.StatusNotFound, kind.Code(), e.ErrEmptyCatalog.Error()
	case e.KindDimensionMismatch:
		return http.StatusUnprocessableEntity, kind.Code(), e.ErrDimensionMismatch.Error()
	case e.KindDegenerateEmbedding:
		return http.StatusUnprocessableEntity, kind.Code(), e.ErrDegenerateEmbedding.Error()
	}

	switch {
	case errors.Is(err, e.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge, e.KindInvalidInput.Code(), e.ErrFileTooLarge.Error()
	case errors.Is(err, e.ErrExpectedMultipart):
		return http.StatusBadRequest, e.KindInvalidInput.Code(), e.ErrExpectedMultipart.Error()
	case errors.Is(err, e.ErrStatusBadRequest):
		return http.StatusBadRequest, e.KindInvalidInput.Code(), e.ErrStatusBadRequest.Error()
	default:
		return http.StatusInternalServerError, e.KindUnknown.Code(), e.ErrInternalServerError.Error()
	}
}

func WriteError(w http.ResponseWriter, err error) {
	code, kind, msg := ToHTTPResponse(err)
	WriteSuccess(w, code, NewErrorResponse(code, kind, msg))
}

func WriteSuccess(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// parseImageInput достаёт из формы файл "file" и/или поле "image_url".
// Принимаются multipart/form-data и application/x-www-form-urlencoded.
func parseImageInput(r *http.Request, maxMemory int64) (domain.ImageInput, error) {
	contentType := r.Header.Get("Content-Type")

	switch {
	case strings.HasPrefix(contentType, "multipart/form-data"):
		if err := r.ParseMultipartForm(maxMemory); err != nil {
			return domain.ImageInput{}, formError(err)
		}
	case strings.HasPrefix(contentType, "application/x-www-form-urlencoded"):
		if err := r.ParseForm(); err != nil {
			return domain.ImageInput{}, formError(err)
		}
	default:
		return domain.ImageInput{}, e.Wrap(whereami.WhereAmI(), e.ErrExpectedMultipart)
	}

	input := domain.ImageInput{RemoteURL: strings.TrimSpace(r.FormValue("image_url"))}

	if r.MultipartForm != nil {
		if files := r.MultipartForm.File["file"]; len(files) > 0 {
			data, err := readFile(files[0])
			if err != nil {
				return domain.ImageInput{}, err
			}
			input.FileBytes = data
		}
	}

	return input, nil
}

func formError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return e.Wrap(whereami.WhereAmI(), e.ErrFileTooLarge)
	}

	return e.Wrap(err.Error(), e.ErrStatusBadRequest)
}

func readFile(fh *multipart.FileHeader) ([]byte, error) {
	src, err := fh.Open()
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return data, nil
}
