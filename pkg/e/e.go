package e

import "fmt"

var (
	// Внутренние ошибки с транзакциями
	ErrTransactionNotFound = fmt.Errorf("transaction not found")

	// Ошибки конвейера сопоставления изображений
	ErrInvalidInput        = fmt.Errorf("neither image file nor image url provided")
	ErrFetchFailed         = fmt.Errorf("failed to fetch image from url")
	ErrUnreadableImage     = fmt.Errorf("invalid image format or unreadable file")
	ErrEmptyCatalog        = fmt.Errorf("no products in catalog")
	ErrDimensionMismatch   = fmt.Errorf("embedding dimension mismatch")
	ErrDegenerateEmbedding = fmt.Errorf("embedding has zero norm")

	// Внутренние ошибки с векторами
	ErrEmptyVectors = fmt.Errorf("empty vectors")

	// 400 Bad Request
	ErrStatusBadRequest     = fmt.Errorf("bad request")
	ErrExpectedMultipart    = fmt.Errorf("expected multipart/form-data")
	ErrFileTooLarge         = fmt.Errorf("file too large")
	ErrUnsupportedMediaType = fmt.Errorf("unsupported media type")

	// 500
	ErrInternalServerError = fmt.Errorf("internal server error")

	// Конфигурация
	ErrIncorrectEnvVariable = fmt.Errorf("incorrect environment variable")
)

// Wrap оборачивает ошибку
func Wrap(msg string, err error) error {
	return fmt.Errorf("%s: %w", msg, err)
}
