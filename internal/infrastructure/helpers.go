package infrastructure

import "github.com/DRSN-tech/visual-matcher/pkg/e"

// GetExtensionFromMIME возвращает расширение файла по MIME-типу изображения.
// Возвращает ошибку e.ErrUnsupportedMediaType для неподдерживаемых типов.
func GetExtensionFromMIME(mime string) (string, error) {
	switch mime {
	case "image/jpeg", "image/jpg":
		return "jpg", nil
	case "image/png":
		return "png", nil
	case "image/webp":
		return "webp", nil
	case "image/gif":
		return "gif", nil
	case "image/bmp":
		return "bmp", nil
	default:
		return "bin", e.ErrUnsupportedMediaType
	}
}
