package domain

import "image"

// ImageInput — входное изображение: либо загруженные байты, либо удалённый URL.
// Должно быть задано ровно одно из полей.
type ImageInput struct {
	FileBytes []byte
	RemoteURL string
}

func NewFileInput(data []byte) ImageInput {
	return ImageInput{FileBytes: data}
}

func NewURLInput(url string) ImageInput {
	return ImageInput{RemoteURL: url}
}

// HasFile сообщает, переданы ли байты файла.
func (i ImageInput) HasFile() bool {
	return len(i.FileBytes) > 0
}

// HasURL сообщает, передан ли URL.
func (i ImageInput) HasURL() bool {
	return i.RemoteURL != ""
}

// CanonicalImage — декодированное трёхканальное изображение и его каноническое JPEG-представление.
type CanonicalImage struct {
	Pixels image.Image
	Bytes  []byte
	Width  int
	Height int
}

func NewCanonicalImage(pixels image.Image, data []byte) *CanonicalImage {
	b := pixels.Bounds()
	return &CanonicalImage{
		Pixels: pixels,
		Bytes:  data,
		Width:  b.Dx(),
		Height: b.Dy(),
	}
}
