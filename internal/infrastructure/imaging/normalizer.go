package imaging

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"

	// декодеры форматов, принимаемых на вход
	_ "image/gif"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/DRSN-tech/visual-matcher/internal/cfg"
	"github.com/DRSN-tech/visual-matcher/internal/domain"
	"github.com/DRSN-tech/visual-matcher/pkg/e"
)

var errEmptyImage = errors.New("image has no pixels")

// Normalizer приводит любое поддерживаемое изображение к трёхканальному RGB
// и кодирует его в JPEG: именно эти байты уходят в экстрактор признаков.
type Normalizer struct {
	quality int
}

func NewNormalizer(cfg *cfg.ImagingCfg) *Normalizer {
	quality := cfg.JPEGQuality
	if quality < 1 || quality > 100 {
		quality = jpeg.DefaultQuality
	}

	return &Normalizer{quality: quality}
}

// Normalize декодирует байты, отбрасывает альфа-канал и палитру, перекодирует в JPEG.
// Любая ошибка декодирования — KindUnreadableImage.
func (n *Normalizer) Normalize(data []byte) (*domain.CanonicalImage, error) {
	const op = "Normalizer.Normalize"

	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, e.NewMatchError(e.KindUnreadableImage, op, err, map[string]any{"size": len(data)})
	}

	if src.Bounds().Empty() {
		return nil, e.NewMatchError(e.KindUnreadableImage, op, errEmptyImage, map[string]any{"format": format})
	}

	rgb := toRGB(src)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, rgb, &jpeg.Options{Quality: n.quality}); err != nil {
		return nil, e.Wrap(op, err)
	}

	return domain.NewCanonicalImage(rgb, buf.Bytes()), nil
}

// toRGB копирует пиксели в непрозрачное RGBA: цветовые каналы берутся без
// домножения на альфу, альфа выставляется в 255.
func toRGB(src image.Image) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(src.At(x, y)).(color.NRGBA)
			dst.SetRGBA(x-b.Min.X, y-b.Min.Y, color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xff})
		}
	}

	return dst
}
