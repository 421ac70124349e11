package encoder

import (
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ImageDimensions читает размеры из заголовка изображения.
// Для неизвестных форматов (avif, heic, svg) возвращает 0x0.
func ImageDimensions(path string) Dimensions {
	f, err := os.Open(path)
	if err != nil {
		return Dimensions{}
	}
	defer func() { _ = f.Close() }()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return Dimensions{}
	}
	return Dimensions{Width: cfg.Width, Height: cfg.Height}
}
