package encoder

import (
	"fmt"
	"strconv"

	"github.com/artemshloyda/mediaconverter/internal/config"
	"github.com/artemshloyda/mediaconverter/internal/media"
)

// avifWorstCRF - максимальный CRF libaom-av1.
const avifWorstCRF = 63

// Dimensions - размеры изображения в пикселях.
type Dimensions struct {
	Width  int
	Height int
}

// AvifCRF переводит качество 0-100 в CRF libaom-av1 (0-63).
func AvifCRF(quality int) int {
	return (100 - quality) * avifWorstCRF / 100
}

// ResizeDimensions возвращает целевые размеры или false, если масштабировать не нужно.
func ResizeDimensions(cfg *config.Config, src Dimensions) (Dimensions, bool) {
	w, h := cfg.Width(), cfg.Height()
	if w == 0 && h == 0 {
		return Dimensions{}, false
	}
	if cfg.AvoidUpscaling && ((0 < src.Width && src.Width < w) || (0 < src.Height && src.Height < h)) {
		return Dimensions{}, false
	}
	return Dimensions{Width: w, Height: h}, true
}

// ScaleFilter строит выражение scale для фильтра ffmpeg.
func ScaleFilter(cfg *config.Config, src Dimensions) string {
	if d, ok := ResizeDimensions(cfg, src); ok {
		switch {
		case d.Width < 1 && d.Height > 0:
			return fmt.Sprintf("scale=-2:%d", d.Height)
		case d.Height < 1 && d.Width > 0:
			return fmt.Sprintf("scale=%d:-2", d.Width)
		case d.Width > 0 && d.Height > 0:
			return fmt.Sprintf("scale=%d:%d", d.Width, d.Height)
		}
	}
	return "scale=-1:-1"
}

// WebpArgs строит аргументы cwebp.
func WebpArgs(cfg *config.Config, src, dst string, dims Dimensions) []string {
	args := []string{src, "-o", dst, "-q", strconv.Itoa(cfg.Quality())}
	args = append(args, cfg.CwebpArgs...)
	if d, ok := ResizeDimensions(cfg, dims); ok {
		args = append(args, "-resize", strconv.Itoa(d.Width), strconv.Itoa(d.Height))
	}
	return args
}

// AvifArgs строит аргументы ffmpeg для кодирования в AVIF.
func AvifArgs(cfg *config.Config, src, dst string, dims Dimensions) []string {
	args := []string{
		"-hide_banner", "-nostdin", "-y", "-loglevel", "quiet", "-sn", "-an",
		"-i", src,
		"-c:v", "libaom-av1",
		"-vf", ScaleFilter(cfg, dims) + ":flags=sinc+accurate_rnd",
		"-crf", strconv.Itoa(AvifCRF(cfg.Quality())),
	}
	args = append(args, cfg.FfmpegArgs...)
	if !media.DetectAnimated(src) {
		args = append(args, "-still-picture", "1", "-frames:v", "1")
	}
	return append(args, dst)
}

// AudioArgs строит аргументы ffmpeg для кодирования в Opus.
func AudioArgs(cfg *config.Config, src, dst string) []string {
	args := []string{
		"-hide_banner", "-nostdin", "-y", "-loglevel", "quiet", "-sn", "-vn",
		"-i", src,
		"-c:a", "libopus",
		"-vbr", "on",
		"-compression_level", "10",
		"-map", "0:a",
		"-application", "audio",
		"-b:a", strconv.Itoa(cfg.BitrateK()) + "k",
	}
	args = append(args, cfg.FfmpegAudioArgs...)
	return append(args, dst)
}
