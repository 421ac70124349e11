// Package config содержит конфигурацию приложения.
package config

import (
	"path/filepath"
	"runtime"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// ImageFormat определяет целевой формат изображений.
type ImageFormat string

const (
	FormatWebP ImageFormat = "webp"
	FormatAVIF ImageFormat = "avif"
)

// AudioContainer определяет целевой контейнер для аудио.
type AudioContainer string

const (
	ContainerOpus AudioContainer = "opus"
	ContainerOgg  AudioContainer = "ogg"
)

const (
	// MinAudioBitrateK - минимальный битрейт аудио в кбит/с.
	MinAudioBitrateK = 8
	// MaxAudioBitrateK - максимальный битрейт аудио в кбит/с.
	MaxAudioBitrateK = 600
	// MaxImageDimension - максимальная ширина/высота изображения.
	MaxImageDimension = 99_999
	// FilenamePatternCount - количество шаблонов имени файла.
	FilenamePatternCount = 8
)

// Config содержит все настройки для конвертации.
type Config struct {
	// MediaDir - директория с медиафайлами коллекции.
	MediaDir string

	// DBPath - путь к SQLite базе заметок.
	DBPath string

	// ImageFormat - целевой формат изображений (webp/avif).
	ImageFormat ImageFormat

	// AudioContainer - целевой контейнер аудио (opus/ogg).
	AudioContainer AudioContainer

	// ImageQuality - качество изображений (0-100).
	ImageQuality int

	// ImageWidth - ширина изображения (0 = не ограничивать).
	ImageWidth int

	// ImageHeight - высота изображения (0 = не ограничивать).
	ImageHeight int

	// AvoidUpscaling - не увеличивать изображения меньше заданных размеров.
	AvoidUpscaling bool

	// PreserveOriginalFilenames - сохранять исходное имя файла.
	PreserveOriginalFilenames bool

	// FilenamePatternNum - номер шаблона имени файла (0-7).
	FilenamePatternNum int

	// CustomNameField - поле заметки для шаблона custom-field.
	CustomNameField string

	// ExcludedImageContainers - расширения изображений через запятую, которые не конвертируются.
	ExcludedImageContainers string

	// ExcludedAudioContainers - расширения аудио через запятую, которые не конвертируются.
	ExcludedAudioContainers string

	// BulkReconvert - повторно конвертировать файлы, уже имеющие целевой формат.
	BulkReconvert bool

	// EnableImageConversion - конвертировать изображения.
	EnableImageConversion bool

	// EnableAudioConversion - конвертировать аудио.
	EnableAudioConversion bool

	// CwebpArgs - дополнительные аргументы cwebp.
	CwebpArgs []string

	// FfmpegArgs - дополнительные аргументы ffmpeg для изображений.
	FfmpegArgs []string

	// FfmpegAudioArgs - дополнительные аргументы ffmpeg для аудио.
	FfmpegAudioArgs []string

	// AudioBitrateK - битрейт аудио в кбит/с.
	AudioBitrateK int

	// DeleteOriginalOnConvert - удалять исходные файлы после успешной записи заметок.
	DeleteOriginalOnConvert bool

	// Parallel - конвертировать файлы параллельно.
	Parallel bool

	// Workers - количество параллельных воркеров.
	Workers int

	// MaxMemoryMB - ограничение памяти в мегабайтах (0 = без ограничения).
	MaxMemoryMB int

	// EncodeTimeout - таймаут на один запуск энкодера (0 = без ограничения).
	EncodeTimeout time.Duration

	// CwebpPath - путь к cwebp (опционально).
	CwebpPath string

	// FfmpegPath - путь к ffmpeg (опционально).
	FfmpegPath string

	// SupportDir - директория со встроенными бинарниками.
	SupportDir string

	// LogLevel - уровень логирования (debug, info, warn, error).
	LogLevel string

	// Verbose - подробный вывод.
	Verbose bool

	// NoProgress - отключить прогресс-бар.
	NoProgress bool
}

// DefaultWorkers возвращает количество воркеров по умолчанию: половина ядер, минимум 1.
func DefaultWorkers() int {
	return max(1, runtime.NumCPU()/2)
}

// DefaultConfig возвращает конфигурацию по умолчанию.
func DefaultConfig() *Config {
	return &Config{
		ImageFormat:             FormatWebP,
		AudioContainer:          ContainerOgg,
		ImageQuality:            60,
		ImageWidth:              0,
		ImageHeight:             200,
		AvoidUpscaling:          true,
		FilenamePatternNum:      0,
		ExcludedImageContainers: "gif,svg,webp,avif",
		ExcludedAudioContainers: "opus,ogg",
		EnableImageConversion:   true,
		EnableAudioConversion:   true,
		AudioBitrateK:           32,
		Parallel:                true,
		Workers:                 DefaultWorkers(),
		LogLevel:                "warn",
	}
}

// Validate проверяет корректность конфигурации.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.MediaDir, validation.Required),
		validation.Field(&c.ImageFormat, validation.Required, validation.In(FormatWebP, FormatAVIF)),
		validation.Field(&c.ImageQuality, validation.Min(0), validation.Max(100)),
		validation.Field(&c.ImageWidth, validation.Min(0), validation.Max(MaxImageDimension)),
		validation.Field(&c.ImageHeight, validation.Min(0), validation.Max(MaxImageDimension)),
		validation.Field(&c.FilenamePatternNum, validation.Min(0), validation.Max(FilenamePatternCount-1)),
		validation.Field(&c.Workers, validation.Min(1)),
		validation.Field(&c.MaxMemoryMB, validation.Min(0)),
		validation.Field(&c.EncodeTimeout, validation.Min(time.Duration(0))),
		validation.Field(&c.LogLevel, validation.In("debug", "info", "warn", "error")),
	); err != nil {
		return err
	}

	// Путь к БД по умолчанию
	if c.DBPath == "" {
		c.DBPath = filepath.Join(c.MediaDir, ".mediaconverter", "notes.sqlite")
	}

	return nil
}

// Audio возвращает целевой аудиоконтейнер; неизвестное значение даёт ogg.
func (c *Config) Audio() AudioContainer {
	switch AudioContainer(strings.ToLower(string(c.AudioContainer))) {
	case ContainerOpus:
		return ContainerOpus
	default:
		return ContainerOgg
	}
}

// ImageExtension возвращает расширение целевого формата изображений (".webp").
func (c *Config) ImageExtension() string {
	return "." + strings.ToLower(string(c.ImageFormat))
}

// AudioExtension возвращает расширение целевого аудиоконтейнера (".ogg").
func (c *Config) AudioExtension() string {
	return "." + string(c.Audio())
}

// Quality возвращает качество изображений, ограниченное диапазоном 0-100.
func (c *Config) Quality() int {
	return clamp(c.ImageQuality, 0, 100)
}

// Width возвращает ширину изображения в допустимом диапазоне.
func (c *Config) Width() int {
	return clamp(c.ImageWidth, 0, MaxImageDimension)
}

// Height возвращает высоту изображения в допустимом диапазоне.
func (c *Config) Height() int {
	return clamp(c.ImageHeight, 0, MaxImageDimension)
}

// BitrateK возвращает битрейт аудио в допустимом диапазоне.
func (c *Config) BitrateK() int {
	return clamp(c.AudioBitrateK, MinAudioBitrateK, MaxAudioBitrateK)
}

// PatternNum возвращает номер шаблона имени; неизвестный номер даёт 0.
func (c *Config) PatternNum() int {
	if c.FilenamePatternNum < 0 || c.FilenamePatternNum >= FilenamePatternCount {
		return 0
	}
	return c.FilenamePatternNum
}

// ExcludedImageExtensions возвращает расширения изображений, которые не конвертируются.
// Целевое расширение исключается всегда, кроме режима includeConverted.
func (c *Config) ExcludedImageExtensions(includeConverted bool) map[string]struct{} {
	return excludedExtensions(c.ExcludedImageContainers, c.ImageExtension(), includeConverted)
}

// ExcludedAudioExtensions возвращает расширения аудио, которые не конвертируются.
func (c *Config) ExcludedAudioExtensions(includeConverted bool) map[string]struct{} {
	return excludedExtensions(c.ExcludedAudioContainers, c.AudioExtension(), includeConverted)
}

// ParseExtensions превращает строку "jpg, PNG" в множество {".jpg", ".png"}.
func ParseExtensions(list string) map[string]struct{} {
	exts := make(map[string]struct{})
	for _, part := range strings.Split(list, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		part = strings.TrimPrefix(part, ".")
		if part == "" {
			continue
		}
		exts["."+part] = struct{}{}
	}
	return exts
}

func excludedExtensions(list, target string, includeConverted bool) map[string]struct{} {
	exts := ParseExtensions(list)
	if includeConverted {
		delete(exts, target)
	} else {
		exts[target] = struct{}{}
	}
	return exts
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}

/*
Возможные расширения:
- Добавить отдельное качество для анимированных изображений
- Добавить ограничение размера выходного файла
- Добавить выбор энкодера для AVIF (libaom/libsvtav1)
*/
