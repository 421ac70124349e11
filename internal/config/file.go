// Package config содержит конфигурацию приложения.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileConfig представляет структуру конфигурационного файла YAML.
// Все поля опциональны - если не указаны, используются значения по умолчанию.
type FileConfig struct {
	// Preset - встроенный пресет, применяется до остальных секций.
	Preset string `yaml:"preset,omitempty"`

	// Images - настройки конвертации изображений.
	Images *ImagesConfig `yaml:"images,omitempty"`

	// Audio - настройки конвертации аудио.
	Audio *AudioConfig `yaml:"audio,omitempty"`

	// Naming - настройки имён выходных файлов.
	Naming *NamingConfig `yaml:"naming,omitempty"`

	// Processing - настройки обработки.
	Processing *ProcessingConfig `yaml:"processing,omitempty"`

	// Paths - настройки путей.
	Paths *PathsConfig `yaml:"paths,omitempty"`
}

// ImagesConfig содержит настройки изображений.
type ImagesConfig struct {
	// Enabled - конвертировать изображения.
	Enabled *bool `yaml:"enabled,omitempty"`

	// Format - целевой формат (webp, avif).
	Format string `yaml:"format,omitempty"`

	// Quality - качество (0-100).
	Quality *int `yaml:"quality,omitempty"`

	// Width - ширина (0 = не ограничивать).
	Width *int `yaml:"width,omitempty"`

	// Height - высота (0 = не ограничивать).
	Height *int `yaml:"height,omitempty"`

	// AvoidUpscaling - не увеличивать маленькие изображения.
	AvoidUpscaling *bool `yaml:"avoid_upscaling,omitempty"`

	// Excluded - расширения через запятую, которые не конвертируются.
	Excluded *string `yaml:"excluded,omitempty"`

	// Reconvert - повторно конвертировать файлы целевого формата.
	Reconvert *bool `yaml:"reconvert,omitempty"`

	// CwebpArgs - дополнительные аргументы cwebp.
	CwebpArgs []string `yaml:"cwebp_args,omitempty"`

	// FfmpegArgs - дополнительные аргументы ffmpeg.
	FfmpegArgs []string `yaml:"ffmpeg_args,omitempty"`
}

// AudioConfig содержит настройки аудио.
type AudioConfig struct {
	// Enabled - конвертировать аудио.
	Enabled *bool `yaml:"enabled,omitempty"`

	// Container - контейнер (opus, ogg).
	Container string `yaml:"container,omitempty"`

	// BitrateK - битрейт в кбит/с.
	BitrateK int `yaml:"bitrate_k,omitempty"`

	// Excluded - расширения через запятую, которые не конвертируются.
	Excluded *string `yaml:"excluded,omitempty"`

	// FfmpegArgs - дополнительные аргументы ffmpeg.
	FfmpegArgs []string `yaml:"ffmpeg_args,omitempty"`
}

// NamingConfig содержит настройки имён файлов.
type NamingConfig struct {
	// PreserveOriginal - сохранять исходное имя файла.
	PreserveOriginal *bool `yaml:"preserve_original,omitempty"`

	// Pattern - номер шаблона имени (0-7).
	Pattern *int `yaml:"pattern,omitempty"`

	// CustomField - поле заметки для шаблона custom-field.
	CustomField string `yaml:"custom_field,omitempty"`
}

// ProcessingConfig содержит настройки обработки.
type ProcessingConfig struct {
	// Parallel - параллельная конвертация.
	Parallel *bool `yaml:"parallel,omitempty"`

	// Workers - количество параллельных воркеров.
	Workers int `yaml:"workers,omitempty"`

	// MaxMemoryMB - ограничение памяти.
	MaxMemoryMB int `yaml:"max_memory_mb,omitempty"`

	// DeleteOriginal - удалять исходные файлы после записи заметок.
	DeleteOriginal *bool `yaml:"delete_original,omitempty"`

	// LogLevel - уровень логирования.
	LogLevel string `yaml:"log_level,omitempty"`

	// Verbose - подробный вывод.
	Verbose bool `yaml:"verbose,omitempty"`

	// NoProgress - отключить прогресс-бар.
	NoProgress bool `yaml:"no_progress,omitempty"`
}

// PathsConfig содержит настройки путей.
type PathsConfig struct {
	// MediaDir - директория медиафайлов.
	MediaDir string `yaml:"media_dir,omitempty"`

	// DB - путь к SQLite базе заметок.
	DB string `yaml:"db,omitempty"`

	// Cwebp - путь к cwebp.
	Cwebp string `yaml:"cwebp,omitempty"`

	// Ffmpeg - путь к ffmpeg.
	Ffmpeg string `yaml:"ffmpeg,omitempty"`

	// SupportDir - директория со встроенными бинарниками.
	SupportDir string `yaml:"support_dir,omitempty"`
}

// DefaultConfigPaths возвращает список путей для поиска конфигурационного файла.
// Поиск выполняется в следующем порядке:
// 1. ./mediaconverter.yaml (текущая директория)
// 2. ./mediaconverter.yml
// 3. ~/.config/mediaconverter/config.yaml
// 4. ~/.config/mediaconverter/config.yml
func DefaultConfigPaths() []string {
	paths := []string{
		"mediaconverter.yaml",
		"mediaconverter.yml",
	}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(home, ".config", "mediaconverter", "config.yaml"),
			filepath.Join(home, ".config", "mediaconverter", "config.yml"),
		)
	}

	return paths
}

// LoadFromFile загружает конфигурацию из указанного файла.
// Возвращает nil, nil если файл не существует.
func LoadFromFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("не удалось прочитать файл конфигурации %s: %w", path, err)
	}

	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("ошибка парсинга YAML в %s: %w", path, err)
	}

	return &fc, nil
}

// FindAndLoadConfig ищет и загружает конфигурационный файл из стандартных путей.
// Если configPath указан явно, использует только его.
// Возвращает nil, "", nil если файл не найден.
func FindAndLoadConfig(configPath string) (*FileConfig, string, error) {
	if configPath != "" {
		fc, err := LoadFromFile(configPath)
		if err != nil {
			return nil, "", err
		}
		if fc == nil {
			return nil, "", fmt.Errorf("файл конфигурации не найден: %s", configPath)
		}
		return fc, configPath, nil
	}

	for _, path := range DefaultConfigPaths() {
		fc, err := LoadFromFile(path)
		if err != nil {
			return nil, "", err
		}
		if fc != nil {
			return fc, path, nil
		}
	}

	return nil, "", nil
}

// Marshal сериализует конфигурацию в YAML.
func (fc *FileConfig) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(fc)
	if err != nil {
		return nil, fmt.Errorf("не удалось сериализовать конфигурацию: %w", err)
	}
	return data, nil
}

// SaveToFile записывает конфигурацию в YAML файл.
func (fc *FileConfig) SaveToFile(path string) error {
	data, err := fc.Marshal()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("не удалось создать директорию %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("не удалось записать %s: %w", path, err)
	}
	return nil
}

// FromConfig строит FileConfig из конфигурации (для сохранения пресетов).
func FromConfig(cfg *Config) *FileConfig {
	return &FileConfig{
		Images: &ImagesConfig{
			Enabled:        ptr(cfg.EnableImageConversion),
			Format:         string(cfg.ImageFormat),
			Quality:        ptr(cfg.ImageQuality),
			Width:          ptr(cfg.ImageWidth),
			Height:         ptr(cfg.ImageHeight),
			AvoidUpscaling: ptr(cfg.AvoidUpscaling),
			Excluded:       ptr(cfg.ExcludedImageContainers),
			Reconvert:      ptr(cfg.BulkReconvert),
			CwebpArgs:      cfg.CwebpArgs,
			FfmpegArgs:     cfg.FfmpegArgs,
		},
		Audio: &AudioConfig{
			Enabled:    ptr(cfg.EnableAudioConversion),
			Container:  string(cfg.Audio()),
			BitrateK:   cfg.BitrateK(),
			Excluded:   ptr(cfg.ExcludedAudioContainers),
			FfmpegArgs: cfg.FfmpegAudioArgs,
		},
		Naming: &NamingConfig{
			PreserveOriginal: ptr(cfg.PreserveOriginalFilenames),
			Pattern:          ptr(cfg.FilenamePatternNum),
			CustomField:      cfg.CustomNameField,
		},
		Processing: &ProcessingConfig{
			Parallel:       ptr(cfg.Parallel),
			Workers:        cfg.Workers,
			MaxMemoryMB:    cfg.MaxMemoryMB,
			DeleteOriginal: ptr(cfg.DeleteOriginalOnConvert),
		},
	}
}

// ApplyToConfig применяет настройки из файла к основной конфигурации.
// CLI флаги имеют приоритет над файлом конфигурации, поэтому
// эта функция должна вызываться до парсинга CLI флагов.
func (fc *FileConfig) ApplyToConfig(cfg *Config) {
	if fc == nil {
		return
	}

	if fc.Preset != "" {
		cfg.ApplyPreset(fc.Preset)
	}

	if img := fc.Images; img != nil {
		setIf(&cfg.EnableImageConversion, img.Enabled)
		if img.Format != "" {
			cfg.ImageFormat = ImageFormat(img.Format)
		}
		setIf(&cfg.ImageQuality, img.Quality)
		setIf(&cfg.ImageWidth, img.Width)
		setIf(&cfg.ImageHeight, img.Height)
		setIf(&cfg.AvoidUpscaling, img.AvoidUpscaling)
		setIf(&cfg.ExcludedImageContainers, img.Excluded)
		setIf(&cfg.BulkReconvert, img.Reconvert)
		if len(img.CwebpArgs) > 0 {
			cfg.CwebpArgs = img.CwebpArgs
		}
		if len(img.FfmpegArgs) > 0 {
			cfg.FfmpegArgs = img.FfmpegArgs
		}
	}

	if a := fc.Audio; a != nil {
		setIf(&cfg.EnableAudioConversion, a.Enabled)
		if a.Container != "" {
			cfg.AudioContainer = AudioContainer(a.Container)
		}
		if a.BitrateK > 0 {
			cfg.AudioBitrateK = a.BitrateK
		}
		setIf(&cfg.ExcludedAudioContainers, a.Excluded)
		if len(a.FfmpegArgs) > 0 {
			cfg.FfmpegAudioArgs = a.FfmpegArgs
		}
	}

	if n := fc.Naming; n != nil {
		setIf(&cfg.PreserveOriginalFilenames, n.PreserveOriginal)
		setIf(&cfg.FilenamePatternNum, n.Pattern)
		if n.CustomField != "" {
			cfg.CustomNameField = n.CustomField
		}
	}

	if p := fc.Processing; p != nil {
		setIf(&cfg.Parallel, p.Parallel)
		if p.Workers > 0 {
			cfg.Workers = p.Workers
		}
		if p.MaxMemoryMB > 0 {
			cfg.MaxMemoryMB = p.MaxMemoryMB
		}
		setIf(&cfg.DeleteOriginalOnConvert, p.DeleteOriginal)
		if p.LogLevel != "" {
			cfg.LogLevel = p.LogLevel
		}
		if p.Verbose {
			cfg.Verbose = true
		}
		if p.NoProgress {
			cfg.NoProgress = true
		}
	}

	if p := fc.Paths; p != nil {
		if p.MediaDir != "" {
			cfg.MediaDir = p.MediaDir
		}
		if p.DB != "" {
			cfg.DBPath = p.DB
		}
		if p.Cwebp != "" {
			cfg.CwebpPath = p.Cwebp
		}
		if p.Ffmpeg != "" {
			cfg.FfmpegPath = p.Ffmpeg
		}
		if p.SupportDir != "" {
			cfg.SupportDir = p.SupportDir
		}
	}
}

func ptr[T any](v T) *T {
	return &v
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

// GenerateExampleConfig генерирует пример конфигурационного файла.
func GenerateExampleConfig() string {
	return `# MediaConverter Configuration File
# Все параметры опциональны - если не указаны, используются значения по умолчанию.
# CLI флаги имеют приоритет над этим файлом.

# Встроенный пресет: web, small, archive, voice
# preset: web

images:
  enabled: true
  # Целевой формат: webp или avif
  format: webp
  # Качество (0-100)
  quality: 60
  # Размеры (0 = не ограничивать)
  width: 0
  height: 200
  avoid_upscaling: true
  # Расширения, которые не конвертируются
  excluded: "gif,svg,webp,avif"
  # Повторно конвертировать файлы целевого формата
  reconvert: false

audio:
  enabled: true
  # Контейнер: opus или ogg
  container: ogg
  bitrate_k: 32
  excluded: "opus,ogg"

naming:
  preserve_original: false
  # 0-7: paste/sort-field/custom-field/current-field x time-number/time-human
  pattern: 0
  custom_field: ""

processing:
  parallel: true
  # Количество воркеров (по умолчанию = половина CPU cores)
  workers: 4
  max_memory_mb: 0
  # Удалять исходные файлы после записи заметок
  delete_original: false
  log_level: warn

paths:
  media_dir: "./collection.media"
  db: ""
  cwebp: ""
  ffmpeg: ""
  support_dir: ""
`
}

/*
Возможные расширения:
- Добавить поддержку TOML формата
- Добавить команду 'config init' для генерации конфига
- Добавить поддержку переменных окружения в конфиге
*/
