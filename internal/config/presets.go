// Package config содержит конфигурацию приложения.
package config

// Preset определяет встроенный профиль качества.
type Preset string

const (
	// PresetWeb - webp, качество 60, высота 200, без увеличения.
	PresetWeb Preset = "web"
	// PresetSmall - avif, качество 40, высота 150: минимальный размер коллекции.
	PresetSmall Preset = "small"
	// PresetArchive - webp, качество 90, без resize.
	PresetArchive Preset = "archive"
	// PresetVoice - opus 24 кбит/с, изображения не трогаются.
	PresetVoice Preset = "voice"
)

// PresetConfig содержит настройки для пресета.
type PresetConfig struct {
	// Format - формат изображений.
	Format ImageFormat
	// Quality - качество (0-100).
	Quality int
	// Width - ширина (0 = без ограничения).
	Width int
	// Height - высота (0 = без ограничения).
	Height int
	// Container - аудиоконтейнер.
	Container AudioContainer
	// BitrateK - битрейт аудио.
	BitrateK int
	// Images - конвертировать изображения.
	Images bool
}

// Presets содержит все доступные пресеты.
var Presets = map[Preset]PresetConfig{
	PresetWeb: {
		Format:    FormatWebP,
		Quality:   60,
		Height:    200,
		Container: ContainerOgg,
		BitrateK:  32,
		Images:    true,
	},
	PresetSmall: {
		Format:    FormatAVIF,
		Quality:   40,
		Height:    150,
		Container: ContainerOpus,
		BitrateK:  20,
		Images:    true,
	},
	PresetArchive: {
		Format:    FormatWebP,
		Quality:   90,
		Container: ContainerOgg,
		BitrateK:  96,
		Images:    true,
	},
	PresetVoice: {
		Format:    FormatWebP,
		Quality:   60,
		Container: ContainerOpus,
		BitrateK:  24,
		Images:    false,
	},
}

// ApplyPreset применяет пресет к конфигурации.
// Возвращает true, если пресет был применён.
func (c *Config) ApplyPreset(preset string) bool {
	p, ok := Presets[Preset(preset)]
	if !ok {
		return false
	}

	c.ImageFormat = p.Format
	c.ImageQuality = p.Quality
	c.ImageWidth = p.Width
	c.ImageHeight = p.Height
	c.AudioContainer = p.Container
	c.AudioBitrateK = p.BitrateK
	c.EnableImageConversion = p.Images

	return true
}

// ValidPresets возвращает список доступных пресетов.
func ValidPresets() []string {
	return []string{
		string(PresetWeb),
		string(PresetSmall),
		string(PresetArchive),
		string(PresetVoice),
	}
}

/*
Возможные расширения:
- Добавить пресет для мобильного клиента (меньшая высота)
- Добавить пресет без потерь (webp -lossless)
*/
