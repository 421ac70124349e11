package config

import (
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg == nil {
		t.Fatal("DefaultConfig() returned nil")
	}

	// Проверяем значения по умолчанию
	if cfg.ImageFormat != FormatWebP {
		t.Errorf("ImageFormat = %v, want %v", cfg.ImageFormat, FormatWebP)
	}

	if cfg.AudioExtension() != ".ogg" {
		t.Errorf("AudioExtension() = %q, want .ogg", cfg.AudioExtension())
	}

	if cfg.Workers < 1 {
		t.Errorf("Workers = %d, want >= 1", cfg.Workers)
	}

	if cfg.DeleteOriginalOnConvert {
		t.Error("DeleteOriginalOnConvert should be false by default")
	}

	if !cfg.EnableImageConversion || !cfg.EnableAudioConversion {
		t.Error("image and audio conversion should be enabled by default")
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		cfg := DefaultConfig()
		cfg.MediaDir = "/media"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid config", mutate: func(c *Config) {}},
		{name: "missing media dir", mutate: func(c *Config) { c.MediaDir = "" }, wantErr: true},
		{name: "unknown image format", mutate: func(c *Config) { c.ImageFormat = "png" }, wantErr: true},
		{name: "avif", mutate: func(c *Config) { c.ImageFormat = FormatAVIF }},
		{name: "quality low", mutate: func(c *Config) { c.ImageQuality = -1 }, wantErr: true},
		{name: "quality high", mutate: func(c *Config) { c.ImageQuality = 101 }, wantErr: true},
		{name: "quality zero", mutate: func(c *Config) { c.ImageQuality = 0 }},
		{name: "width too large", mutate: func(c *Config) { c.ImageWidth = 100_000 }, wantErr: true},
		{name: "pattern out of range", mutate: func(c *Config) { c.FilenamePatternNum = 8 }, wantErr: true},
		{name: "invalid workers", mutate: func(c *Config) { c.Workers = 0 }, wantErr: true},
		{name: "invalid log level", mutate: func(c *Config) { c.LogLevel = "loud" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_ValidateDefaultDBPath(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MediaDir = "/media"

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	want := filepath.Join("/media", ".mediaconverter", "notes.sqlite")
	if cfg.DBPath != want {
		t.Errorf("DBPath = %q, want %q", cfg.DBPath, want)
	}
}

func TestConfig_ExcludedImageExtensions(t *testing.T) {
	tests := []struct {
		name             string
		excluded         string
		format           ImageFormat
		includeConverted bool
		want             []string
		notWant          []string
	}{
		{
			name:     "target always excluded",
			excluded: "",
			format:   FormatAVIF,
			want:     []string{".avif"},
			notWant:  []string{".webp", ".svg"},
		},
		{
			name:             "reconvert drops target",
			excluded:         "svg,webp,avif",
			format:           FormatWebP,
			includeConverted: true,
			want:             []string{".svg", ".avif"},
			notWant:          []string{".webp"},
		},
		{
			name:     "case and spaces",
			excluded: " SVG , .Gif",
			format:   FormatWebP,
			want:     []string{".svg", ".gif", ".webp"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.ExcludedImageContainers = tt.excluded
			cfg.ImageFormat = tt.format

			got := cfg.ExcludedImageExtensions(tt.includeConverted)
			for _, ext := range tt.want {
				if _, ok := got[ext]; !ok {
					t.Errorf("expected %q to be excluded, got %v", ext, got)
				}
			}
			for _, ext := range tt.notWant {
				if _, ok := got[ext]; ok {
					t.Errorf("expected %q not to be excluded, got %v", ext, got)
				}
			}
		})
	}
}

func TestConfig_Audio(t *testing.T) {
	tests := []struct {
		container AudioContainer
		want      string
	}{
		{ContainerOpus, ".opus"},
		{ContainerOgg, ".ogg"},
		{"OPUS", ".opus"},
		{"mp3", ".ogg"},
		{"", ".ogg"},
	}

	for _, tt := range tests {
		t.Run(string(tt.container), func(t *testing.T) {
			cfg := &Config{AudioContainer: tt.container}
			if got := cfg.AudioExtension(); got != tt.want {
				t.Errorf("AudioExtension() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestConfig_Clamps(t *testing.T) {
	cfg := &Config{
		ImageQuality:       150,
		ImageWidth:         -5,
		ImageHeight:        200_000,
		AudioBitrateK:      1,
		FilenamePatternNum: 42,
	}

	if got := cfg.Quality(); got != 100 {
		t.Errorf("Quality() = %d, want 100", got)
	}
	if got := cfg.Width(); got != 0 {
		t.Errorf("Width() = %d, want 0", got)
	}
	if got := cfg.Height(); got != MaxImageDimension {
		t.Errorf("Height() = %d, want %d", got, MaxImageDimension)
	}
	if got := cfg.BitrateK(); got != MinAudioBitrateK {
		t.Errorf("BitrateK() = %d, want %d", got, MinAudioBitrateK)
	}
	if got := cfg.PatternNum(); got != 0 {
		t.Errorf("PatternNum() = %d, want 0", got)
	}
}

func TestFileConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")

	src := DefaultConfig()
	src.ImageFormat = FormatAVIF
	src.ImageQuality = 33
	src.BulkReconvert = true
	src.FilenamePatternNum = 5

	if err := FromConfig(src).SaveToFile(path); err != nil {
		t.Fatalf("SaveToFile() error = %v", err)
	}

	fc, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}

	dst := DefaultConfig()
	fc.ApplyToConfig(dst)

	if dst.ImageFormat != FormatAVIF || dst.ImageQuality != 33 || !dst.BulkReconvert || dst.FilenamePatternNum != 5 {
		t.Errorf("ApplyToConfig() = %+v", dst)
	}
}

func TestLoadFromFile_Missing(t *testing.T) {
	fc, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil || fc != nil {
		t.Errorf("LoadFromFile() = %v, %v; want nil, nil", fc, err)
	}
}
