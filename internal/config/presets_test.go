package config

import (
	"testing"
)

func TestApplyPreset(t *testing.T) {
	tests := []struct {
		name       string
		preset     string
		wantOK     bool
		wantFormat ImageFormat
		wantQual   int
	}{
		{
			name:       "web preset",
			preset:     "web",
			wantOK:     true,
			wantFormat: FormatWebP,
			wantQual:   60,
		},
		{
			name:       "small preset",
			preset:     "small",
			wantOK:     true,
			wantFormat: FormatAVIF,
			wantQual:   40,
		},
		{
			name:       "archive preset",
			preset:     "archive",
			wantOK:     true,
			wantFormat: FormatWebP,
			wantQual:   90,
		},
		{
			name:   "unknown preset",
			preset: "unknown",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			ok := cfg.ApplyPreset(tt.preset)

			if ok != tt.wantOK {
				t.Errorf("ApplyPreset() = %v, want %v", ok, tt.wantOK)
			}

			if tt.wantOK {
				if cfg.ImageFormat != tt.wantFormat {
					t.Errorf("ImageFormat = %v, want %v", cfg.ImageFormat, tt.wantFormat)
				}
				if cfg.ImageQuality != tt.wantQual {
					t.Errorf("ImageQuality = %d, want %d", cfg.ImageQuality, tt.wantQual)
				}
			}
		})
	}
}

func TestPresetVoiceDisablesImages(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ApplyPreset("voice")

	if cfg.EnableImageConversion {
		t.Error("voice preset should disable image conversion")
	}
	if cfg.AudioExtension() != ".opus" {
		t.Errorf("AudioExtension() = %q, want .opus", cfg.AudioExtension())
	}
}

func TestPresetConfig(t *testing.T) {
	for name, preset := range Presets {
		t.Run(string(name), func(t *testing.T) {
			if preset.Quality < 0 || preset.Quality > 100 {
				t.Errorf("Preset %s has invalid quality: %d", name, preset.Quality)
			}
			if preset.BitrateK < MinAudioBitrateK || preset.BitrateK > MaxAudioBitrateK {
				t.Errorf("Preset %s has invalid bitrate: %d", name, preset.BitrateK)
			}
		})
	}

	if len(ValidPresets()) != len(Presets) {
		t.Errorf("ValidPresets() returned %d presets, want %d", len(ValidPresets()), len(Presets))
	}
}

func TestPresetStore(t *testing.T) {
	store := &PresetStore{Dir: t.TempDir()}

	cfg := DefaultConfig()
	cfg.ImageQuality = 42

	if _, err := store.Save("my project!", cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if !store.Exists("myproject") {
		t.Fatal("preset should be stored under sanitized name")
	}

	presets, err := store.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(presets) != 1 || presets[0].Name != "myproject" {
		t.Fatalf("List() = %+v", presets)
	}

	fc, _, err := store.Load("myproject")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	loaded := DefaultConfig()
	fc.ApplyToConfig(loaded)
	if loaded.ImageQuality != 42 {
		t.Errorf("ImageQuality = %d, want 42", loaded.ImageQuality)
	}

	if err := store.Delete("myproject"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := store.Delete("myproject"); err == nil {
		t.Error("Delete() of missing preset should fail")
	}
	if _, err := store.Path("!!!"); err == nil {
		t.Error("Path() should reject names without safe characters")
	}
}
