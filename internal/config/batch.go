// Package config содержит конфигурацию приложения.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// NamedPreset представляет сохранённый пользователем пресет.
type NamedPreset struct {
	// Name - имя пресета.
	Name string
	// Path - путь к файлу пресета.
	Path string
	// Config - содержимое (nil, если файл не читается).
	Config *FileConfig
}

// PresetStore хранит именованные пресеты как YAML файлы в одной директории.
type PresetStore struct {
	// Dir - директория пресетов.
	Dir string
}

// DefaultPresetStore возвращает хранилище в ~/.config/mediaconverter/presets.
func DefaultPresetStore() (*PresetStore, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("не удалось получить домашнюю директорию: %w", err)
	}
	return &PresetStore{Dir: filepath.Join(homeDir, ".config", "mediaconverter", "presets")}, nil
}

// Path возвращает путь к файлу пресета по имени.
func (s *PresetStore) Path(name string) (string, error) {
	safeName := sanitizePresetName(name)
	if safeName == "" {
		return "", fmt.Errorf("некорректное имя пресета: %q", name)
	}
	return filepath.Join(s.Dir, safeName+".yaml"), nil
}

// sanitizePresetName оставляет только буквы, цифры, дефисы и подчёркивания.
func sanitizePresetName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return -1
	}, name)
}

// Save сохраняет конфигурацию как именованный пресет.
func (s *PresetStore) Save(name string, cfg *Config) (string, error) {
	path, err := s.Path(name)
	if err != nil {
		return "", err
	}
	if err := FromConfig(cfg).SaveToFile(path); err != nil {
		return "", fmt.Errorf("не удалось сохранить пресет: %w", err)
	}
	return path, nil
}

// Load загружает пресет по имени.
func (s *PresetStore) Load(name string) (*FileConfig, string, error) {
	path, err := s.Path(name)
	if err != nil {
		return nil, "", err
	}

	fc, err := LoadFromFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("не удалось загрузить пресет '%s': %w", name, err)
	}
	if fc == nil {
		return nil, "", fmt.Errorf("пресет '%s' не найден", name)
	}

	return fc, path, nil
}

// List возвращает все сохранённые пресеты, отсортированные по имени.
func (s *PresetStore) List() ([]NamedPreset, error) {
	entries, err := os.ReadDir(s.Dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать директорию пресетов: %w", err)
	}

	var presets []NamedPreset
	for _, entry := range entries {
		name := entry.Name()
		ext := filepath.Ext(name)
		if entry.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}

		path := filepath.Join(s.Dir, name)
		fc, _ := LoadFromFile(path)

		presets = append(presets, NamedPreset{
			Name:   strings.TrimSuffix(name, ext),
			Path:   path,
			Config: fc,
		})
	}

	slices.SortFunc(presets, func(a, b NamedPreset) int {
		return strings.Compare(a.Name, b.Name)
	})

	return presets, nil
}

// Delete удаляет именованный пресет.
func (s *PresetStore) Delete(name string) error {
	path, err := s.Path(name)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("пресет '%s' не найден", name)
		}
		return fmt.Errorf("не удалось удалить пресет: %w", err)
	}

	return nil
}

// Exists проверяет существование пресета.
func (s *PresetStore) Exists(name string) bool {
	path, err := s.Path(name)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

/*
Возможные расширения:
- Добавить описание к пресетам
- Добавить импорт/экспорт пресетов
- Добавить наследование пресетов (extends)
*/
