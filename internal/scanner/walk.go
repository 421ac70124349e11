package scanner

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// File представляет файл директории медиа.
type File struct {
	// Name - имя файла относительно директории медиа.
	Name string

	// Path - абсолютный путь к файлу.
	Path string

	// Size - размер файла в байтах.
	Size int64
}

// ListMedia возвращает файлы верхнего уровня директории медиа.
// Пропускаются директории, скрытые файлы и файлы с префиксом "_"
// (служебные файлы шаблонов заметок).
func ListMedia(ctx context.Context, dir string) ([]File, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать директорию %s: %w", dir, err)
	}

	files := make([]File, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".") {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Предупреждение: не удалось получить info %s: %v\n", name, err)
			continue
		}
		if !info.Mode().IsRegular() {
			continue
		}

		files = append(files, File{
			Name: name,
			Path: filepath.Join(dir, name),
			Size: info.Size(),
		})
	}

	return files, nil
}

// ComputeSHA256 вычисляет sha256 хэш файла.
func ComputeSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("не удалось открыть файл: %w", err)
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("не удалось прочитать файл: %w", err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
