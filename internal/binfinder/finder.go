// Package binfinder отвечает за поиск внешних энкодеров (cwebp, ffmpeg).
package binfinder

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// ErrNotFound возвращается, когда бинарник не найден ни в одном из мест.
var ErrNotFound = errors.New("исполняемый файл не найден")

// EnvPrefix - префикс переменных окружения с путями к бинарникам
// (MEDIACONVERTER_CWEBP, MEDIACONVERTER_FFMPEG).
const EnvPrefix = "MEDIACONVERTER_"

// Info содержит информацию о найденном бинарнике.
type Info struct {
	// Name - имя бинарника (cwebp, ffmpeg).
	Name string

	// Path - абсолютный путь к бинарнику.
	Path string

	// Version - версия (если удалось определить).
	Version string

	// Bundled - бинарник взят из директории support.
	Bundled bool
}

// Finder ищет бинарники и кэширует результат.
type Finder struct {
	// SupportDir - директория со встроенными бинарниками.
	SupportDir string

	// Custom - пользовательские пути по имени бинарника.
	Custom map[string]string

	lookPath func(string) (string, error)
	goos     string

	mu    sync.Mutex
	cache map[string]*Info
}

// NewFinder создаёт новый Finder.
// Пустой supportDir означает ./support рядом с исполняемым файлом.
func NewFinder(supportDir string, custom map[string]string) *Finder {
	if supportDir == "" {
		if execPath, err := os.Executable(); err == nil {
			supportDir = filepath.Join(filepath.Dir(execPath), "support")
		}
	}
	if custom == nil {
		custom = map[string]string{}
	}
	return &Finder{
		SupportDir: supportDir,
		Custom:     custom,
		lookPath:   exec.LookPath,
		goos:       runtime.GOOS,
		cache:      make(map[string]*Info),
	}
}

// Find ищет бинарник в следующем порядке:
// 1. Пользовательский путь (из конфигурации)
// 2. Переменная окружения MEDIACONVERTER_<NAME>
// 3. PATH
// 4. Встроенный бинарник support/<name>.exe|.mac|.lin
func (f *Finder) Find(name string) (*Info, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if info, ok := f.cache[name]; ok {
		return info, nil
	}

	info, err := f.find(name)
	if err != nil {
		return nil, err
	}
	f.cache[name] = info
	return info, nil
}

func (f *Finder) find(name string) (*Info, error) {
	if p := f.Custom[name]; p != "" {
		if isFile(p) {
			return newInfo(name, p, false), nil
		}
		return nil, errors.Wrapf(ErrNotFound, "%s: путь из конфигурации %s", name, p)
	}

	if p := os.Getenv(EnvPrefix + strings.ToUpper(name)); p != "" && isFile(p) {
		return newInfo(name, p, false), nil
	}

	if p, err := f.lookPath(name); err == nil {
		return newInfo(name, p, false), nil
	}

	bundled := filepath.Join(f.SupportDir, name+f.bundledSuffix())
	if isFile(bundled) {
		if f.goos != "windows" {
			if err := os.Chmod(bundled, 0755); err != nil {
				return nil, errors.Wrapf(err, "не удалось сделать %s исполняемым", bundled)
			}
		}
		return newInfo(name, bundled, true), nil
	}

	return nil, errors.Wrapf(ErrNotFound, "%s. Проверьте:\n"+
		"  1. Установлен ли %s в системе\n"+
		"  2. Установлена ли переменная окружения %s%s\n"+
		"  3. Находится ли бинарник в %s", name, name, EnvPrefix, strings.ToUpper(name), f.SupportDir)
}

// bundledSuffix возвращает суффикс встроенного бинарника для текущей ОС.
func (f *Finder) bundledSuffix() string {
	switch f.goos {
	case "windows":
		return ".exe"
	case "darwin":
		return ".mac"
	default:
		return ".lin"
	}
}

// Probe находит бинарник и определяет его версию.
func (f *Finder) Probe(name string) (*Info, error) {
	info, err := f.Find(name)
	if err != nil {
		return nil, err
	}

	flag := "-version"
	output, err := exec.Command(info.Path, flag).CombinedOutput()
	if err != nil {
		return info, fmt.Errorf("не удалось выполнить %s %s: %w", info.Path, flag, err)
	}

	probed := *info
	probed.Version = parseVersion(name, string(output))
	return &probed, nil
}

// parseVersion извлекает версию из вывода "-version".
// Примеры вывода: "1.3.2" (cwebp), "ffmpeg version 6.1.1 Copyright ..." (ffmpeg).
func parseVersion(name, output string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(output), "\n")
	line = strings.TrimSpace(line)

	if rest, ok := strings.CutPrefix(line, name+" version "); ok {
		version, _, _ := strings.Cut(rest, " ")
		return version
	}

	return line
}

func newInfo(name, path string, bundled bool) *Info {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return &Info{Name: name, Path: path, Bundled: bundled}
}

func isFile(path string) bool {
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}

/*
Возможные расширения:
- Проверка минимальной версии ffmpeg (наличие libaom-av1)
- Автоматическое скачивание статических сборок
*/
