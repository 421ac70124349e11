// Package media содержит базовые типы медиафайлов коллекции.
package media

import (
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Kind определяет тип медиафайла.
type Kind string

const (
	// KindImage - изображение (<img src="...">).
	KindImage Kind = "image"
	// KindAudio - аудио ([sound:...]).
	KindAudio Kind = "audio"
)

// LocalFile идентифицирует файл в директории медиа коллекции.
// Значение сравнимо и используется как ключ map.
type LocalFile struct {
	// Name - имя файла относительно директории медиа (регистр сохраняется).
	Name string

	// Kind - тип файла.
	Kind Kind
}

// Image создаёт LocalFile для изображения.
func Image(name string) LocalFile {
	return LocalFile{Name: name, Kind: KindImage}
}

// Audio создаёт LocalFile для аудио.
func Audio(name string) LocalFile {
	return LocalFile{Name: name, Kind: KindAudio}
}

// Ext возвращает расширение файла в нижнем регистре с точкой.
func (f LocalFile) Ext() string {
	return Ext(f.Name)
}

func (f LocalFile) String() string {
	return string(f.Kind) + ":" + f.Name
}

// Ext возвращает расширение имени файла в нижнем регистре с точкой.
func Ext(name string) string {
	return strings.ToLower(filepath.Ext(name))
}

// CommonAudioFormats - расширения, которые считаются аудиофайлами.
var CommonAudioFormats = map[string]struct{}{
	".mp3":  {},
	".wav":  {},
	".ogg":  {},
	".flac": {},
	".aac":  {},
	".m4a":  {},
	".aiff": {},
	".amr":  {},
	".ape":  {},
	".mp2":  {},
	".oga":  {},
	".oma":  {},
	".opus": {},
}

// CommonImageFormats - расширения, которые считаются изображениями.
var CommonImageFormats = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".jfif": {},
	".png":  {},
	".apng": {},
	".gif":  {},
	".bmp":  {},
	".tif":  {},
	".tiff": {},
	".webp": {},
	".avif": {},
	".heic": {},
	".svg":  {},
}

// animatedFormats - контейнеры, которые могут содержать больше одного кадра.
var animatedFormats = map[string]struct{}{
	".apng": {},
	".gif":  {},
	".mp4":  {},
	".avi":  {},
	".mov":  {},
	".mkv":  {},
	".wmv":  {},
	".flv":  {},
	".webm": {},
	".m4v":  {},
	".mpg":  {},
	".mpeg": {},
}

// IsAudioFile проверяет, является ли файл аудио по расширению.
func IsAudioFile(name string) bool {
	_, ok := CommonAudioFormats[Ext(name)]
	return ok
}

// IsImageFile проверяет, является ли файл изображением по расширению.
func IsImageFile(name string) bool {
	_, ok := CommonImageFormats[Ext(name)]
	return ok
}

// animatedMimeTypes - типы содержимого, которые могут содержать больше одного кадра.
var animatedMimeTypes = []string{"image/gif", "image/apng", "video/"}

// MayBeAnimated проверяет, может ли файл быть анимацией или видео.
func MayBeAnimated(name string) bool {
	_, ok := animatedFormats[Ext(name)]
	return ok
}

// DetectAnimated проверяет файл path по расширению, а затем по содержимому.
// Так находятся APNG и GIF с расширением статичного формата.
// Нечитаемый файл считается статичным.
func DetectAnimated(path string) bool {
	if MayBeAnimated(path) {
		return true
	}

	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return false
	}
	for _, t := range animatedMimeTypes {
		if strings.HasPrefix(mtype.String(), t) {
			return true
		}
	}
	return false
}
