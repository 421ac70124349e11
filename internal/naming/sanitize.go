package naming

import (
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"
)

const maxNameBytes = 90

var (
	forbiddenChars = regexp.MustCompile(`[\[\]<>:"/|?*\\;,&']+`)
	multiSpace     = regexp.MustCompile(` +`)
)

// Sanitize превращает произвольный текст (в том числе HTML поля заметки)
// в безопасное имя файла без расширения.
func Sanitize(s string) string {
	s = htmlToTextLine(s)
	if len(s) > maxNameBytes {
		s = strings.ToValidUTF8(s[:maxNameBytes], "")
	}
	s = norm.NFC.String(s)
	s = forbiddenChars.ReplaceAllString(s, " ")
	s = strings.ToLower(s)
	s = multiSpace.ReplaceAllString(s, " ")
	s = strings.Trim(s, "-_ ")
	if s == "" {
		return "file"
	}
	return s
}

// htmlToTextLine убирает теги, раскрывает сущности и склеивает текст в одну строку.
func htmlToTextLine(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return oneLine(s)
	}

	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(s))
	for {
		switch z.Next() {
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				return oneLine(b.String())
			}
			return oneLine(s)
		case html.TextToken:
			b.Write(z.Text())
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "br", "div", "p", "li", "tr":
				b.WriteByte(' ')
			}
		}
	}
}

func oneLine(s string) string {
	s = strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', '\t', ' ':
			return ' '
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}

// maxReserveAttempts ограничивает число попыток подобрать свободное имя.
const maxReserveAttempts = 10_000

// Reserve атомарно создаёт пустой файл dir/base+ext и возвращает его путь.
// Если имя занято, к нему добавляется случайный суффикс "_NNNN".
// Вызывающий код перезаписывает файл результатом или удаляет его при ошибке.
func Reserve(dir, base, ext string) (string, error) {
	path := filepath.Join(dir, base+ext)
	for range maxReserveAttempts {
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if err == nil {
			_ = f.Close()
			return path, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return "", fmt.Errorf("не удалось создать %s: %w", path, err)
		}
		path = filepath.Join(dir, fmt.Sprintf("%s_%04d%s", base, rand.IntN(10_000), ext))
	}
	return "", fmt.Errorf("не удалось подобрать свободное имя для %s%s", base, ext)
}
