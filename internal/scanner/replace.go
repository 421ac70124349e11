package scanner

import (
	"regexp"
	"strings"
)

// ReplaceReferences заменяет ссылки на файл oldName ссылками на newName:
// значения атрибутов src="..."/src='...' и маркеры [sound:...].
// Имена, лишь содержащие oldName как подстроку, не затрагиваются.
func ReplaceReferences(text, oldName, newName string) string {
	if oldName == "" || oldName == newName || !strings.Contains(text, oldName) {
		return text
	}

	quoted := regexp.QuoteMeta(oldName)
	for _, q := range []string{`"`, `'`} {
		re := regexp.MustCompile(`(?i:\ssrc=)` + q + quoted + q)
		text = re.ReplaceAllStringFunc(text, func(m string) string {
			prefix := m[:len(m)-len(oldName)-len(q)]
			return prefix + newName + q
		})
	}

	sound := regexp.MustCompile(`(?i:\[sound:)` + quoted + `\]`)
	return sound.ReplaceAllStringFunc(text, func(m string) string {
		return m[:len(m)-len(oldName)-1] + newName + "]"
	})
}
