package worker

import "fmt"

// Stats содержит статистику обработки.
type Stats struct {
	// Converted - количество сконвертированных файлов.
	Converted int64

	// Failed - количество файлов с ошибками.
	Failed int64

	// Discarded - количество файлов, не запущенных из-за отмены.
	Discarded int64

	// Total - общее количество файлов.
	Total int64

	// InputBytes - общий размер сконвертированных исходников.
	InputBytes int64

	// OutputBytes - общий размер результатов.
	OutputBytes int64
}

// SavedBytes возвращает количество сэкономленных байт.
func (s *Stats) SavedBytes() int64 {
	return s.InputBytes - s.OutputBytes
}

// SavedPercent возвращает процент экономии.
func (s *Stats) SavedPercent() float64 {
	if s.InputBytes == 0 {
		return 0
	}
	return float64(s.SavedBytes()) / float64(s.InputBytes) * 100
}

// FormatBytes форматирует байты в человекочитаемый формат.
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < 0 {
		return "-" + FormatBytes(-bytes)
	}
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
