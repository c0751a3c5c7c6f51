package view

import (
	"fmt"
	"math"
	"strings"

	"github.com/MimeLyc/qtube-dashboard/internal/jobs"
	"github.com/MimeLyc/qtube-dashboard/pkg/file"
	"github.com/abadojack/whatlanggo"
)

const (
	unknownSize     = "Unknown size"
	unknownDuration = "Unknown duration"
)

var audioExtensions = map[string]struct{}{
	".mp3":  {},
	".m4a":  {},
	".aac":  {},
	".wav":  {},
	".ogg":  {},
	".opus": {},
	".flac": {},
}

var byteUnits = []string{"B", "KB", "MB", "GB"}

// FormatBytes renders a size with one decimal in binary units.
func FormatBytes(bytes int64) string {
	if bytes <= 0 {
		return unknownSize
	}
	value := float64(bytes)
	unit := 0
	for value >= 1024 && unit < len(byteUnits)-1 {
		value /= 1024
		unit++
	}
	return fmt.Sprintf("%.1f %s", value, byteUnits[unit])
}

// FormatOptionalBytes is FormatBytes for a nullable size.
func FormatOptionalBytes(bytes *int64) string {
	if bytes == nil {
		return unknownSize
	}
	return FormatBytes(*bytes)
}

// FormatDuration renders seconds as "Xm Ys".
func FormatDuration(seconds *float64) string {
	if seconds == nil || *seconds == 0 {
		return unknownDuration
	}
	minutes := math.Floor(*seconds / 60)
	remaining := math.Floor(math.Mod(*seconds, 60))
	return fmt.Sprintf("%dm %ds", int64(minutes), int64(remaining))
}

// IsAudioFile reports whether p has a known audio extension. Anything else
// with a file is treated as video.
func IsAudioFile(p string) bool {
	if p == "" {
		return false
	}
	_, ok := audioExtensions[file.Ext(p)]
	return ok
}

// CookieStatus labels the job store's cookie configuration.
func CookieStatus(settings *jobs.Settings) string {
	switch {
	case settings == nil:
		return CookiesNotConfigured
	case settings.CookiesConfigured:
		return CookiesEnabled
	case settings.CookiesPath != nil && *settings.CookiesPath != "":
		return CookiesMissingFile
	default:
		return CookiesNotConfigured
	}
}

const (
	CookiesEnabled       = "Enabled"
	CookiesMissingFile   = "Missing file"
	CookiesNotConfigured = "Not configured"
)

// FormatOptionLabel renders one select entry, e.g.
// "137 · MP4 · 1920x1080 · 1.5 MB · avc1 + mp4a".
func FormatOptionLabel(option jobs.FormatOption) string {
	ext := "unknown"
	if option.Ext != nil {
		ext = strings.ToUpper(*option.Ext)
	}
	detail := ""
	switch {
	case option.Resolution != nil:
		detail = *option.Resolution
	case option.FormatNote != nil:
		detail = *option.FormatNote
	}

	parts := make([]string, 0, 3)
	for _, p := range []string{option.FormatID, ext, detail} {
		if p != "" {
			parts = append(parts, p)
		}
	}

	size := option.Filesize
	if size == nil {
		size = option.FilesizeApprox
	}

	codecs := make([]string, 0, 2)
	for _, c := range []*string{option.VCodec, option.ACodec} {
		if c != nil && *c != "" && *c != "none" {
			codecs = append(codecs, *c)
		}
	}

	label := strings.Join(parts, " · ") + " · " + FormatOptionalBytes(size)
	if len(codecs) > 0 {
		label += " · " + strings.Join(codecs, " + ")
	}
	return label
}

// DetectLanguage names the language of a transcript when detection is
// reliable, otherwise "".
func DetectLanguage(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	info := whatlanggo.Detect(text)
	if !info.IsReliable() {
		return ""
	}
	return info.Lang.String()
}

func roundPercent(p float64) int {
	return int(math.Round(p))
}

func shorten(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
