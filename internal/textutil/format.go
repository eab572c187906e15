package textutil

import (
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	titleCaser = cases.Title(language.English)
	printer    = message.NewPrinter(language.English)
)

// Truncate shortens s to at most limit runes, appending "..." when cut.
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}

// TitleCase turns identifiers like "in_progress" into "In Progress".
func TitleCase(value string) string {
	value = strings.TrimSpace(strings.NewReplacer("_", " ", "-", " ").Replace(value))
	if value == "" {
		return ""
	}
	return titleCaser.String(value)
}

// FormatCount renders n with thousands separators.
func FormatCount(n int64) string {
	return printer.Sprintf("%d", n)
}

// FormatSpeed renders a decimal speed string as "0.85x". Values that do not
// parse are returned unchanged.
func FormatSpeed(speed string) string {
	speed = strings.TrimSpace(speed)
	if speed == "" {
		return ""
	}
	v, err := strconv.ParseFloat(speed, 64)
	if err != nil {
		return speed
	}
	return strconv.FormatFloat(v, 'f', -1, 64) + "x"
}

// FormatPause renders a decimal seconds string as "3s" or "1m 30s".
func FormatPause(seconds string) string {
	seconds = strings.TrimSpace(seconds)
	v, err := strconv.ParseFloat(seconds, 64)
	if err != nil {
		return seconds
	}
	if v < 60 {
		return strconv.FormatFloat(v, 'f', -1, 64) + "s"
	}
	minutes := int(v) / 60
	rest := v - float64(minutes*60)
	if rest == 0 {
		return strconv.Itoa(minutes) + "m"
	}
	return strconv.Itoa(minutes) + "m " + strconv.FormatFloat(rest, 'f', -1, 64) + "s"
}
