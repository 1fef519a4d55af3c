package sanitizer

import (
	"strings"
	"unicode"
)

const MaxNoteLength = 500

func TrimAndNormalize(s string) string {
	s = strings.TrimSpace(s)

	if s == "" {
		return ""
	}

	var result strings.Builder
	var lastWasSpace bool

	for _, r := range s {
		if unicode.IsSpace(r) {
			if !lastWasSpace {
				result.WriteRune(' ')
				lastWasSpace = true
			}
			continue
		}
		if unicode.IsControl(r) {
			continue
		}
		result.WriteRune(r)
		lastWasSpace = false
	}

	return result.String()
}

// SanitizeNote normalizes reviewer free text and caps it at MaxNoteLength runes.
func SanitizeNote(note string) string {
	normalized := TrimAndNormalize(note)
	runes := []rune(normalized)
	if len(runes) > MaxNoteLength {
		normalized = strings.TrimSpace(string(runes[:MaxNoteLength]))
	}
	return normalized
}
