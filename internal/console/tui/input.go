package tui

import (
	"strings"
	"unicode/utf8"
)

const maxInputLen = 254

// editRune applies a key press to a single-line field.
func editRune(text string, key string) string {
	switch key {
	case "backspace":
		if len(text) > 0 {
			runes := []rune(text)
			return string(runes[:len(runes)-1])
		}
		return text
	default:
		if utf8.RuneCountInString(key) == 1 {
			if utf8.RuneCountInString(text) >= maxInputLen {
				return text
			}
			return text + key
		}
		return text
	}
}

func mask(text string) string {
	return strings.Repeat("•", utf8.RuneCountInString(text))
}
