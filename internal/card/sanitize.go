package card

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	// §x§R§R§G§G§B§B hex colour escapes.
	rgbSequence = regexp.MustCompile(`§x(?:§[0-9A-Fa-f]){6}`)
	// Single legacy colour and format codes (§a, §l, §r, ...).
	legacyCode = regexp.MustCompile(`§[0-9A-FK-ORa-fk-or]`)
	lineBreak  = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")
)

// MaxDescriptionRunes caps a sanitized description. No single line wider
// than this fits even the largest canvas.
const MaxDescriptionRunes = 1024

// Sanitize strips inline formatting codes from a server description and
// folds it onto one line, keeping at most MaxDescriptionRunes runes.
// Unrecognised sequences are left as-is.
func Sanitize(raw string) string {
	if raw == "" {
		return ""
	}
	s := rgbSequence.ReplaceAllString(raw, "")
	s = legacyCode.ReplaceAllString(s, "")
	s = lineBreak.Replace(s)
	s = strings.Map(func(r rune) rune {
		if r == '\t' {
			return ' '
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) > MaxDescriptionRunes {
		s = string([]rune(s)[:MaxDescriptionRunes])
	}
	return s
}
