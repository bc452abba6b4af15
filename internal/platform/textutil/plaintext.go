package textutil

import (
	"html"
	"strings"
	"sync"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
)

var (
	strictOnce   sync.Once
	strictPolicy *bluemonday.Policy
)

func policy() *bluemonday.Policy {
	strictOnce.Do(func() {
		strictPolicy = bluemonday.StrictPolicy()
	})
	return strictPolicy
}

// PlainText strips markup and control characters from user-authored text. Newlines survive.
func PlainText(value string) string {
	if value == "" {
		return ""
	}
	cleaned := html.UnescapeString(policy().Sanitize(value))
	cleaned = strings.ReplaceAll(cleaned, "\r\n", "\n")
	cleaned = strings.ReplaceAll(cleaned, "\r", "\n")
	cleaned = strings.Map(func(r rune) rune {
		switch {
		case r == '\n':
			return r
		case r == '\t':
			return ' '
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, cleaned)
	return strings.TrimSpace(cleaned)
}

// PlainLine is PlainText collapsed onto a single line.
func PlainLine(value string) string {
	return strings.Join(strings.Fields(PlainText(value)), " ")
}

// Initials returns up to two upper-case initials for a name, e.g. "Acme Design Co" → "AD".
func Initials(name string) string {
	var out []rune
	for _, word := range strings.Fields(PlainLine(name)) {
		for _, r := range word {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				out = append(out, unicode.ToUpper(r))
				break
			}
		}
		if len(out) == 2 {
			break
		}
	}
	return string(out)
}
