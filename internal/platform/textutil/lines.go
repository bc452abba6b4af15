package textutil

import "strings"

// NormalizeLines trims each entry, drops empty ones, and returns nil when nothing remains.
func NormalizeLines(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	result := make([]string, 0, len(values))
	for _, value := range values {
		trimmed := PlainLine(value)
		if trimmed == "" {
			continue
		}
		result = append(result, trimmed)
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

// Paragraphs splits text on newlines, trimming trailing blanks but keeping interior empty lines.
func Paragraphs(value string) []string {
	text := PlainText(value)
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " ")
	}
	return lines
}
