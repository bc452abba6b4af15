package render

import "strings"

// PaperSize is a page size in points (1" = 72pt).
type PaperSize struct {
	Name   string
	Width  float64
	Height float64
}

var (
	LetterSize = PaperSize{Name: "Letter", Width: 612, Height: 792}   // 8.5" x 11"
	A4Size     = PaperSize{Name: "A4", Width: 595.28, Height: 841.89} // 210mm x 297mm
)

// ParsePaperSize accepts "a4" or "letter", case-insensitively.
func ParsePaperSize(raw string) (PaperSize, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "a4":
		return A4Size, true
	case "letter", "us-letter":
		return LetterSize, true
	}
	return PaperSize{}, false
}
