// Package layout maps a business document and a theme to a read-only tree of
// drawable regions. The on-screen preview and the PDF renderer consume the
// same tree, so what the user sees is what gets exported.
package layout

import "github.com/hanko-field/bizdoc/internal/domain"

// RegionKind identifies a drawable region.
type RegionKind string

const (
	RegionHeader    RegionKind = "header"
	RegionParty     RegionKind = "party"
	RegionItemTable RegionKind = "item_table"
	RegionTotals    RegionKind = "totals"
	RegionFooter    RegionKind = "footer"
)

// Tree is the resolved layout. Regions are always in the same order:
// header, issuer, recipient, item table, totals, footer.
type Tree struct {
	Kind    domain.DocumentKind `json:"kind"`
	Locale  string              `json:"locale"`
	Style   Tokens              `json:"style"`
	Regions []Region            `json:"regions"`
}

// Region is a tagged union; exactly one payload pointer matches Kind.
type Region struct {
	Kind   RegionKind   `json:"kind"`
	Header *Header      `json:"header,omitempty"`
	Party  *PartyBlock  `json:"party,omitempty"`
	Items  *ItemTable   `json:"items,omitempty"`
	Totals *TotalsBlock `json:"totals,omitempty"`
	Footer *FooterBlock `json:"footer,omitempty"`
}

// Logo is either a decoded image or a placeholder showing the issuer's initials.
type Logo struct {
	Placeholder bool              `json:"placeholder"`
	Initials    string            `json:"initials,omitempty"`
	Image       *domain.LogoImage `json:"image,omitempty"`
}

// Field is a labelled value such as "Issue Date: Oct 19, 2026".
type Field struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Header carries the title block.
type Header struct {
	Logo      Logo    `json:"logo"`
	Title     string  `json:"title"`
	Number    string  `json:"number"`
	Reference string  `json:"reference,omitempty"`
	Dates     []Field `json:"dates"`
	// Status is a badge such as "PAID"; empty when the kind hides it.
	Status string `json:"status,omitempty"`
}

// PartyRole distinguishes issuer and recipient blocks.
type PartyRole string

const (
	PartyIssuer    PartyRole = "issuer"
	PartyRecipient PartyRole = "recipient"
)

// PartyBlock is one side of the document.
type PartyBlock struct {
	Role  PartyRole `json:"role"`
	Label string    `json:"label"`
	Name  string    `json:"name"`
	Lines []string  `json:"lines,omitempty"`
}

// Align is horizontal text alignment within a cell.
type Align string

const (
	AlignLeft  Align = "L"
	AlignRight Align = "R"
)

// Column describes one item table column. Width is a fraction of the content width.
type Column struct {
	Key   string  `json:"key"`
	Title string  `json:"title"`
	Width float64 `json:"width"`
	Align Align   `json:"align"`
}

// Row is one table row with cells matching Columns.
type Row struct {
	Cells []string `json:"cells"`
	// EmptyState marks the placeholder row shown when there are no line items.
	EmptyState bool `json:"emptyState,omitempty"`
}

// ItemTable lists line items. Never omitted, even when empty.
type ItemTable struct {
	Columns []Column `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// TotalsBlock carries formatted totals.
type TotalsBlock struct {
	Subtotal   Field `json:"subtotal"`
	Discount   Field `json:"discount"`
	Tax        Field `json:"tax"`
	GrandTotal Field `json:"grandTotal"`
	// ShowDiscount is false when the discount is zero; the line is still resolved.
	ShowDiscount bool `json:"showDiscount"`
}

// Lines returns the rows to draw in order.
func (t *TotalsBlock) Lines() []Field {
	lines := make([]Field, 0, 4)
	lines = append(lines, t.Subtotal)
	if t.ShowDiscount {
		lines = append(lines, t.Discount)
	}
	lines = append(lines, t.Tax, t.GrandTotal)
	return lines
}

// FooterBlock holds notes and payment details split into lines.
type FooterBlock struct {
	Heading string   `json:"heading,omitempty"`
	Lines   []string `json:"lines"`
}

// Region returns the first region of the given kind, or nil.
func (t Tree) Region(kind RegionKind) *Region {
	for i := range t.Regions {
		if t.Regions[i].Kind == kind {
			return &t.Regions[i]
		}
	}
	return nil
}

// Structure returns the region kinds in order, for parity checks.
func (t Tree) Structure() []RegionKind {
	out := make([]RegionKind, 0, len(t.Regions))
	for _, r := range t.Regions {
		out = append(out, r.Kind)
	}
	return out
}
