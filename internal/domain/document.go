package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// DefaultMaxLineItems bounds layout and rounding work for a single document.
	DefaultMaxLineItems = 500
	// DefaultMaxPages is the page ceiling enforced by the PDF pipeline.
	DefaultMaxPages = 50
	// DefaultUndoDepth is the number of prior snapshots an editor session retains.
	DefaultUndoDepth = 50
)

// DocumentKind discriminates the four business document variants sharing one record shape.
type DocumentKind string

const (
	// KindInvoice requests payment for delivered goods or services.
	KindInvoice DocumentKind = "invoice"
	// KindQuote offers a fixed price that expires.
	KindQuote DocumentKind = "quote"
	// KindEstimate offers an indicative price that expires.
	KindEstimate DocumentKind = "estimate"
	// KindReceipt acknowledges a completed payment.
	KindReceipt DocumentKind = "receipt"
)

// DocumentKinds lists every supported kind in display order.
var DocumentKinds = []DocumentKind{KindInvoice, KindQuote, KindEstimate, KindReceipt}

// ParseDocumentKind normalises the raw value and reports whether it names a supported kind.
func ParseDocumentKind(raw string) (DocumentKind, bool) {
	kind := DocumentKind(strings.ToLower(strings.TrimSpace(raw)))
	return kind, kind.Valid()
}

// Valid reports whether the kind is one of the supported variants.
func (k DocumentKind) Valid() bool {
	switch k {
	case KindInvoice, KindQuote, KindEstimate, KindReceipt:
		return true
	}
	return false
}

// Title returns the heading printed on the document.
func (k DocumentKind) Title() string {
	switch k {
	case KindQuote:
		return "QUOTE"
	case KindEstimate:
		return "ESTIMATE"
	case KindReceipt:
		return "RECEIPT"
	default:
		return "INVOICE"
	}
}

// NumberPrefix returns the prefix used when auto-assigning document numbers.
func (k DocumentKind) NumberPrefix() string {
	switch k {
	case KindQuote:
		return "QUO"
	case KindEstimate:
		return "EST"
	case KindReceipt:
		return "RCT"
	default:
		return "INV"
	}
}

// ShowsPaidStatus reports whether the kind renders a paid badge.
func ShowsPaidStatus(kind DocumentKind) bool {
	return kind == KindReceipt
}

// ShowsExpiryDate reports whether DueOrExpiryDate is presented as an expiry ("valid until") date.
func ShowsExpiryDate(kind DocumentKind) bool {
	return kind == KindQuote || kind == KindEstimate
}

// ShowsDueDate reports whether DueOrExpiryDate is presented as a payment due date.
func ShowsDueDate(kind DocumentKind) bool {
	return kind == KindInvoice
}

// DueOrExpiryLabel returns the label for DueOrExpiryDate, or "" when the kind hides it.
func DueOrExpiryLabel(kind DocumentKind) string {
	switch {
	case ShowsDueDate(kind):
		return "Due Date"
	case ShowsExpiryDate(kind):
		return "Valid Until"
	default:
		return ""
	}
}

// ThemeID selects one of the fixed visual themes. Purely cosmetic.
type ThemeID string

const (
	// ThemeModern is the default theme.
	ThemeModern ThemeID = "modern"
	// ThemeCorporate uses a restrained palette with a serif face.
	ThemeCorporate ThemeID = "corporate"
	// ThemeCreative uses a saturated palette with a banded header.
	ThemeCreative ThemeID = "creative"
)

// ThemeIDs lists every supported theme.
var ThemeIDs = []ThemeID{ThemeModern, ThemeCorporate, ThemeCreative}

// Valid reports whether the theme identifier is supported.
func (t ThemeID) Valid() bool {
	switch t {
	case ThemeModern, ThemeCorporate, ThemeCreative:
		return true
	}
	return false
}

// Party describes either side of a document. Issuer and recipient share this shape.
type Party struct {
	Name         string   `json:"name"`
	AddressLines []string `json:"addressLines,omitempty"`
	Email        string   `json:"email,omitempty"`
	Phone        string   `json:"phone,omitempty"`
	TaxID        string   `json:"taxId,omitempty"`
	// LogoRef is only consulted on the issuer: a data: URI, local path, or gs:// object.
	LogoRef string `json:"logoRef,omitempty"`
}

// DiscountKind distinguishes percentage and fixed-amount discounts.
type DiscountKind string

const (
	// DiscountPercentage applies Percent of the subtotal.
	DiscountPercentage DiscountKind = "percentage"
	// DiscountFixed subtracts Amount minor units, clamped at the subtotal.
	DiscountFixed DiscountKind = "fixed"
)

// Discount is applied once at document level, before tax.
type Discount struct {
	Kind    DiscountKind    `json:"kind"`
	Percent decimal.Decimal `json:"percent"`
	Amount  int64           `json:"amount"`
}

// IsPercentage reports whether the discount is expressed as a percentage.
func (d Discount) IsPercentage() bool {
	return d.Kind == DiscountPercentage
}

// IsZero reports whether the discount has no effect.
func (d Discount) IsZero() bool {
	if d.IsPercentage() {
		return d.Percent.IsZero()
	}
	return d.Amount == 0
}

// LineItem is one billed row. UnitRate and LineTotal are minor currency units.
type LineItem struct {
	ID          string          `json:"id,omitempty"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitRate    int64           `json:"unitRate"`
	// LineTotal is derived and overwritten on every recompute.
	LineTotal int64 `json:"lineTotal"`
}

// Totals holds the derived monetary results for a document, in minor units.
type Totals struct {
	Subtotal       int64 `json:"subtotal"`
	DiscountAmount int64 `json:"discountAmount"`
	TaxableBase    int64 `json:"taxableBase"`
	TaxAmount      int64 `json:"taxAmount"`
	GrandTotal     int64 `json:"grandTotal"`
}

// BusinessDocument is the canonical record shared by invoices, quotes, estimates and receipts.
type BusinessDocument struct {
	Kind            DocumentKind    `json:"kind"`
	Issuer          Party           `json:"issuer"`
	Recipient       Party           `json:"recipient"`
	Number          string          `json:"number"`
	Reference       string          `json:"reference,omitempty"`
	IssueDate       time.Time       `json:"issueDate"`
	DueOrExpiryDate *time.Time      `json:"dueOrExpiryDate,omitempty"`
	Currency        string          `json:"currency"`
	LineItems       []LineItem      `json:"lineItems"`
	Discount        Discount        `json:"discount"`
	TaxRate         decimal.Decimal `json:"taxRate"`
	Notes           string          `json:"notes,omitempty"`
	Theme           ThemeID         `json:"theme"`

	// Receipt-only fields; ignored by other kinds.
	Paid          bool       `json:"paid,omitempty"`
	PaidOn        *time.Time `json:"paidOn,omitempty"`
	PaymentMethod string     `json:"paymentMethod,omitempty"`

	// Derived is never authored by the user.
	Derived Totals `json:"derived"`
}

// NewDocument returns an empty document of the given kind with defaults applied.
func NewDocument(kind DocumentKind, currency string, issued time.Time) BusinessDocument {
	if !kind.Valid() {
		kind = KindInvoice
	}
	return BusinessDocument{
		Kind:      kind,
		IssueDate: issued.UTC().Truncate(24 * time.Hour),
		Currency:  strings.ToUpper(strings.TrimSpace(currency)),
		LineItems: []LineItem{},
		Discount:  Discount{Kind: DiscountPercentage, Percent: decimal.Zero},
		TaxRate:   decimal.Zero,
		Theme:     ThemeModern,
	}
}

// HasAmounts reports whether any line item carries a non-zero rate.
func (d BusinessDocument) HasAmounts() bool {
	for _, item := range d.LineItems {
		if item.UnitRate != 0 {
			return true
		}
	}
	return d.Discount.Amount != 0
}

// Clone returns a deep copy that shares no mutable state with the receiver.
func (d BusinessDocument) Clone() BusinessDocument {
	out := d
	out.Issuer = d.Issuer.clone()
	out.Recipient = d.Recipient.clone()
	out.DueOrExpiryDate = cloneTime(d.DueOrExpiryDate)
	out.PaidOn = cloneTime(d.PaidOn)
	if d.LineItems != nil {
		out.LineItems = make([]LineItem, len(d.LineItems))
		copy(out.LineItems, d.LineItems)
	}
	return out
}

func (p Party) clone() Party {
	out := p
	if p.AddressLines != nil {
		out.AddressLines = append([]string(nil), p.AddressLines...)
	}
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
