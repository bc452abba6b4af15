package layout

import (
	"fmt"
	"time"

	"golang.org/x/text/language"

	"github.com/hanko-field/bizdoc/internal/domain"
	"github.com/hanko-field/bizdoc/internal/money"
	"github.com/hanko-field/bizdoc/internal/platform/textutil"
)

const (
	dateLayout     = "Jan 2, 2006"
	emptyStateText = "No line items yet"
)

type resolver struct {
	logo    *domain.LogoImage
	locale  language.Tag
	catalog *money.Catalog
	themes  *ThemeTable
}

// Option customises Resolve.
type Option func(*resolver)

// WithLogo supplies the decoded issuer logo. Without it the header shows a placeholder.
func WithLogo(logo *domain.LogoImage) Option {
	return func(r *resolver) {
		r.logo = logo
	}
}

// WithLocale selects number formatting. Defaults to English.
func WithLocale(tag language.Tag) Option {
	return func(r *resolver) {
		if tag != language.Und {
			r.locale = tag
		}
	}
}

// WithCatalog overrides the currency catalogue.
func WithCatalog(catalog *money.Catalog) Option {
	return func(r *resolver) {
		if catalog != nil {
			r.catalog = catalog
		}
	}
}

// WithThemes overrides the theme table.
func WithThemes(table *ThemeTable) Option {
	return func(r *resolver) {
		if table != nil {
			r.themes = table
		}
	}
}

// Resolve maps a recomputed document and a theme to a layout tree. It is pure:
// identical inputs yield identical trees, and the theme only changes Style.
func Resolve(doc domain.BusinessDocument, theme domain.ThemeID, opts ...Option) Tree {
	r := &resolver{
		locale:  language.English,
		catalog: money.DefaultCatalog(),
		themes:  DefaultThemes(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}

	cur, ok := r.catalog.Lookup(doc.Currency)
	if !ok {
		cur = money.Currency{Code: doc.Currency, Symbol: doc.Currency, Position: money.SymbolAfter, Scale: 2}
	}

	return Tree{
		Kind:   doc.Kind,
		Locale: r.locale.String(),
		Style:  r.themes.Tokens(theme),
		Regions: []Region{
			{Kind: RegionHeader, Header: r.header(doc)},
			{Kind: RegionParty, Party: party(PartyIssuer, "From", doc.Issuer)},
			{Kind: RegionParty, Party: party(PartyRecipient, recipientLabel(doc.Kind), doc.Recipient)},
			{Kind: RegionItemTable, Items: r.items(doc, cur)},
			{Kind: RegionTotals, Totals: r.totals(doc, cur)},
			{Kind: RegionFooter, Footer: footer(doc)},
		},
	}
}

func (r *resolver) header(doc domain.BusinessDocument) *Header {
	h := &Header{
		Title:     doc.Kind.Title(),
		Number:    textutil.PlainLine(doc.Number),
		Reference: textutil.PlainLine(doc.Reference),
	}
	if h.Number == "" {
		h.Number = "Draft"
	}
	if r.logo != nil && len(r.logo.Data) > 0 {
		h.Logo = Logo{Image: r.logo}
	} else {
		h.Logo = Logo{Placeholder: true, Initials: textutil.Initials(doc.Issuer.Name)}
	}

	h.Dates = append(h.Dates, Field{Label: "Issue Date", Value: formatDate(doc.IssueDate)})
	if label := domain.DueOrExpiryLabel(doc.Kind); label != "" && doc.DueOrExpiryDate != nil {
		h.Dates = append(h.Dates, Field{Label: label, Value: formatDate(*doc.DueOrExpiryDate)})
	}
	if domain.ShowsPaidStatus(doc.Kind) {
		if doc.PaidOn != nil {
			h.Dates = append(h.Dates, Field{Label: "Paid On", Value: formatDate(*doc.PaidOn)})
		}
		if doc.Paid {
			h.Status = "PAID"
		}
	}
	return h
}

func recipientLabel(kind domain.DocumentKind) string {
	switch kind {
	case domain.KindQuote, domain.KindEstimate:
		return "Prepared For"
	case domain.KindReceipt:
		return "Received From"
	default:
		return "Bill To"
	}
}

func party(role PartyRole, label string, p domain.Party) *PartyBlock {
	block := &PartyBlock{
		Role:  role,
		Label: label,
		Name:  textutil.PlainLine(p.Name),
		Lines: textutil.NormalizeLines(p.AddressLines),
	}
	for _, extra := range []string{p.Email, p.Phone} {
		if line := textutil.PlainLine(extra); line != "" {
			block.Lines = append(block.Lines, line)
		}
	}
	if taxID := textutil.PlainLine(p.TaxID); taxID != "" {
		block.Lines = append(block.Lines, "Tax ID: "+taxID)
	}
	return block
}

var itemColumns = []Column{
	{Key: "description", Title: "Description", Width: 0.52, Align: AlignLeft},
	{Key: "quantity", Title: "Qty", Width: 0.12, Align: AlignRight},
	{Key: "rate", Title: "Rate", Width: 0.18, Align: AlignRight},
	{Key: "amount", Title: "Amount", Width: 0.18, Align: AlignRight},
}

func (r *resolver) items(doc domain.BusinessDocument, cur money.Currency) *ItemTable {
	table := &ItemTable{Columns: append([]Column(nil), itemColumns...)}
	if len(doc.LineItems) == 0 {
		table.Rows = []Row{{Cells: []string{emptyStateText, "", "", ""}, EmptyState: true}}
		return table
	}
	table.Rows = make([]Row, 0, len(doc.LineItems))
	for _, item := range doc.LineItems {
		table.Rows = append(table.Rows, Row{Cells: []string{
			textutil.PlainLine(item.Description),
			money.FormatQuantity(item.Quantity, r.locale),
			money.Format(item.UnitRate, cur, r.locale),
			money.Format(item.LineTotal, cur, r.locale),
		}})
	}
	return table
}

func (r *resolver) totals(doc domain.BusinessDocument, cur money.Currency) *TotalsBlock {
	t := doc.Derived
	discountLabel := "Discount"
	if doc.Discount.IsPercentage() {
		discountLabel = fmt.Sprintf("Discount (%s%%)", doc.Discount.Percent.String())
	}
	discountValue := money.Format(t.DiscountAmount, cur, r.locale)
	if t.DiscountAmount > 0 {
		discountValue = "-" + discountValue
	}
	grandLabel := "Total"
	switch doc.Kind {
	case domain.KindInvoice:
		grandLabel = "Amount Due"
	case domain.KindReceipt:
		grandLabel = "Total Paid"
	}
	return &TotalsBlock{
		Subtotal:     Field{Label: "Subtotal", Value: money.Format(t.Subtotal, cur, r.locale)},
		Discount:     Field{Label: discountLabel, Value: discountValue},
		Tax:          Field{Label: fmt.Sprintf("Tax (%s%%)", doc.TaxRate.String()), Value: money.Format(t.TaxAmount, cur, r.locale)},
		GrandTotal:   Field{Label: grandLabel, Value: money.Format(t.GrandTotal, cur, r.locale)},
		ShowDiscount: t.DiscountAmount != 0,
	}
}

func footer(doc domain.BusinessDocument) *FooterBlock {
	f := &FooterBlock{Lines: []string{}}
	if notes := textutil.Paragraphs(doc.Notes); len(notes) > 0 {
		f.Heading = "Notes"
		f.Lines = append(f.Lines, notes...)
	}
	if domain.ShowsPaidStatus(doc.Kind) {
		if method := textutil.PlainLine(doc.PaymentMethod); method != "" {
			f.Lines = append(f.Lines, "Payment method: "+method)
		}
	}
	return f
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateLayout)
}
