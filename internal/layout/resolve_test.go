package layout

import (
	"reflect"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/hanko-field/bizdoc/internal/domain"
)

func sampleDocument() domain.BusinessDocument {
	doc := domain.NewDocument(domain.KindInvoice, "USD", time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC))
	due := time.Date(2026, 11, 18, 0, 0, 0, 0, time.UTC)
	doc.DueOrExpiryDate = &due
	doc.Number = "INV-202610-000001"
	doc.Issuer = domain.Party{Name: "Acme Design Co", AddressLines: []string{"1 Main St", " "}, Email: "billing@acme.test"}
	doc.Recipient = domain.Party{Name: "Globex <b>Corp</b>", TaxID: "GB123"}
	doc.LineItems = []domain.LineItem{
		{Description: "Logo design", Quantity: decimal.NewFromInt(2), UnitRate: 5000, LineTotal: 10000},
		{Description: "Revisions", Quantity: decimal.NewFromInt(1), UnitRate: 2525, LineTotal: 2525},
	}
	doc.Discount = domain.Discount{Kind: domain.DiscountPercentage, Percent: decimal.NewFromInt(10)}
	doc.TaxRate = decimal.NewFromInt(8)
	doc.Notes = "Thanks!\nPay within 30 days."
	doc.Derived = domain.Totals{Subtotal: 12525, DiscountAmount: 1253, TaxableBase: 11272, TaxAmount: 902, GrandTotal: 12174}
	return doc
}

func TestResolveRegionOrder(t *testing.T) {
	tree := Resolve(sampleDocument(), domain.ThemeModern)
	assert.Equal(t, []RegionKind{RegionHeader, RegionParty, RegionParty, RegionItemTable, RegionTotals, RegionFooter}, tree.Structure())

	header := tree.Region(RegionHeader).Header
	require.NotNil(t, header)
	assert.Equal(t, "INVOICE", header.Title)
	assert.Equal(t, "INV-202610-000001", header.Number)
	assert.True(t, header.Logo.Placeholder)
	assert.Equal(t, "AD", header.Logo.Initials)
	assert.Equal(t, []Field{{Label: "Issue Date", Value: "Oct 19, 2026"}, {Label: "Due Date", Value: "Nov 18, 2026"}}, header.Dates)

	recipient := tree.Regions[2].Party
	assert.Equal(t, "Bill To", recipient.Label)
	assert.Equal(t, "Globex Corp", recipient.Name)
	assert.Equal(t, []string{"Tax ID: GB123"}, recipient.Lines)

	totals := tree.Region(RegionTotals).Totals
	assert.Equal(t, "$125.25", totals.Subtotal.Value)
	assert.Equal(t, Field{Label: "Discount (10%)", Value: "-$12.53"}, totals.Discount)
	assert.Equal(t, Field{Label: "Tax (8%)", Value: "$9.02"}, totals.Tax)
	assert.Equal(t, Field{Label: "Amount Due", Value: "$121.74"}, totals.GrandTotal)
	assert.Len(t, totals.Lines(), 4)

	items := tree.Region(RegionItemTable).Items
	assert.Equal(t, []string{"Logo design", "2", "$50.00", "$100.00"}, items.Rows[0].Cells)

	footer := tree.Region(RegionFooter).Footer
	assert.Equal(t, "Notes", footer.Heading)
	assert.Equal(t, []string{"Thanks!", "Pay within 30 days."}, footer.Lines)
}

func TestResolveIsPure(t *testing.T) {
	doc := sampleDocument()
	a := Resolve(doc, domain.ThemeCorporate)
	b := Resolve(doc.Clone(), domain.ThemeCorporate)
	assert.True(t, reflect.DeepEqual(a, b))
}

func TestThemesOnlyChangeStyle(t *testing.T) {
	doc := sampleDocument()
	base := Resolve(doc, domain.ThemeModern)
	for _, theme := range domain.ThemeIDs {
		tree := Resolve(doc, theme)
		assert.Equal(t, theme, tree.Style.Theme)
		assert.True(t, reflect.DeepEqual(base.Regions, tree.Regions), "theme %s changed content", theme)
	}
	assert.NotEqual(t, Resolve(doc, domain.ThemeModern).Style, Resolve(doc, domain.ThemeCreative).Style)
}

func TestResolveEmptyDocumentKeepsItemTable(t *testing.T) {
	doc := domain.NewDocument(domain.KindQuote, "USD", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	tree := Resolve(doc, "unknown-theme")

	assert.Equal(t, domain.ThemeModern, tree.Style.Theme)
	items := tree.Region(RegionItemTable).Items
	require.Len(t, items.Rows, 1)
	assert.True(t, items.Rows[0].EmptyState)
	assert.Equal(t, "$0.00", tree.Region(RegionTotals).Totals.GrandTotal.Value)
	assert.False(t, tree.Region(RegionTotals).Totals.ShowDiscount)
	assert.Equal(t, "Draft", tree.Region(RegionHeader).Header.Number)
	assert.Equal(t, "Prepared For", tree.Regions[2].Party.Label)
}

func TestResolveReceiptStatusAndLogo(t *testing.T) {
	doc := sampleDocument()
	doc.Kind = domain.KindReceipt
	paid := time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC)
	doc.Paid = true
	doc.PaidOn = &paid
	doc.PaymentMethod = "Card"

	logo := &domain.LogoImage{Ref: "data:", Format: "png", Width: 2, Height: 1, Data: []byte{1}}
	tree := Resolve(doc, domain.ThemeCreative, WithLogo(logo), WithLocale(language.English))

	header := tree.Region(RegionHeader).Header
	assert.Equal(t, "PAID", header.Status)
	assert.False(t, header.Logo.Placeholder)
	assert.Same(t, logo, header.Logo.Image)
	assert.Equal(t, Field{Label: "Paid On", Value: "Oct 20, 2026"}, header.Dates[len(header.Dates)-1])
	assert.Contains(t, tree.Region(RegionFooter).Footer.Lines, "Payment method: Card")
	assert.Equal(t, "Total Paid", tree.Region(RegionTotals).Totals.GrandTotal.Label)
}

func TestResolveGermanLocale(t *testing.T) {
	tree := Resolve(sampleDocument(), domain.ThemeModern, WithLocale(language.German))
	assert.Equal(t, "$125,25", tree.Region(RegionTotals).Totals.Subtotal.Value)
}

func TestLoadThemesRejectsIncompleteTable(t *testing.T) {
	_, err := LoadThemes([]byte("themes:\n  modern:\n    font: Helvetica\n    titleSize: 20\n    bodySize: 9\n"))
	require.Error(t, err)

	_, err = LoadThemes([]byte("themes:\n  neon:\n    font: Helvetica\n"))
	require.Error(t, err)

	c, err := parseHexColor("#2563eb")
	require.NoError(t, err)
	assert.Equal(t, Color{R: 0x25, G: 0x63, B: 0xeb}, c)
	assert.Equal(t, "#2563eb", c.Hex())
}
