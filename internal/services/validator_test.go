package services

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hanko-field/bizdoc/internal/domain"
)

func violationFields(result ValidationResult) map[string]string {
	out := make(map[string]string, len(result.Violations))
	for _, v := range result.Violations {
		out[v.Field] = v.Code
	}
	return out
}

func TestDocumentValidator_ValidDocument(t *testing.T) {
	v := NewDocumentValidator(DocumentValidatorDeps{})
	result := v.Validate(exampleDocument())
	if !result.Valid() {
		t.Fatalf("expected valid, got %+v", result.Violations)
	}
	if result.Err() != nil {
		t.Fatalf("expected nil error, got %v", result.Err())
	}
}

func TestDocumentValidator_EmptyDocument(t *testing.T) {
	v := NewDocumentValidator(DocumentValidatorDeps{})
	doc := domain.NewDocument(domain.KindInvoice, "", testIssueDate)

	result := v.Validate(doc)
	fields := violationFields(result)
	if fields["line_items"] != CodeRequired {
		t.Fatalf("expected line_items required, got %v", fields)
	}
	if fields["issuer.name"] != CodeRequired {
		t.Fatalf("expected issuer.name required, got %v", fields)
	}
	if fields["currency"] != CodeRequired {
		t.Fatalf("expected currency required, got %v", fields)
	}

	var verr *domain.ValidationError
	if !errors.As(result.Err(), &verr) || len(verr.Fields()) != len(result.Violations) {
		t.Fatalf("expected ValidationError with all fields, got %v", result.Err())
	}
}

func TestDocumentValidator_Ranges(t *testing.T) {
	v := NewDocumentValidator(DocumentValidatorDeps{})

	tests := []struct {
		name   string
		mutate func(*domain.BusinessDocument)
		field  string
		code   string
	}{
		{"tax over 100", func(d *domain.BusinessDocument) { d.TaxRate = decimal.NewFromInt(101) }, "tax_rate", CodeOutOfRange},
		{"negative tax", func(d *domain.BusinessDocument) { d.TaxRate = decimal.NewFromInt(-1) }, "tax_rate", CodeOutOfRange},
		{"discount percent over 100", func(d *domain.BusinessDocument) { d.Discount.Percent = decimal.RequireFromString("100.01") }, "discount.percent", CodeOutOfRange},
		{"negative fixed discount", func(d *domain.BusinessDocument) {
			d.Discount = domain.Discount{Kind: domain.DiscountFixed, Amount: -1}
		}, "discount.amount", CodeNegative},
		{"unknown discount kind", func(d *domain.BusinessDocument) { d.Discount.Kind = "bogo" }, "discount.kind", CodeUnsupported},
		{"unsupported currency", func(d *domain.BusinessDocument) { d.Currency = "XAU" }, "currency", CodeUnsupported},
		{"negative quantity", func(d *domain.BusinessDocument) { d.LineItems[1].Quantity = decimal.NewFromInt(-1) }, "line_items[1].quantity", CodeNegative},
		{"negative rate", func(d *domain.BusinessDocument) { d.LineItems[0].UnitRate = -1 }, "line_items[0].unit_rate", CodeNegative},
		{"unknown theme", func(d *domain.BusinessDocument) { d.Theme = "neon" }, "theme", CodeUnsupported},
		{"unknown kind", func(d *domain.BusinessDocument) { d.Kind = "memo" }, "kind", CodeUnsupported},
		{"due before issue", func(d *domain.BusinessDocument) {
			due := d.IssueDate.Add(-24 * time.Hour)
			d.DueOrExpiryDate = &due
		}, "due_date", CodeBeforeIssueDate},
		{"expiry before issue", func(d *domain.BusinessDocument) {
			d.Kind = domain.KindQuote
			exp := d.IssueDate.Add(-24 * time.Hour)
			d.DueOrExpiryDate = &exp
		}, "expiry_date", CodeBeforeIssueDate},
		{"only zero quantities", func(d *domain.BusinessDocument) {
			for i := range d.LineItems {
				d.LineItems[i].Quantity = decimal.Zero
			}
		}, "line_items", CodeRequired},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			doc := exampleDocument()
			tc.mutate(&doc)
			fields := violationFields(v.Validate(doc))
			if fields[tc.field] != tc.code {
				t.Fatalf("expected %s=%s, got %v", tc.field, tc.code, fields)
			}
		})
	}
}

func TestDocumentValidator_MaxLineItems(t *testing.T) {
	v := NewDocumentValidator(DocumentValidatorDeps{MaxLineItems: 2})
	if v.MaxLineItems() != 2 {
		t.Fatalf("expected 2, got %d", v.MaxLineItems())
	}
	doc := exampleDocument()
	doc.LineItems = append(doc.LineItems, domain.LineItem{Description: "extra", Quantity: decimal.NewFromInt(1)})

	result := v.Validate(doc)
	found := false
	for _, violation := range result.Violations {
		if violation.Field == "line_items" && violation.Code == CodeTooMany {
			found = true
			if !strings.Contains(violation.Message, fmt.Sprint(2)) {
				t.Fatalf("message should mention limit: %q", violation.Message)
			}
		}
	}
	if !found {
		t.Fatalf("expected too_many violation, got %+v", result.Violations)
	}
}
