package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestCloneDoesNotShareState(t *testing.T) {
	due := time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC)
	doc := NewDocument(KindInvoice, "usd", time.Date(2026, 10, 1, 9, 30, 0, 0, time.UTC))
	doc.DueOrExpiryDate = &due
	doc.Issuer.AddressLines = []string{"1 Main St"}
	doc.LineItems = append(doc.LineItems, LineItem{Description: "Design", Quantity: decimal.NewFromInt(2), UnitRate: 5000})

	clone := doc.Clone()
	clone.LineItems[0].Description = "changed"
	clone.Issuer.AddressLines[0] = "changed"
	*clone.DueOrExpiryDate = due.AddDate(0, 1, 0)

	if doc.LineItems[0].Description != "Design" {
		t.Fatalf("line items shared between clone and original")
	}
	if doc.Issuer.AddressLines[0] != "1 Main St" {
		t.Fatalf("address lines shared between clone and original")
	}
	if !doc.DueOrExpiryDate.Equal(due) {
		t.Fatalf("due date shared between clone and original")
	}
	if doc.Currency != "USD" {
		t.Fatalf("expected currency to be normalised, got %q", doc.Currency)
	}
	if !doc.IssueDate.Equal(time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected issue date truncated to day, got %s", doc.IssueDate)
	}
}

func TestKindPolicies(t *testing.T) {
	tests := []struct {
		kind   DocumentKind
		paid   bool
		expiry bool
		label  string
		prefix string
	}{
		{KindInvoice, false, false, "Due Date", "INV"},
		{KindQuote, false, true, "Valid Until", "QUO"},
		{KindEstimate, false, true, "Valid Until", "EST"},
		{KindReceipt, true, false, "", "RCT"},
	}
	for _, tc := range tests {
		if got := ShowsPaidStatus(tc.kind); got != tc.paid {
			t.Errorf("%s: ShowsPaidStatus = %v", tc.kind, got)
		}
		if got := ShowsExpiryDate(tc.kind); got != tc.expiry {
			t.Errorf("%s: ShowsExpiryDate = %v", tc.kind, got)
		}
		if got := DueOrExpiryLabel(tc.kind); got != tc.label {
			t.Errorf("%s: DueOrExpiryLabel = %q", tc.kind, got)
		}
		if got := tc.kind.NumberPrefix(); got != tc.prefix {
			t.Errorf("%s: NumberPrefix = %q", tc.kind, got)
		}
	}

	if kind, ok := ParseDocumentKind(" Receipt "); !ok || kind != KindReceipt {
		t.Fatalf("expected receipt, got %q %v", kind, ok)
	}
	if _, ok := ParseDocumentKind("credit-note"); ok {
		t.Fatalf("expected unknown kind to be rejected")
	}
}

func TestExportErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := error(&ExportError{Reason: ExportReasonBackend, Err: cause})
	if !errors.Is(err, cause) {
		t.Fatalf("expected export error to unwrap to cause")
	}
	var exportErr *ExportError
	if !errors.As(err, &exportErr) || exportErr.Reason != ExportReasonBackend {
		t.Fatalf("expected errors.As to find export error")
	}

	limit := &ExportError{Reason: ExportReasonPageLimit, Pages: 51, Limit: 50}
	if limit.Error() != "export: document needs 51 pages, limit is 50" {
		t.Fatalf("unexpected message %q", limit.Error())
	}
}
