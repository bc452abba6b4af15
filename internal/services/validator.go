package services

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/hanko-field/bizdoc/internal/domain"
	"github.com/hanko-field/bizdoc/internal/money"
)

// Violation codes reported by DocumentValidator.
const (
	CodeRequired        = "required"
	CodeUnsupported     = "unsupported"
	CodeOutOfRange      = "out_of_range"
	CodeNegative        = "negative"
	CodeTooMany         = "too_many"
	CodeBeforeIssueDate = "before_issue_date"
)

// ValidationResult lists field-level violations. An empty result is valid.
type ValidationResult struct {
	Violations []domain.Violation `json:"violations"`
}

// Valid reports whether no violations were found.
func (r ValidationResult) Valid() bool {
	return len(r.Violations) == 0
}

// Err returns a *domain.ValidationError, or nil when valid.
func (r ValidationResult) Err() error {
	if r.Valid() {
		return nil
	}
	return &domain.ValidationError{Violations: append([]domain.Violation(nil), r.Violations...)}
}

func (r *ValidationResult) add(field, code, message string) {
	r.Violations = append(r.Violations, domain.Violation{Field: field, Code: code, Message: message})
}

// DocumentValidatorDeps configures validation limits.
type DocumentValidatorDeps struct {
	Catalog      *money.Catalog
	MaxLineItems int
}

// DocumentValidator checks documents without side effects.
type DocumentValidator struct {
	catalog      *money.Catalog
	maxLineItems int
}

// NewDocumentValidator constructs a validator. Catalog defaults to the embedded one.
func NewDocumentValidator(deps DocumentValidatorDeps) *DocumentValidator {
	catalog := deps.Catalog
	if catalog == nil {
		catalog = money.DefaultCatalog()
	}
	maxItems := deps.MaxLineItems
	if maxItems <= 0 {
		maxItems = domain.DefaultMaxLineItems
	}
	return &DocumentValidator{catalog: catalog, maxLineItems: maxItems}
}

// MaxLineItems returns the configured line-item cap.
func (v *DocumentValidator) MaxLineItems() int {
	return v.maxLineItems
}

// Validate collects every violation; it never stops at the first.
func (v *DocumentValidator) Validate(doc domain.BusinessDocument) ValidationResult {
	var result ValidationResult

	if !doc.Kind.Valid() {
		result.add("kind", CodeUnsupported, fmt.Sprintf("unknown document kind %q", doc.Kind))
	}
	if strings.TrimSpace(doc.Issuer.Name) == "" {
		result.add("issuer.name", CodeRequired, "issuer name is required")
	}
	if strings.TrimSpace(doc.Currency) == "" {
		result.add("currency", CodeRequired, "currency is required")
	} else if !v.catalog.Supported(doc.Currency) {
		result.add("currency", CodeUnsupported, fmt.Sprintf("currency %q is not supported", doc.Currency))
	}

	hasPositive := false
	for i, item := range doc.LineItems {
		if item.Quantity.IsNegative() {
			result.add(fmt.Sprintf("line_items[%d].quantity", i), CodeNegative, "quantity must not be negative")
		}
		if item.UnitRate < 0 {
			result.add(fmt.Sprintf("line_items[%d].unit_rate", i), CodeNegative, "unit rate must not be negative")
		}
		if item.Quantity.IsPositive() {
			hasPositive = true
		}
	}
	if !hasPositive {
		result.add("line_items", CodeRequired, "at least one line item with a positive quantity is required")
	}
	if len(doc.LineItems) > v.maxLineItems {
		result.add("line_items", CodeTooMany, fmt.Sprintf("at most %d line items are allowed", v.maxLineItems))
	}

	if !percentInRange(doc.TaxRate) {
		result.add("tax_rate", CodeOutOfRange, "tax rate must be between 0 and 100")
	}
	switch doc.Discount.Kind {
	case domain.DiscountPercentage:
		if !percentInRange(doc.Discount.Percent) {
			result.add("discount.percent", CodeOutOfRange, "discount percentage must be between 0 and 100")
		}
	case domain.DiscountFixed:
		if doc.Discount.Amount < 0 {
			result.add("discount.amount", CodeNegative, "discount amount must not be negative")
		}
	default:
		result.add("discount.kind", CodeUnsupported, fmt.Sprintf("unknown discount kind %q", doc.Discount.Kind))
	}

	if doc.DueOrExpiryDate != nil && !doc.IssueDate.IsZero() && doc.DueOrExpiryDate.Before(doc.IssueDate) {
		field := "due_date"
		if domain.ShowsExpiryDate(doc.Kind) {
			field = "expiry_date"
		}
		result.add(field, CodeBeforeIssueDate, "date must not be before the issue date")
	}
	if !doc.Theme.Valid() {
		result.add("theme", CodeUnsupported, fmt.Sprintf("unknown theme %q", doc.Theme))
	}

	return result
}

func percentInRange(p decimal.Decimal) bool {
	return !p.IsNegative() && !p.GreaterThan(hundred)
}
