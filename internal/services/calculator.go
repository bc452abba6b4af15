package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/hanko-field/bizdoc/internal/domain"
	"github.com/hanko-field/bizdoc/internal/money"
)

var hundred = decimal.NewFromInt(100)

// DocumentCalculatorDeps configures the calculation engine.
type DocumentCalculatorDeps struct {
	Rounding money.RoundingMode
	Logger   func(context.Context, string, map[string]any)
}

// DocumentCalculator derives line totals and document totals in integer minor units.
// It holds no state beyond configuration; every call is pure.
type DocumentCalculator struct {
	rounding money.RoundingMode
	logger   func(context.Context, string, map[string]any)
}

// NewDocumentCalculator constructs a calculator. Rounding defaults to half-even.
func NewDocumentCalculator(deps DocumentCalculatorDeps) (*DocumentCalculator, error) {
	mode, ok := money.ParseRoundingMode(string(deps.Rounding))
	if !ok {
		return nil, fmt.Errorf("document calculator: unknown rounding mode %q", deps.Rounding)
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &DocumentCalculator{rounding: mode, logger: logger}, nil
}

// Rounding returns the configured rounding mode.
func (c *DocumentCalculator) Rounding() money.RoundingMode {
	return c.rounding
}

// Totals computes the derived totals without modifying doc.
func (c *DocumentCalculator) Totals(ctx context.Context, doc domain.BusinessDocument) (domain.Totals, error) {
	_, totals, err := c.compute(ctx, doc)
	return totals, err
}

// Apply returns a copy of doc with every LineTotal and Derived recomputed. On error
// the input is untouched and nothing is returned.
func (c *DocumentCalculator) Apply(ctx context.Context, doc domain.BusinessDocument) (domain.BusinessDocument, error) {
	lineTotals, totals, err := c.compute(ctx, doc)
	if err != nil {
		return domain.BusinessDocument{}, err
	}
	out := doc.Clone()
	for i := range out.LineItems {
		out.LineItems[i].LineTotal = lineTotals[i]
	}
	out.Derived = totals
	return out, nil
}

func (c *DocumentCalculator) compute(ctx context.Context, doc domain.BusinessDocument) ([]int64, domain.Totals, error) {
	lineTotals := make([]int64, len(doc.LineItems))
	var subtotal int64
	for i, item := range doc.LineItems {
		qty := item.Quantity
		if qty.IsNegative() {
			c.logger(ctx, "calculation_quantity_clamped", map[string]any{"kind": string(doc.Kind), "index": i})
			qty = decimal.Zero
		}
		rate := item.UnitRate
		if rate < 0 {
			c.logger(ctx, "calculation_rate_clamped", map[string]any{"kind": string(doc.Kind), "index": i})
			rate = 0
		}
		lineTotal, err := money.Multiply(qty, rate, c.rounding)
		if err != nil {
			return nil, domain.Totals{}, fmt.Errorf("line %d: %w", i, err)
		}
		lineTotals[i] = lineTotal
		if subtotal, err = money.AddChecked(subtotal, lineTotal); err != nil {
			return nil, domain.Totals{}, fmt.Errorf("subtotal: %w", err)
		}
	}

	discount, err := c.discountAmount(ctx, doc, subtotal)
	if err != nil {
		return nil, domain.Totals{}, err
	}
	taxableBase := subtotal - discount

	rate := doc.TaxRate
	if rate.IsNegative() {
		c.logger(ctx, "calculation_tax_clamped", map[string]any{"kind": string(doc.Kind)})
		rate = decimal.Zero
	}
	tax, err := money.Percent(taxableBase, rate, c.rounding)
	if err != nil {
		return nil, domain.Totals{}, fmt.Errorf("tax: %w", err)
	}
	grand, err := money.AddChecked(taxableBase, tax)
	if err != nil {
		return nil, domain.Totals{}, fmt.Errorf("grand total: %w", err)
	}

	return lineTotals, domain.Totals{
		Subtotal:       subtotal,
		DiscountAmount: discount,
		TaxableBase:    taxableBase,
		TaxAmount:      tax,
		GrandTotal:     grand,
	}, nil
}

// discountAmount clamps the result into [0, subtotal].
func (c *DocumentCalculator) discountAmount(ctx context.Context, doc domain.BusinessDocument, subtotal int64) (int64, error) {
	var amount int64
	if doc.Discount.IsPercentage() {
		pct := doc.Discount.Percent
		switch {
		case pct.IsNegative():
			c.logger(ctx, "calculation_discount_clamped", map[string]any{"kind": string(doc.Kind), "reason": "negative_percent"})
			pct = decimal.Zero
		case pct.GreaterThan(hundred):
			c.logger(ctx, "calculation_discount_clamped", map[string]any{"kind": string(doc.Kind), "reason": "percent_over_100"})
			pct = hundred
		}
		var err error
		amount, err = money.Percent(subtotal, pct, c.rounding)
		if err != nil {
			return 0, fmt.Errorf("discount: %w", err)
		}
	} else {
		amount = doc.Discount.Amount
		if amount < 0 {
			c.logger(ctx, "calculation_discount_clamped", map[string]any{"kind": string(doc.Kind), "reason": "negative_amount"})
			amount = 0
		}
	}
	if amount > subtotal {
		c.logger(ctx, "calculation_discount_clamped", map[string]any{"kind": string(doc.Kind), "reason": "exceeds_subtotal"})
		amount = subtotal
	}
	return amount, nil
}

// IsOverflow reports whether err came from a minor-unit overflow.
func IsOverflow(err error) bool {
	return errors.Is(err, domain.ErrCalculationOverflow)
}
