// Package money owns the currency catalogue and every conversion between minor
// units and display strings. Nothing outside this package formats amounts.
package money

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/text/currency"
	"gopkg.in/yaml.v3"
)

//go:embed currencies.yaml
var embeddedCurrencies []byte

// ErrUnsupportedCurrency is returned when a code is not part of the catalogue.
var ErrUnsupportedCurrency = errors.New("money: unsupported currency")

// SymbolPosition controls where the symbol is printed relative to the amount.
type SymbolPosition string

const (
	SymbolBefore SymbolPosition = "before"
	SymbolAfter  SymbolPosition = "after"
)

// Currency carries display metadata and the minor-unit scale for one ISO 4217 code.
type Currency struct {
	Code     string         `json:"code"`
	Name     string         `json:"name"`
	Symbol   string         `json:"symbol"`
	Position SymbolPosition `json:"position"`
	// Scale is the number of minor-unit digits (2 for USD, 0 for JPY, 3 for KWD).
	Scale int `json:"scale"`
}

// Catalog is an immutable, ordered set of supported currencies.
type Catalog struct {
	order  []string
	byCode map[string]Currency
}

type catalogFile struct {
	Currencies []struct {
		Code     string `yaml:"code"`
		Name     string `yaml:"name"`
		Symbol   string `yaml:"symbol"`
		Position string `yaml:"position"`
	} `yaml:"currencies"`
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// DefaultCatalog returns the catalogue compiled into the binary.
func DefaultCatalog() *Catalog {
	defaultOnce.Do(func() {
		cat, err := LoadCatalog(embeddedCurrencies)
		if err != nil {
			panic(fmt.Sprintf("money: embedded currency catalogue is invalid: %v", err))
		}
		defaultCatalog = cat
	})
	return defaultCatalog
}

// LoadCatalog parses a YAML catalogue. Every code must be a valid ISO 4217 unit.
func LoadCatalog(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("money: parse catalogue: %w", err)
	}
	if len(file.Currencies) == 0 {
		return nil, errors.New("money: catalogue is empty")
	}

	cat := &Catalog{byCode: make(map[string]Currency, len(file.Currencies))}
	for _, entry := range file.Currencies {
		code := strings.ToUpper(strings.TrimSpace(entry.Code))
		unit, err := currency.ParseISO(code)
		if err != nil {
			return nil, fmt.Errorf("money: %q: %w", code, err)
		}
		if _, dup := cat.byCode[code]; dup {
			return nil, fmt.Errorf("money: duplicate currency %q", code)
		}
		scale, _ := currency.Standard.Rounding(unit)

		position := SymbolBefore
		if strings.EqualFold(strings.TrimSpace(entry.Position), string(SymbolAfter)) {
			position = SymbolAfter
		}
		symbol := strings.TrimSpace(entry.Symbol)
		if symbol == "" {
			symbol = code
		}
		cat.byCode[code] = Currency{
			Code:     code,
			Name:     strings.TrimSpace(entry.Name),
			Symbol:   symbol,
			Position: position,
			Scale:    scale,
		}
		cat.order = append(cat.order, code)
	}
	return cat, nil
}

// Lookup returns the currency for a code, case-insensitively.
func (c *Catalog) Lookup(code string) (Currency, bool) {
	if c == nil {
		return Currency{}, false
	}
	cur, ok := c.byCode[strings.ToUpper(strings.TrimSpace(code))]
	return cur, ok
}

// MustLookup is Lookup returning ErrUnsupportedCurrency for unknown codes.
func (c *Catalog) MustLookup(code string) (Currency, error) {
	cur, ok := c.Lookup(code)
	if !ok {
		return Currency{}, fmt.Errorf("%w: %q", ErrUnsupportedCurrency, code)
	}
	return cur, nil
}

// Supported reports whether the code is in the catalogue.
func (c *Catalog) Supported(code string) bool {
	_, ok := c.Lookup(code)
	return ok
}

// Currencies returns the catalogue in declaration order.
func (c *Catalog) Currencies() []Currency {
	if c == nil {
		return nil
	}
	out := make([]Currency, 0, len(c.order))
	for _, code := range c.order {
		out = append(out, c.byCode[code])
	}
	return out
}
