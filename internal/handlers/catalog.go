package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hanko-field/bizdoc/internal/domain"
	"github.com/hanko-field/bizdoc/internal/editor"
	"github.com/hanko-field/bizdoc/internal/layout"
	"github.com/hanko-field/bizdoc/internal/money"
	"github.com/hanko-field/bizdoc/internal/platform/httpx"
)

// CatalogHandlers lists the enumerations a shell needs to build its pickers.
type CatalogHandlers struct {
	currencies *money.Catalog
	themes     *layout.ThemeTable
}

// NewCatalogHandlers constructs catalog handlers, defaulting to the embedded tables.
func NewCatalogHandlers(currencies *money.Catalog, themes *layout.ThemeTable) *CatalogHandlers {
	if currencies == nil {
		currencies = money.DefaultCatalog()
	}
	if themes == nil {
		themes = layout.DefaultThemes()
	}
	return &CatalogHandlers{currencies: currencies, themes: themes}
}

// Routes registers the catalog endpoint.
func (h *CatalogHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.getCatalog)
}

type catalogResponse struct {
	Kinds      []kindEntry      `json:"kinds"`
	Themes     []layout.Tokens  `json:"themes"`
	Currencies []money.Currency `json:"currencies"`
	Fields     []editor.Field   `json:"fields"`
}

type kindEntry struct {
	Kind             domain.DocumentKind `json:"kind"`
	Title            string              `json:"title"`
	NumberPrefix     string              `json:"numberPrefix"`
	DueOrExpiryLabel string              `json:"dueOrExpiryLabel,omitempty"`
	ShowsPaidStatus  bool                `json:"showsPaidStatus"`
}

func (h *CatalogHandlers) getCatalog(w http.ResponseWriter, _ *http.Request) {
	kinds := make([]kindEntry, 0, len(domain.DocumentKinds))
	for _, kind := range domain.DocumentKinds {
		kinds = append(kinds, kindEntry{
			Kind:             kind,
			Title:            kind.Title(),
			NumberPrefix:     kind.NumberPrefix(),
			DueOrExpiryLabel: domain.DueOrExpiryLabel(kind),
			ShowsPaidStatus:  domain.ShowsPaidStatus(kind),
		})
	}
	themes := make([]layout.Tokens, 0, len(domain.ThemeIDs))
	for _, id := range domain.ThemeIDs {
		themes = append(themes, h.themes.Tokens(id))
	}
	httpx.WriteJSON(w, http.StatusOK, catalogResponse{
		Kinds:      kinds,
		Themes:     themes,
		Currencies: h.currencies.Currencies(),
		Fields:     editor.Fields,
	})
}
