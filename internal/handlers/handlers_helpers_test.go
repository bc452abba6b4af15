package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hanko-field/bizdoc/internal/domain"
	"github.com/hanko-field/bizdoc/internal/editor"
	"github.com/hanko-field/bizdoc/internal/money"
	"github.com/hanko-field/bizdoc/internal/render"
	"github.com/hanko-field/bizdoc/internal/repositories/memory"
	"github.com/hanko-field/bizdoc/internal/services"
)

var testNow = time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)

func newTestFactory(t *testing.T, registry *memory.Registry) SessionFactory {
	t.Helper()
	calc, err := services.NewDocumentCalculator(services.DocumentCalculatorDeps{Rounding: money.HalfUp})
	if err != nil {
		t.Fatalf("NewDocumentCalculator: %v", err)
	}
	validator := services.NewDocumentValidator(services.DocumentValidatorDeps{})
	exporter, err := services.NewExportService(services.ExportServiceDeps{
		Calculator: calc,
		Validator:  validator,
		Renderer:   render.NewRenderer(render.Options{CreationDate: testNow}),
		Assets:     services.NewAssetService(services.AssetServiceDeps{}),
	})
	if err != nil {
		t.Fatalf("NewExportService: %v", err)
	}
	numbering, err := services.NewNumberingService(services.NumberingServiceDeps{
		Repository: registry.Counters(),
		Clock:      func() time.Time { return testNow },
	})
	if err != nil {
		t.Fatalf("NewNumberingService: %v", err)
	}

	seq := 0
	deps := editor.SessionDeps{
		Calculator:      calc,
		Exporter:        exporter,
		Validator:       validator,
		Numbering:       numbering,
		DefaultCurrency: "USD",
		Clock:           func() time.Time { return testNow },
		IDGenerator: func() string {
			seq++
			return fmt.Sprintf("id-%03d", seq)
		},
	}
	return func(kind domain.DocumentKind, opts ...editor.Option) (*editor.Session, error) {
		opts = append([]editor.Option{editor.WithDraftStore(registry.Drafts())}, opts...)
		return editor.NewSession(kind, deps, opts...)
	}
}

func newTestRouter(t *testing.T) (chi.Router, *SessionStore) {
	t.Helper()
	store := NewSessionStore(4, func() time.Time { return testNow })
	sessions := NewSessionHandlers(store, newTestFactory(t, memory.NewRegistry()), nil)
	router := NewRouter(
		WithSessionRoutes(sessions.Routes),
		WithCatalogRoutes(NewCatalogHandlers(nil, nil).Routes),
	)
	return router, store
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), dst); err != nil {
		t.Fatalf("failed to decode response %q: %v", rr.Body.String(), err)
	}
}

func expectStatus(t *testing.T, rr *httptest.ResponseRecorder, status int) {
	t.Helper()
	if rr.Code != status {
		t.Fatalf("expected status %d, got %d: %s", status, rr.Code, rr.Body.String())
	}
}

func expectErrorCode(t *testing.T, rr *httptest.ResponseRecorder, status int, code string) map[string]any {
	t.Helper()
	expectStatus(t, rr, status)
	var body map[string]any
	decodeBody(t, rr, &body)
	if body["error"] != code {
		t.Fatalf("expected error code %q, got %v", code, body["error"])
	}
	return body
}
