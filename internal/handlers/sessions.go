package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/hanko-field/bizdoc/internal/domain"
	"github.com/hanko-field/bizdoc/internal/editor"
	"github.com/hanko-field/bizdoc/internal/money"
	"github.com/hanko-field/bizdoc/internal/platform/httpx"
	"github.com/hanko-field/bizdoc/internal/platform/requestctx"
	"github.com/hanko-field/bizdoc/internal/services"
)

const maxSessionRequestBody = 256 * 1024

// SessionFactory creates editor sessions with the engine's shared dependencies.
type SessionFactory func(kind domain.DocumentKind, opts ...editor.Option) (*editor.Session, error)

// SessionHandlers exposes the editor session over HTTP for a local shell.
type SessionHandlers struct {
	store   *SessionStore
	factory SessionFactory
	catalog *money.Catalog
}

// NewSessionHandlers constructs session handlers. Catalog defaults to the embedded one.
func NewSessionHandlers(store *SessionStore, factory SessionFactory, catalog *money.Catalog) *SessionHandlers {
	if store == nil {
		store = NewSessionStore(DefaultMaxSessions, nil)
	}
	if catalog == nil {
		catalog = money.DefaultCatalog()
	}
	return &SessionHandlers{store: store, factory: factory, catalog: catalog}
}

// Routes registers the session endpoints on the provided router.
func (h *SessionHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/", h.createSession)
	r.Route("/{sessionId}", func(sr chi.Router) {
		sr.Use(withSessionID)
		sr.Get("/", h.getSession)
		sr.Delete("/", h.closeSession)
		sr.Get("/preview", h.preview)
		sr.Patch("/fields", h.updateFields)
		sr.Post("/items", h.addItem)
		sr.Put("/items/{index}", h.updateItem)
		sr.Delete("/items/{index}", h.removeItem)
		sr.Put("/theme", h.setTheme)
		sr.Put("/currency", h.setCurrency)
		sr.Put("/kind", h.setKind)
		sr.Post("/undo", h.undo)
		sr.Post("/redo", h.redo)
		sr.Post("/number", h.nextNumber)
		sr.Post("/restore", h.restoreDraft)
		sr.Delete("/draft", h.discardDraft)
		sr.Post("/export", h.export)
	})
}

func withSessionID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(chi.URLParam(r, "sessionId"))
		next.ServeHTTP(w, r.WithContext(requestctx.WithSessionID(r.Context(), id)))
	})
}

type createSessionRequest struct {
	Kind         string                   `json:"kind"`
	LockKind     bool                     `json:"lockKind,omitempty"`
	RestoreDraft bool                     `json:"restoreDraft,omitempty"`
	Document     *domain.BusinessDocument `json:"document,omitempty"`
}

type sessionResponse struct {
	ID         string                  `json:"id"`
	Kind       domain.DocumentKind     `json:"kind"`
	Locked     bool                    `json:"locked"`
	CanUndo    bool                    `json:"canUndo"`
	CanRedo    bool                    `json:"canRedo"`
	Document   domain.BusinessDocument `json:"document"`
	Violations []domain.Violation      `json:"violations"`
	Restored   *bool                   `json:"restored,omitempty"`
}

type previewResponse struct {
	services.Preview
	CanUndo bool `json:"canUndo"`
	CanRedo bool `json:"canRedo"`
}

type fieldsRequest struct {
	Fields map[string]string `json:"fields"`
}

type lineItemRequest struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	// UnitRate is in minor units; UnitPrice is a display string such as "50.00".
	UnitRate  *int64 `json:"unitRate,omitempty"`
	UnitPrice string `json:"unitPrice,omitempty"`
}

type lineItemResponse struct {
	Item    domain.LineItem `json:"item"`
	Session sessionResponse `json:"session"`
}

type themeRequest struct {
	Theme string `json:"theme"`
}

type currencyRequest struct {
	Currency string `json:"currency"`
	Confirm  bool   `json:"confirm,omitempty"`
}

type kindRequest struct {
	Kind string `json:"kind"`
}

type numberResponse struct {
	Number  string          `json:"number"`
	Session sessionResponse `json:"session"`
}

func (h *SessionHandlers) createSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.factory == nil {
		httpx.WriteError(ctx, w, httpx.NewError("session_service_unavailable", "session factory is unavailable", http.StatusServiceUnavailable))
		return
	}

	var req createSessionRequest
	if err := httpx.DecodeJSON(r, &req, maxSessionRequestBody); err != nil {
		writeSessionError(ctx, w, err)
		return
	}
	kind, ok := domain.ParseDocumentKind(req.Kind)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "kind must be one of invoice, quote, estimate, receipt", http.StatusBadRequest))
		return
	}

	var opts []editor.Option
	if req.LockKind {
		opts = append(opts, editor.WithLockedKind())
	}
	if req.Document != nil {
		opts = append(opts, editor.WithDocument(*req.Document))
	}
	session, err := h.factory(kind, opts...)
	if err != nil {
		writeSessionError(ctx, w, err)
		return
	}

	var restored *bool
	if req.RestoreDraft {
		ok, err := session.Restore(requestctx.WithSessionID(ctx, session.ID()))
		if err != nil {
			writeSessionError(ctx, w, err)
			return
		}
		restored = &ok
	}

	h.store.Add(session)
	resp := snapshot(session)
	resp.Restored = restored
	httpx.WriteJSON(w, http.StatusCreated, resp)
}

func (h *SessionHandlers) getSession(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, func(context.Context, *editor.Session) error { return nil })
}

func (h *SessionHandlers) closeSession(w http.ResponseWriter, r *http.Request) {
	if !h.store.Remove(sessionID(r)) {
		writeSessionError(r.Context(), w, ErrSessionNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandlers) preview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var resp previewResponse
	err := h.store.With(sessionID(r), func(s *editor.Session) error {
		preview, err := s.Preview(ctx)
		if err != nil {
			return err
		}
		resp = previewResponse{Preview: preview, CanUndo: s.CanUndo(), CanRedo: s.CanRedo()}
		return nil
	})
	if err != nil {
		writeSessionError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *SessionHandlers) updateFields(w http.ResponseWriter, r *http.Request) {
	var req fieldsRequest
	if err := httpx.DecodeJSON(r, &req, maxSessionRequestBody); err != nil {
		writeSessionError(r.Context(), w, err)
		return
	}
	values := make(map[editor.Field]string, len(req.Fields))
	for raw, value := range req.Fields {
		field, ok := editor.ParseField(raw)
		if !ok {
			httpx.WriteError(r.Context(), w, httpx.NewError("invalid_request", "unknown field "+strconv.Quote(raw), http.StatusBadRequest))
			return
		}
		values[field] = value
	}
	h.respond(w, r, func(ctx context.Context, s *editor.Session) error {
		return s.UpdateFields(ctx, values)
	})
}

func (h *SessionHandlers) addItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req lineItemRequest
	if err := httpx.DecodeJSON(r, &req, maxSessionRequestBody); err != nil {
		writeSessionError(ctx, w, err)
		return
	}
	var resp lineItemResponse
	err := h.store.With(sessionID(r), func(s *editor.Session) error {
		item, err := h.lineItem(s, req)
		if err != nil {
			return err
		}
		added, err := s.AddLineItem(ctx, item)
		if err != nil {
			return err
		}
		resp = lineItemResponse{Item: added, Session: snapshot(s)}
		return nil
	})
	if err != nil {
		writeSessionError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, resp)
}

func (h *SessionHandlers) updateItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	index, err := itemIndex(r)
	if err != nil {
		writeSessionError(ctx, w, err)
		return
	}
	var req lineItemRequest
	if err := httpx.DecodeJSON(r, &req, maxSessionRequestBody); err != nil {
		writeSessionError(ctx, w, err)
		return
	}
	var resp lineItemResponse
	err = h.store.With(sessionID(r), func(s *editor.Session) error {
		item, err := h.lineItem(s, req)
		if err != nil {
			return err
		}
		updated, err := s.UpdateLineItem(ctx, index, item)
		if err != nil {
			return err
		}
		resp = lineItemResponse{Item: updated, Session: snapshot(s)}
		return nil
	})
	if err != nil {
		writeSessionError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *SessionHandlers) removeItem(w http.ResponseWriter, r *http.Request) {
	index, err := itemIndex(r)
	if err != nil {
		writeSessionError(r.Context(), w, err)
		return
	}
	h.respond(w, r, func(ctx context.Context, s *editor.Session) error {
		return s.RemoveLineItem(ctx, index)
	})
}

func (h *SessionHandlers) setTheme(w http.ResponseWriter, r *http.Request) {
	var req themeRequest
	if err := httpx.DecodeJSON(r, &req, maxSessionRequestBody); err != nil {
		writeSessionError(r.Context(), w, err)
		return
	}
	theme := domain.ThemeID(strings.ToLower(strings.TrimSpace(req.Theme)))
	h.respond(w, r, func(ctx context.Context, s *editor.Session) error {
		return s.SetTheme(ctx, theme)
	})
}

func (h *SessionHandlers) setCurrency(w http.ResponseWriter, r *http.Request) {
	var req currencyRequest
	if err := httpx.DecodeJSON(r, &req, maxSessionRequestBody); err != nil {
		writeSessionError(r.Context(), w, err)
		return
	}
	h.respond(w, r, func(ctx context.Context, s *editor.Session) error {
		return s.SetCurrency(ctx, req.Currency, req.Confirm)
	})
}

func (h *SessionHandlers) setKind(w http.ResponseWriter, r *http.Request) {
	var req kindRequest
	if err := httpx.DecodeJSON(r, &req, maxSessionRequestBody); err != nil {
		writeSessionError(r.Context(), w, err)
		return
	}
	kind, _ := domain.ParseDocumentKind(req.Kind)
	h.respond(w, r, func(ctx context.Context, s *editor.Session) error {
		return s.SetKind(ctx, kind)
	})
}

func (h *SessionHandlers) undo(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, func(ctx context.Context, s *editor.Session) error {
		return s.Undo(ctx)
	})
}

func (h *SessionHandlers) redo(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, func(ctx context.Context, s *editor.Session) error {
		return s.Redo(ctx)
	})
}

func (h *SessionHandlers) nextNumber(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var resp numberResponse
	err := h.store.With(sessionID(r), func(s *editor.Session) error {
		number, err := s.NextNumber(ctx)
		if err != nil {
			return err
		}
		resp = numberResponse{Number: number, Session: snapshot(s)}
		return nil
	})
	if err != nil {
		writeSessionError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *SessionHandlers) restoreDraft(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var resp sessionResponse
	err := h.store.With(sessionID(r), func(s *editor.Session) error {
		restored, err := s.Restore(ctx)
		if err != nil {
			return err
		}
		resp = snapshot(s)
		resp.Restored = &restored
		return nil
	})
	if err != nil {
		writeSessionError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *SessionHandlers) discardDraft(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	err := h.store.With(sessionID(r), func(s *editor.Session) error {
		return s.DiscardDraft(ctx)
	})
	if err != nil {
		writeSessionError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandlers) export(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	opts := services.ExportOptions{}
	if raw := r.URL.Query().Get("skipValidation"); raw != "" {
		skip, err := strconv.ParseBool(raw)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "skipValidation must be a boolean", http.StatusBadRequest))
			return
		}
		opts.SkipValidation = skip
	}

	var result services.ExportResult
	err := h.store.With(sessionID(r), func(s *editor.Session) error {
		var err error
		result, err = s.Export(ctx, opts)
		return err
	})
	if err != nil {
		writeSessionError(ctx, w, err)
		return
	}
	w.Header().Set("X-Page-Count", strconv.Itoa(result.Pages))
	if len(result.Warnings) > 0 {
		w.Header().Set("X-Export-Warnings", strconv.Itoa(len(result.Warnings)))
	}
	httpx.WritePDF(w, result.Filename, result.PDF)
}

// respond runs fn under the session lock and writes the resulting session state.
func (h *SessionHandlers) respond(w http.ResponseWriter, r *http.Request, fn func(context.Context, *editor.Session) error) {
	ctx := r.Context()
	var resp sessionResponse
	err := h.store.With(sessionID(r), func(s *editor.Session) error {
		if err := fn(ctx, s); err != nil {
			return err
		}
		resp = snapshot(s)
		return nil
	})
	if err != nil {
		writeSessionError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *SessionHandlers) lineItem(s *editor.Session, req lineItemRequest) (domain.LineItem, error) {
	item := domain.LineItem{Description: req.Description, Quantity: req.Quantity}
	switch {
	case req.UnitRate != nil:
		item.UnitRate = *req.UnitRate
	case strings.TrimSpace(req.UnitPrice) != "":
		cur, err := h.catalog.MustLookup(s.Document().Currency)
		if err != nil {
			return domain.LineItem{}, err
		}
		rate, err := money.ParseAmount(req.UnitPrice, cur)
		if err != nil {
			return domain.LineItem{}, err
		}
		item.UnitRate = rate
	}
	return item, nil
}

func snapshot(s *editor.Session) sessionResponse {
	violations := s.Validate().Violations
	if violations == nil {
		violations = []domain.Violation{}
	}
	return sessionResponse{
		ID:         s.ID(),
		Kind:       s.Kind(),
		Locked:     s.Locked(),
		CanUndo:    s.CanUndo(),
		CanRedo:    s.CanRedo(),
		Document:   s.Document(),
		Violations: violations,
	}
}

func sessionID(r *http.Request) string {
	return strings.TrimSpace(chi.URLParam(r, "sessionId"))
}

var errInvalidIndex = errors.New("sessions: invalid item index")

func itemIndex(r *http.Request) (int, error) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || index < 0 {
		return 0, errInvalidIndex
	}
	return index, nil
}

// writeSessionError maps engine errors onto the JSON error envelope. Messages
// for unexpected failures are generic so document content never leaves via errors.
func writeSessionError(ctx context.Context, w http.ResponseWriter, err error) {
	var (
		validationErr *domain.ValidationError
		exportErr     *domain.ExportError
	)
	switch {
	case errors.Is(err, ErrSessionNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("session_not_found", "session not found", http.StatusNotFound))
	case errors.Is(err, httpx.ErrInvalidBody), errors.Is(err, errInvalidIndex):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, editor.ErrSessionInvalidInput),
		errors.Is(err, money.ErrInvalidAmount),
		errors.Is(err, money.ErrUnsupportedCurrency):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, editor.ErrCurrencyChangeUnconfirmed):
		httpx.WriteError(ctx, w, httpx.NewError("currency_change_unconfirmed", "changing the currency of a document with amounts requires confirm", http.StatusConflict))
	case errors.Is(err, editor.ErrLineItemLimit):
		httpx.WriteError(ctx, w, httpx.NewError("line_item_limit", err.Error(), http.StatusUnprocessableEntity))
	case errors.Is(err, editor.ErrLineItemNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("line_item_not_found", err.Error(), http.StatusNotFound))
	case errors.Is(err, editor.ErrNothingToUndo), errors.Is(err, editor.ErrNothingToRedo):
		httpx.WriteError(ctx, w, httpx.NewError("history_empty", err.Error(), http.StatusConflict))
	case errors.Is(err, editor.ErrNumberingUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("numbering_unavailable", "document numbering is not configured", http.StatusServiceUnavailable))
	case errors.Is(err, services.ErrCounterExhausted):
		httpx.WriteError(ctx, w, httpx.NewError("counter_exhausted", "document numbers for this period are exhausted", http.StatusConflict))
	case errors.Is(err, domain.ErrCalculationOverflow):
		httpx.WriteError(ctx, w, httpx.NewError("calculation_overflow", "amounts exceed the supported range", http.StatusUnprocessableEntity))
	case errors.As(err, &exportErr):
		writeExportError(ctx, w, exportErr)
	case errors.As(err, &validationErr):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_document", "document is not valid", http.StatusUnprocessableEntity).
			WithDetails(map[string]any{"violations": validationErr.Violations}))
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		httpx.WriteError(ctx, w, httpx.NewError("request_canceled", "request was canceled", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "internal error", http.StatusInternalServerError))
	}
}

func writeExportError(ctx context.Context, w http.ResponseWriter, err *domain.ExportError) {
	code := "export_" + string(err.Reason)
	switch err.Reason {
	case domain.ExportReasonInvalidDocument:
		details := map[string]any{}
		var validationErr *domain.ValidationError
		if errors.As(err.Err, &validationErr) {
			details["violations"] = validationErr.Violations
		}
		httpx.WriteError(ctx, w, httpx.NewError(code, "document is not valid for export", http.StatusUnprocessableEntity).WithDetails(details))
	case domain.ExportReasonPageLimit:
		httpx.WriteError(ctx, w, httpx.NewError(code, err.Error(), http.StatusUnprocessableEntity).
			WithDetails(map[string]any{"pages": err.Pages, "limit": err.Limit}))
	case domain.ExportReasonAssetDecode:
		httpx.WriteError(ctx, w, httpx.NewError(code, "an embedded image could not be decoded", http.StatusUnprocessableEntity))
	case domain.ExportReasonCanceled:
		httpx.WriteError(ctx, w, httpx.NewError(code, "export was canceled", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError(code, "pdf backend failed", http.StatusInternalServerError))
	}
}
