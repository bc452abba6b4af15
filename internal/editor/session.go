// Package editor owns the live document while it is being edited. Every change
// goes through a Session, which recomputes totals, records an undo point and
// pushes a fresh preview tree to subscribers.
//
// A Session is not safe for concurrent use. Shells that share one across
// goroutines must serialise access.
package editor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hanko-field/bizdoc/internal/domain"
	"github.com/hanko-field/bizdoc/internal/layout"
	"github.com/hanko-field/bizdoc/internal/money"
	"github.com/hanko-field/bizdoc/internal/platform/textutil"
	"github.com/hanko-field/bizdoc/internal/repositories"
	"github.com/hanko-field/bizdoc/internal/services"
)

// ChangeReason tags what produced a Change.
type ChangeReason string

const (
	ChangeEdit    ChangeReason = "edit"
	ChangeUndo    ChangeReason = "undo"
	ChangeRedo    ChangeReason = "redo"
	ChangeRestore ChangeReason = "restore"
)

// Change is delivered to subscribers after every successful state transition.
type Change struct {
	Reason   ChangeReason
	Document domain.BusinessDocument
	Tree     layout.Tree
	Warnings []string
	CanUndo  bool
	CanRedo  bool
}

// SessionDeps bundles the engine components a session drives.
type SessionDeps struct {
	Calculator *services.DocumentCalculator
	Exporter   services.ExportService
	Validator  *services.DocumentValidator
	Numbering  services.NumberingService
	Catalog    *money.Catalog

	DefaultCurrency string
	DefaultTheme    domain.ThemeID
	MaxLineItems    int
	UndoDepth       int

	Clock       func() time.Time
	IDGenerator func() string
	Logger      func(context.Context, string, map[string]any)
}

// Option customises a session at construction.
type Option func(*Session)

// WithLockedKind pins the document kind; SetKind becomes a no-op.
func WithLockedKind() Option {
	return func(s *Session) {
		s.locked = true
	}
}

// WithDraftStore mirrors every change into the draft cache.
func WithDraftStore(store repositories.DraftRepository) Option {
	return func(s *Session) {
		s.drafts = store
	}
}

// WithOnExport registers the callback invoked with every export outcome. It may be
// called from the goroutine started by ExportAsync.
func WithOnExport(fn func(services.ExportOutcome)) Option {
	return func(s *Session) {
		if fn != nil {
			s.onExport = fn
		}
	}
}

// WithDocument seeds the session with an existing document instead of an empty one.
func WithDocument(doc domain.BusinessDocument) Option {
	return func(s *Session) {
		seeded := doc.Clone()
		s.seed = &seeded
	}
}

type subscriber struct {
	id int
	fn func(Change)
}

// Session holds one live BusinessDocument.
type Session struct {
	id string
	// kind is enforced on every snapshot while locked.
	kind       domain.DocumentKind
	locked     bool
	calculator *services.DocumentCalculator
	exporter   services.ExportService
	validator  *services.DocumentValidator
	numbering  services.NumberingService
	catalog    *money.Catalog
	drafts     repositories.DraftRepository
	onExport   func(services.ExportOutcome)
	maxItems   int
	newID      func() string
	now        func() time.Time
	logger     func(context.Context, string, map[string]any)

	seed        *domain.BusinessDocument
	history     *history
	subscribers []subscriber
	nextSubID   int
}

// NewSession creates a session for kind. The initial document is empty unless
// WithDocument supplies one; its kind is forced to kind either way.
func NewSession(kind domain.DocumentKind, deps SessionDeps, opts ...Option) (*Session, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown document kind %q", ErrSessionInvalidInput, kind)
	}
	if deps.Calculator == nil {
		return nil, errCalculatorRequired
	}
	if deps.Exporter == nil {
		return nil, errExporterRequired
	}

	catalog := deps.Catalog
	if catalog == nil {
		catalog = money.DefaultCatalog()
	}
	validator := deps.Validator
	if validator == nil {
		validator = services.NewDocumentValidator(services.DocumentValidatorDeps{Catalog: catalog, MaxLineItems: deps.MaxLineItems})
	}
	maxItems := deps.MaxLineItems
	if maxItems <= 0 {
		maxItems = domain.DefaultMaxLineItems
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	s := &Session{
		kind:       kind,
		calculator: deps.Calculator,
		exporter:   deps.Exporter,
		validator:  validator,
		numbering:  deps.Numbering,
		catalog:    catalog,
		onExport:   func(services.ExportOutcome) {},
		maxItems:   maxItems,
		newID:      idGen,
		now:        func() time.Time { return clock().UTC() },
		logger:     logger,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.id = s.newID()

	var initial domain.BusinessDocument
	if s.seed != nil {
		initial = *s.seed
		initial.Kind = kind
		s.seed = nil
	} else {
		currency := strings.ToUpper(strings.TrimSpace(deps.DefaultCurrency))
		if !catalog.Supported(currency) {
			currency = "USD"
		}
		initial = domain.NewDocument(kind, currency, s.now())
		if deps.DefaultTheme.Valid() {
			initial.Theme = deps.DefaultTheme
		}
	}
	applied, err := s.calculator.Apply(context.Background(), initial)
	if err != nil {
		return nil, fmt.Errorf("session: initial document: %w", err)
	}
	s.history = newHistory(applied, deps.UndoDepth)
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Kind returns the document kind.
func (s *Session) Kind() domain.DocumentKind {
	return s.history.current().Kind
}

// Locked reports whether the document kind is pinned.
func (s *Session) Locked() bool {
	return s.locked
}

// Document returns a copy of the live document with derived totals current.
func (s *Session) Document() domain.BusinessDocument {
	return s.history.current().Clone()
}

// CanUndo reports whether Undo has a snapshot to return to.
func (s *Session) CanUndo() bool {
	return s.history.canUndo()
}

// CanRedo reports whether Redo has a snapshot to return to.
func (s *Session) CanRedo() bool {
	return s.history.canRedo()
}

// Validate reports the violations that would block export.
func (s *Session) Validate() services.ValidationResult {
	return s.validator.Validate(s.history.current())
}

// Preview returns the layout tree export would render for the live document.
func (s *Session) Preview(ctx context.Context) (services.Preview, error) {
	return s.exporter.Preview(ctx, s.history.current())
}

// Subscribe registers fn for every Change. The returned func removes it.
func (s *Session) Subscribe(fn func(Change)) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}
	s.nextSubID++
	id := s.nextSubID
	s.subscribers = append(s.subscribers, subscriber{id: id, fn: fn})
	return func() {
		for i, sub := range s.subscribers {
			if sub.id == id {
				s.subscribers = append(s.subscribers[:i:i], s.subscribers[i+1:]...)
				return
			}
		}
	}
}

// AddLineItem appends an item with a fresh ID and returns it with its line total.
func (s *Session) AddLineItem(ctx context.Context, item domain.LineItem) (domain.LineItem, error) {
	var index int
	err := s.Mutate(ctx, func(doc *domain.BusinessDocument) error {
		if len(doc.LineItems) >= s.maxItems {
			return fmt.Errorf("%w: at most %d", ErrLineItemLimit, s.maxItems)
		}
		item.ID = s.newID()
		item.Description = textutil.PlainText(item.Description)
		item.LineTotal = 0
		doc.LineItems = append(doc.LineItems, item)
		index = len(doc.LineItems) - 1
		return nil
	})
	if err != nil {
		return domain.LineItem{}, err
	}
	return s.history.current().LineItems[index], nil
}

// UpdateLineItem replaces the item at index, keeping its ID.
func (s *Session) UpdateLineItem(ctx context.Context, index int, item domain.LineItem) (domain.LineItem, error) {
	err := s.Mutate(ctx, func(doc *domain.BusinessDocument) error {
		if index < 0 || index >= len(doc.LineItems) {
			return fmt.Errorf("%w: index %d", ErrLineItemNotFound, index)
		}
		item.ID = doc.LineItems[index].ID
		item.Description = textutil.PlainText(item.Description)
		item.LineTotal = 0
		doc.LineItems[index] = item
		return nil
	})
	if err != nil {
		return domain.LineItem{}, err
	}
	return s.history.current().LineItems[index], nil
}

// RemoveLineItem deletes the item at index.
func (s *Session) RemoveLineItem(ctx context.Context, index int) error {
	return s.Mutate(ctx, func(doc *domain.BusinessDocument) error {
		if index < 0 || index >= len(doc.LineItems) {
			return fmt.Errorf("%w: index %d", ErrLineItemNotFound, index)
		}
		doc.LineItems = append(doc.LineItems[:index:index], doc.LineItems[index+1:]...)
		return nil
	})
}

// UpdateField sets one scalar field from its text form.
func (s *Session) UpdateField(ctx context.Context, field Field, value string) error {
	return s.Mutate(ctx, func(doc *domain.BusinessDocument) error {
		return setField(doc, field, value, s.catalog)
	})
}

// UpdateFields sets several fields as one undoable change, applied in the
// order of Fields. Any invalid value rejects the whole change.
func (s *Session) UpdateFields(ctx context.Context, values map[Field]string) error {
	if len(values) == 0 {
		return nil
	}
	for field := range values {
		if _, ok := ParseField(string(field)); !ok {
			return fmt.Errorf("%w: unknown field %q", ErrSessionInvalidInput, field)
		}
	}
	return s.Mutate(ctx, func(doc *domain.BusinessDocument) error {
		for _, field := range Fields {
			value, ok := values[field]
			if !ok {
				continue
			}
			if err := setField(doc, field, value, s.catalog); err != nil {
				return err
			}
		}
		return nil
	})
}

// SetTheme switches the visual theme. Only style tokens change in the preview.
func (s *Session) SetTheme(ctx context.Context, theme domain.ThemeID) error {
	if !theme.Valid() {
		return fmt.Errorf("%w: unknown theme %q", ErrSessionInvalidInput, theme)
	}
	if s.history.current().Theme == theme {
		return nil
	}
	return s.Mutate(ctx, func(doc *domain.BusinessDocument) error {
		doc.Theme = theme
		return nil
	})
}

// SetCurrency relabels the document currency. Stored minor-unit amounts are kept
// as they are; only their display changes. A document carrying amounts needs confirm.
func (s *Session) SetCurrency(ctx context.Context, code string, confirm bool) error {
	target, err := s.catalog.MustLookup(code)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSessionInvalidInput, err)
	}
	current := s.history.current()
	if current.Currency == target.Code {
		return nil
	}
	if current.HasAmounts() && !confirm {
		return ErrCurrencyChangeUnconfirmed
	}
	return s.Mutate(ctx, func(doc *domain.BusinessDocument) error {
		doc.Currency = target.Code
		return nil
	})
}

// SetKind changes the document kind. It does nothing when the kind is locked.
func (s *Session) SetKind(ctx context.Context, kind domain.DocumentKind) error {
	if s.locked {
		return nil
	}
	if !kind.Valid() {
		return fmt.Errorf("%w: unknown document kind %q", ErrSessionInvalidInput, kind)
	}
	if s.history.current().Kind == kind {
		return nil
	}
	return s.Mutate(ctx, func(doc *domain.BusinessDocument) error {
		doc.Kind = kind
		return nil
	})
}

// Mutate applies fn to a copy of the live document. On success the totals are
// recomputed, the previous state becomes an undo point, the draft is saved and
// subscribers are notified. On any error the session is unchanged.
func (s *Session) Mutate(ctx context.Context, fn func(*domain.BusinessDocument) error) error {
	next := s.history.current().Clone()
	if err := fn(&next); err != nil {
		s.logger(ctx, "session_mutation_rejected", map[string]any{"session": s.id, "kind": string(next.Kind), "error": errorClass(err)})
		return err
	}
	if s.locked {
		next.Kind = s.kind
	}
	applied, err := s.calculator.Apply(ctx, next)
	if err != nil {
		s.logger(ctx, "session_mutation_rejected", map[string]any{"session": s.id, "kind": string(next.Kind), "error": errorClass(err)})
		return err
	}
	s.history.push(applied)
	s.commit(ctx, ChangeEdit, applied)
	return nil
}

// Undo steps back to the previous snapshot.
func (s *Session) Undo(ctx context.Context) error {
	doc, ok := s.history.undo()
	if !ok {
		return ErrNothingToUndo
	}
	s.commit(ctx, ChangeUndo, doc)
	return nil
}

// Redo re-applies the snapshot undone most recently.
func (s *Session) Redo(ctx context.Context) error {
	doc, ok := s.history.redo()
	if !ok {
		return ErrNothingToRedo
	}
	s.commit(ctx, ChangeRedo, doc)
	return nil
}

// Restore replaces the live document with the cached draft for this kind and
// clears undo history. It reports false when no draft exists.
func (s *Session) Restore(ctx context.Context) (bool, error) {
	if s.drafts == nil {
		return false, nil
	}
	kind := s.Kind()
	draft, err := s.drafts.Load(ctx, kind)
	if errors.Is(err, repositories.ErrDraftNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("session: restore draft: %w", err)
	}
	draft.Kind = kind
	applied, err := s.calculator.Apply(ctx, draft)
	if err != nil {
		return false, fmt.Errorf("session: restore draft: %w", err)
	}
	s.history.reset(applied)
	s.notify(ctx, ChangeRestore, applied)
	s.logger(ctx, "session_draft_restored", map[string]any{"session": s.id, "kind": string(kind), "lineItems": len(applied.LineItems)})
	return true, nil
}

// DiscardDraft deletes the cached draft for this kind. The live document is kept.
func (s *Session) DiscardDraft(ctx context.Context) error {
	if s.drafts == nil {
		return nil
	}
	if err := s.drafts.Delete(ctx, s.Kind()); err != nil {
		return fmt.Errorf("session: discard draft: %w", err)
	}
	return nil
}

// NextNumber assigns the next sequential document number as an ordinary edit.
func (s *Session) NextNumber(ctx context.Context) (string, error) {
	if s.numbering == nil {
		return "", ErrNumberingUnavailable
	}
	number, err := s.numbering.NextDocumentNumber(ctx, s.Kind())
	if err != nil {
		return "", err
	}
	if err := s.Mutate(ctx, func(doc *domain.BusinessDocument) error {
		doc.Number = number
		return nil
	}); err != nil {
		return "", err
	}
	return number, nil
}

// Export renders the live document and reports the outcome to the OnExport callback.
func (s *Session) Export(ctx context.Context, opts services.ExportOptions) (services.ExportResult, error) {
	result, err := s.exporter.Export(ctx, s.history.current(), opts)
	s.reportExport(ctx, s.Kind(), services.ExportOutcome{Result: result, Err: err})
	return result, err
}

// ExportAsync exports a snapshot of the live document on another goroutine. Edits
// made meanwhile do not affect the artifact.
func (s *Session) ExportAsync(ctx context.Context, opts services.ExportOptions) <-chan services.ExportOutcome {
	kind := s.Kind()
	src := s.exporter.ExportAsync(ctx, s.history.current(), opts)
	out := make(chan services.ExportOutcome, 1)
	go func() {
		defer close(out)
		outcome, ok := <-src
		if !ok {
			return
		}
		s.reportExport(ctx, kind, outcome)
		out <- outcome
	}()
	return out
}

func (s *Session) reportExport(ctx context.Context, kind domain.DocumentKind, outcome services.ExportOutcome) {
	fields := map[string]any{"session": s.id, "kind": string(kind)}
	if outcome.Err != nil {
		var exportErr *domain.ExportError
		if errors.As(outcome.Err, &exportErr) {
			fields["reason"] = string(exportErr.Reason)
		}
		s.logger(ctx, "session_export_failed", fields)
	} else {
		fields["pages"] = outcome.Result.Pages
		s.logger(ctx, "session_exported", fields)
	}
	s.onExport(outcome)
}

func (s *Session) commit(ctx context.Context, reason ChangeReason, doc domain.BusinessDocument) {
	s.autosave(ctx, doc)
	s.notify(ctx, reason, doc)
}

func (s *Session) autosave(ctx context.Context, doc domain.BusinessDocument) {
	if s.drafts == nil {
		return
	}
	if err := s.drafts.Save(ctx, doc); err != nil {
		s.logger(ctx, "session_autosave_failed", map[string]any{"session": s.id, "kind": string(doc.Kind), "error": err.Error()})
	}
}

func (s *Session) notify(ctx context.Context, reason ChangeReason, doc domain.BusinessDocument) {
	if len(s.subscribers) == 0 {
		return
	}
	preview, err := s.exporter.Preview(ctx, doc)
	if err != nil {
		s.logger(ctx, "session_preview_failed", map[string]any{"session": s.id, "kind": string(doc.Kind), "error": errorClass(err)})
		return
	}
	change := Change{
		Reason:   reason,
		Document: preview.Document,
		Tree:     preview.Tree,
		Warnings: preview.Warnings,
		CanUndo:  s.history.canUndo(),
		CanRedo:  s.history.canRedo(),
	}
	subs := append([]subscriber(nil), s.subscribers...)
	for _, sub := range subs {
		sub.fn(change)
	}
}

// errorClass names an error without echoing user input.
func errorClass(err error) string {
	switch {
	case errors.Is(err, ErrSessionInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrLineItemLimit):
		return "line_item_limit"
	case errors.Is(err, ErrLineItemNotFound):
		return "line_item_not_found"
	case errors.Is(err, ErrCurrencyChangeUnconfirmed):
		return "currency_unconfirmed"
	case errors.Is(err, domain.ErrCalculationOverflow):
		return "overflow"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "other"
	}
}
