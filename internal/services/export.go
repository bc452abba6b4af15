package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/language"

	"github.com/hanko-field/bizdoc/internal/domain"
	"github.com/hanko-field/bizdoc/internal/layout"
	"github.com/hanko-field/bizdoc/internal/money"
	"github.com/hanko-field/bizdoc/internal/render"
)

// PDFContentType is the media type of exported artifacts.
const PDFContentType = "application/pdf"

// PDFRenderer draws a resolved layout tree.
type PDFRenderer interface {
	Render(ctx context.Context, tree layout.Tree) (render.Output, error)
}

// PageCounter is implemented by renderers that can paginate without drawing.
type PageCounter interface {
	PageCount(tree layout.Tree) (int, error)
	MaxPages() int
}

// ExportOptions tunes one export attempt.
type ExportOptions struct {
	// SkipValidation renders documents that would fail validation, e.g. an empty draft.
	SkipValidation bool
}

// ExportResult is the immutable artifact of a successful export.
type ExportResult struct {
	PDF         []byte
	Filename    string
	ContentType string
	Pages       int
	Warnings    []string
}

// ExportOutcome is delivered by ExportAsync.
type ExportOutcome struct {
	Result ExportResult
	Err    error
}

// ExportServiceDeps bundles the pipeline stages.
type ExportServiceDeps struct {
	Calculator *DocumentCalculator
	Validator  *DocumentValidator
	Renderer   PDFRenderer
	Assets     AssetService
	Catalog    *money.Catalog
	Themes     *layout.ThemeTable
	Locale     language.Tag
	Logger     func(context.Context, string, map[string]any)
}

type exportService struct {
	calculator *DocumentCalculator
	validator  *DocumentValidator
	renderer   PDFRenderer
	assets     AssetService
	catalog    *money.Catalog
	themes     *layout.ThemeTable
	locale     language.Tag
	logger     func(context.Context, string, map[string]any)
}

// NewExportService wires validate → recompute → load logo → resolve → render.
func NewExportService(deps ExportServiceDeps) (ExportService, error) {
	if deps.Calculator == nil {
		return nil, errors.New("export service: calculator is required")
	}
	if deps.Validator == nil {
		return nil, errors.New("export service: validator is required")
	}
	if deps.Renderer == nil {
		return nil, errors.New("export service: renderer is required")
	}
	catalog := deps.Catalog
	if catalog == nil {
		catalog = money.DefaultCatalog()
	}
	themes := deps.Themes
	if themes == nil {
		themes = layout.DefaultThemes()
	}
	locale := deps.Locale
	if locale == language.Und {
		locale = language.English
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &exportService{
		calculator: deps.Calculator,
		validator:  deps.Validator,
		renderer:   deps.Renderer,
		assets:     deps.Assets,
		catalog:    catalog,
		themes:     themes,
		locale:     locale,
		logger:     logger,
	}, nil
}

func (s *exportService) Preview(ctx context.Context, doc domain.BusinessDocument) (Preview, error) {
	applied, err := s.calculator.Apply(ctx, doc)
	if err != nil {
		return Preview{}, err
	}

	var (
		logo     *domain.LogoImage
		warnings []string
	)
	if s.assets != nil && strings.TrimSpace(applied.Issuer.LogoRef) != "" {
		loaded, err := s.assets.LoadLogo(ctx, applied.Issuer.LogoRef)
		var assetErr *domain.AssetDecodeError
		switch {
		case errors.As(err, &assetErr):
			warnings = append(warnings, assetErr.Error())
		case err != nil:
			return Preview{}, err
		default:
			logo = loaded
		}
	}

	tree := layout.Resolve(applied, applied.Theme,
		layout.WithLogo(logo),
		layout.WithLocale(s.locale),
		layout.WithCatalog(s.catalog),
		layout.WithThemes(s.themes),
	)
	if warning := s.pageLimitWarning(tree); warning != "" {
		warnings = append(warnings, warning)
	}
	return Preview{Document: applied, Tree: tree, Warnings: warnings}, nil
}

// pageLimitWarning reports a preview that export would refuse for length.
func (s *exportService) pageLimitWarning(tree layout.Tree) string {
	counter, ok := s.renderer.(PageCounter)
	if !ok {
		return ""
	}
	pages, err := counter.PageCount(tree)
	if err != nil || pages <= counter.MaxPages() {
		return ""
	}
	return fmt.Sprintf("document needs %d pages; export allows at most %d", pages, counter.MaxPages())
}

// blockingViolations drops the missing line items violation: an empty document still
// exports with an empty-state table.
func blockingViolations(result ValidationResult) ValidationResult {
	kept := make([]domain.Violation, 0, len(result.Violations))
	for _, v := range result.Violations {
		if v.Field == "line_items" && v.Code == CodeRequired {
			continue
		}
		kept = append(kept, v)
	}
	return ValidationResult{Violations: kept}
}

func (s *exportService) Export(ctx context.Context, doc domain.BusinessDocument, opts ExportOptions) (ExportResult, error) {
	if err := ctx.Err(); err != nil {
		return ExportResult{}, &domain.ExportError{Reason: domain.ExportReasonCanceled, Err: err}
	}
	if !opts.SkipValidation {
		if result := blockingViolations(s.validator.Validate(doc)); !result.Valid() {
			s.logger(ctx, "export_blocked", map[string]any{"kind": string(doc.Kind), "violations": len(result.Violations)})
			return ExportResult{}, &domain.ExportError{Reason: domain.ExportReasonInvalidDocument, Err: result.Err()}
		}
	}

	preview, err := s.Preview(ctx, doc)
	if err != nil {
		return ExportResult{}, &domain.ExportError{Reason: domain.ExportReasonInvalidDocument, Err: err}
	}

	out, err := s.renderer.Render(ctx, preview.Tree)
	if err != nil {
		var exportErr *domain.ExportError
		if !errors.As(err, &exportErr) {
			exportErr = &domain.ExportError{Reason: domain.ExportReasonBackend, Err: err}
		}
		s.logger(ctx, "export_failed", map[string]any{"kind": string(doc.Kind), "reason": string(exportErr.Reason)})
		return ExportResult{}, exportErr
	}

	s.logger(ctx, "export_completed", map[string]any{
		"kind":     string(doc.Kind),
		"pages":    out.Pages,
		"bytes":    len(out.PDF),
		"warnings": len(preview.Warnings),
	})
	return ExportResult{
		PDF:         out.PDF,
		Filename:    s.SuggestedFilename(preview.Document),
		ContentType: PDFContentType,
		Pages:       out.Pages,
		Warnings:    preview.Warnings,
	}, nil
}

// ExportAsync runs Export on its own goroutine against a snapshot of doc. The channel
// yields exactly one outcome. If ctx is canceled first, the result is discarded.
func (s *exportService) ExportAsync(ctx context.Context, doc domain.BusinessDocument, opts ExportOptions) <-chan ExportOutcome {
	snapshot := doc.Clone()
	ch := make(chan ExportOutcome, 1)
	go func() {
		defer close(ch)
		result, err := s.Export(ctx, snapshot, opts)
		if err == nil && ctx.Err() != nil {
			result = ExportResult{}
			err = &domain.ExportError{Reason: domain.ExportReasonCanceled, Err: ctx.Err()}
		}
		ch <- ExportOutcome{Result: result, Err: err}
	}()
	return ch
}

// SuggestedFilename returns e.g. "invoice-INV-202610-000001.pdf" or "quote-draft.pdf".
func (s *exportService) SuggestedFilename(doc domain.BusinessDocument) string {
	return SuggestedFilename(doc)
}

// SuggestedFilename builds a filesystem-safe download name from kind and number.
func SuggestedFilename(doc domain.BusinessDocument) string {
	kind := doc.Kind
	if !kind.Valid() {
		kind = domain.KindInvoice
	}
	number := sanitizeFilename(doc.Number)
	if number == "" {
		number = "draft"
	}
	return fmt.Sprintf("%s-%s.pdf", kind, number)
}

func sanitizeFilename(value string) string {
	var b strings.Builder
	lastDash := false
	for _, r := range strings.TrimSpace(value) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)), r == '_', r == '.':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteRune('-')
				lastDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-.")
}
