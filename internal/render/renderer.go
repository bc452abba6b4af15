// Package render turns a layout tree into a complete PDF held in memory.
package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/hanko-field/bizdoc/internal/domain"
	"github.com/hanko-field/bizdoc/internal/layout"
)

const (
	defaultMargin     = 40.0
	pageFooterReserve = 20.0
	creator           = "bizdoc"
)

// Options configures a Renderer.
type Options struct {
	Paper    PaperSize
	MaxPages int
	Margin   float64
	// CreationDate pins document metadata so identical input yields identical bytes.
	CreationDate time.Time
	Logger       func(context.Context, string, map[string]any)
}

// Output is one rendered document.
type Output struct {
	PDF   []byte
	Pages int
}

// Renderer lays out and draws layout trees with gofpdf. Safe for concurrent use;
// every Render call owns its own gofpdf document.
type Renderer struct {
	paper    PaperSize
	maxPages int
	margin   float64
	created  time.Time
	logger   func(context.Context, string, map[string]any)
}

// NewRenderer applies defaults: A4, DefaultMaxPages, 40pt margins.
func NewRenderer(opts Options) *Renderer {
	paper := opts.Paper
	if paper.Width <= 0 || paper.Height <= 0 {
		paper = A4Size
	}
	maxPages := opts.MaxPages
	if maxPages <= 0 {
		maxPages = domain.DefaultMaxPages
	}
	margin := opts.Margin
	if margin <= 0 {
		margin = defaultMargin
	}
	logger := opts.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &Renderer{
		paper:    paper,
		maxPages: maxPages,
		margin:   margin,
		created:  opts.CreationDate,
		logger:   logger,
	}
}

// Paper returns the configured paper size.
func (r *Renderer) Paper() PaperSize {
	return r.paper
}

// MaxPages returns the page ceiling.
func (r *Renderer) MaxPages() int {
	return r.maxPages
}

// Render measures and paginates the tree, enforces the page ceiling, then draws it.
// Failures are *domain.ExportError.
func (r *Renderer) Render(ctx context.Context, tree layout.Tree) (Output, error) {
	if err := ctx.Err(); err != nil {
		return Output{}, &domain.ExportError{Reason: domain.ExportReasonCanceled, Err: err}
	}

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: r.paper.Width, Ht: r.paper.Height},
	})
	pdf.SetMargins(r.margin, r.margin, r.margin)
	pdf.SetAutoPageBreak(false, r.margin)
	pdf.SetCatalogSort(true)
	if !r.created.IsZero() {
		pdf.SetCreationDate(r.created)
	}
	pdf.SetCreator(creator, true)
	if header := headerOf(tree); header != nil {
		pdf.SetTitle(header.Title+" "+header.Number, true)
	}
	pdf.AliasNbPages("")

	c := newCanvas(pdf, tree.Style, r.paper, r.margin)
	if err := c.registerLogo(headerOf(tree)); err != nil {
		return Output{}, &domain.ExportError{Reason: domain.ExportReasonAssetDecode, Err: err}
	}

	pages := paginate(c.plan(tree), c.top, c.bottom)
	if len(pages) > r.maxPages {
		r.logger(ctx, "render_page_limit", map[string]any{"pages": len(pages), "limit": r.maxPages})
		return Output{}, &domain.ExportError{Reason: domain.ExportReasonPageLimit, Pages: len(pages), Limit: r.maxPages}
	}

	pdf.SetFooterFunc(c.drawPageFooter)
	for _, page := range pages {
		if err := ctx.Err(); err != nil {
			return Output{}, &domain.ExportError{Reason: domain.ExportReasonCanceled, Err: err}
		}
		pdf.AddPage()
		for _, p := range page {
			if p.unit.draw != nil {
				p.unit.draw(p.y)
			}
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return Output{}, &domain.ExportError{Reason: domain.ExportReasonBackend, Err: err}
	}
	if buf.Len() == 0 {
		return Output{}, &domain.ExportError{Reason: domain.ExportReasonBackend, Err: errors.New("empty output")}
	}
	r.logger(ctx, "render_completed", map[string]any{"pages": len(pages), "bytes": buf.Len(), "theme": string(tree.Style.Theme)})
	return Output{PDF: buf.Bytes(), Pages: len(pages)}, nil
}

// PageCount paginates without drawing.
func (r *Renderer) PageCount(tree layout.Tree) (int, error) {
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: r.paper.Width, Ht: r.paper.Height},
	})
	c := newCanvas(pdf, tree.Style, r.paper, r.margin)
	pages := paginate(c.plan(tree), c.top, c.bottom)
	if err := pdf.Error(); err != nil {
		return 0, fmt.Errorf("render: measure: %w", err)
	}
	return len(pages), nil
}

func headerOf(tree layout.Tree) *layout.Header {
	if region := tree.Region(layout.RegionHeader); region != nil {
		return region.Header
	}
	return nil
}

// unit is an unsplittable slice of a region. Regions become one or more units.
type unit struct {
	height float64
	// gap is spacing before the unit; dropped at the top of a page.
	gap  float64
	draw func(y float64)
	// repeat is re-drawn at the top of a continuation page, e.g. a table header.
	repeat *unit
}

type placement struct {
	unit unit
	y    float64
}

func paginate(units []unit, top, bottom float64) [][]placement {
	pages := [][]placement{{}}
	y := top
	for _, u := range units {
		// Empty regions occupy no space and never start a page.
		if u.height <= 0 {
			continue
		}
		gap := u.gap
		if y == top {
			gap = 0
		}
		if y+gap+u.height > bottom && y > top {
			pages = append(pages, []placement{})
			y = top
			gap = 0
			if u.repeat != nil {
				pages[len(pages)-1] = append(pages[len(pages)-1], placement{unit: *u.repeat, y: y})
				y += u.repeat.height
			}
		}
		cur := len(pages) - 1
		pages[cur] = append(pages[cur], placement{unit: u, y: y + gap})
		y += gap + u.height
	}
	return pages
}
