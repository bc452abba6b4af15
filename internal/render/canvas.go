package render

import (
	"bytes"
	"fmt"
	"math"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/hanko-field/bizdoc/internal/domain"
	"github.com/hanko-field/bizdoc/internal/layout"
)

const (
	logoName     = "issuer-logo"
	logoHeight   = 48.0
	logoMaxWidth = 140.0
	bandPadding  = 12.0
	partyGutter  = 24.0
	totalsShare  = 0.45
)

type canvas struct {
	pdf    *gofpdf.Fpdf
	tr     func(string) string
	style  layout.Tokens
	paper  PaperSize
	left   float64
	width  float64
	top    float64
	bottom float64

	logoType string
}

func newCanvas(pdf *gofpdf.Fpdf, style layout.Tokens, paper PaperSize, margin float64) *canvas {
	pdf.SetCellMargin(style.CellPadding)
	return &canvas{
		pdf:    pdf,
		tr:     pdf.UnicodeTranslatorFromDescriptor(""),
		style:  style,
		paper:  paper,
		left:   margin,
		width:  paper.Width - 2*margin,
		top:    margin,
		bottom: paper.Height - margin - pageFooterReserve,
	}
}

func (c *canvas) lineHeight(size float64) float64 {
	return math.Ceil(size * c.style.LineHeight)
}

func (c *canvas) setFont(heading bool, style string, size float64) {
	family := c.style.Font
	if heading {
		family = c.style.HeadingFont
	}
	c.pdf.SetFont(family, style, size)
}

func (c *canvas) textColor(col layout.Color) {
	c.pdf.SetTextColor(col.R, col.G, col.B)
}

func (c *canvas) fillColor(col layout.Color) {
	c.pdf.SetFillColor(col.R, col.G, col.B)
}

func (c *canvas) drawColor(col layout.Color) {
	c.pdf.SetDrawColor(col.R, col.G, col.B)
}

// wrap splits text to fit width with the current font. Returned lines are already
// translated to the core-font code page.
func (c *canvas) wrap(text string, width float64, maxLines int) []string {
	if text == "" {
		return []string{""}
	}
	raw := c.pdf.SplitLines([]byte(c.tr(text)), width)
	if len(raw) == 0 {
		return []string{""}
	}
	if maxLines > 0 && len(raw) > maxLines {
		raw = raw[:maxLines]
	}
	lines := make([]string, len(raw))
	for i, line := range raw {
		lines[i] = string(line)
	}
	return lines
}

// cell draws pre-translated text.
func (c *canvas) cell(x, y, w, h float64, text, align string, fill bool) {
	c.pdf.SetXY(x, y)
	c.pdf.CellFormat(w, h, text, "", 0, align, fill, 0, "")
}

func (c *canvas) registerLogo(header *layout.Header) error {
	if header == nil || header.Logo.Image == nil || len(header.Logo.Image.Data) == 0 {
		return nil
	}
	img := header.Logo.Image
	var imageType string
	switch strings.ToLower(img.Format) {
	case "png":
		imageType = "PNG"
	case "jpeg", "jpg":
		imageType = "JPG"
	case "gif":
		imageType = "GIF"
	default:
		return &domain.AssetDecodeError{Ref: img.Ref, Err: fmt.Errorf("unsupported image format %q", img.Format)}
	}
	c.pdf.RegisterImageOptionsReader(logoName, gofpdf.ImageOptions{ImageType: imageType}, bytes.NewReader(img.Data))
	if err := c.pdf.Error(); err != nil {
		return &domain.AssetDecodeError{Ref: img.Ref, Err: err}
	}
	c.logoType = imageType
	return nil
}

func (c *canvas) plan(tree layout.Tree) []unit {
	var units []unit
	for i := 0; i < len(tree.Regions); i++ {
		region := tree.Regions[i]
		gap := c.style.RegionGap
		switch region.Kind {
		case layout.RegionHeader:
			units = append(units, c.headerUnit(region.Header, gap))
		case layout.RegionParty:
			var right *layout.PartyBlock
			if i+1 < len(tree.Regions) && tree.Regions[i+1].Kind == layout.RegionParty {
				right = tree.Regions[i+1].Party
				i++
			}
			units = append(units, c.partyUnit(region.Party, right, gap))
		case layout.RegionItemTable:
			units = append(units, c.tableUnits(region.Items, gap)...)
		case layout.RegionTotals:
			units = append(units, c.totalsUnit(region.Totals, gap))
		case layout.RegionFooter:
			units = append(units, c.footerUnits(region.Footer, gap)...)
		}
	}
	return units
}

func (c *canvas) headerUnit(h *layout.Header, gap float64) unit {
	if h == nil {
		return unit{gap: gap}
	}
	s := c.style
	titleH := c.lineHeight(s.TitleSize)
	bodyH := c.lineHeight(s.BodySize)

	info := []string{c.tr("No. " + h.Number)}
	if h.Reference != "" {
		info = append(info, c.tr("Ref. "+h.Reference))
	}
	for _, d := range h.Dates {
		info = append(info, c.tr(d.Label+": "+d.Value))
	}
	rightH := titleH + float64(len(info))*bodyH
	if h.Status != "" {
		rightH += bodyH + 6
	}
	pad := 0.0
	if s.HeaderBand {
		pad = bandPadding
	}
	height := math.Max(logoHeight, rightH) + 2*pad

	return unit{height: height, gap: gap, draw: func(y float64) {
		textCol := s.Colors.Text
		titleCol := s.Colors.Primary
		if s.HeaderBand {
			c.fillColor(s.Colors.BandFill)
			c.pdf.Rect(0, y, c.paper.Width, height, "F")
			textCol = s.Colors.BandText
			titleCol = s.Colors.BandText
		}
		c.drawLogo(h.Logo, c.left, y+pad)

		colX := c.left + c.width/2
		colW := c.width / 2
		cy := y + pad
		c.setFont(true, "B", s.TitleSize)
		c.textColor(titleCol)
		c.cell(colX, cy, colW, titleH, c.tr(h.Title), "R", false)
		cy += titleH

		c.setFont(false, "", s.BodySize)
		c.textColor(textCol)
		for _, line := range info {
			c.cell(colX, cy, colW, bodyH, line, "R", false)
			cy += bodyH
		}
		if h.Status != "" {
			cy += 3
			c.setFont(true, "B", s.BodySize)
			badge := c.tr(h.Status)
			w := c.pdf.GetStringWidth(badge) + 2*s.CellPadding
			c.drawColor(titleCol)
			c.textColor(titleCol)
			c.pdf.SetLineWidth(1)
			c.pdf.SetXY(c.left+c.width-w, cy)
			c.pdf.CellFormat(w, bodyH, badge, "1", 0, "C", false, 0, "")
		}
	}}
}

func (c *canvas) drawLogo(logo layout.Logo, x, y float64) {
	s := c.style
	if !logo.Placeholder && logo.Image != nil && c.logoType != "" {
		w := math.Min(logoHeight*logo.Image.AspectRatio(), logoMaxWidth)
		h := w / logo.Image.AspectRatio()
		c.pdf.ImageOptions(logoName, x, y+(logoHeight-h)/2, w, h, false, gofpdf.ImageOptions{ImageType: c.logoType}, 0, "")
		return
	}
	c.fillColor(s.Colors.Primary)
	c.pdf.Rect(x, y, logoHeight, logoHeight, "F")
	if logo.Initials == "" {
		return
	}
	c.setFont(true, "B", s.TitleSize*0.75)
	c.pdf.SetTextColor(255, 255, 255)
	c.cell(x, y, logoHeight, logoHeight, c.tr(logo.Initials), "CM", false)
}

func (c *canvas) maxLines(size float64) int {
	n := int((c.bottom - c.top) / (2 * c.lineHeight(size)))
	if n < 1 {
		return 1
	}
	return n
}

func (c *canvas) partyLayout(p *layout.PartyBlock, width float64) (label string, name []string, lines []string, height float64) {
	s := c.style
	smallH := c.lineHeight(s.SmallSize)
	bodyH := c.lineHeight(s.BodySize)

	c.setFont(true, "B", s.SmallSize)
	label = c.tr(strings.ToUpper(p.Label))
	c.setFont(false, "B", s.BodySize)
	name = c.wrap(p.Name, width-2*s.CellPadding, 3)
	c.setFont(false, "", s.BodySize)
	for _, line := range p.Lines {
		lines = append(lines, c.wrap(line, width-2*s.CellPadding, 3)...)
	}
	if limit := c.maxLines(s.BodySize); len(lines) > limit {
		lines = lines[:limit]
	}
	height = smallH + float64(len(name)+len(lines))*bodyH
	return label, name, lines, height
}

func (c *canvas) partyUnit(left, right *layout.PartyBlock, gap float64) unit {
	s := c.style
	colW := (c.width - partyGutter) / 2
	type block struct {
		label       string
		name, lines []string
	}
	var blocks []block
	height := 0.0
	for _, p := range []*layout.PartyBlock{left, right} {
		if p == nil {
			continue
		}
		label, name, lines, h := c.partyLayout(p, colW)
		blocks = append(blocks, block{label: label, name: name, lines: lines})
		height = math.Max(height, h)
	}

	return unit{height: height, gap: gap, draw: func(y float64) {
		smallH := c.lineHeight(s.SmallSize)
		bodyH := c.lineHeight(s.BodySize)
		for i, b := range blocks {
			x := c.left + float64(i)*(colW+partyGutter)
			cy := y
			c.setFont(true, "B", s.SmallSize)
			c.textColor(s.Colors.Muted)
			c.cell(x, cy, colW, smallH, b.label, "L", false)
			cy += smallH
			c.setFont(false, "B", s.BodySize)
			c.textColor(s.Colors.Accent)
			for _, line := range b.name {
				c.cell(x, cy, colW, bodyH, line, "L", false)
				cy += bodyH
			}
			c.setFont(false, "", s.BodySize)
			c.textColor(s.Colors.Text)
			for _, line := range b.lines {
				c.cell(x, cy, colW, bodyH, line, "L", false)
				cy += bodyH
			}
		}
	}}
}

func (c *canvas) tableUnits(t *layout.ItemTable, gap float64) []unit {
	if t == nil {
		return nil
	}
	s := c.style
	bodyH := c.lineHeight(s.BodySize)
	rowPad := s.CellPadding
	widths := make([]float64, len(t.Columns))
	for i, col := range t.Columns {
		widths[i] = col.Width * c.width
	}

	headerH := bodyH + 2*rowPad
	header := unit{height: headerH, draw: func(y float64) {
		c.fillColor(s.Colors.TableHeaderFill)
		c.pdf.Rect(c.left, y, c.width, headerH, "F")
		c.setFont(true, "B", s.BodySize)
		c.textColor(s.Colors.TableHeaderText)
		x := c.left
		for i, col := range t.Columns {
			c.cell(x, y+rowPad, widths[i], bodyH, c.tr(col.Title), string(col.Align), false)
			x += widths[i]
		}
	}}

	maxRowLines := int((c.bottom-c.top-headerH)/bodyH) - 1
	if maxRowLines < 1 {
		maxRowLines = 1
	}

	rows := make([]unit, 0, len(t.Rows))
	for idx, row := range t.Rows {
		idx, row := idx, row
		if row.EmptyState {
			h := bodyH + 2*rowPad
			rows = append(rows, unit{height: h, draw: func(y float64) {
				c.setFont(false, "I", s.BodySize)
				c.textColor(s.Colors.Muted)
				text := ""
				if len(row.Cells) > 0 {
					text = row.Cells[0]
				}
				c.cell(c.left, y+rowPad, c.width, bodyH, c.tr(text), "C", false)
				c.rule(y + h)
			}})
			continue
		}

		c.setFont(false, "", s.BodySize)
		cells := make([][]string, len(row.Cells))
		lines := 1
		for i, text := range row.Cells {
			if i >= len(widths) {
				break
			}
			if i == 0 {
				cells[i] = c.wrap(text, widths[i]-2*s.CellPadding, maxRowLines)
			} else {
				cells[i] = []string{c.tr(text)}
			}
			if len(cells[i]) > lines {
				lines = len(cells[i])
			}
		}
		h := float64(lines)*bodyH + 2*rowPad
		rows = append(rows, unit{height: h, draw: func(y float64) {
			if s.ZebraRows && idx%2 == 1 {
				c.fillColor(s.Colors.ZebraFill)
				c.pdf.Rect(c.left, y, c.width, h, "F")
			}
			c.setFont(false, "", s.BodySize)
			c.textColor(s.Colors.Text)
			x := c.left
			for i, cellLines := range cells {
				if i >= len(t.Columns) {
					break
				}
				for j, line := range cellLines {
					c.cell(x, y+rowPad+float64(j)*bodyH, widths[i], bodyH, line, string(t.Columns[i].Align), false)
				}
				x += widths[i]
			}
			c.rule(y + h)
		}})
	}

	if len(rows) == 0 {
		header.gap = gap
		return []unit{header}
	}

	// The header always travels with the first row.
	first := rows[0]
	units := []unit{{
		height: header.height + first.height,
		gap:    gap,
		draw: func(y float64) {
			header.draw(y)
			first.draw(y + header.height)
		},
	}}
	for _, row := range rows[1:] {
		row.repeat = &header
		units = append(units, row)
	}
	return units
}

func (c *canvas) rule(y float64) {
	c.drawColor(c.style.Colors.Rule)
	c.pdf.SetLineWidth(0.5)
	c.pdf.Line(c.left, y, c.left+c.width, y)
}

func (c *canvas) totalsUnit(t *layout.TotalsBlock, gap float64) unit {
	if t == nil {
		return unit{gap: gap}
	}
	s := c.style
	bodyH := c.lineHeight(s.BodySize) + 4
	grandH := c.lineHeight(s.HeadingSize) + 8
	lines := t.Lines()
	height := float64(len(lines)-1)*bodyH + grandH

	return unit{height: height, gap: gap, draw: func(y float64) {
		boxW := c.width * totalsShare
		x := c.left + c.width - boxW
		labelW := boxW * 0.55
		valueW := boxW - labelW
		cy := y
		for i, line := range lines {
			grand := i == len(lines)-1
			if grand {
				c.drawColor(s.Colors.Primary)
				c.pdf.SetLineWidth(1)
				c.pdf.Line(x, cy+2, x+boxW, cy+2)
				c.setFont(true, "B", s.HeadingSize)
				c.textColor(s.Colors.Primary)
				c.cell(x, cy+4, labelW, grandH-8, c.tr(line.Label), "L", false)
				c.cell(x+labelW, cy+4, valueW, grandH-8, c.tr(line.Value), "R", false)
				cy += grandH
				continue
			}
			c.setFont(false, "", s.BodySize)
			c.textColor(s.Colors.Muted)
			c.cell(x, cy, labelW, bodyH, c.tr(line.Label), "L", false)
			c.textColor(s.Colors.Text)
			c.cell(x+labelW, cy, valueW, bodyH, c.tr(line.Value), "R", false)
			cy += bodyH
		}
	}}
}

func (c *canvas) footerUnits(f *layout.FooterBlock, gap float64) []unit {
	if f == nil || (f.Heading == "" && len(f.Lines) == 0) {
		return []unit{{gap: gap}}
	}
	s := c.style
	bodyH := c.lineHeight(s.BodySize)
	headingH := c.lineHeight(s.HeadingSize)

	c.setFont(false, "", s.BodySize)
	var lines []string
	for _, paragraph := range f.Lines {
		lines = append(lines, c.wrap(paragraph, c.width-2*s.CellPadding, 0)...)
	}

	lineUnit := func(text string) unit {
		return unit{height: bodyH, draw: func(y float64) {
			c.setFont(false, "", s.BodySize)
			c.textColor(s.Colors.Text)
			c.cell(c.left, y, c.width, bodyH, text, "L", false)
		}}
	}

	var units []unit
	for _, line := range lines {
		units = append(units, lineUnit(line))
	}
	if f.Heading == "" {
		units[0].gap = gap
		return units
	}

	heading := c.tr(f.Heading)
	headUnit := unit{height: headingH, gap: gap, draw: func(y float64) {
		c.setFont(true, "B", s.HeadingSize)
		c.textColor(s.Colors.Accent)
		c.cell(c.left, y, c.width, headingH, heading, "L", false)
	}}
	if len(units) == 0 {
		return []unit{headUnit}
	}
	// Keep the heading with the first line.
	firstLine := units[0]
	units[0] = unit{height: headingH + firstLine.height, gap: gap, draw: func(y float64) {
		headUnit.draw(y)
		firstLine.draw(y + headingH)
	}}
	return units
}

func (c *canvas) drawPageFooter() {
	s := c.style
	smallH := c.lineHeight(s.SmallSize)
	c.setFont(false, "", s.SmallSize)
	c.textColor(s.Colors.Muted)
	text := fmt.Sprintf("Page %d of {nb}", c.pdf.PageNo())
	c.cell(c.left, c.paper.Height-c.top-smallH, c.width, smallH, text, "R", false)
}
