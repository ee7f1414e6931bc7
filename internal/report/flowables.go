package report

import (
	"bytes"
	"context"
	"fmt"

	"github.com/jung-kurt/gofpdf"

	"github.com/powerquip/erp-backend/internal/domain/entity"
)

// canvas bundles the drawing state one render pass works with.
type canvas struct {
	ctx     context.Context
	pdf     *gofpdf.Fpdf
	style   *StyleSheet
	fetcher ImageFetcher

	band     float64 // usable width between margins
	imageSeq int

	// singlePage suppresses page breaks; overflow past the bottom margin
	// is clipped. Previews set this to honor their one-page contract.
	singlePage bool
}

func newCanvas(ctx context.Context, pdf *gofpdf.Fpdf, style *StyleSheet, fetcher ImageFetcher) *canvas {
	pageW, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	return &canvas{
		ctx:     ctx,
		pdf:     pdf,
		style:   style,
		fetcher: fetcher,
		band:    pageW - left - right,
	}
}

func (c *canvas) font(size float64, bold bool) {
	styleStr := ""
	if bold {
		styleStr = "B"
	}
	c.pdf.SetFont(c.style.FontFamily, styleStr, size)
}

// ensureRoom breaks the page early when fewer than h points remain, so a
// row is never split across pages.
func (c *canvas) ensureRoom(h float64) {
	if c.singlePage {
		return
	}
	_, pageH := c.pdf.GetPageSize()
	_, _, _, bottom := c.pdf.GetMargins()
	if c.pdf.GetY()+h > pageH-bottom {
		c.pdf.AddPage()
	}
}

// cell is one cell of a manually drawn row.
type cell struct {
	text  string
	width float64
	align string
	bold  bool
	fill  bool
}

// rowHeight measures the tallest cell of a row including padding.
func (c *canvas) rowHeight(cells []cell) float64 {
	pad := c.style.CellPadding
	lines := 1
	for _, cl := range cells {
		c.font(c.style.BodySize, cl.bold)
		n := len(c.pdf.SplitText(cl.text, cl.width-2*pad))
		if n > lines {
			lines = n
		}
	}
	return float64(lines)*c.style.LineHeight + 2*pad
}

// drawRow paints a bordered row of cells at the current Y, wrapping text
// inside each cell. borders selects which cell edges to stroke ("" = all).
func (c *canvas) drawRow(cells []cell, borders string) {
	pad := c.style.CellPadding
	h := c.rowHeight(cells)
	c.ensureRoom(h)

	left, _, _, _ := c.pdf.GetMargins()
	y := c.pdf.GetY()
	x := left
	for _, cl := range cells {
		if cl.fill {
			c.pdf.SetFillColor(c.style.TableTint.R, c.style.TableTint.G, c.style.TableTint.B)
			c.pdf.Rect(x, y, cl.width, h, "F")
		}
		c.pdf.SetDrawColor(c.style.Border.R, c.style.Border.G, c.style.Border.B)
		c.pdf.SetLineWidth(0.6)
		switch borders {
		case "outer":
			// the caller strokes the outline once per row
		default:
			c.pdf.Rect(x, y, cl.width, h, "D")
		}
		c.font(c.style.BodySize, cl.bold)
		c.pdf.SetTextColor(c.style.Text.R, c.style.Text.G, c.style.Text.B)
		c.pdf.SetXY(x+pad, y+pad)
		c.pdf.MultiCell(cl.width-2*pad, c.style.LineHeight, cl.text, "", cl.align, false)
		x += cl.width
	}
	if borders == "outer" {
		c.pdf.SetDrawColor(c.style.Border.R, c.style.Border.G, c.style.Border.B)
		c.pdf.Rect(left, y, x-left, h, "D")
	}
	c.pdf.SetXY(left, y+h)
}

// flowable is one layout primitive in the flat render stream.
type flowable interface {
	draw(c *canvas) error
}

// SectionFlow groups the flowables built from one report section, keeping
// the section name for failure reporting.
type SectionFlow struct {
	Name      string
	Flowables []flowable
}

// BuildFlowables flattens a report record into ordered layout primitives.
// Disabled sections and sections without entries are dropped entirely.
func BuildFlowables(record *entity.ReportRecord) []SectionFlow {
	flows := make([]SectionFlow, 0, len(record.Sections))
	for _, section := range record.Sections {
		if !record.SectionEnabled(section.Header) || len(section.Entries) == 0 {
			continue
		}
		items := []flowable{sectionHeader{title: section.Header}}
		for _, entry := range section.Entries {
			items = append(items, entryFlowable(entry))
		}
		items = append(items, spacer{h: 12})
		flows = append(flows, SectionFlow{Name: section.Header, Flowables: items})
	}
	return flows
}

func entryFlowable(entry entity.Entry) flowable {
	switch e := entry.(type) {
	case entity.KeyValueRow:
		return keyValueRow{label: e.Label, value: e.Value}
	case entity.LabeledGrid:
		return labeledGrid{pairs: e.Pairs}
	case entity.Table:
		return tableFlow{columns: e.Columns, rows: e.Rows, totals: e.Totals}
	case entity.FreeText:
		return freeText{text: e.Text}
	case entity.ImageStrip:
		return imageStrip{sources: e.Sources}
	case entity.SignatureBlock:
		return signatureBlock{prepared: e.PreparedTitle, approved: e.ApprovedTitle}
	case entity.Checklist:
		return checklist{items: e.Items}
	default:
		return spacer{h: 0}
	}
}

type spacer struct{ h float64 }

func (s spacer) draw(c *canvas) error {
	if s.h > 0 {
		c.pdf.Ln(s.h)
	}
	return nil
}

// sectionHeader is a single tinted, bordered cell carrying the section title.
type sectionHeader struct{ title string }

func (s sectionHeader) draw(c *canvas) error {
	pad := c.style.CellPadding
	h := c.style.LineHeight + 2*pad
	c.ensureRoom(h + 2*c.style.LineHeight)

	left, _, _, _ := c.pdf.GetMargins()
	y := c.pdf.GetY()
	c.pdf.SetFillColor(c.style.TableTint.R, c.style.TableTint.G, c.style.TableTint.B)
	c.pdf.SetDrawColor(c.style.Accent.R, c.style.Accent.G, c.style.Accent.B)
	c.pdf.SetLineWidth(0.8)
	c.pdf.Rect(left, y, c.band, h, "FD")

	c.font(c.style.HeadingSize, true)
	c.pdf.SetTextColor(c.style.Text.R, c.style.Text.G, c.style.Text.B)
	c.pdf.SetXY(left+pad, y+pad)
	c.pdf.CellFormat(c.band-2*pad, c.style.LineHeight, s.title, "", 0, "L", false, 0, "")
	c.pdf.SetXY(left, y+h+4)
	return nil
}

type keyValueRow struct{ label, value string }

func (k keyValueRow) draw(c *canvas) error {
	labelW := c.band * 0.65 / 2
	c.drawRow([]cell{
		{text: k.label, width: labelW, align: "L", bold: true, fill: true},
		{text: OrDash(k.value), width: c.band - labelW, align: "L"},
	}, "")
	return nil
}

// labeledGrid lays pairs out two per row as label|value|label|value with a
// 0.65/1.35 width split per half.
type labeledGrid struct{ pairs []entity.LabelValue }

func (g labeledGrid) draw(c *canvas) error {
	labelW := c.band * 0.65 / 4
	valueW := c.band * 1.35 / 4
	for i := 0; i < len(g.pairs); i += 2 {
		row := []cell{
			{text: g.pairs[i].Label, width: labelW, align: "L", bold: true, fill: true},
			{text: OrDash(g.pairs[i].Value), width: valueW, align: "L"},
		}
		if i+1 < len(g.pairs) {
			row = append(row,
				cell{text: g.pairs[i+1].Label, width: labelW, align: "L", bold: true, fill: true},
				cell{text: OrDash(g.pairs[i+1].Value), width: valueW, align: "L"},
			)
		} else {
			row = append(row,
				cell{text: "", width: labelW, align: "L", fill: true},
				cell{text: "", width: valueW, align: "L"},
			)
		}
		c.drawRow(row, "")
	}
	return nil
}

type tableFlow struct {
	columns []entity.TableColumn
	rows    [][]string
	totals  []string
}

func (t tableFlow) widths(band float64) []float64 {
	total := 0.0
	weights := make([]float64, len(t.columns))
	for i, col := range t.columns {
		w := col.Width
		if w <= 0 {
			w = 1
		}
		weights[i] = w
		total += w
	}
	out := make([]float64, len(weights))
	for i, w := range weights {
		out[i] = band * w / total
	}
	return out
}

func (t tableFlow) cellFor(col entity.TableColumn, width float64, value string) cell {
	switch col.Kind {
	case entity.ColumnNumber:
		return cell{text: FormatAmount(value), width: width, align: "R"}
	case entity.ColumnInteger:
		return cell{text: FormatQuantity(value), width: width, align: "C"}
	default:
		return cell{text: OrDash(value), width: width, align: "L"}
	}
}

func (t tableFlow) draw(c *canvas) error {
	if len(t.columns) == 0 {
		return fmt.Errorf("table has no columns")
	}
	widths := t.widths(c.band)

	header := make([]cell, len(t.columns))
	for i, col := range t.columns {
		header[i] = cell{text: col.Title, width: widths[i], align: "C", bold: true, fill: true}
	}
	c.drawRow(header, "")

	for _, row := range t.rows {
		cells := make([]cell, len(t.columns))
		for i, col := range t.columns {
			value := ""
			if i < len(row) {
				value = row[i]
			}
			cells[i] = t.cellFor(col, widths[i], value)
		}
		c.drawRow(cells, "")
	}

	// Totals sit detached from the grid: one outline, no inner borders.
	if len(t.totals) > 0 {
		cells := make([]cell, len(t.columns))
		for i, col := range t.columns {
			value := ""
			if i < len(t.totals) {
				value = t.totals[i]
			}
			cells[i] = t.cellFor(col, widths[i], value)
			cells[i].bold = true
			if cells[i].text == "-" {
				cells[i].text = ""
			}
		}
		c.drawRow(cells, "outer")
	}
	return nil
}

type freeText struct{ text string }

func (f freeText) draw(c *canvas) error {
	c.font(c.style.BodySize, false)
	c.pdf.SetTextColor(c.style.Text.R, c.style.Text.G, c.style.Text.B)
	c.pdf.MultiCell(c.band, c.style.LineHeight, OrDash(f.text), "", "L", false)
	c.pdf.Ln(4)
	return nil
}

// imageStrip draws up to three images per row, each fetched with a bounded
// timeout. A failed fetch degrades to a placeholder cell.
type imageStrip struct{ sources []string }

const imageCellHeight = 120.0

func (s imageStrip) draw(c *canvas) error {
	if len(s.sources) == 0 {
		return nil
	}
	perRow := len(s.sources)
	if perRow > 3 {
		perRow = 3
	}
	cellW := c.band / float64(perRow)

	for start := 0; start < len(s.sources); start += perRow {
		end := start + perRow
		if end > len(s.sources) {
			end = len(s.sources)
		}
		c.ensureRoom(imageCellHeight)

		left, _, _, _ := c.pdf.GetMargins()
		y := c.pdf.GetY()
		x := left
		for _, src := range s.sources[start:end] {
			c.pdf.SetDrawColor(c.style.Border.R, c.style.Border.G, c.style.Border.B)
			c.pdf.SetLineWidth(0.6)
			c.pdf.Rect(x, y, cellW, imageCellHeight, "D")
			c.drawImageCell(src, x, y, cellW, imageCellHeight)
			x += cellW
		}
		c.pdf.SetXY(left, y+imageCellHeight+4)
	}
	return nil
}

func (c *canvas) drawImageCell(src string, x, y, w, h float64) {
	pad := c.style.CellPadding
	data, err := c.fetcher.Fetch(c.ctx, src)
	if err == nil {
		var imgType string
		imgType, err = sniffImageType(data)
		if err == nil {
			c.imageSeq++
			name := fmt.Sprintf("strip-%d", c.imageSeq)
			opts := gofpdf.ImageOptions{ImageType: imgType}
			info := c.pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(data))
			if info != nil && info.Width() > 0 && info.Height() > 0 {
				maxW, maxH := w-2*pad, h-2*pad
				scale := maxW / info.Width()
				if info.Height()*scale > maxH {
					scale = maxH / info.Height()
				}
				iw, ih := info.Width()*scale, info.Height()*scale
				c.pdf.ImageOptions(name, x+(w-iw)/2, y+(h-ih)/2, iw, ih, false, opts, 0, "")
				return
			}
			err = fmt.Errorf("unreadable image")
		}
	}
	// Placeholder instead of aborting the render.
	c.font(c.style.SmallSize, false)
	c.pdf.SetTextColor(c.style.Muted.R, c.style.Muted.G, c.style.Muted.B)
	c.pdf.SetXY(x, y+h/2-c.style.LineHeight/2)
	c.pdf.CellFormat(w, c.style.LineHeight, "Image unavailable", "", 0, "C", false, 0, "")
}

// signatureBlock draws two fixed-height signatory boxes side by side.
type signatureBlock struct{ prepared, approved string }

const signatureHeight = 72.0

func (s signatureBlock) draw(c *canvas) error {
	prepared := s.prepared
	if prepared == "" {
		prepared = "Prepared By"
	}
	approved := s.approved
	if approved == "" {
		approved = "Approved By"
	}

	c.ensureRoom(signatureHeight)
	pad := c.style.CellPadding
	left, _, _, _ := c.pdf.GetMargins()
	y := c.pdf.GetY()
	colW := c.band / 2

	for i, title := range []string{prepared, approved} {
		x := left + float64(i)*colW
		c.pdf.SetDrawColor(c.style.Border.R, c.style.Border.G, c.style.Border.B)
		c.pdf.SetLineWidth(0.6)
		c.pdf.Rect(x, y, colW, signatureHeight, "D")

		c.font(c.style.LabelSize, true)
		c.pdf.SetTextColor(c.style.Text.R, c.style.Text.G, c.style.Text.B)
		c.pdf.SetXY(x+pad, y+pad)
		c.pdf.CellFormat(colW-2*pad, c.style.LineHeight, title, "", 0, "L", false, 0, "")

		c.font(c.style.BodySize, false)
		c.pdf.SetXY(x+pad, y+signatureHeight-2*c.style.LineHeight-pad)
		c.pdf.CellFormat(colW-2*pad, c.style.LineHeight, "Name:", "", 0, "L", false, 0, "")
		c.pdf.SetXY(x+pad, y+signatureHeight-c.style.LineHeight-pad)
		c.pdf.CellFormat(colW-2*pad, c.style.LineHeight, "Date:", "", 0, "L", false, 0, "")
	}
	c.pdf.SetXY(left, y+signatureHeight+4)
	return nil
}

// checklist draws a numbered S.No | description | status table.
type checklist struct{ items []entity.ChecklistItem }

func (l checklist) draw(c *canvas) error {
	snoW, statusW := 44.0, 88.0
	descW := c.band - snoW - statusW

	c.drawRow([]cell{
		{text: "S.No", width: snoW, align: "C", bold: true, fill: true},
		{text: "Description", width: descW, align: "L", bold: true, fill: true},
		{text: "Status", width: statusW, align: "C", bold: true, fill: true},
	}, "")
	for i, item := range l.items {
		c.drawRow([]cell{
			{text: fmt.Sprintf("%d", i+1), width: snoW, align: "C"},
			{text: OrDash(item.Description), width: descW, align: "L"},
			{text: OrDash(item.Status), width: statusW, align: "C"},
		}, "")
	}
	return nil
}
