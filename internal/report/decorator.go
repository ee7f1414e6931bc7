package report

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// pageClass tells the decorator which chrome a page gets.
type pageClass string

const (
	classCover   pageClass = "cover"
	classContent pageClass = "content"
	classBack    pageClass = "back"
)

// contentTopY is where body content starts below the header band.
const contentTopY = 70.0

// pageDecorator paints the per-page chrome: the decoration pattern, the
// running header and footer on content pages, and the cover and back
// page bodies. One decorator serves one render pass.
type pageDecorator struct {
	pdf   *gofpdf.Fpdf
	style *StyleSheet

	title      string
	reportNo   string
	reportDate string

	logo     []byte
	logoType string
	logoName string

	// totalPages is zero during the measuring pass; footers then omit
	// the page count.
	totalPages int
	class      pageClass

	// classByPage records the class each page was opened with. The footer
	// callback fires while the NEXT page's class is already set (gofpdf
	// closes the previous page inside AddPage), so it must not read the
	// mutable class field.
	classByPage map[int]pageClass
}

func newPageDecorator(pdf *gofpdf.Fpdf, style *StyleSheet, title, reportNo, reportDate string, logo []byte, logoType string) *pageDecorator {
	return &pageDecorator{
		pdf:         pdf,
		style:       style,
		title:       title,
		reportNo:    reportNo,
		reportDate:  reportDate,
		logo:        logo,
		logoType:    logoType,
		class:       classContent,
		classByPage: make(map[int]pageClass),
	}
}

// setClass marks the class of pages added next. Pages created by automatic
// breaks inherit the last class set.
func (d *pageDecorator) setClass(c pageClass) { d.class = c }

// header runs on every AddPage, including automatic breaks. It fires
// right after the page opens, so the class field is current here; the
// recorded value is what the footer trusts later.
func (d *pageDecorator) header() {
	d.classByPage[d.pdf.PageNo()] = d.class
	d.paintPattern()
	if d.class != classContent {
		return
	}
	hf := d.style.Decoration.HeaderFooter
	if !hf.ShowHeader {
		d.pdf.SetY(38)
		return
	}

	left, _, right, _ := d.pdf.GetMargins()
	pageW, _ := d.pdf.GetPageSize()

	d.pdf.SetTextColor(d.style.Text.R, d.style.Text.G, d.style.Text.B)
	d.pdf.SetFont(d.style.FontFamily, "B", 11)
	d.pdf.SetXY(left, 16)
	d.pdf.CellFormat(0, 14, strings.ToUpper(d.title), "", 1, "L", false, 0, "")

	d.pdf.SetFont(d.style.FontFamily, "", d.style.SmallSize)
	d.pdf.SetTextColor(d.style.Muted.R, d.style.Muted.G, d.style.Muted.B)
	d.pdf.SetX(left)
	meta := fmt.Sprintf("%s  |  %s", OrDash(d.reportNo), FormatDate(d.reportDate))
	d.pdf.CellFormat(0, 10, meta, "", 1, "L", false, 0, "")

	if hf.ShowHeaderLogo && d.ensureLogo() {
		d.drawLogo(pageW-right-70, 14, 70, 28)
	}

	if hf.ShowHeaderLine {
		d.rule(left, pageW-right, 48)
	}
	d.pdf.SetY(contentTopY)
}

// footer runs before every page close. By then setClass may already have
// moved on to the next page, so the page's own recorded class decides.
func (d *pageDecorator) footer() {
	if d.classByPage[d.pdf.PageNo()] != classContent {
		return
	}
	hf := d.style.Decoration.HeaderFooter
	if !hf.ShowFooter {
		return
	}

	left, _, right, _ := d.pdf.GetMargins()
	pageW, pageH := d.pdf.GetPageSize()
	y := pageH - 40

	if hf.ShowFooterLine {
		d.rule(left, pageW-right, y-4)
	}

	d.pdf.SetFont(d.style.FontFamily, "", d.style.SmallSize)
	d.pdf.SetTextColor(d.style.Muted.R, d.style.Muted.G, d.style.Muted.B)

	if hf.FooterCompanyName {
		d.pdf.SetXY(left, y)
		d.pdf.CellFormat(0, 10, d.style.Company.CompanyName, "", 0, "L", false, 0, "")
	}
	if hf.ShowPageNumbers && d.totalPages > 0 {
		d.pdf.SetXY(left, y)
		label := fmt.Sprintf("Page %d of %d", d.pdf.PageNo(), d.totalPages)
		d.pdf.CellFormat(pageW-left-right, 10, label, "", 0, "C", false, 0, "")
	}
	if hf.FooterWebsite {
		d.pdf.SetXY(left, y)
		d.pdf.CellFormat(pageW-left-right, 10, d.style.Company.Website, "", 0, "R", false, 0, "")
	}
}

func (d *pageDecorator) rule(x1, x2, y float64) {
	d.pdf.SetDrawColor(d.style.Border.R, d.style.Border.G, d.style.Border.B)
	d.pdf.SetLineWidth(0.7)
	d.pdf.Line(x1, y, x2, y)
}

func (d *pageDecorator) ensureLogo() bool {
	if len(d.logo) == 0 || d.logoType == "" {
		return false
	}
	if d.logoName == "" {
		d.logoName = "company-logo"
		d.pdf.RegisterImageOptionsReader(d.logoName,
			gofpdf.ImageOptions{ImageType: d.logoType}, bytes.NewReader(d.logo))
	}
	return true
}

// drawLogo fits the registered logo inside the given box, preserving aspect.
func (d *pageDecorator) drawLogo(x, y, maxW, maxH float64) {
	opts := gofpdf.ImageOptions{ImageType: d.logoType}
	info := d.pdf.GetImageInfo(d.logoName)
	if info == nil || info.Width() <= 0 || info.Height() <= 0 {
		return
	}
	scale := maxW / info.Width()
	if info.Height()*scale > maxH {
		scale = maxH / info.Height()
	}
	w, h := info.Width()*scale, info.Height()*scale
	d.pdf.ImageOptions(d.logoName, x+(maxW-w)/2, y+(maxH-h)/2, w, h, false, opts, 0, "")
}

// paintPattern draws the decoration for the resolved design on the current
// page. Covers honor the decorative-curves toggle; content and back pages
// always carry the pattern.
func (d *pageDecorator) paintPattern() {
	if d.class == classCover && !d.style.Decoration.Cover.ShowDecorativeCurves {
		return
	}
	c := d.style.Decoration.Color
	d.pdf.SetDrawColor(c.R, c.G, c.B)
	d.pdf.SetFillColor(c.R, c.G, c.B)

	switch d.style.Decoration.DesignID {
	case 2:
		d.paintArcs()
	case 3:
		d.paintStripes()
	case 4:
		d.paintBrackets()
	case 5:
		d.paintCircles()
	default:
		d.paintWaves()
	}
	d.pdf.SetAlpha(1, "Normal")
}

// Design 1: flowing wave bands across the page bottom plus top corners.
func (d *pageDecorator) paintWaves() {
	pageW, pageH := d.pdf.GetPageSize()
	alphas := []float64{0.35, 0.22, 0.12}
	for i, a := range alphas {
		d.pdf.SetAlpha(a, "Normal")
		lift := float64(i) * 14
		d.pdf.Curve(0, pageH-6-lift, pageW/2, pageH-60-lift, pageW, pageH-6-lift, "F")
	}
	d.pdf.SetAlpha(0.25, "Normal")
	d.pdf.Circle(0, 0, 54, "F")
	d.pdf.SetAlpha(0.15, "Normal")
	d.pdf.Circle(pageW, 0, 76, "F")
}

// Design 2: nested arcs radiating from the top-right corner.
func (d *pageDecorator) paintArcs() {
	pageW, _ := d.pdf.GetPageSize()
	for i, r := range []float64{50, 90, 130, 170} {
		d.pdf.SetAlpha(0.45-float64(i)*0.08, "Normal")
		d.pdf.SetLineWidth(5 - float64(i))
		d.pdf.Arc(pageW, 0, r, r, 0, 90, 180, "D")
	}
}

// Design 3: parallel diagonal stripes across the header band.
func (d *pageDecorator) paintStripes() {
	pageW, _ := d.pdf.GetPageSize()
	d.pdf.SetAlpha(0.3, "Normal")
	d.pdf.SetLineWidth(7)
	for i := 0; i < 6; i++ {
		x := pageW - 40 - float64(i)*22
		d.pdf.Line(x, -8, x-44, 52)
	}
}

// Design 4: square corner brackets at each page corner.
func (d *pageDecorator) paintBrackets() {
	pageW, pageH := d.pdf.GetPageSize()
	const inset, arm = 14.0, 38.0
	d.pdf.SetAlpha(0.8, "Normal")
	d.pdf.SetLineWidth(2.4)

	// top-left, top-right, bottom-left, bottom-right
	d.pdf.Line(inset, inset, inset+arm, inset)
	d.pdf.Line(inset, inset, inset, inset+arm)
	d.pdf.Line(pageW-inset-arm, inset, pageW-inset, inset)
	d.pdf.Line(pageW-inset, inset, pageW-inset, inset+arm)
	d.pdf.Line(inset, pageH-inset, inset+arm, pageH-inset)
	d.pdf.Line(inset, pageH-inset-arm, inset, pageH-inset)
	d.pdf.Line(pageW-inset-arm, pageH-inset, pageW-inset, pageH-inset)
	d.pdf.Line(pageW-inset, pageH-inset-arm, pageW-inset, pageH-inset)
}

// Design 5: scattered filled circles of varying radius along two edges.
func (d *pageDecorator) paintCircles() {
	pageW, pageH := d.pdf.GetPageSize()
	spots := []struct {
		xf, yf, r, alpha float64
	}{
		{0.02, 0.18, 16, 0.30},
		{0.05, 0.34, 9, 0.22},
		{0.015, 0.52, 22, 0.16},
		{0.06, 0.70, 12, 0.26},
		{0.03, 0.86, 17, 0.20},
		{0.18, 0.975, 10, 0.26},
		{0.38, 0.985, 18, 0.18},
		{0.58, 0.97, 8, 0.30},
		{0.78, 0.985, 14, 0.22},
		{0.94, 0.965, 20, 0.16},
	}
	for _, s := range spots {
		d.pdf.SetAlpha(s.alpha, "Normal")
		d.pdf.Circle(pageW*s.xf, pageH*s.yf, s.r, "F")
	}
}

// drawCover paints the cover page body. The page itself was added by the
// renderer with the cover class, so the pattern is already down.
func (d *pageDecorator) drawCover(customerName string) {
	cover := d.style.Decoration.Cover
	pageW, _ := d.pdf.GetPageSize()
	left, _, right, _ := d.pdf.GetMargins()
	band := pageW - left - right

	y := 150.0
	if cover.ShowLogo && d.ensureLogo() {
		d.drawLogo(left+(band-140)/2, y, 140, 70)
		y += 96
	}

	d.pdf.SetFont(d.style.FontFamily, "B", cover.TitleFontSize)
	d.pdf.SetTextColor(d.style.Text.R, d.style.Text.G, d.style.Text.B)
	d.pdf.SetXY(left, y)
	d.pdf.MultiCell(band, cover.TitleFontSize+6, strings.ToUpper(d.title), "", "C", false)
	y = d.pdf.GetY() + 18

	d.pdf.SetFont(d.style.FontFamily, "", 11)
	d.pdf.SetTextColor(d.style.Muted.R, d.style.Muted.G, d.style.Muted.B)
	d.pdf.SetXY(left, y)
	d.pdf.CellFormat(band, 15, OrDash(d.reportNo), "", 1, "C", false, 0, "")
	d.pdf.SetX(left)
	d.pdf.CellFormat(band, 15, FormatDate(d.reportDate), "", 1, "C", false, 0, "")

	if cover.ShowSubmittedBy {
		name := customerName
		if name == "" {
			name = d.style.Company.CompanyName
		}
		d.pdf.SetY(660)
		d.pdf.SetFont(d.style.FontFamily, "B", 10)
		d.pdf.SetTextColor(d.style.Accent.R, d.style.Accent.G, d.style.Accent.B)
		d.pdf.SetX(left)
		d.pdf.CellFormat(band, 13, cover.SubmittedByTitle, "", 1, "C", false, 0, "")
		d.pdf.SetFont(d.style.FontFamily, "", 11)
		d.pdf.SetTextColor(d.style.Text.R, d.style.Text.G, d.style.Text.B)
		d.pdf.SetX(left)
		d.pdf.CellFormat(band, 14, name, "", 1, "C", false, 0, "")
	}
}

// drawBack paints the back cover body: title, logo, gated contact lines
// and the free-form closing text.
func (d *pageDecorator) drawBack() {
	back := d.style.Decoration.Back
	company := d.style.Company
	pageW, pageH := d.pdf.GetPageSize()
	left, _, right, _ := d.pdf.GetMargins()
	band := pageW - left - right

	y := 180.0
	if back.ShowLogo && d.ensureLogo() {
		d.drawLogo(left+(band-120)/2, y, 120, 60)
		y += 84
	}

	d.pdf.SetFont(d.style.FontFamily, "B", 22)
	d.pdf.SetTextColor(d.style.Accent.R, d.style.Accent.G, d.style.Accent.B)
	d.pdf.SetXY(left, y)
	d.pdf.CellFormat(band, 26, back.Title, "", 1, "C", false, 0, "")
	y = d.pdf.GetY() + 24

	var lines []string
	if back.ShowAddress {
		address := strings.TrimSpace(strings.Join(nonEmpty(
			company.AddressLine1, company.AddressLine2,
			strings.TrimSpace(company.City+" "+company.State+" "+company.PostalCode),
			company.Country), ", "))
		if address != "" {
			lines = append(lines, address)
		}
	}
	if back.ShowPhone && company.Phone != "" {
		lines = append(lines, company.Phone)
	}
	if back.ShowEmail && company.Email != "" {
		lines = append(lines, company.Email)
	}
	if back.ShowWebsite && company.Website != "" {
		lines = append(lines, company.Website)
	}

	d.pdf.SetFont(d.style.FontFamily, "", 10)
	d.pdf.SetTextColor(d.style.Text.R, d.style.Text.G, d.style.Text.B)
	for _, line := range lines {
		d.pdf.SetXY(left, y)
		d.pdf.CellFormat(band, 15, line, "", 1, "C", false, 0, "")
		y += 15
	}

	if back.AdditionalText != "" {
		d.pdf.SetFont(d.style.FontFamily, "", d.style.SmallSize)
		d.pdf.SetTextColor(d.style.Muted.R, d.style.Muted.G, d.style.Muted.B)
		d.pdf.SetXY(left, pageH-110)
		d.pdf.MultiCell(band, 11, back.AdditionalText, "", "C", false)
	}
}

func nonEmpty(parts ...string) []string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}
