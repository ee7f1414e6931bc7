package report

import (
	"bytes"
	"context"
	"fmt"

	"github.com/jung-kurt/gofpdf"

	"github.com/powerquip/erp-backend/internal/domain/entity"
	"github.com/powerquip/erp-backend/pkg/utils"
)

// PreviewDesigns renders a five-page demo PDF, one page per decoration
// design. An optional color overrides the preview color for all pages.
func (r *DocumentRenderer) PreviewDesigns(ctx context.Context, color string) ([]byte, error) {
	settings, err := r.templates.Get(ctx)
	if err != nil {
		return nil, err
	}
	if color == "" {
		color = settings.Branding.PrimaryColor
	}
	if err := utils.ValidateHexColor(color); err != nil {
		return nil, entity.Invalid("preview color: %v", err)
	}

	pdf := gofpdf.New("P", "pt", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, bottomMargin)
	pdf.SetCreationDate(r.clock.Now())

	for id := 1; id <= 5; id++ {
		preview := settings
		preview.ReportDesigns = map[string]entity.ReportDesign{
			entity.ReportAMC: {DesignID: id, DesignColor: color},
		}
		style := ResolveStyle(preview, entity.ReportAMC)
		deco := newPageDecorator(pdf, style, "Design Preview", "", "", nil, "")
		deco.setClass(classCover)

		pdf.AddPage()
		deco.paintPattern()

		pageW, _ := pdf.GetPageSize()
		pdf.SetFont(style.FontFamily, "B", 24)
		pdf.SetTextColor(style.Text.R, style.Text.G, style.Text.B)
		pdf.SetXY(pageMargin, 360)
		pdf.CellFormat(pageW-2*pageMargin, 30, fmt.Sprintf("Design %d", id), "", 1, "C", false, 0, "")
		pdf.SetFont(style.FontFamily, "", 11)
		pdf.SetTextColor(style.Muted.R, style.Muted.G, style.Muted.B)
		pdf.SetX(pageMargin)
		pdf.CellFormat(pageW-2*pageMargin, 16, color, "", 1, "C", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, &entity.RenderError{Err: err}
	}
	return buf.Bytes(), nil
}

// PreviewPage renders a single page of the given class (cover, content or
// back) for a report type, using the current template settings and a
// built-in sample record.
func (r *DocumentRenderer) PreviewPage(ctx context.Context, class, reportType string) ([]byte, error) {
	if !entity.IsReportType(reportType) {
		return nil, entity.Invalid("unknown report type %q", reportType)
	}
	pc := pageClass(class)
	if pc != classCover && pc != classContent && pc != classBack {
		return nil, entity.Invalid("unknown page class %q", class)
	}

	settings, err := r.templates.Get(ctx)
	if err != nil {
		return nil, err
	}
	style := ResolveStyle(settings, reportType)
	record := SampleRecord(reportType)
	logo, logoType := r.loadLogo(ctx, style.Company.LogoURL)

	pdf := gofpdf.New("P", "pt", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	// A preview is exactly one page: no automatic breaks, overflow clips.
	pdf.SetAutoPageBreak(false, bottomMargin)
	pdf.SetCreationDate(r.clock.Now())

	deco := newPageDecorator(pdf, style, record.Title, record.ReportNo, record.ReportDate, logo, logoType)
	deco.totalPages = 1
	pdf.SetHeaderFunc(deco.header)
	pdf.SetFooterFunc(deco.footer)
	deco.setClass(pc)
	pdf.AddPage()

	switch pc {
	case classCover:
		deco.drawCover(record.CustomerName)
	case classBack:
		deco.drawBack()
	default:
		cv := newCanvas(ctx, pdf, style, r.fetcher)
		cv.singlePage = true
		for _, flow := range BuildFlowables(record) {
			for _, f := range flow.Flowables {
				if err := f.draw(cv); err != nil {
					return nil, &entity.RenderError{Section: flow.Name, Err: err}
				}
			}
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, &entity.RenderError{Err: err}
	}
	return buf.Bytes(), nil
}

// SampleRecord builds a representative record for previews, exercising
// every entry kind the engine renders.
func SampleRecord(reportType string) *entity.ReportRecord {
	return &entity.ReportRecord{
		ReportType:   reportType,
		ReportNo:     "RPT/2026/0042",
		ReportDate:   "2026-03-15",
		Title:        "Annual Maintenance Report",
		CustomerName: "Acme Industries Pvt Ltd",
		Sections: []entity.Section{
			{
				Header: "Customer Details",
				Entries: []entity.Entry{
					entity.LabeledGrid{Pairs: []entity.LabelValue{
						{Label: "Customer", Value: "Acme Industries Pvt Ltd"},
						{Label: "Location", Value: "Plot 14, Industrial Estate"},
						{Label: "Contact", Value: "Operations Manager"},
						{Label: "Phone", Value: "+91 98400 00000"},
					}},
				},
			},
			{
				Header: "Equipment Summary",
				Entries: []entity.Entry{
					entity.KeyValueRow{Label: "Panel Rating", Value: "415V, 2500A"},
					entity.Table{
						Columns: []entity.TableColumn{
							{Title: "S.No", Width: 0.5, Kind: entity.ColumnInteger},
							{Title: "Equipment", Width: 2},
							{Title: "Rating", Width: 1.2},
							{Title: "Amount", Width: 1, Kind: entity.ColumnNumber},
						},
						Rows: [][]string{
							{"1", "Air Circuit Breaker", "2500A", "12500"},
							{"2", "Vacuum Contactor", "400A", "8750.5"},
							{"3", "Protection Relay", "-", "4300"},
						},
						Totals: []string{"", "Total", "", "25550.5"},
					},
				},
			},
			{
				Header: "Observations",
				Entries: []entity.Entry{
					entity.FreeText{Text: "All breakers operated within rated trip times. " +
						"Insulation resistance readings were above the minimum threshold. " +
						"Panel earthing verified at both ends."},
					entity.Checklist{Items: []entity.ChecklistItem{
						{Description: "Visual inspection of busbar joints", Status: "OK"},
						{Description: "Thermal scan of outgoing feeders", Status: "OK"},
						{Description: "Relay secondary injection test", Status: "Done"},
					}},
				},
			},
			{
				Header: "Sign Off",
				Entries: []entity.Entry{
					entity.SignatureBlock{},
				},
			},
		},
	}
}
