package report

import (
	"bytes"
	"context"
	"fmt"

	"github.com/jung-kurt/gofpdf"
	"go.uber.org/zap"

	"github.com/powerquip/erp-backend/internal/domain/entity"
	"github.com/powerquip/erp-backend/pkg/utils"
)

// Page frame: A4 portrait in points, 30pt margins with extra bottom space
// reserved for the footer band.
const (
	pageMargin   = 30.0
	bottomMargin = 55.0
)

// DocumentRenderer orchestrates a complete render: style resolution,
// flowable building and a two-pass layout so every footer can carry the
// final page count. Partial PDFs are never returned.
type DocumentRenderer struct {
	templates *TemplateStore
	fetcher   ImageFetcher
	clock     utils.Clock
	logger    *zap.Logger
}

// NewDocumentRenderer creates a renderer over the template store.
func NewDocumentRenderer(templates *TemplateStore, fetcher ImageFetcher, clock utils.Clock, logger *zap.Logger) *DocumentRenderer {
	return &DocumentRenderer{templates: templates, fetcher: fetcher, clock: clock, logger: logger}
}

// Render composes the record into a finished PDF.
func (r *DocumentRenderer) Render(ctx context.Context, record *entity.ReportRecord) ([]byte, error) {
	if record == nil {
		return nil, entity.Invalid("missing report record")
	}
	if !entity.IsReportType(record.ReportType) {
		return nil, entity.Invalid("unknown report type %q", record.ReportType)
	}

	settings, err := r.templates.Get(ctx)
	if err != nil {
		return nil, err
	}
	style := ResolveStyle(settings, record.ReportType)
	flows := BuildFlowables(record)
	logo, logoType := r.loadLogo(ctx, style.Company.LogoURL)

	// First pass measures; second pass decorates with the known count.
	total, _, err := r.renderPass(ctx, record, style, flows, logo, logoType, 0)
	if err != nil {
		return nil, err
	}
	_, out, err := r.renderPass(ctx, record, style, flows, logo, logoType, total)
	if err != nil {
		return nil, err
	}

	r.logger.Info("Report rendered",
		zap.String("report_type", record.ReportType),
		zap.String("report_no", record.ReportNo),
		zap.Int("pages", total),
		zap.Int("bytes", len(out)))
	return out, nil
}

// loadLogo fetches the company logo once per render. A missing or broken
// logo degrades to no logo, matching the image-strip policy.
func (r *DocumentRenderer) loadLogo(ctx context.Context, ref string) ([]byte, string) {
	if ref == "" {
		return nil, ""
	}
	data, err := r.fetcher.Fetch(ctx, ref)
	if err != nil {
		r.logger.Warn("Logo fetch failed", zap.String("ref", ref), zap.Error(err))
		return nil, ""
	}
	imgType, err := sniffImageType(data)
	if err != nil {
		r.logger.Warn("Logo format not supported", zap.String("ref", ref))
		return nil, ""
	}
	return data, imgType
}

// renderPass lays the whole document out once. With totalPages zero the
// pass only measures; otherwise it emits the finished bytes.
func (r *DocumentRenderer) renderPass(
	ctx context.Context,
	record *entity.ReportRecord,
	style *StyleSheet,
	flows []SectionFlow,
	logo []byte,
	logoType string,
	totalPages int,
) (pages int, out []byte, err error) {
	section := ""
	defer func() {
		if rec := recover(); rec != nil {
			err = &entity.RenderError{Section: section, Err: fmt.Errorf("%v", rec)}
		}
	}()

	pdf := gofpdf.New("P", "pt", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, bottomMargin)
	// Pinning the metadata date keeps output byte-determined by its inputs.
	pdf.SetCreationDate(r.clock.Now())

	deco := newPageDecorator(pdf, style, record.Title, record.ReportNo, record.ReportDate, logo, logoType)
	deco.totalPages = totalPages
	pdf.SetHeaderFunc(deco.header)
	pdf.SetFooterFunc(deco.footer)

	if style.Decoration.Cover.Enabled {
		section = "cover"
		deco.setClass(classCover)
		pdf.AddPage()
		deco.drawCover(record.CustomerName)
	}

	deco.setClass(classContent)
	pdf.AddPage()
	cv := newCanvas(ctx, pdf, style, r.fetcher)
	for _, flow := range flows {
		section = flow.Name
		for _, f := range flow.Flowables {
			if err := f.draw(cv); err != nil {
				return 0, nil, &entity.RenderError{Section: section, Err: err}
			}
			if pdf.Err() {
				return 0, nil, &entity.RenderError{Section: section, Err: pdf.Error()}
			}
		}
	}

	if style.Decoration.Back.Enabled {
		section = "back cover"
		deco.setClass(classBack)
		pdf.AddPage()
		deco.drawBack()
	}
	section = ""

	pages = pdf.PageCount()
	if totalPages == 0 {
		pdf.Close()
		return pages, nil, nil
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return 0, nil, &entity.RenderError{Err: err}
	}
	return pages, buf.Bytes(), nil
}
