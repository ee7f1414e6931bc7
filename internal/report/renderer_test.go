package report

import (
	"bytes"
	"compress/zlib"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/powerquip/erp-backend/internal/domain/entity"
	"github.com/powerquip/erp-backend/internal/store"
)

// pdfPageCount counts the page objects of a rendered PDF.
func pdfPageCount(pdf []byte) int {
	return bytes.Count(pdf, []byte("/Type /Page")) - bytes.Count(pdf, []byte("/Type /Pages"))
}

// pdfText inflates every content stream of a rendered PDF and returns the
// concatenated page descriptions, enough to assert on drawn strings.
func pdfText(t *testing.T, pdf []byte) string {
	t.Helper()
	marker := []byte(">>\nstream\n")
	var out bytes.Buffer
	rest := pdf
	for {
		i := bytes.Index(rest, marker)
		if i < 0 {
			break
		}
		j := bytes.LastIndex(rest[:i], []byte("/Length "))
		if j < 0 {
			rest = rest[i+len(marker):]
			continue
		}
		var n int
		if _, err := fmt.Sscanf(string(rest[j+len("/Length "):i]), "%d", &n); err != nil || i+len(marker)+n > len(rest) {
			rest = rest[i+len(marker):]
			continue
		}
		data := rest[i+len(marker) : i+len(marker)+n]
		if zr, err := zlib.NewReader(bytes.NewReader(data)); err == nil {
			_, _ = io.Copy(&out, zr)
			zr.Close()
		} else {
			out.Write(data)
		}
		rest = rest[i+len(marker)+n:]
	}
	return out.String()
}

type stubClock struct{ t time.Time }

func (c stubClock) Now() time.Time { return c.t }

// failingFetcher refuses every fetch, forcing placeholder cells.
type failingFetcher struct{}

func (failingFetcher) Fetch(context.Context, string) ([]byte, error) {
	return nil, fmt.Errorf("unreachable")
}

func newRenderer(t *testing.T) *DocumentRenderer {
	t.Helper()
	ts := NewTemplateStore(store.NewMemoryStore(), zap.NewNop())
	clock := stubClock{t: time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)}
	return NewDocumentRenderer(ts, failingFetcher{}, clock, zap.NewNop())
}

func TestRender_ProducesPDF(t *testing.T) {
	r := newRenderer(t)

	out, err := r.Render(context.Background(), SampleRecord(entity.ReportAMC))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
	assert.Greater(t, len(out), 1000)
}

func TestRender_Deterministic(t *testing.T) {
	r := newRenderer(t)
	record := SampleRecord(entity.ReportCalibration)

	first, err := r.Render(context.Background(), record)
	require.NoError(t, err)
	second, err := r.Render(context.Background(), record)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRender_EveryDesignEveryColor(t *testing.T) {
	colors := []string{"#FF0000", "#00FF00", "#0000FF", "#111111", "#fefefe"}
	for id := 1; id <= 5; id++ {
		for _, color := range colors {
			t.Run(fmt.Sprintf("design_%d_%s", id, color), func(t *testing.T) {
				ts := NewTemplateStore(store.NewMemoryStore(), zap.NewNop())
				partial := map[string]json.RawMessage{
					"report_designs": json.RawMessage(fmt.Sprintf(
						`{"amc": {"design_id": %d, "design_color": %q}}`, id, color)),
				}
				_, err := ts.Update(context.Background(), partial)
				require.NoError(t, err)

				r := NewDocumentRenderer(ts, failingFetcher{}, stubClock{t: time.Unix(0, 0).UTC()}, zap.NewNop())
				out, err := r.Render(context.Background(), SampleRecord(entity.ReportAMC))
				require.NoError(t, err)
				assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
			})
		}
	}
}

func TestRender_UnknownReportType(t *testing.T) {
	r := newRenderer(t)
	record := SampleRecord(entity.ReportAMC)
	record.ReportType = "invoice"

	_, err := r.Render(context.Background(), record)
	assert.ErrorIs(t, err, entity.ErrInvalidInput)
}

func TestRender_FailureNamesSection(t *testing.T) {
	r := newRenderer(t)
	record := SampleRecord(entity.ReportAMC)
	record.Sections = append(record.Sections, entity.Section{
		Header:  "Broken Section",
		Entries: []entity.Entry{entity.Table{}},
	})

	_, err := r.Render(context.Background(), record)
	require.ErrorIs(t, err, entity.ErrRenderFailed)
	var rerr *entity.RenderError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "Broken Section", rerr.Section)
}

func TestRender_FooterOnlyOnContentPages(t *testing.T) {
	r := newRenderer(t)

	out, err := r.Render(context.Background(), SampleRecord(entity.ReportAMC))
	require.NoError(t, err)

	total := pdfPageCount(out)
	require.GreaterOrEqual(t, total, 3, "cover, content and back pages expected")

	text := pdfText(t, out)
	// Cover and back carry no footer.
	assert.NotContains(t, text, fmt.Sprintf("Page 1 of %d", total))
	assert.NotContains(t, text, fmt.Sprintf("Page %d of %d", total, total))
	// Every content page shows its running number, the last one included.
	for k := 2; k < total; k++ {
		assert.Contains(t, text, fmt.Sprintf("Page %d of %d", k, total))
	}
}

func TestRender_ImageFailureDegradesToPlaceholder(t *testing.T) {
	r := newRenderer(t)
	record := SampleRecord(entity.ReportAMC)
	record.Sections = append(record.Sections, entity.Section{
		Header: "Site Photos",
		Entries: []entity.Entry{
			entity.ImageStrip{Sources: []string{"/nonexistent/a.png", "https://unreachable.example/b.jpg"}},
		},
	})

	out, err := r.Render(context.Background(), record)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestBuildFlowables_SectionToggles(t *testing.T) {
	record := SampleRecord(entity.ReportAMC)
	all := BuildFlowables(record)

	record.SectionToggles = map[string]bool{"Observations": false}
	filtered := BuildFlowables(record)

	require.Len(t, filtered, len(all)-1)
	remaining := make([]string, 0, len(filtered))
	for _, flow := range filtered {
		assert.NotEqual(t, "Observations", flow.Name)
		remaining = append(remaining, flow.Name)
	}
	// Order of the surviving sections is unchanged.
	idx := 0
	for _, flow := range all {
		if flow.Name == "Observations" {
			continue
		}
		assert.Equal(t, flow.Name, remaining[idx])
		idx++
	}
}

func TestBuildFlowables_SkipsEmptySections(t *testing.T) {
	record := &entity.ReportRecord{
		ReportType: entity.ReportAMC,
		Sections: []entity.Section{
			{Header: "Empty"},
			{Header: "Filled", Entries: []entity.Entry{entity.FreeText{Text: "hello"}}},
		},
	}
	flows := BuildFlowables(record)
	require.Len(t, flows, 1)
	assert.Equal(t, "Filled", flows[0].Name)
}

func TestPreviewDesigns(t *testing.T) {
	r := newRenderer(t)

	out, err := r.PreviewDesigns(context.Background(), "#FF0000")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))

	_, err = r.PreviewDesigns(context.Background(), "red")
	assert.ErrorIs(t, err, entity.ErrInvalidInput)
}

func TestPreviewPage(t *testing.T) {
	r := newRenderer(t)
	ctx := context.Background()

	for _, class := range []string{"cover", "content", "back"} {
		out, err := r.PreviewPage(ctx, class, entity.ReportService)
		require.NoError(t, err, "class %s", class)
		assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
	}

	_, err := r.PreviewPage(ctx, "appendix", entity.ReportService)
	assert.ErrorIs(t, err, entity.ErrInvalidInput)
	_, err = r.PreviewPage(ctx, "cover", "invoice")
	assert.ErrorIs(t, err, entity.ErrInvalidInput)
}

func TestPreviewPage_SinglePage(t *testing.T) {
	r := newRenderer(t)

	for _, class := range []string{"cover", "content", "back"} {
		out, err := r.PreviewPage(context.Background(), class, entity.ReportAMC)
		require.NoError(t, err, "class %s", class)
		assert.Equal(t, 1, pdfPageCount(out), "class %s", class)
	}
}

func TestCanvas_SinglePageSuppressesBreaks(t *testing.T) {
	rows := make([][]string, 120)
	for i := range rows {
		rows[i] = []string{fmt.Sprintf("%d", i+1), "Feeder inspection"}
	}
	record := &entity.ReportRecord{
		ReportType: entity.ReportAMC,
		Sections: []entity.Section{{
			Header: "Checks",
			Entries: []entity.Entry{entity.Table{
				Columns: []entity.TableColumn{
					{Title: "S.No", Width: 1, Kind: entity.ColumnInteger},
					{Title: "Item", Width: 3},
				},
				Rows: rows,
			}},
		}},
	}

	pdf := gofpdf.New("P", "pt", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(false, bottomMargin)
	pdf.AddPage()

	style := ResolveStyle(entity.DefaultTemplateSettings(), entity.ReportAMC)
	cv := newCanvas(context.Background(), pdf, style, failingFetcher{})
	cv.singlePage = true
	for _, flow := range BuildFlowables(record) {
		for _, f := range flow.Flowables {
			require.NoError(t, f.draw(cv))
		}
	}
	assert.Equal(t, 1, pdf.PageCount())
}

func TestTable_ColumnKindFormatting(t *testing.T) {
	var tf tableFlow

	c := tf.cellFor(entity.TableColumn{Kind: entity.ColumnInteger}, 50, "3.00")
	assert.Equal(t, "3", c.text)
	assert.Equal(t, "C", c.align)

	c = tf.cellFor(entity.TableColumn{Kind: entity.ColumnNumber}, 50, "1234.5")
	assert.Equal(t, "1,234.50", c.text)
	assert.Equal(t, "R", c.align)

	c = tf.cellFor(entity.TableColumn{Kind: entity.ColumnInteger}, 50, "")
	assert.Equal(t, "-", c.text)
}

func TestSectionJSONRoundTrip(t *testing.T) {
	record := SampleRecord(entity.ReportAMC)
	data, err := json.Marshal(record)
	require.NoError(t, err)

	var decoded entity.ReportRecord
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded.Sections, len(record.Sections))
	assert.Equal(t, record.Sections[0].Entries[0], decoded.Sections[0].Entries[0])
}
