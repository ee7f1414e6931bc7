package report

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/powerquip/erp-backend/internal/domain/entity"
)

// RGB is a resolved 8-bit color triple.
type RGB struct {
	R, G, B int
}

// DecorationDescriptor selects the decoration painted on every page of a
// rendered document.
type DecorationDescriptor struct {
	DesignID int
	Color    RGB
	ColorHex string

	Cover        entity.CoverPage
	Back         entity.BackCover
	HeaderFooter entity.HeaderFooter
}

// StyleSheet is the concrete style bundle a single render works from.
type StyleSheet struct {
	FontFamily string

	TitleSize   float64
	HeadingSize float64
	LabelSize   float64
	BodySize    float64
	SmallSize   float64

	LineHeight  float64
	CellPadding float64

	Text      RGB
	Muted     RGB
	Accent    RGB
	TableTint RGB
	Border    RGB

	Company    entity.CompanyInfo
	Decoration DecorationDescriptor
}

// ResolveStyle produces the StyleSheet for one report type from the current
// template settings. Unknown report types fall back to the primary branding
// color with design 1; callers validate the type before rendering.
func ResolveStyle(settings entity.TemplateSettings, reportType string) *StyleSheet {
	design, ok := settings.ReportDesigns[reportType]
	if !ok {
		design = entity.ReportDesign{DesignID: 1, DesignColor: settings.Branding.PrimaryColor}
	}
	accent := hexToRGB(design.DesignColor)

	return &StyleSheet{
		FontFamily: "Helvetica",

		TitleSize:   settings.CoverPage.TitleFontSize,
		HeadingSize: 12,
		LabelSize:   9,
		BodySize:    9,
		SmallSize:   7.5,

		LineHeight:  13,
		CellPadding: 4,

		Text:      RGB{R: 31, G: 41, B: 55},
		Muted:     RGB{R: 107, G: 114, B: 128},
		Accent:    accent,
		TableTint: tint(accent, 0.88),
		Border:    RGB{R: 209, G: 213, B: 219},

		Company: settings.CompanyInfo,
		Decoration: DecorationDescriptor{
			DesignID:     design.DesignID,
			Color:        accent,
			ColorHex:     design.DesignColor,
			Cover:        settings.CoverPage,
			Back:         settings.BackCover,
			HeaderFooter: settings.HeaderFooter,
		},
	}
}

var dateLayouts = []string{
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02",
	"02/01/2006",
	"02-01-2006",
}

// FormatDate normalizes ISO-8601, DD/MM/YYYY and DD-MM-YYYY inputs to
// DD/MM/YYYY. Empty or unparseable inputs render as "-".
func FormatDate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "-"
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("02/01/2006")
		}
	}
	return "-"
}

// FormatAmount renders a currency amount with two decimals and thousands
// grouping, no symbol. Non-numeric inputs pass through unchanged; empty
// renders as "-".
func FormatAmount(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "-"
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", ""))
	if err != nil {
		return s
	}
	return groupThousands(d.StringFixed(2))
}

// FormatQuantity renders whole quantities without a fraction ("3.00"
// becomes "3") and leaves fractional ones as given. Blank values show as
// a dash and non-numeric values pass through untouched.
func FormatQuantity(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "-"
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", ""))
	if err != nil {
		return s
	}
	if d.IsInteger() {
		return d.StringFixed(0)
	}
	return d.String()
}

// OrDash substitutes "-" for empty values so blank fields stay visible.
func OrDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func groupThousands(fixed string) string {
	neg := strings.HasPrefix(fixed, "-")
	if neg {
		fixed = fixed[1:]
	}
	intPart := fixed
	fracPart := ""
	if i := strings.IndexByte(fixed, '.'); i >= 0 {
		intPart, fracPart = fixed[:i], fixed[i:]
	}
	var b strings.Builder
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	out := b.String() + fracPart
	if neg {
		return "-" + out
	}
	return out
}

func hexToRGB(hex string) RGB {
	hex = strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if len(hex) != 6 {
		return RGB{}
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return RGB{}
	}
	return RGB{R: int(v >> 16 & 0xff), G: int(v >> 8 & 0xff), B: int(v & 0xff)}
}

// tint blends a color toward white; factor 1 is white, 0 is the color.
func tint(c RGB, factor float64) RGB {
	blend := func(v int) int {
		return v + int(float64(255-v)*factor)
	}
	return RGB{R: blend(c.R), G: blend(c.G), B: blend(c.B)}
}

func (c RGB) String() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
