package report

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/powerquip/erp-backend/internal/domain/entity"
)

func TestFormatDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2026-03-15", "15/03/2026"},
		{"2026-03-15T10:30:00Z", "15/03/2026"},
		{"15/03/2026", "15/03/2026"},
		{"15-03-2026", "15/03/2026"},
		{"", "-"},
		{"  ", "-"},
		{"not a date", "-"},
		{"2026/03/15", "-"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatDate(tt.in), "input %q", tt.in)
	}
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1234.56", "1,234.56"},
		{"1234.5", "1,234.50"},
		{"1000000", "1,000,000.00"},
		{"42", "42.00"},
		{"-9876.5", "-9,876.50"},
		{"1,234.56", "1,234.56"},
		{"", "-"},
		{"n/a", "n/a"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatAmount(tt.in), "input %q", tt.in)
	}
}

func TestFormatQuantity(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"3", "3"},
		{"3.00", "3"},
		{"3.5", "3.5"},
		{"0", "0"},
		{"1,200", "1200"},
		{"", "-"},
		{"n/a", "n/a"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatQuantity(tt.in), "input %q", tt.in)
	}
}

func TestHexToRGB(t *testing.T) {
	assert.Equal(t, RGB{R: 247, G: 147, B: 30}, hexToRGB("#F7931E"))
	assert.Equal(t, RGB{R: 255, G: 0, B: 0}, hexToRGB("#FF0000"))
	assert.Equal(t, RGB{}, hexToRGB("bad"))
}

func TestResolveStyle_UsesReportDesign(t *testing.T) {
	settings := entity.DefaultTemplateSettings()
	settings.ReportDesigns[entity.ReportWCC] = entity.ReportDesign{DesignID: 4, DesignColor: "#00FF00"}

	style := ResolveStyle(settings, entity.ReportWCC)
	assert.Equal(t, 4, style.Decoration.DesignID)
	assert.Equal(t, RGB{G: 255}, style.Accent)
	// The tint is lighter than the accent on every channel.
	assert.Greater(t, style.TableTint.R, style.Accent.R)
	assert.Greater(t, style.TableTint.B, style.Accent.B)
}

func TestResolveStyle_UnknownTypeFallsBack(t *testing.T) {
	settings := entity.DefaultTemplateSettings()
	style := ResolveStyle(settings, "mystery")
	assert.Equal(t, 1, style.Decoration.DesignID)
	assert.Equal(t, hexToRGB(settings.Branding.PrimaryColor), style.Accent)
}
