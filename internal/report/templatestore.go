// Package report implements the templated document composition engine:
// template settings, style resolution, flowable building, page decoration
// and the two-pass PDF renderer.
package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/powerquip/erp-backend/internal/domain/entity"
	"github.com/powerquip/erp-backend/internal/store"
	"github.com/powerquip/erp-backend/pkg/utils"
)

// settingsDocID is the sentinel id of the single template settings document.
const settingsDocID = "default"

// allowedSettingsKeys are the top-level keys an update payload may carry.
var allowedSettingsKeys = map[string]bool{
	"branding":       true,
	"company_info":   true,
	"cover_page":     true,
	"back_cover":     true,
	"header_footer":  true,
	"report_designs": true,
}

// TemplateStore loads, validates, merges and persists TemplateSettings.
// Settings are a process-wide singleton; last write wins.
type TemplateStore struct {
	col    store.Collection
	logger *zap.Logger
}

// NewTemplateStore creates a template store over the given document store.
func NewTemplateStore(st store.Store, logger *zap.Logger) *TemplateStore {
	return &TemplateStore{
		col:    st.Collection(store.CollectionTemplateSettings),
		logger: logger,
	}
}

// Get returns the fully-populated settings, filling factory defaults for
// any missing key and guaranteeing a design entry for every report type.
func (t *TemplateStore) Get(ctx context.Context) (entity.TemplateSettings, error) {
	var settings entity.TemplateSettings
	err := t.col.FindOne(ctx, store.Filter{"id": settingsDocID}, &settings)
	if errors.Is(err, store.ErrNoDocuments) {
		return entity.DefaultTemplateSettings(), nil
	}
	if err != nil {
		return settings, fmt.Errorf("failed to load template settings: %w", err)
	}
	fillSettingsDefaults(&settings)
	return settings, nil
}

// Update deep-merges a partial payload into the stored settings. Unknown
// top-level keys, malformed colors and out-of-range design ids are rejected.
func (t *TemplateStore) Update(ctx context.Context, partial map[string]json.RawMessage) (entity.TemplateSettings, error) {
	for key := range partial {
		if !allowedSettingsKeys[key] {
			return entity.TemplateSettings{}, entity.Invalid("unknown settings key %q", key)
		}
	}

	current, err := t.Get(ctx)
	if err != nil {
		return entity.TemplateSettings{}, err
	}

	merged, err := mergeSettings(current, partial)
	if err != nil {
		return entity.TemplateSettings{}, err
	}
	fillSettingsDefaults(&merged)
	if err := validateSettings(merged); err != nil {
		return entity.TemplateSettings{}, err
	}

	if err := t.save(ctx, merged); err != nil {
		return entity.TemplateSettings{}, err
	}
	t.logger.Info("Template settings updated", zap.Int("keys", len(partial)))
	return merged, nil
}

// Reset restores the factory defaults.
func (t *TemplateStore) Reset(ctx context.Context) (entity.TemplateSettings, error) {
	defaults := entity.DefaultTemplateSettings()
	if err := t.save(ctx, defaults); err != nil {
		return entity.TemplateSettings{}, err
	}
	t.logger.Info("Template settings reset to defaults")
	return defaults, nil
}

func (t *TemplateStore) save(ctx context.Context, settings entity.TemplateSettings) error {
	matched, err := t.col.UpdateOne(ctx, store.Filter{"id": settingsDocID}, settings)
	if err != nil {
		return fmt.Errorf("failed to save template settings: %w", err)
	}
	if !matched {
		if err := t.col.InsertOne(ctx, settingsDocID, settings); err != nil {
			return fmt.Errorf("failed to save template settings: %w", err)
		}
	}
	return nil
}

// mergeSettings deep-merges the partial payload over the current settings
// through their JSON representations, so nested objects merge field-wise
// instead of being replaced wholesale.
func mergeSettings(current entity.TemplateSettings, partial map[string]json.RawMessage) (entity.TemplateSettings, error) {
	base, err := json.Marshal(current)
	if err != nil {
		return current, err
	}
	var tree map[string]interface{}
	if err := json.Unmarshal(base, &tree); err != nil {
		return current, err
	}

	for key, raw := range partial {
		var value interface{}
		if err := json.Unmarshal(raw, &value); err != nil {
			return current, entity.Invalid("malformed value for %q", key)
		}
		tree[key] = mergeValue(tree[key], value)
	}

	out, err := json.Marshal(tree)
	if err != nil {
		return current, err
	}
	var merged entity.TemplateSettings
	if err := json.Unmarshal(out, &merged); err != nil {
		return current, entity.Invalid("settings payload does not match schema: %v", err)
	}
	return merged, nil
}

func mergeValue(base, patch interface{}) interface{} {
	baseMap, bok := base.(map[string]interface{})
	patchMap, pok := patch.(map[string]interface{})
	if !bok || !pok {
		return patch
	}
	for k, v := range patchMap {
		baseMap[k] = mergeValue(baseMap[k], v)
	}
	return baseMap
}

func validateSettings(s entity.TemplateSettings) error {
	colors := map[string]string{
		"branding.primary_color":   s.Branding.PrimaryColor,
		"branding.secondary_color": s.Branding.SecondaryColor,
		"cover_page.curve_color":   s.CoverPage.CurveColor,
	}
	for field, color := range colors {
		if color == "" {
			continue
		}
		if err := utils.ValidateHexColor(color); err != nil {
			return entity.Invalid("%s: %v", field, err)
		}
	}
	for reportType, design := range s.ReportDesigns {
		if !entity.IsReportType(reportType) {
			return entity.Invalid("unknown report type %q in report_designs", reportType)
		}
		if err := utils.ValidateDesignID(design.DesignID); err != nil {
			return entity.Invalid("report_designs.%s: %v", reportType, err)
		}
		if err := utils.ValidateHexColor(design.DesignColor); err != nil {
			return entity.Invalid("report_designs.%s: %v", reportType, err)
		}
	}
	return nil
}

// fillSettingsDefaults backfills missing design entries and empty colors
// so callers always see a complete settings document.
func fillSettingsDefaults(s *entity.TemplateSettings) {
	defaults := entity.DefaultTemplateSettings()
	if s.Branding.PrimaryColor == "" {
		s.Branding.PrimaryColor = defaults.Branding.PrimaryColor
	}
	if s.Branding.SecondaryColor == "" {
		s.Branding.SecondaryColor = defaults.Branding.SecondaryColor
	}
	if s.CoverPage.CurveColor == "" {
		s.CoverPage.CurveColor = defaults.CoverPage.CurveColor
	}
	if s.CoverPage.TitleFontSize == 0 {
		s.CoverPage.TitleFontSize = defaults.CoverPage.TitleFontSize
	}
	if s.ReportDesigns == nil {
		s.ReportDesigns = map[string]entity.ReportDesign{}
	}
	for _, reportType := range entity.ReportTypes {
		design, ok := s.ReportDesigns[reportType]
		if !ok {
			s.ReportDesigns[reportType] = defaults.ReportDesigns[reportType]
			continue
		}
		if design.DesignID == 0 {
			design.DesignID = defaults.ReportDesigns[reportType].DesignID
		}
		if design.DesignColor == "" {
			design.DesignColor = defaults.ReportDesigns[reportType].DesignColor
		}
		s.ReportDesigns[reportType] = design
	}
}
