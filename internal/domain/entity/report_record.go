package entity

import (
	"encoding/json"
	"fmt"
)

// Entry is one renderable element inside a report section. Concrete kinds
// are KeyValueRow, LabeledGrid, Table, FreeText, ImageStrip,
// SignatureBlock and Checklist.
type Entry interface {
	EntryKind() string
}

// KeyValueRow is a single label/value line.
type KeyValueRow struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

func (KeyValueRow) EntryKind() string { return "key_value" }

// LabelValue is one cell pair of a LabeledGrid.
type LabelValue struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// LabeledGrid renders pairs as a 2xN label|value|label|value table.
type LabeledGrid struct {
	Pairs []LabelValue `json:"pairs"`
}

func (LabeledGrid) EntryKind() string { return "labeled_grid" }

// ColumnKind controls alignment and number formatting of a table column.
type ColumnKind string

const (
	ColumnText    ColumnKind = "text"
	ColumnNumber  ColumnKind = "number"
	ColumnInteger ColumnKind = "integer"
)

// TableColumn describes one column of a Table entry. Width is a relative
// weight; zero means equal share.
type TableColumn struct {
	Title string     `json:"title"`
	Width float64    `json:"width,omitempty"`
	Kind  ColumnKind `json:"kind,omitempty"`
}

// Table is an N-column table with a header row, body rows and an optional
// totals row rendered detached from the grid.
type Table struct {
	Columns []TableColumn `json:"columns"`
	Rows    [][]string    `json:"rows"`
	Totals  []string      `json:"totals,omitempty"`
}

func (Table) EntryKind() string { return "table" }

// FreeText is a block of flowing paragraph text.
type FreeText struct {
	Text string `json:"text"`
}

func (FreeText) EntryKind() string { return "free_text" }

// ImageStrip renders a row of images fetched from local paths or URLs.
// A failed fetch renders a placeholder cell instead of aborting.
type ImageStrip struct {
	Sources []string `json:"sources"`
}

func (ImageStrip) EntryKind() string { return "image_strip" }

// SignatureBlock renders two side-by-side signatory columns with name and
// date fields. Empty titles fall back to "Prepared By" / "Approved By".
type SignatureBlock struct {
	PreparedTitle string `json:"prepared_title,omitempty"`
	ApprovedTitle string `json:"approved_title,omitempty"`
}

func (SignatureBlock) EntryKind() string { return "signature_block" }

// ChecklistItem is one row of a Checklist.
type ChecklistItem struct {
	Description string `json:"description"`
	Status      string `json:"status"`
}

// Checklist renders a numbered three-column check table.
type Checklist struct {
	Items []ChecklistItem `json:"items"`
}

func (Checklist) EntryKind() string { return "checklist" }

// Section is a titled, ordered group of entries. Sections without entries
// are skipped entirely, header included.
type Section struct {
	Header  string  `json:"header"`
	Entries []Entry `json:"entries"`
}

// ReportRecord is the engine input: a semantic tree of sections plus the
// identity fields printed in the page chrome. It is read-only to the engine.
type ReportRecord struct {
	ReportType     string            `json:"report_type"`
	ReportNo       string            `json:"report_no"`
	ReportDate     string            `json:"report_date"`
	Title          string            `json:"title"`
	CustomerName   string            `json:"customer_name,omitempty"`
	Labels         map[string]string `json:"labels,omitempty"`
	SectionToggles map[string]bool   `json:"section_toggles,omitempty"`
	Sections       []Section         `json:"sections"`
}

// SectionEnabled reports whether a section passed the per-report toggles.
// Sections default to enabled when no toggle is present.
func (r *ReportRecord) SectionEnabled(header string) bool {
	if r.SectionToggles == nil {
		return true
	}
	enabled, ok := r.SectionToggles[header]
	if !ok {
		return true
	}
	return enabled
}

type entryEnvelope struct {
	Kind string `json:"kind"`
}

// UnmarshalJSON decodes entries by their "kind" discriminator.
func (s *Section) UnmarshalJSON(data []byte) error {
	var raw struct {
		Header  string            `json:"header"`
		Entries []json.RawMessage `json:"entries"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.Header = raw.Header
	s.Entries = make([]Entry, 0, len(raw.Entries))
	for _, msg := range raw.Entries {
		var env entryEnvelope
		if err := json.Unmarshal(msg, &env); err != nil {
			return err
		}
		entry, err := decodeEntry(env.Kind, msg)
		if err != nil {
			return err
		}
		s.Entries = append(s.Entries, entry)
	}
	return nil
}

func decodeEntry(kind string, msg json.RawMessage) (Entry, error) {
	var target Entry
	switch kind {
	case "key_value":
		target = &KeyValueRow{}
	case "labeled_grid":
		target = &LabeledGrid{}
	case "table":
		target = &Table{}
	case "free_text":
		target = &FreeText{}
	case "image_strip":
		target = &ImageStrip{}
	case "signature_block":
		target = &SignatureBlock{}
	case "checklist":
		target = &Checklist{}
	default:
		return nil, fmt.Errorf("%w: unknown entry kind %q", ErrInvalidInput, kind)
	}
	if err := json.Unmarshal(msg, target); err != nil {
		return nil, err
	}
	return deref(target), nil
}

func deref(e Entry) Entry {
	switch v := e.(type) {
	case *KeyValueRow:
		return *v
	case *LabeledGrid:
		return *v
	case *Table:
		return *v
	case *FreeText:
		return *v
	case *ImageStrip:
		return *v
	case *SignatureBlock:
		return *v
	case *Checklist:
		return *v
	}
	return e
}

// MarshalJSON encodes entries with their "kind" discriminator.
func (s Section) MarshalJSON() ([]byte, error) {
	entries := make([]map[string]interface{}, 0, len(s.Entries))
	for _, e := range s.Entries {
		body, err := json.Marshal(e)
		if err != nil {
			return nil, err
		}
		m := map[string]interface{}{}
		if err := json.Unmarshal(body, &m); err != nil {
			return nil, err
		}
		m["kind"] = e.EntryKind()
		entries = append(entries, m)
	}
	return json.Marshal(struct {
		Header  string                   `json:"header"`
		Entries []map[string]interface{} `json:"entries"`
	}{Header: s.Header, Entries: entries})
}
