package entity

// Report types understood by the document engine. Every report type has a
// design entry in TemplateSettings.ReportDesigns at all times.
const (
	ReportAMC               = "amc"
	ReportCalibration       = "calibration"
	ReportWCC               = "wcc"
	ReportEquipmentTest     = "equipment_test"
	ReportIRThermography    = "ir_thermography"
	ReportService           = "service"
	ReportProjectCompletion = "project_completion"
	ReportProjectSchedule   = "project_schedule"
)

// ReportTypes lists every known report type.
var ReportTypes = []string{
	ReportAMC,
	ReportCalibration,
	ReportWCC,
	ReportEquipmentTest,
	ReportIRThermography,
	ReportService,
	ReportProjectCompletion,
	ReportProjectSchedule,
}

// IsReportType reports whether t is a known report type.
func IsReportType(t string) bool {
	for _, rt := range ReportTypes {
		if rt == t {
			return true
		}
	}
	return false
}

// Branding holds the two theme colors used across generated documents.
type Branding struct {
	PrimaryColor   string `json:"primary_color"`
	SecondaryColor string `json:"secondary_color"`
}

// CompanyInfo holds the issuing company identity printed on documents.
type CompanyInfo struct {
	CompanyName  string `json:"company_name"`
	Website      string `json:"website"`
	AddressLine1 string `json:"address_line1"`
	AddressLine2 string `json:"address_line2"`
	City         string `json:"city"`
	State        string `json:"state"`
	PostalCode   string `json:"postal_code"`
	Country      string `json:"country"`
	Phone        string `json:"phone"`
	Email        string `json:"email"`
	GSTIN        string `json:"gstin"`
	LogoURL      string `json:"logo_url"`
}

// CoverPage configures the leading cover page of generated documents.
type CoverPage struct {
	Enabled              bool    `json:"enabled"`
	ShowLogo             bool    `json:"show_logo"`
	ShowDecorativeCurves bool    `json:"show_decorative_curves"`
	CurveColor           string  `json:"curve_color"`
	TitleFontSize        float64 `json:"title_font_size"`
	ShowSubmittedBy      bool    `json:"show_submitted_by"`
	SubmittedByTitle     string  `json:"submitted_by_title"`
}

// BackCover configures the trailing contact page of generated documents.
type BackCover struct {
	Enabled        bool   `json:"enabled"`
	Title          string `json:"title"`
	ShowLogo       bool   `json:"show_logo"`
	ShowAddress    bool   `json:"show_address"`
	ShowPhone      bool   `json:"show_phone"`
	ShowEmail      bool   `json:"show_email"`
	ShowWebsite    bool   `json:"show_website"`
	AdditionalText string `json:"additional_text"`
}

// HeaderFooter configures the running chrome on content pages.
type HeaderFooter struct {
	ShowHeader        bool `json:"show_header"`
	ShowFooter        bool `json:"show_footer"`
	ShowPageNumbers   bool `json:"show_page_numbers"`
	ShowHeaderLogo    bool `json:"show_header_logo"`
	ShowHeaderLine    bool `json:"show_header_line"`
	ShowFooterLine    bool `json:"show_footer_line"`
	FooterCompanyName bool `json:"footer_company_name"`
	FooterWebsite     bool `json:"footer_website"`
}

// ReportDesign selects the decoration pattern and color for one report type.
type ReportDesign struct {
	DesignID    int    `json:"design_id"`
	DesignColor string `json:"design_color"`
}

// TemplateSettings is the process-wide document template configuration,
// stored as a single document and mutable by admins. Last write wins.
type TemplateSettings struct {
	Branding      Branding                `json:"branding"`
	CompanyInfo   CompanyInfo             `json:"company_info"`
	CoverPage     CoverPage               `json:"cover_page"`
	BackCover     BackCover               `json:"back_cover"`
	HeaderFooter  HeaderFooter            `json:"header_footer"`
	ReportDesigns map[string]ReportDesign `json:"report_designs"`
}

// DefaultTemplateSettings returns the factory defaults, with a design entry
// for every report type.
func DefaultTemplateSettings() TemplateSettings {
	return TemplateSettings{
		Branding: Branding{
			PrimaryColor:   "#F7931E",
			SecondaryColor: "#1f2937",
		},
		CompanyInfo: CompanyInfo{
			CompanyName: "Powerquip Engineering",
			Website:     "www.powerquip.example",
			Country:     "India",
		},
		CoverPage: CoverPage{
			Enabled:              true,
			ShowLogo:             true,
			ShowDecorativeCurves: true,
			CurveColor:           "#F7931E",
			TitleFontSize:        28,
			ShowSubmittedBy:      true,
			SubmittedByTitle:     "Submitted By",
		},
		BackCover: BackCover{
			Enabled:     true,
			Title:       "Thank You",
			ShowLogo:    true,
			ShowAddress: true,
			ShowPhone:   true,
			ShowEmail:   true,
			ShowWebsite: true,
		},
		HeaderFooter: HeaderFooter{
			ShowHeader:        true,
			ShowFooter:        true,
			ShowPageNumbers:   true,
			ShowHeaderLogo:    true,
			ShowHeaderLine:    true,
			ShowFooterLine:    true,
			FooterCompanyName: true,
			FooterWebsite:     true,
		},
		ReportDesigns: map[string]ReportDesign{
			ReportAMC:               {DesignID: 1, DesignColor: "#F7931E"},
			ReportCalibration:       {DesignID: 2, DesignColor: "#2563eb"},
			ReportWCC:               {DesignID: 3, DesignColor: "#22c55e"},
			ReportEquipmentTest:     {DesignID: 1, DesignColor: "#8b5cf6"},
			ReportIRThermography:    {DesignID: 2, DesignColor: "#ef4444"},
			ReportService:           {DesignID: 3, DesignColor: "#f59e0b"},
			ReportProjectCompletion: {DesignID: 1, DesignColor: "#06b6d4"},
			ReportProjectSchedule:   {DesignID: 1, DesignColor: "#F7931E"},
		},
	}
}
