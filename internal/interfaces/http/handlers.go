package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/powerquip/erp-backend/internal/auth"
	"github.com/powerquip/erp-backend/internal/domain/entity"
	"github.com/powerquip/erp-backend/internal/finance"
	"github.com/powerquip/erp-backend/internal/report"
)

// Handlers contains all HTTP request handlers.
type Handlers struct {
	sheets    *finance.SheetService
	advances  *finance.AdvanceService
	ledger    *finance.BalanceLedger
	exporter  *finance.SummaryExporter
	templates *report.TemplateStore
	renderer  *report.DocumentRenderer
	logger    *zap.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(
	sheets *finance.SheetService,
	advances *finance.AdvanceService,
	ledger *finance.BalanceLedger,
	exporter *finance.SummaryExporter,
	templates *report.TemplateStore,
	renderer *report.DocumentRenderer,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		sheets:    sheets,
		advances:  advances,
		ledger:    ledger,
		exporter:  exporter,
		templates: templates,
		renderer:  renderer,
		logger:    logger,
	}
}

// Response is the standard JSON envelope.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// TransitionDetail is attached to refused-transition responses so callers
// see both states.
type TransitionDetail struct {
	Current   string `json:"current"`
	Requested string `json:"requested"`
}

// HealthResponse is the health check payload.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// respondError maps typed core errors to HTTP status codes.
func (h *Handlers) respondError(c *gin.Context, err error) {
	var terr *entity.TransitionError
	if errors.As(err, &terr) {
		status := http.StatusBadRequest
		if terr.Reason == entity.FailureRole {
			status = http.StatusForbidden
		}
		c.JSON(status, Response{
			Success: false,
			Error:   err.Error(),
			Data:    TransitionDetail{Current: terr.Current, Requested: terr.Requested},
		})
		return
	}

	var rerr *entity.RenderError
	if errors.As(err, &rerr) {
		h.logger.Error("Render failed", zap.String("section", rerr.Section), zap.Error(err))
		msg := "render failed"
		if rerr.Section != "" {
			msg = "render failed in section " + strconv.Quote(rerr.Section)
		}
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: msg})
		return
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, entity.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, entity.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, entity.ErrInvalidTransition):
		status = http.StatusBadRequest
	case errors.Is(err, entity.ErrImmutableSheet), errors.Is(err, entity.ErrDuplicateSheet):
		status = http.StatusConflict
	case errors.Is(err, entity.ErrRenderFailed):
		status = http.StatusInternalServerError
	}

	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed", zap.Error(err))
		c.JSON(status, Response{Success: false, Error: "internal error"})
		return
	}
	c.JSON(status, Response{Success: false, Error: err.Error()})
}

func (h *Handlers) ok(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data})
}

// HealthCheck handles GET /health.
func (h *Handlers) HealthCheck(c *gin.Context) {
	h.ok(c, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   "1.0.0",
	})
}

// --- Document engine ---

// RenderReport handles POST /api/reports/render.
func (h *Handlers) RenderReport(c *gin.Context) {
	var record entity.ReportRecord
	if err := c.ShouldBindJSON(&record); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid report record: " + err.Error()})
		return
	}
	out, err := h.renderer.Render(c.Request.Context(), &record)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="report.pdf"`)
	c.Data(http.StatusOK, "application/pdf", out)
}

// GetTemplateSettings handles GET /api/templates/settings.
func (h *Handlers) GetTemplateSettings(c *gin.Context) {
	settings, err := h.templates.Get(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.ok(c, settings)
}

// UpdateTemplateSettings handles PUT /api/templates/settings.
func (h *Handlers) UpdateTemplateSettings(c *gin.Context) {
	var partial map[string]json.RawMessage
	if err := c.ShouldBindJSON(&partial); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid settings payload"})
		return
	}
	settings, err := h.templates.Update(c.Request.Context(), partial)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.ok(c, settings)
}

// ResetTemplateSettings handles POST /api/templates/settings/reset.
func (h *Handlers) ResetTemplateSettings(c *gin.Context) {
	settings, err := h.templates.Reset(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.ok(c, settings)
}

// PreviewDesigns handles GET /api/templates/previews/designs.
func (h *Handlers) PreviewDesigns(c *gin.Context) {
	out, err := h.renderer.PreviewDesigns(c.Request.Context(), c.Query("color"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/pdf", out)
}

// PreviewPage handles GET /api/templates/previews/page.
func (h *Handlers) PreviewPage(c *gin.Context) {
	out, err := h.renderer.PreviewPage(c.Request.Context(), c.Query("class"), c.Query("report_type"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/pdf", out)
}

// --- Expense sheets ---

// CreateSheet handles POST /api/sheets.
func (h *Handlers) CreateSheet(c *gin.Context) {
	var in finance.CreateSheetInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid sheet payload: " + err.Error()})
		return
	}
	if actor, ok := auth.FromContext(c.Request.Context()); ok {
		if in.UserID == "" {
			in.UserID = actor.UserID
		}
		if in.UserName == "" {
			in.UserName = actor.UserName
		}
	}
	sheet, err := h.sheets.CreateSheet(c.Request.Context(), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, Response{Success: true, Data: sheet})
}

// ListMySheets handles GET /api/sheets.
func (h *Handlers) ListMySheets(c *gin.Context) {
	actor, _ := auth.FromContext(c.Request.Context())
	sheets, err := h.sheets.ListForUser(c.Request.Context(), actor.UserID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.ok(c, sheets)
}

// GetSheet handles GET /api/sheets/:id.
func (h *Handlers) GetSheet(c *gin.Context) {
	sheet, err := h.sheets.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.ok(c, sheet)
}

// UpdateSheet handles PATCH /api/sheets/:id.
func (h *Handlers) UpdateSheet(c *gin.Context) {
	var in finance.UpdateSheetInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid update payload: " + err.Error()})
		return
	}
	sheet, err := h.sheets.UpdateSheet(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.ok(c, sheet)
}

// AddItem handles POST /api/sheets/:id/items.
func (h *Handlers) AddItem(c *gin.Context) {
	var item entity.ExpenseItem
	if err := c.ShouldBindJSON(&item); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid item payload: " + err.Error()})
		return
	}
	sheet, err := h.sheets.AddItem(c.Request.Context(), c.Param("id"), item)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.ok(c, sheet)
}

// DeleteItem handles DELETE /api/sheets/:id/items/:index.
func (h *Handlers) DeleteItem(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid item index"})
		return
	}
	sheet, err := h.sheets.DeleteItem(c.Request.Context(), c.Param("id"), index)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.ok(c, sheet)
}

// SubmitSheet handles POST /api/sheets/:id/submit.
func (h *Handlers) SubmitSheet(c *gin.Context) {
	sheet, err := h.sheets.Submit(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.ok(c, sheet)
}

// VerifySheet handles POST /api/sheets/:id/verify.
func (h *Handlers) VerifySheet(c *gin.Context) {
	sheet, err := h.sheets.Verify(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.ok(c, sheet)
}

// ApproveSheet handles POST /api/sheets/:id/approve.
func (h *Handlers) ApproveSheet(c *gin.Context) {
	sheet, err := h.sheets.Approve(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.ok(c, sheet)
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

// RejectSheet handles POST /api/sheets/:id/reject.
func (h *Handlers) RejectSheet(c *gin.Context) {
	var req rejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid reject payload"})
		return
	}
	sheet, err := h.sheets.Reject(c.Request.Context(), c.Param("id"), req.Reason)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.ok(c, sheet)
}

// PaySheet handles POST /api/sheets/:id/pay.
func (h *Handlers) PaySheet(c *gin.Context) {
	var payment finance.SheetPayment
	if err := c.ShouldBindJSON(&payment); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid payment payload"})
		return
	}
	sheet, err := h.sheets.Pay(c.Request.Context(), c.Param("id"), payment)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.ok(c, sheet)
}

// ListSheetsForReview handles GET /api/finance/sheets.
func (h *Handlers) ListSheetsForReview(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	sheets, err := h.sheets.List(c.Request.Context(), c.Query("status"), limit, offset)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.ok(c, sheets)
}

// --- Advance requests ---

// CreateAdvance handles POST /api/advances.
func (h *Handlers) CreateAdvance(c *gin.Context) {
	var in finance.CreateAdvanceInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid advance payload: " + err.Error()})
		return
	}
	if actor, ok := auth.FromContext(c.Request.Context()); ok {
		if in.UserID == "" {
			in.UserID = actor.UserID
		}
		if in.UserName == "" {
			in.UserName = actor.UserName
		}
	}
	req, err := h.advances.CreateRequest(c.Request.Context(), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, Response{Success: true, Data: req})
}

// ListMyAdvances handles GET /api/advances.
func (h *Handlers) ListMyAdvances(c *gin.Context) {
	actor, _ := auth.FromContext(c.Request.Context())
	requests, err := h.advances.ListForUser(c.Request.Context(), actor.UserID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.ok(c, requests)
}

// GetAdvance handles GET /api/advances/:id.
func (h *Handlers) GetAdvance(c *gin.Context) {
	req, err := h.advances.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.ok(c, req)
}

// WithdrawAdvance handles DELETE /api/advances/:id.
func (h *Handlers) WithdrawAdvance(c *gin.Context) {
	if err := h.advances.Withdraw(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	h.ok(c, gin.H{"withdrawn": true})
}

// ApproveAdvance handles POST /api/advances/:id/approve.
func (h *Handlers) ApproveAdvance(c *gin.Context) {
	req, err := h.advances.Approve(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.ok(c, req)
}

// RejectAdvance handles POST /api/advances/:id/reject.
func (h *Handlers) RejectAdvance(c *gin.Context) {
	var body rejectRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid reject payload"})
		return
	}
	req, err := h.advances.Reject(c.Request.Context(), c.Param("id"), body.Reason)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.ok(c, req)
}

// PayAdvance handles POST /api/advances/:id/pay.
func (h *Handlers) PayAdvance(c *gin.Context) {
	var payment finance.AdvancePayment
	if err := c.ShouldBindJSON(&payment); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid payment payload"})
		return
	}
	req, err := h.advances.Pay(c.Request.Context(), c.Param("id"), payment)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.ok(c, req)
}

type directPayRequest struct {
	finance.CreateAdvanceInput
	Payment finance.AdvancePayment `json:"payment"`
}

// DirectPayAdvance handles POST /api/finance/advances/direct-payment.
func (h *Handlers) DirectPayAdvance(c *gin.Context) {
	var body directPayRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid direct payment payload"})
		return
	}
	req, err := h.advances.DirectPay(c.Request.Context(), body.CreateAdvanceInput, body.Payment)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, Response{Success: true, Data: req})
}

// ListAllAdvances handles GET /api/finance/advances.
func (h *Handlers) ListAllAdvances(c *gin.Context) {
	requests, err := h.advances.ListAll(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.ok(c, requests)
}

// --- Balances ---

// BalanceFor handles GET /api/balances/:userId. Employees may read their
// own balance; finance may read anyone's.
func (h *Handlers) BalanceFor(c *gin.Context) {
	userID := c.Param("userId")
	actor, _ := auth.FromContext(c.Request.Context())
	if userID != actor.UserID && !actor.IsFinance() {
		c.JSON(http.StatusForbidden, Response{Success: false, Error: "cannot read another user's balance"})
		return
	}
	balance, err := h.ledger.BalanceFor(c.Request.Context(), userID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.ok(c, balance)
}

// BalanceSummary handles GET /api/finance/balances.
func (h *Handlers) BalanceSummary(c *gin.Context) {
	summary, err := h.ledger.Summary(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.ok(c, summary)
}

// ExportBalances handles GET /api/finance/balances/export.
func (h *Handlers) ExportBalances(c *gin.Context) {
	data, err := h.exporter.Export(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="advance-balances.xlsx"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}
