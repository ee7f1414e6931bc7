// Package http provides the HTTP adapter over the finance and report
// services. It is a thin layer: requests are translated to service calls
// and typed service errors are translated to status codes.
package http

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/powerquip/erp-backend/internal/auth"
	"github.com/powerquip/erp-backend/internal/finance"
	"github.com/powerquip/erp-backend/internal/report"
)

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultServerConfig returns default server configuration.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:         "0.0.0.0",
		Port:         8080,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
}

// Server is the HTTP adapter.
type Server struct {
	config     ServerConfig
	httpServer *http.Server
	router     *gin.Engine

	sheets    *finance.SheetService
	advances  *finance.AdvanceService
	ledger    *finance.BalanceLedger
	exporter  *finance.SummaryExporter
	templates *report.TemplateStore
	renderer  *report.DocumentRenderer

	logger *zap.Logger
}

// NewServer creates the HTTP server with all routes registered.
func NewServer(
	config ServerConfig,
	sheets *finance.SheetService,
	advances *finance.AdvanceService,
	ledger *finance.BalanceLedger,
	exporter *finance.SummaryExporter,
	templates *report.TemplateStore,
	renderer *report.DocumentRenderer,
	logger *zap.Logger,
) *Server {
	gin.SetMode(gin.ReleaseMode)

	server := &Server{
		config:    config,
		router:    gin.New(),
		sheets:    sheets,
		advances:  advances,
		ledger:    ledger,
		exporter:  exporter,
		templates: templates,
		renderer:  renderer,
		logger:    logger,
	}
	server.setupMiddleware()
	server.setupRoutes()
	return server
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		s.logger.Info("HTTP request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.String("latency", time.Since(start).String()),
			zap.String("client_ip", c.ClientIP()))
	}
}

// actorMiddleware reads the authenticated identity forwarded by the edge
// proxy and places it on the request context for the services.
func (s *Server) actorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetHeader("X-User-ID"))
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{
				Success: false,
				Error:   "missing user identity",
			})
			return
		}
		role := auth.Role(strings.TrimSpace(c.GetHeader("X-User-Role")))
		switch role {
		case auth.RoleFinance, auth.RoleAdmin:
		default:
			role = auth.RoleEmployee
		}
		actor := auth.Actor{
			UserID:   userID,
			UserName: strings.TrimSpace(c.GetHeader("X-User-Name")),
			Role:     role,
		}
		c.Request = c.Request.WithContext(auth.WithActor(c.Request.Context(), actor))
		c.Next()
	}
}

// requireFinance rejects requests from non-finance actors before they
// reach a finance-only handler.
func (s *Server) requireFinance() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := auth.FromContext(c.Request.Context())
		if !ok || !actor.IsFinance() {
			c.AbortWithStatusJSON(http.StatusForbidden, Response{
				Success: false,
				Error:   "finance role required",
			})
			return
		}
		c.Next()
	}
}

func (s *Server) setupRoutes() {
	handlers := NewHandlers(s.sheets, s.advances, s.ledger, s.exporter, s.templates, s.renderer, s.logger)

	s.router.GET("/health", handlers.HealthCheck)

	api := s.router.Group("/api")
	api.Use(s.actorMiddleware())
	{
		// Document engine
		api.POST("/reports/render", handlers.RenderReport)
		api.GET("/templates/settings", handlers.GetTemplateSettings)
		api.GET("/templates/previews/designs", handlers.PreviewDesigns)
		api.GET("/templates/previews/page", handlers.PreviewPage)

		admin := api.Group("/templates")
		admin.Use(s.requireFinance())
		{
			admin.PUT("/settings", handlers.UpdateTemplateSettings)
			admin.POST("/settings/reset", handlers.ResetTemplateSettings)
		}

		// Expense sheets
		api.POST("/sheets", handlers.CreateSheet)
		api.GET("/sheets", handlers.ListMySheets)
		api.GET("/sheets/:id", handlers.GetSheet)
		api.PATCH("/sheets/:id", handlers.UpdateSheet)
		api.POST("/sheets/:id/items", handlers.AddItem)
		api.DELETE("/sheets/:id/items/:index", handlers.DeleteItem)
		api.POST("/sheets/:id/submit", handlers.SubmitSheet)
		api.POST("/sheets/:id/verify", handlers.VerifySheet)
		api.POST("/sheets/:id/approve", handlers.ApproveSheet)
		api.POST("/sheets/:id/reject", handlers.RejectSheet)
		api.POST("/sheets/:id/pay", handlers.PaySheet)

		// Advance requests
		api.POST("/advances", handlers.CreateAdvance)
		api.GET("/advances", handlers.ListMyAdvances)
		api.GET("/advances/:id", handlers.GetAdvance)
		api.DELETE("/advances/:id", handlers.WithdrawAdvance)
		api.POST("/advances/:id/approve", handlers.ApproveAdvance)
		api.POST("/advances/:id/reject", handlers.RejectAdvance)
		api.POST("/advances/:id/pay", handlers.PayAdvance)

		fin := api.Group("/finance")
		fin.Use(s.requireFinance())
		{
			fin.GET("/sheets", handlers.ListSheetsForReview)
			fin.GET("/advances", handlers.ListAllAdvances)
			fin.POST("/advances/direct-payment", handlers.DirectPayAdvance)
			fin.GET("/balances", handlers.BalanceSummary)
			fin.GET("/balances/export", handlers.ExportBalances)
		}

		api.GET("/balances/:userId", handlers.BalanceFor)
	}
}

// Start runs the server until the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting HTTP server", zap.String("address", addr))

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("HTTP server shutdown requested")
		return s.Stop()
	case err := <-errCh:
		s.logger.Error("HTTP server error", zap.Error(err))
		return err
	}
}

// Stop gracefully stops the server.
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", zap.Error(err))
		return err
	}
	s.logger.Info("HTTP server stopped")
	return nil
}

// Router returns the underlying gin router (for testing).
func (s *Server) Router() *gin.Engine {
	return s.router
}
