// Package http provides the HTTP server adapter. It is a thin layer that
// translates requests into service calls and sentinel errors into status
// codes; no workflow rules live here.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server is the HTTP server adapter
type Server struct {
	config     ServerConfig
	httpServer *http.Server
	router     *gin.Engine
	handlers   *Handlers
	logger     *zap.Logger
}

// NewServer creates the server and registers all routes
func NewServer(config ServerConfig, handlers *Handlers, logger *zap.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(loggingMiddleware(logger))

	s := &Server{
		config:   config,
		router:   router,
		handlers: handlers,
		logger:   logger,
	}
	s.registerRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:      router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}

	return s
}

func (s *Server) registerRoutes() {
	s.router.GET("/health", s.handlers.HealthCheck)

	api := s.router.Group("/api/v1")
	{
		api.POST("/users", s.handlers.CreateUser)
		api.GET("/users", s.handlers.ListUsers)

		api.POST("/cost-centers", s.handlers.CreateCostCenter)
		api.GET("/cost-centers", s.handlers.ListCostCenters)

		api.POST("/vendors", s.handlers.CreateVendor)
		api.GET("/vendors", s.handlers.ListVendors)

		api.POST("/purchase-requests", s.handlers.CreatePurchaseRequest)
		api.GET("/purchase-requests", s.handlers.ListPurchaseRequests)
		api.GET("/purchase-requests/:id", s.handlers.GetPurchaseRequest)

		api.POST("/purchase-orders", s.handlers.CreatePurchaseOrder)
		api.GET("/purchase-orders", s.handlers.ListPurchaseOrders)
		api.GET("/purchase-orders/:id", s.handlers.GetPurchaseOrder)

		api.POST("/invoices", s.handlers.CreateInvoice)
		api.GET("/invoices", s.handlers.ListInvoices)
		api.GET("/invoices/:id", s.handlers.GetInvoice)

		api.GET("/approvals/:entityType/:entityID", s.handlers.ListApprovals)
		api.POST("/approvals/:entityType/:entityID/decisions", s.handlers.DecideApproval)

		api.POST("/assets", s.handlers.RegisterAsset)
		api.GET("/assets/:id", s.handlers.GetAsset)
		api.POST("/assets/:id/movements", s.handlers.RecordAssetMovement)
		api.GET("/assets/:id/movements", s.handlers.ListAssetMovements)
	}
}

// Start begins serving; blocks until the listener fails or is shut down.
func (s *Server) Start() error {
	s.logger.Info("HTTP server listening", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		)
	}
}
