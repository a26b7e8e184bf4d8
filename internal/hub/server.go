package hub

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/autohaus/cos/internal/config"
	"github.com/autohaus/cos/internal/notify"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Hub owns the server-side state shared by the WebSocket and REST surfaces.
type Hub struct {
	db        *gorm.DB
	manager   *ConnectionManager
	notifier  notify.Notifier
	uploadDir string
}

// StartOpts holds configuration for the hub server.
type StartOpts struct {
	DB       *gorm.DB
	Config   *config.Config
	Notifier notify.Notifier
	Out      io.Writer
}

// Start launches the hub HTTP server. It blocks until ctx is cancelled,
// then shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	if opts.DB == nil {
		return fmt.Errorf("hub: db is required")
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}

	h := &Hub{
		db:        opts.DB,
		manager:   NewConnectionManager(),
		notifier:  opts.Notifier,
		uploadDir: cfg.Server.UploadDir,
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	h.registerRoutes(router)

	var sweep *Sweep
	if cfg.Ambient.Enabled {
		var err error
		sweep, err = StartSweep(SweepOpts{
			DB:                h.db,
			Manager:           h.manager,
			Notifier:          h.notifier,
			Cron:              cfg.Ambient.Cron,
			AgingThreshold:    cfg.Ambient.AgingThreshold,
			CriticalThreshold: cfg.Ambient.CriticalThreshold,
		})
		if err != nil {
			return fmt.Errorf("hub: %w", err)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Graceful shutdown on context cancellation.
	go func() {
		<-ctx.Done()
		if sweep != nil {
			sweep.Stop()
		}
		srv.Shutdown(context.Background())
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "C-OS hub running at http://localhost:%d\n", cfg.Server.Port)
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("hub: %w", err)
	}
	return nil
}

// Router builds the gin engine without binding a listener, used by tests.
func (h *Hub) registerRoutes(router *gin.Engine) {
	router.GET("/ws/chat", h.handleChat)
	router.GET("/health", h.handleHealth)

	api := router.Group("/api")
	{
		api.POST("/events/render-error", h.handleRenderError)
		api.POST("/uploads", h.handleUpload)

		hitl := api.Group("/hitl")
		{
			hitl.POST("/propose", h.handlePropose)
			hitl.GET("/pending", h.handlePending)
			hitl.POST("/approve/:id", h.handleApprove)
			hitl.POST("/reject/:id", h.handleReject)
		}

		public := api.Group("/public")
		{
			public.GET("/inventory", h.handlePublicInventory)
			public.POST("/leads", h.handleLead)
		}
	}
}
