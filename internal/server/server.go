// Package server exposes the thin HTTP surface: the email confirmation
// link endpoint and a health check. The wider REST API lives elsewhere.
package server

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/cadreapp/cadre/internal/access"
	"github.com/cadreapp/cadre/internal/notify"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// StartOpts holds configuration for the HTTP server.
type StartOpts struct {
	DB           *gorm.DB
	Orchestrator *notify.Orchestrator
	Resolver     *access.Resolver
	Port         int
	Out          io.Writer
}

// Start launches the HTTP server. It blocks until ctx is cancelled, then
// shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	if opts.DB == nil {
		return fmt.Errorf("server: db is required")
	}
	if opts.Orchestrator == nil {
		return fmt.Errorf("server: orchestrator is required")
	}
	if opts.Port <= 0 {
		opts.Port = 8080
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	registerRoutes(router, opts.DB, opts.Orchestrator, opts.Resolver)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", opts.Port),
		Handler: router,
	}

	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "Cadre listening on http://localhost:%d\n", opts.Port)
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}
