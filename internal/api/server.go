// Package api serves the transaction data over a JSON HTTP API.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/fintrack-dev/fintrack/internal/buildinfo"
	"github.com/fintrack-dev/fintrack/internal/ingest"
)

// Server exposes an ingest.Service under /api/v1.
type Server struct {
	svc    *ingest.Service
	log    zerolog.Logger
	router *gin.Engine
}

// New builds the router. Request logging goes through log. The gin mode is
// left to the caller.
func New(svc *ingest.Service, log zerolog.Logger) *Server {
	if err := registerValidations(); err != nil {
		panic(fmt.Sprintf("api: %v", err))
	}

	s := &Server{svc: svc, log: log, router: gin.New()}
	s.router.Use(gin.Recovery(), s.requestLogger())
	s.routes()
	return s
}

// Handler returns the HTTP handler, for tests and custom listeners.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("api listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) routes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "version": buildinfo.Version})
	})

	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/transactions", s.listTransactions)
		v1.PATCH("/transactions/:hash", s.recategorize)
		v1.POST("/merchants/recategorize", s.recategorizeMerchant)
		v1.GET("/stats", s.stats)
		v1.GET("/summary", s.summary)
		v1.GET("/months", s.months)
		v1.GET("/categories", s.listCategories)
		v1.POST("/categories", s.addCategory)
		v1.POST("/categories/:name/keywords", s.addKeyword)
		v1.GET("/imports", s.history)
		v1.POST("/imports", s.upload)
		v1.POST("/enrich", s.enrich)
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}

func registerValidations() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("binding validator is %T, not *validator.Validate", binding.Validator.Engine())
	}
	if err := v.RegisterValidation("yearmonth", func(fl validator.FieldLevel) bool {
		_, err := time.Parse("2006-01", fl.Field().String())
		return err == nil
	}); err != nil {
		return fmt.Errorf("registering yearmonth validation: %w", err)
	}
	return nil
}
