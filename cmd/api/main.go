package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dan9191/daybal/cmd/setup"
	"github.com/Dan9191/daybal/internal/handler"
	"github.com/Dan9191/daybal/internal/middleware"
	"github.com/robfig/cron/v3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize logger
	logger := setup.NewLogger()

	// Initialize layers
	s, err := setup.Init(ctx, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize: %v", err)
	}
	defer s.Close()

	g, err := s.Gate()
	if err != nil {
		logger.Fatalf("Failed to initialize PIN gate: %v", err)
	}
	h := handler.NewHandler(s.Service, g, s.Metrics, logger)

	// Setup router
	r := handler.NewRouter(h, handler.RouterConfig{
		Auth:    middleware.AuthMiddleware(g),
		Cron:    middleware.CronSecret(s.Config.CronSecret),
		Metrics: s.Metrics.Handler(),
	})
	// CORS wraps the router so preflight requests never reach method matching
	var root http.Handler = middleware.CORS(s.Config.AllowedOrigins)(r)
	root = middleware.Recovery(logger)(middleware.Logging(logger)(root))

	// In-process daily record
	if s.Config.CronSchedule != "" {
		c := cron.New(cron.WithLocation(s.Config.Location))
		_, err := c.AddFunc(s.Config.CronSchedule, func() {
			res := s.Service.RecordToday(ctx)
			if !res.Success {
				logger.Warnf("Scheduled record did not complete: step=%s error=%s", res.Step, res.Error)
			}
		})
		if err != nil {
			logger.Fatalf("Invalid CRON_SCHEDULE %q: %v", s.Config.CronSchedule, err)
		}
		c.Start()
		defer c.Stop()
		logger.Infof("Daily record scheduled: %s", s.Config.CronSchedule)
	}

	// Start server
	addr := fmt.Sprintf(":%s", s.Config.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      root,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 2 * time.Minute,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Errorf("Graceful shutdown failed: %v", err)
		}
	}()

	logger.Infof("Starting server on %s", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("Server failed: %v", err)
	}
	logger.Info("Server stopped")
}
