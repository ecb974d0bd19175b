// Package setup builds the shared dependency graph of the daybal binaries.
package setup

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/Dan9191/daybal/internal/config"
	"github.com/Dan9191/daybal/internal/gate"
	"github.com/Dan9191/daybal/internal/integrations/enablebanking"
	"github.com/Dan9191/daybal/internal/metrics"
	"github.com/Dan9191/daybal/internal/notify"
	"github.com/Dan9191/daybal/internal/repository"
	"github.com/Dan9191/daybal/internal/service"
	"github.com/cenkalti/backoff/v4"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

const dbConnectRetries = 5

// Setup holds the initialized layers
type Setup struct {
	Config  *config.Config
	Logger  *logrus.Logger
	DB      *sql.DB
	Repo    *repository.Repository
	Metrics *metrics.Metrics
	Service *service.Service
}

// NewLogger returns a JSON logger at the LOG_LEVEL level
func NewLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logLevel, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)
	return logger
}

// Init loads configuration, connects to the database and wires the service
func Init(ctx context.Context, logger *logrus.Logger) (*Setup, error) {
	cfg, err := config.NewConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	db, err := OpenDB(ctx, cfg.DBConn, logger)
	if err != nil {
		return nil, err
	}

	repo := repository.NewRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	m := metrics.New()
	auth := enablebanking.NewJWTAuth(cfg.EBApplicationID, cfg.EBPrivateKeyB64)
	client := enablebanking.NewClient(cfg, auth, logger, m)

	opts := []service.Option{service.WithMetrics(m)}
	if cfg.MailEnabled() {
		opts = append(opts, service.WithNotifier(notify.NewSender(cfg, logger)))
		logger.Infof("Daily digest enabled for %s", cfg.DigestRecipient)
	}

	return &Setup{
		Config:  cfg,
		Logger:  logger,
		DB:      db,
		Repo:    repo,
		Metrics: m,
		Service: service.NewService(repo, client, logger, cfg, opts...),
	}, nil
}

// OpenDB opens the postgres pool and pings it with exponential backoff
func OpenDB(ctx context.Context, dsn string, logger *logrus.Logger) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	eb := backoff.NewExponentialBackOff()
	eb.MaxElapsedTime = time.Minute
	ping := func() error {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return db.PingContext(pingCtx)
	}
	onRetry := func(err error, wait time.Duration) {
		logger.Warnf("Database not ready, retrying in %s: %v", wait, err)
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, dbConnectRetries), ctx)
	if err := backoff.RetryNotify(ping, policy, onRetry); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// Gate builds the PIN gate. APP_PIN_HASH wins over a plain APP_PIN.
func (s *Setup) Gate() (*gate.Gate, error) {
	var hash []byte
	switch {
	case s.Config.PINHash != "":
		hash = []byte(s.Config.PINHash)
	case s.Config.PIN != "":
		h, err := gate.HashPIN(s.Config.PIN)
		if err != nil {
			return nil, err
		}
		hash = h
	default:
		s.Logger.Warn("No PIN configured, all PIN verifications will fail")
	}
	limiter := gate.NewRateLimiter(gate.DefaultMaxAttempts, gate.DefaultLockout, time.Now)
	return gate.New(limiter, hash, s.Config.AccessTokenTTL, time.Now), nil
}

// Close releases the database pool
func (s *Setup) Close() {
	if err := s.DB.Close(); err != nil {
		s.Logger.Errorf("Failed to close database: %v", err)
	}
}
