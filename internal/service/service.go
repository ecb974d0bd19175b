package service

import (
	"context"
	"time"

	"github.com/Dan9191/daybal/internal/compare"
	"github.com/Dan9191/daybal/internal/config"
	"github.com/Dan9191/daybal/internal/integrations/enablebanking"
	"github.com/Dan9191/daybal/internal/metrics"
	"github.com/Dan9191/daybal/internal/models"
	"github.com/sirupsen/logrus"
)

// BalanceStore persists balances, sessions and preferences
type BalanceStore interface {
	compare.Store
	UpsertDailyBalance(ctx context.Context, b models.DailyBalance) error
	GetDailyBalance(ctx context.Context, date time.Time) (*models.DailyBalance, error)
	CreateSession(ctx context.Context, s *models.Session) error
	GetActiveSession(ctx context.Context, now time.Time) (*models.Session, error)
	GetPreferences(ctx context.Context) (models.Preferences, error)
	SavePreferences(ctx context.Context, p models.Preferences) error
}

// Gateway is the bank gateway surface used by the service
type Gateway interface {
	StartAuthorization(ctx context.Context, body enablebanking.AuthRequest) (*enablebanking.AuthResponse, error)
	CreateSession(ctx context.Context, code string) (*enablebanking.SessionResponse, error)
	GetBalances(ctx context.Context, accountID string) (*enablebanking.BalancesResponse, error)
	FetchAllTransactions(ctx context.Context, accountID string, from, to time.Time) ([]enablebanking.Transaction, error)
}

// Notifier receives the daily digest
type Notifier interface {
	SendDigest(ctx context.Context, d *models.ComparisonData) error
}

// Service handles business logic
type Service struct {
	store    BalanceStore
	gateway  Gateway
	compare  *compare.Engine
	notifier Notifier
	log      *logrus.Logger
	config   *config.Config
	metrics  *metrics.Metrics
	now      func() time.Time
}

// Option customizes a Service
type Option func(*Service)

// WithNotifier enables the digest after each daily record
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithClock replaces the wall clock
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithMetrics attaches the Prometheus collectors
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// NewService initializes a new service
func NewService(store BalanceStore, gw Gateway, log *logrus.Logger, cfg *config.Config, opts ...Option) *Service {
	s := &Service{
		store:   store,
		gateway: gw,
		compare: compare.NewEngine(store),
		log:     log,
		config:  cfg,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// today is the current calendar date in the configured time zone
func (s *Service) today() time.Time {
	now := s.now()
	if s.config != nil && s.config.Location != nil {
		now = now.In(s.config.Location)
	}
	return models.DateOf(now)
}
