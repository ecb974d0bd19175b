package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/Dan9191/daybal/internal/apperr"
	"github.com/Dan9191/daybal/internal/models"
	sq "github.com/Masterminds/squirrel"
)

//go:embed schema.sql
var schema string

const (
	queryUpsertDailyBalance = `
		INSERT INTO daily_balances (recorded_date, balance_amount, currency)
		VALUES ($1, $2, $3)
		ON CONFLICT (recorded_date)
		DO UPDATE SET balance_amount = EXCLUDED.balance_amount,
			currency = EXCLUDED.currency,
			updated_at = CURRENT_TIMESTAMP`

	queryGetDailyBalance = `
		SELECT recorded_date, balance_amount, currency
		FROM daily_balances
		WHERE recorded_date = $1`

	queryCreateSession = `
		INSERT INTO sessions (session_id, account_uid, expiry_date, created_at)
		VALUES ($1, $2, $3, CURRENT_TIMESTAMP)
		RETURNING id, created_at`

	queryGetActiveSession = `
		SELECT id, session_id, account_uid, expiry_date, created_at
		FROM sessions
		WHERE expiry_date > $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1`

	queryGetPreferences = `
		SELECT median_months, average_months
		FROM user_preferences
		WHERE id = 1`

	querySavePreferences = `
		INSERT INTO user_preferences (id, median_months, average_months)
		VALUES (1, $1, $2)
		ON CONFLICT (id)
		DO UPDATE SET median_months = EXCLUDED.median_months,
			average_months = EXCLUDED.average_months,
			updated_at = CURRENT_TIMESTAMP`
)

// Repository provides database operations
type Repository struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

// NewRepository initializes a new repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// Ping checks the database connection
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// EnsureSchema creates missing tables
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// UpsertDailyBalance stores the balance for a date, overwriting any earlier value
func (r *Repository) UpsertDailyBalance(ctx context.Context, b models.DailyBalance) error {
	date := models.DateOf(b.RecordedDate)
	_, err := r.db.ExecContext(ctx, queryUpsertDailyBalance, date, b.BalanceAmount, b.Currency)
	if err != nil {
		return &apperr.PersistenceError{Key: date.Format(models.DateLayout), Err: err}
	}
	return nil
}

// GetDailyBalance retrieves the balance stored for a date
func (r *Repository) GetDailyBalance(ctx context.Context, date time.Time) (*models.DailyBalance, error) {
	b := &models.DailyBalance{}
	err := r.db.QueryRowContext(ctx, queryGetDailyBalance, models.DateOf(date)).
		Scan(&b.RecordedDate, &b.BalanceAmount, &b.Currency)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get daily balance: %w", err)
	}
	b.RecordedDate = models.DateOf(b.RecordedDate)
	return b, nil
}

// ListDailyBalances returns balances recorded between from and to inclusive, oldest first.
// A zero from or to leaves that side open.
func (r *Repository) ListDailyBalances(ctx context.Context, from, to time.Time) ([]models.DailyBalance, error) {
	q := r.sb.Select("recorded_date", "balance_amount", "currency").
		From("daily_balances").
		OrderBy("recorded_date")
	if !from.IsZero() {
		q = q.Where(sq.GtOrEq{"recorded_date": models.DateOf(from)})
	}
	if !to.IsZero() {
		q = q.Where(sq.LtOrEq{"recorded_date": models.DateOf(to)})
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list daily balances: %w", err)
	}
	defer rows.Close()

	var out []models.DailyBalance
	for rows.Next() {
		var b models.DailyBalance
		if err := rows.Scan(&b.RecordedDate, &b.BalanceAmount, &b.Currency); err != nil {
			return nil, fmt.Errorf("failed to scan daily balance: %w", err)
		}
		b.RecordedDate = models.DateOf(b.RecordedDate)
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate daily balances: %w", err)
	}
	return out, nil
}

// CreateSession stores a new gateway session
func (r *Repository) CreateSession(ctx context.Context, s *models.Session) error {
	err := r.db.QueryRowContext(ctx, queryCreateSession, s.SessionID, s.AccountUID, s.ExpiryDate).
		Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// GetActiveSession returns the most recently created session still valid at now
func (r *Repository) GetActiveSession(ctx context.Context, now time.Time) (*models.Session, error) {
	s := &models.Session{}
	err := r.db.QueryRowContext(ctx, queryGetActiveSession, now).
		Scan(&s.ID, &s.SessionID, &s.AccountUID, &s.ExpiryDate, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active session: %w", err)
	}
	return s, nil
}

// GetPreferences returns the saved comparison windows, or the defaults
func (r *Repository) GetPreferences(ctx context.Context) (models.Preferences, error) {
	p := models.Preferences{}
	err := r.db.QueryRowContext(ctx, queryGetPreferences).
		Scan(&p.MedianWindowMonths, &p.AverageWindowMonths)
	if errors.Is(err, sql.ErrNoRows) {
		return models.DefaultPreferences(), nil
	}
	if err != nil {
		return models.Preferences{}, fmt.Errorf("failed to get preferences: %w", err)
	}
	return p, nil
}

// SavePreferences overwrites the singleton preferences row
func (r *Repository) SavePreferences(ctx context.Context, p models.Preferences) error {
	_, err := r.db.ExecContext(ctx, querySavePreferences, p.MedianWindowMonths, p.AverageWindowMonths)
	if err != nil {
		return fmt.Errorf("failed to save preferences: %w", err)
	}
	return nil
}
