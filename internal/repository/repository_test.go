package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Dan9191/daybal/internal/apperr"
	"github.com/Dan9191/daybal/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

func TestRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(repositoryTestSuite))
}

type repositoryTestSuite struct {
	suite.Suite
	db   *sql.DB
	mock sqlmock.Sqlmock
	repo *Repository
}

func (s *repositoryTestSuite) SetupTest() {
	var err error
	s.db, s.mock, err = sqlmock.New()
	require.NoError(s.T(), err)
	s.repo = NewRepository(s.db)
}

func (s *repositoryTestSuite) TearDownTest() {
	assert.NoError(s.T(), s.mock.ExpectationsWereMet())
	s.db.Close()
}

func date(v string) time.Time {
	d, err := models.ParseDate(v)
	if err != nil {
		panic(err)
	}
	return d
}

func (s *repositoryTestSuite) TestUpsertDailyBalance() {
	testCases := []struct {
		name       string
		setupMocks func()
		wantErr    bool
	}{
		{
			name: "test success",
			setupMocks: func() {
				s.mock.ExpectExec(regexp.QuoteMeta(queryUpsertDailyBalance)).
					WithArgs(date("2024-03-10"), decimal.RequireFromString("100.50"), "EUR").
					WillReturnResult(sqlmock.NewResult(1, 1))
			},
		},
		{
			name: "test db error",
			setupMocks: func() {
				s.mock.ExpectExec(regexp.QuoteMeta(queryUpsertDailyBalance)).
					WillReturnError(errors.New("connection reset"))
			},
			wantErr: true,
		},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			tc.setupMocks()
			err := s.repo.UpsertDailyBalance(context.Background(), models.DailyBalance{
				RecordedDate:  time.Date(2024, 3, 10, 17, 45, 0, 0, time.UTC),
				BalanceAmount: decimal.RequireFromString("100.50"),
				Currency:      "EUR",
			})
			if tc.wantErr {
				var pe *apperr.PersistenceError
				s.Require().ErrorAs(err, &pe)
				s.Equal("2024-03-10", pe.Key)
				return
			}
			s.NoError(err)
		})
	}
}

func (s *repositoryTestSuite) TestGetDailyBalance() {
	rows := sqlmock.NewRows([]string{"recorded_date", "balance_amount", "currency"}).
		AddRow(date("2024-03-10"), "250.75", "EUR")
	s.mock.ExpectQuery(regexp.QuoteMeta(queryGetDailyBalance)).
		WithArgs(date("2024-03-10")).
		WillReturnRows(rows)

	b, err := s.repo.GetDailyBalance(context.Background(), date("2024-03-10"))
	s.Require().NoError(err)
	s.True(b.BalanceAmount.Equal(decimal.RequireFromString("250.75")))
	s.Equal("EUR", b.Currency)

	s.mock.ExpectQuery(regexp.QuoteMeta(queryGetDailyBalance)).
		WillReturnError(sql.ErrNoRows)
	_, err = s.repo.GetDailyBalance(context.Background(), date("2024-03-11"))
	s.ErrorIs(err, apperr.ErrNotFound)
}

func (s *repositoryTestSuite) TestListDailyBalances() {
	rows := sqlmock.NewRows([]string{"recorded_date", "balance_amount", "currency"}).
		AddRow(date("2024-01-15"), "10", "EUR").
		AddRow(date("2024-02-15"), "20.5", "EUR")
	s.mock.ExpectQuery(`SELECT recorded_date, balance_amount, currency FROM daily_balances WHERE recorded_date >= \$1 AND recorded_date <= \$2 ORDER BY recorded_date`).
		WithArgs(date("2024-01-01"), date("2024-02-29")).
		WillReturnRows(rows)

	out, err := s.repo.ListDailyBalances(context.Background(), date("2024-01-01"), date("2024-02-29"))
	s.Require().NoError(err)
	s.Require().Len(out, 2)
	s.Equal(date("2024-02-15"), out[1].RecordedDate)
	s.True(out[1].BalanceAmount.Equal(decimal.RequireFromString("20.5")))
}

func (s *repositoryTestSuite) TestListDailyBalances_OpenRange() {
	s.mock.ExpectQuery(`SELECT recorded_date, balance_amount, currency FROM daily_balances ORDER BY recorded_date`).
		WillReturnRows(sqlmock.NewRows([]string{"recorded_date", "balance_amount", "currency"}))

	out, err := s.repo.ListDailyBalances(context.Background(), time.Time{}, time.Time{})
	s.NoError(err)
	s.Empty(out)
}

func (s *repositoryTestSuite) TestListDailyBalances_Error() {
	s.mock.ExpectQuery(`FROM daily_balances`).WillReturnError(errors.New("timeout"))

	_, err := s.repo.ListDailyBalances(context.Background(), date("2024-01-01"), date("2024-02-29"))
	s.Error(err)
}

func (s *repositoryTestSuite) TestSessions() {
	created := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	expiry := created.AddDate(0, 0, 90)

	s.mock.ExpectQuery(regexp.QuoteMeta(queryCreateSession)).
		WithArgs("sess-1", "acc-1", expiry).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(7, created))

	sess := &models.Session{SessionID: "sess-1", AccountUID: "acc-1", ExpiryDate: expiry}
	s.Require().NoError(s.repo.CreateSession(context.Background(), sess))
	s.Equal(int64(7), sess.ID)
	s.Equal(created, sess.CreatedAt)

	now := created.Add(time.Hour)
	s.mock.ExpectQuery(regexp.QuoteMeta(queryGetActiveSession)).
		WithArgs(now).
		WillReturnRows(sqlmock.NewRows([]string{"id", "session_id", "account_uid", "expiry_date", "created_at"}).
			AddRow(7, "sess-1", "acc-1", expiry, created))

	active, err := s.repo.GetActiveSession(context.Background(), now)
	s.Require().NoError(err)
	s.Equal("acc-1", active.AccountUID)

	s.mock.ExpectQuery(regexp.QuoteMeta(queryGetActiveSession)).
		WillReturnError(sql.ErrNoRows)
	_, err = s.repo.GetActiveSession(context.Background(), now)
	s.ErrorIs(err, apperr.ErrNoSession)
}

func (s *repositoryTestSuite) TestPreferences() {
	s.mock.ExpectQuery(regexp.QuoteMeta(queryGetPreferences)).
		WillReturnError(sql.ErrNoRows)
	p, err := s.repo.GetPreferences(context.Background())
	s.Require().NoError(err)
	s.Equal(models.DefaultPreferences(), p)

	s.mock.ExpectQuery(regexp.QuoteMeta(queryGetPreferences)).
		WillReturnRows(sqlmock.NewRows([]string{"median_months", "average_months"}).AddRow(6, 36))
	p, err = s.repo.GetPreferences(context.Background())
	s.Require().NoError(err)
	s.Equal(models.Preferences{MedianWindowMonths: 6, AverageWindowMonths: 36}, p)

	s.mock.ExpectExec(regexp.QuoteMeta(querySavePreferences)).
		WithArgs(6, 36).
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.NoError(s.repo.SavePreferences(context.Background(), p))
}

func (s *repositoryTestSuite) TestEnsureSchema() {
	s.mock.ExpectExec(`CREATE TABLE IF NOT EXISTS daily_balances`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	s.NoError(s.repo.EnsureSchema(context.Background()))
}
