package reconcile

import (
	"testing"
	"time"

	"github.com/Dan9191/daybal/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := models.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

func amount(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func balanceAfter(s string) *decimal.NullDecimal {
	v := amount(s)
	return &v
}

func tx(date, amt string, ind models.Indicator) models.Transaction {
	return models.Transaction{BookingDate: day(date), Amount: amount(amt), Indicator: ind}
}

func assertBalances(t *testing.T, want map[string]string, got map[time.Time]decimal.Decimal) {
	t.Helper()
	require.Len(t, got, len(want))
	for d, v := range want {
		b, ok := got[day(d)]
		require.True(t, ok, "missing %s", d)
		assert.True(t, b.Equal(decimal.RequireFromString(v)), "%s: want %s, got %s", d, v, b)
	}
}

func TestReconcile_BackwardReconstruction(t *testing.T) {
	in := Input{
		Month:        day("2024-03-01"),
		Today:        day("2024-03-20"),
		TodayBalance: decimal.NewFromInt(1000),
		Transactions: []models.Transaction{
			tx("2024-03-10", "50", models.Debit),
			tx("2024-03-15", "100", models.Credit),
		},
	}

	res := Reconcile(in)
	assert.Equal(t, ModeReconstructed, res.Mode)
	assert.False(t, res.Aborted)
	assertBalances(t, map[string]string{
		"2024-03-15": "1000",
		"2024-03-10": "900",
	}, res.Balances)
}

func TestReconcile_HistoricalMonthReplaysLaterTransactions(t *testing.T) {
	in := Input{
		Month:        day("2024-01-01"),
		Today:        day("2024-03-05"),
		TodayBalance: decimal.NewFromInt(500),
		Transactions: []models.Transaction{
			tx("2024-01-20", "200", models.Credit),
			tx("2024-01-31", "30", models.Debit),
			tx("2024-02-10", "100", models.Credit),
			tx("2024-03-02", "25", models.Debit),
		},
	}

	res := Reconcile(in)
	assert.Equal(t, ModeReconstructed, res.Mode)
	// 500 -> +25 (undo March debit) -> -100 (undo February credit) = 425 at end of Jan 31
	assertBalances(t, map[string]string{
		"2024-01-31": "425",
		"2024-01-20": "455",
	}, res.Balances)
}

func TestReconcile_SameDateKeepsFirstRunningBalance(t *testing.T) {
	in := Input{
		Month:        day("2024-03-01"),
		Today:        day("2024-03-31"),
		TodayBalance: decimal.NewFromInt(100),
		Transactions: []models.Transaction{
			tx("2024-03-05", "10", models.Credit),
			tx("2024-03-05", "20", models.Credit),
			tx("2024-03-04", "1", models.Debit),
		},
	}

	res := Reconcile(in)
	assertBalances(t, map[string]string{
		"2024-03-05": "100",
		"2024-03-04": "70",
	}, res.Balances)
}

func TestReconcile_InvalidAmountSkipped(t *testing.T) {
	huge := tx("2024-03-12", "1", models.Credit)
	huge.Amount = decimal.NewNullDecimal(decimal.New(1, 20))
	unparsed := models.Transaction{BookingDate: day("2024-03-11"), Indicator: models.Debit}

	in := Input{
		Month:        day("2024-03-01"),
		Today:        day("2024-03-20"),
		TodayBalance: decimal.NewFromInt(1000),
		Transactions: []models.Transaction{
			tx("2024-03-15", "100", models.Credit),
			huge,
			unparsed,
			tx("2024-03-10", "50", models.Debit),
		},
	}

	res := Reconcile(in)
	assert.Equal(t, 2, res.Skipped)
	assert.False(t, res.Aborted)
	assertBalances(t, map[string]string{
		"2024-03-15": "1000",
		"2024-03-10": "900",
	}, res.Balances)
}

func TestReconcile_AbortsWhenRunningBalanceLeavesBound(t *testing.T) {
	in := Input{
		Month:        day("2024-03-01"),
		Today:        day("2024-03-31"),
		TodayBalance: decimal.New(9, 11),
		Transactions: []models.Transaction{
			tx("2024-03-20", "500000000000", models.Debit),
			tx("2024-03-10", "1", models.Debit),
		},
	}

	res := Reconcile(in)
	assert.True(t, res.Aborted)
	assertBalances(t, map[string]string{
		"2024-03-20": "900000000000",
	}, res.Balances)
}

func TestReconcile_InsaneAnchor(t *testing.T) {
	res := Reconcile(Input{
		Month:        day("2024-03-01"),
		Today:        day("2024-03-31"),
		TodayBalance: decimal.New(1, 13),
		Transactions: []models.Transaction{tx("2024-03-20", "5", models.Debit)},
	})

	assert.True(t, res.Aborted)
	assert.Empty(t, res.Balances)
}

func TestReconcile_Authoritative(t *testing.T) {
	first := tx("2024-03-05", "10", models.Credit)
	first.BalanceAfter = balanceAfter("210")
	second := tx("2024-03-05", "20", models.Debit)
	second.BalanceAfter = balanceAfter("190")
	other := tx("2024-03-07", "5", models.Debit)
	other.BalanceAfter = balanceAfter("185")

	res := Reconcile(Input{
		Month:        day("2024-03-01"),
		Today:        day("2024-03-31"),
		TodayBalance: decimal.NewFromInt(9999),
		Transactions: []models.Transaction{other, first, second},
	})

	assert.Equal(t, ModeAuthoritative, res.Mode)
	// feed order decides same-day ties, the later record wins
	assertBalances(t, map[string]string{
		"2024-03-05": "190",
		"2024-03-07": "185",
	}, res.Balances)
}

func TestReconcile_MixedFeedUsesReportedBalancesOnly(t *testing.T) {
	withBalance := tx("2024-03-05", "10", models.Credit)
	withBalance.BalanceAfter = balanceAfter("300")
	invalid := tx("2024-03-06", "10", models.Credit)
	invalid.BalanceAfter = &decimal.NullDecimal{}

	res := Reconcile(Input{
		Month:        day("2024-03-01"),
		Today:        day("2024-03-31"),
		TodayBalance: decimal.NewFromInt(1000),
		Transactions: []models.Transaction{
			tx("2024-03-04", "50", models.Debit),
			withBalance,
			invalid,
		},
	})

	assert.Equal(t, ModeAuthoritative, res.Mode)
	assert.Equal(t, 1, res.Skipped)
	assertBalances(t, map[string]string{"2024-03-05": "300"}, res.Balances)
}

func TestReconcile_WindowBounds(t *testing.T) {
	before := tx("2024-02-29", "1", models.Credit)
	before.BalanceAfter = balanceAfter("1")
	inside := tx("2024-03-31", "1", models.Credit)
	inside.BalanceAfter = balanceAfter("2")
	after := tx("2024-04-01", "1", models.Credit)
	after.BalanceAfter = balanceAfter("3")

	res := Reconcile(Input{
		Month:        day("2024-03-15"),
		Today:        day("2024-04-10"),
		Transactions: []models.Transaction{before, inside, after},
	})
	assertBalances(t, map[string]string{"2024-03-31": "2"}, res.Balances)

	from, to := Window(day("2024-04-15"), day("2024-04-10"))
	assert.Equal(t, day("2024-04-01"), from)
	assert.Equal(t, day("2024-04-10"), to)
}

func TestReconcile_Empty(t *testing.T) {
	res := Reconcile(Input{Month: day("2024-03-01"), Today: day("2024-03-10"), TodayBalance: decimal.NewFromInt(1)})
	assert.Equal(t, ModeNone, res.Mode)
	assert.Empty(t, res.Balances)
}

func TestReconcile_Idempotent(t *testing.T) {
	in := Input{
		Month:        day("2024-03-01"),
		Today:        day("2024-03-20"),
		TodayBalance: decimal.RequireFromString("1234.56"),
		Transactions: []models.Transaction{
			tx("2024-03-03", "12.34", models.Credit),
			tx("2024-03-09", "0.99", models.Debit),
			tx("2024-03-09", "10", models.Credit),
			tx("2024-03-18", "100.01", models.Debit),
		},
	}

	first := Reconcile(in)
	second := Reconcile(in)
	assert.Equal(t, first.Sorted("EUR"), second.Sorted("EUR"))
}

func TestResult_Sorted(t *testing.T) {
	res := Result{Balances: map[time.Time]decimal.Decimal{
		day("2024-03-09"): decimal.NewFromInt(2),
		day("2024-03-01"): decimal.NewFromInt(1),
	}}

	out := res.Sorted("EUR")
	require.Len(t, out, 2)
	assert.Equal(t, day("2024-03-01"), out[0].RecordedDate)
	assert.Equal(t, "EUR", out[1].Currency)
}
