// Package compare computes historical statistics from stored daily balances.
package compare

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Dan9191/daybal/internal/models"
	"github.com/shopspring/decimal"
)

// Store is the read side of the balance history
type Store interface {
	ListDailyBalances(ctx context.Context, from, to time.Time) ([]models.DailyBalance, error)
}

// Result holds the statistics for one reference day.
// Median and Average are nil when their window holds no history yet.
type Result struct {
	Median         *decimal.Decimal
	Average        *decimal.Decimal
	Coverage       bool
	MedianSamples  []models.DailyBalance
	AverageSamples []models.DailyBalance
}

// Engine compares a day of month against earlier months
type Engine struct {
	store Store
}

func NewEngine(store Store) *Engine {
	return &Engine{store: store}
}

// Compare selects one balance per calendar month in each window and returns the
// median over the median window and the mean over the average window. Windows are
// the full months immediately preceding ref's month.
func (e *Engine) Compare(ctx context.Context, ref time.Time, dayOfMonth, medianMonths, averageMonths int) (*Result, error) {
	if dayOfMonth < 1 || dayOfMonth > 31 {
		return nil, fmt.Errorf("day of month out of range: %d", dayOfMonth)
	}

	medianSet, err := e.candidates(ctx, ref, dayOfMonth, medianMonths)
	if err != nil {
		return nil, fmt.Errorf("failed to load median window: %w", err)
	}
	averageSet, err := e.candidates(ctx, ref, dayOfMonth, averageMonths)
	if err != nil {
		return nil, fmt.Errorf("failed to load average window: %w", err)
	}

	res := &Result{
		MedianSamples:  medianSet,
		AverageSamples: averageSet,
		Coverage:       len(medianSet) > 0 || len(averageSet) > 0,
	}
	if m, ok := Median(amounts(medianSet)); ok {
		res.Median = &m
	}
	if a, ok := Mean(amounts(averageSet)); ok {
		res.Average = &a
	}
	return res, nil
}

func (e *Engine) candidates(ctx context.Context, ref time.Time, dayOfMonth, months int) ([]models.DailyBalance, error) {
	if months <= 0 {
		return nil, nil
	}
	from := models.MonthsBefore(ref, months)
	to := models.FirstOfMonth(ref).AddDate(0, 0, -1)

	rows, err := e.store.ListDailyBalances(ctx, from, to)
	if err != nil {
		return nil, err
	}
	return NearestPerMonth(rows, dayOfMonth), nil
}

// NearestPerMonth keeps, for every calendar month, the row whose day of month is
// closest to dayOfMonth. Equidistant rows resolve to the later date.
// The output is ordered by month.
func NearestPerMonth(rows []models.DailyBalance, dayOfMonth int) []models.DailyBalance {
	best := make(map[time.Time]models.DailyBalance)
	for _, row := range rows {
		month := models.FirstOfMonth(row.RecordedDate)
		cur, ok := best[month]
		if !ok || closer(row.RecordedDate, cur.RecordedDate, dayOfMonth) {
			best[month] = row
		}
	}

	out := make([]models.DailyBalance, 0, len(best))
	for _, row := range best {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].RecordedDate.Before(out[j].RecordedDate)
	})
	return out
}

func closer(a, b time.Time, target int) bool {
	da, db := distance(a.Day(), target), distance(b.Day(), target)
	if da != db {
		return da < db
	}
	return a.After(b)
}

func distance(day, target int) int {
	if day > target {
		return day - target
	}
	return target - day
}

func amounts(rows []models.DailyBalance) []decimal.Decimal {
	out := make([]decimal.Decimal, len(rows))
	for i, row := range rows {
		out[i] = row.BalanceAmount
	}
	return out
}
