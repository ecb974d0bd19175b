// Package reconcile derives daily closing balances for one calendar month
// from a bank transaction feed.
//
// Two policies exist. When any transaction carries a post-transaction balance
// the reported balances are taken as authoritative. Otherwise the series is
// rebuilt backward from today's balance by reversing every transaction between
// the target month and today.
package reconcile

import (
	"sort"
	"time"

	"github.com/Dan9191/daybal/internal/models"
	"github.com/shopspring/decimal"
)

// Mode is the policy used to produce a result
type Mode string

const (
	ModeNone          Mode = "none"
	ModeAuthoritative Mode = "balance_after"
	ModeReconstructed Mode = "reconstructed"
)

// Input describes one reconciliation run.
// Transactions must cover every booking date from the first of Month up to Today.
type Input struct {
	AccountID    string
	Month        time.Time
	Today        time.Time
	TodayBalance decimal.Decimal
	Currency     string
	Transactions []models.Transaction
}

// Result maps calendar dates (midnight UTC) to closing balances
type Result struct {
	Mode     Mode
	Balances map[time.Time]decimal.Decimal
	// Skipped counts records dropped by the validity filter
	Skipped int
	// Aborted is set when backward reconstruction stopped on an invalid running balance
	Aborted bool
}

// Window returns the inclusive date range a run for month may record
func Window(month, today time.Time) (time.Time, time.Time) {
	from := models.FirstOfMonth(month)
	to := models.LastOfMonth(month)
	if t := models.DateOf(today); t.Before(to) {
		to = t
	}
	return from, to
}

// Reconcile computes closing balances for the dates of in.Month touched by the feed.
// It neither reads nor writes any store and never fills dates without transactions.
func Reconcile(in Input) Result {
	res := Result{Mode: ModeNone, Balances: make(map[time.Time]decimal.Decimal)}
	if len(in.Transactions) == 0 {
		return res
	}

	from, to := Window(in.Month, in.Today)
	inWindow := func(d time.Time) bool {
		return !d.Before(from) && !d.After(to)
	}

	if authoritative(in.Transactions) {
		res.Mode = ModeAuthoritative
		fromBalanceAfter(in.Transactions, inWindow, &res)
		return res
	}

	res.Mode = ModeReconstructed
	reconstruct(in.TodayBalance, in.Transactions, inWindow, &res)
	return res
}

func authoritative(txs []models.Transaction) bool {
	for _, tx := range txs {
		if tx.HasBalanceAfter() {
			return true
		}
	}
	return false
}

// fromBalanceAfter records reported balances in feed order; the last one for a date wins.
func fromBalanceAfter(txs []models.Transaction, inWindow func(time.Time) bool, res *Result) {
	for _, tx := range txs {
		if !tx.HasBalanceAfter() {
			continue
		}
		if !tx.BalanceAfter.Valid || !Sane(tx.BalanceAfter.Decimal) {
			res.Skipped++
			continue
		}
		d := models.DateOf(tx.BookingDate)
		if !inWindow(d) {
			continue
		}
		res.Balances[d] = tx.BalanceAfter.Decimal
	}
}

// reconstruct walks newest to oldest from the anchor, recording the balance at the
// end of each date before undoing that date's transactions.
func reconstruct(anchor decimal.Decimal, txs []models.Transaction, inWindow func(time.Time) bool, res *Result) {
	if !Sane(anchor) {
		res.Aborted = true
		return
	}

	sorted := make([]models.Transaction, len(txs))
	copy(sorted, txs)
	// stable keeps feed order among transactions sharing a date
	sort.SliceStable(sorted, func(i, j int) bool {
		return models.DateOf(sorted[i].BookingDate).After(models.DateOf(sorted[j].BookingDate))
	})

	running := anchor
	for _, tx := range sorted {
		if !tx.Amount.Valid || !Sane(tx.Amount.Decimal) {
			res.Skipped++
			continue
		}

		d := models.DateOf(tx.BookingDate)
		if _, seen := res.Balances[d]; !seen && inWindow(d) {
			res.Balances[d] = running
		}

		if tx.Indicator == models.Credit {
			running = running.Sub(tx.Amount.Decimal)
		} else {
			running = running.Add(tx.Amount.Decimal)
		}

		if !Sane(running) {
			res.Aborted = true
			return
		}
	}
}

// Sorted returns the result as daily balances in ascending date order
func (r Result) Sorted(currency string) []models.DailyBalance {
	out := make([]models.DailyBalance, 0, len(r.Balances))
	for d, v := range r.Balances {
		out = append(out, models.DailyBalance{RecordedDate: d, BalanceAmount: v, Currency: currency})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].RecordedDate.Before(out[j].RecordedDate)
	})
	return out
}
