package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dan9191/daybal/internal/apperr"
	"github.com/Dan9191/daybal/internal/integrations/enablebanking"
	"github.com/Dan9191/daybal/internal/models"
	"github.com/Dan9191/daybal/internal/reconcile"
	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
)

// MaxBackfillMonths is the oldest month offset a backfill run accepts
const MaxBackfillMonths = 24

// RecordToday stores today's live balance
func (s *Service) RecordToday(ctx context.Context) *RunResult {
	started := s.now()
	res := &RunResult{}
	defer func() { s.metrics.ObserveRun("record", res.Success, s.now().Sub(started)) }()

	today := s.today()
	res.Date = today.Format(models.DateLayout)

	sess, err := s.activeSession(ctx)
	if err != nil {
		return res.fail(apperr.StepSession, err)
	}

	bal, step, err := s.liveBalance(ctx, sess.AccountUID)
	if err != nil {
		return res.fail(step, err)
	}
	res.Balance = &bal.Amount
	res.Currency = bal.Currency

	prev, err := s.store.GetDailyBalance(ctx, today)
	switch {
	case err == nil:
		res.PreviousBalance = &prev.BalanceAmount
		if !prev.BalanceAmount.Equal(bal.Amount) {
			s.log.Infof("Overwriting balance %s for %s with %s", prev.BalanceAmount, res.Date, bal.Amount)
		}
	case !errors.Is(err, apperr.ErrNotFound):
		s.log.Warnf("Failed to read stored balance for %s: %v", res.Date, err)
	}

	err = s.store.UpsertDailyBalance(ctx, models.DailyBalance{
		RecordedDate:  today,
		BalanceAmount: bal.Amount,
		Currency:      bal.Currency,
	})
	if err != nil {
		res.Errors, res.ErrorCount = apperr.Summarize([]error{err})
		return res.fail(apperr.StepPersist, err)
	}

	res.Success = true
	res.DatesRecorded = 1
	s.metrics.AddDates(1)
	s.log.Infof("Recorded balance %s %s for %s", bal.Amount, bal.Currency, res.Date)

	if s.notifier != nil {
		s.sendDigest(ctx, bal)
	}
	return res
}

// Backfill reconciles the month monthsAgo months before the current one and
// upserts every date it can derive. Only one month is covered per call.
func (s *Service) Backfill(ctx context.Context, monthsAgo int) *RunResult {
	started := s.now()
	res := &RunResult{}
	defer func() { s.metrics.ObserveRun("backfill", res.Success, s.now().Sub(started)) }()

	if monthsAgo < 0 || monthsAgo > MaxBackfillMonths {
		return res.fail(apperr.StepParse, fmt.Errorf("months_ago must be between 0 and %d", MaxBackfillMonths))
	}

	today := s.today()
	month := models.MonthsBefore(today, monthsAgo)
	res.Month = month.Format("2006-01")
	log := s.log.WithFields(logrus.Fields{"months_ago": monthsAgo, "month": res.Month})

	sess, err := s.activeSession(ctx)
	if err != nil {
		return res.fail(apperr.StepSession, err)
	}

	bal, step, err := s.liveBalance(ctx, sess.AccountUID)
	if err != nil {
		return res.fail(step, err)
	}
	res.Balance = &bal.Amount
	res.Currency = bal.Currency

	// the range always runs to today so later transactions can be reversed
	raw, err := s.gateway.FetchAllTransactions(ctx, sess.AccountUID, month, today)
	if err != nil {
		return res.fail(apperr.StepTransactions, fmt.Errorf("failed to fetch transactions: %w", err))
	}
	res.TransactionsFetched = len(raw)
	if len(raw) == 0 {
		log.Info("No transactions in range, nothing to reconcile")
		res.Success = true
		res.NothingToDo = true
		return res
	}

	txs, dropped := parseTransactions(raw, bal.Currency)
	out := reconcile.Reconcile(reconcile.Input{
		AccountID:    sess.AccountUID,
		Month:        month,
		Today:        today,
		TodayBalance: bal.Amount,
		Currency:     bal.Currency,
		Transactions: txs,
	})
	res.Mode = string(out.Mode)
	res.TransactionsSkipped = dropped + out.Skipped
	if out.Aborted {
		log.Warn("Backward reconstruction stopped on an out of bound running balance")
	}

	recorded, errs := s.persist(ctx, out.Sorted(bal.Currency))
	res.DatesRecorded = recorded
	res.Errors, res.ErrorCount = apperr.Summarize(errs)

	log.WithFields(logrus.Fields{
		"mode":    res.Mode,
		"fetched": res.TransactionsFetched,
		"dates":   recorded,
		"errors":  res.ErrorCount,
	}).Info("Backfill finished")

	if recorded == 0 && res.ErrorCount > 0 {
		return res.fail(apperr.StepPersist, errs[0])
	}
	res.Success = true
	return res
}

// persist upserts each balance on its own; one failing date never stops the rest
func (s *Service) persist(ctx context.Context, balances []models.DailyBalance) (int, []error) {
	var (
		merr     *multierror.Error
		recorded int
	)
	for _, b := range balances {
		if err := s.store.UpsertDailyBalance(ctx, b); err != nil {
			merr = multierror.Append(merr, err)
			continue
		}
		recorded++
	}
	s.metrics.AddDates(recorded)
	return recorded, merr.WrappedErrors()
}

// parseTransactions maps feed records to reconciliation input.
// Records without a usable date are dropped and counted; invalid amounts are
// kept as invalid so the engine can skip them.
func parseTransactions(raw []enablebanking.Transaction, currency string) ([]models.Transaction, int) {
	out := make([]models.Transaction, 0, len(raw))
	dropped := 0
	for _, r := range raw {
		dateStr := r.BookingDate
		if dateStr == "" {
			dateStr = r.ValueDate
		}
		date, err := models.ParseDate(dateStr)
		if err != nil {
			dropped++
			continue
		}

		tx := models.Transaction{
			BookingDate: date,
			Amount:      reconcile.NullAmount("amount", string(r.TransactionAmount.Amount)),
			Indicator:   models.ParseIndicator(r.CreditDebitIndicator),
			Currency:    r.TransactionAmount.Currency,
		}
		if tx.Currency == "" {
			tx.Currency = currency
		}
		if r.BalanceAfterTransaction != nil {
			after := reconcile.NullAmount("balance_after_transaction", string(r.BalanceAfterTransaction.Amount))
			tx.BalanceAfter = &after
		}
		out = append(out, tx)
	}
	return out, dropped
}
