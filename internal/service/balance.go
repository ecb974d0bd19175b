package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Dan9191/daybal/internal/apperr"
	"github.com/Dan9191/daybal/internal/integrations/enablebanking"
	"github.com/Dan9191/daybal/internal/models"
	"github.com/Dan9191/daybal/internal/reconcile"
)

const defaultCurrency = "EUR"

func (s *Service) activeSession(ctx context.Context) (*models.Session, error) {
	now := s.now()
	sess, err := s.store.GetActiveSession(ctx, now)
	if err != nil {
		return nil, err
	}
	if !sess.Active(now) {
		return nil, fmt.Errorf("session %s expired at %s: %w", sess.SessionID, sess.ExpiryDate.Format(time.RFC3339), apperr.ErrNoSession)
	}
	if sess.AccountUID == "" {
		return nil, fmt.Errorf("session %s has no account: %w", sess.SessionID, apperr.ErrNoSession)
	}
	return sess, nil
}

// liveBalance fetches the account balance from the gateway, never from the store
func (s *Service) liveBalance(ctx context.Context, accountID string) (*models.Balance, apperr.Step, error) {
	resp, err := s.gateway.GetBalances(ctx, accountID)
	if err != nil {
		return nil, apperr.StepBalance, fmt.Errorf("failed to fetch balances: %w", err)
	}

	b, ok := enablebanking.SelectBalance(resp.Balances)
	if !ok {
		return nil, apperr.StepBalance, fmt.Errorf("no balance data found: %w", apperr.ErrNoData)
	}

	amount, err := reconcile.ParseAmount("balance", string(b.BalanceAmount.Amount))
	if err != nil {
		return nil, apperr.StepParse, err
	}

	currency := b.BalanceAmount.Currency
	if currency == "" {
		currency = defaultCurrency
	}
	return &models.Balance{
		Amount:        amount,
		Currency:      currency,
		Type:          b.BalanceType,
		ReferenceDate: b.ReferenceDate,
	}, "", nil
}

// CurrentBalance returns the live balance of the tracked account
func (s *Service) CurrentBalance(ctx context.Context) (*models.Balance, apperr.Step, error) {
	sess, err := s.activeSession(ctx)
	if err != nil {
		return nil, apperr.StepSession, err
	}
	return s.liveBalance(ctx, sess.AccountUID)
}

// AccountBalance returns the raw gateway balances of accountID. A linked
// session is required even though the gateway call is keyed by account.
func (s *Service) AccountBalance(ctx context.Context, accountID string) (*enablebanking.BalancesResponse, apperr.Step, error) {
	if _, err := s.activeSession(ctx); err != nil {
		return nil, apperr.StepSession, err
	}
	resp, err := s.gateway.GetBalances(ctx, accountID)
	if err != nil {
		return nil, apperr.StepBalance, fmt.Errorf("failed to fetch balances for %s: %w", accountID, err)
	}
	return resp, "", nil
}
