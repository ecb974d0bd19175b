package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Dan9191/daybal/internal/apperr"
	"github.com/Dan9191/daybal/internal/integrations/enablebanking"
	"github.com/Dan9191/daybal/internal/models"
	"github.com/google/uuid"
)

// AuthStart is where the user must go to link the bank
type AuthStart struct {
	AuthURL string `json:"auth_url"`
	State   string `json:"state"`
}

// SessionStatus tells the frontend whether a bank is linked
type SessionStatus struct {
	BankConnected bool       `json:"bank_connected"`
	HasAccounts   bool       `json:"has_accounts"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
}

// StartAuth begins bank authorization and returns the login URL
func (s *Service) StartAuth(ctx context.Context) (*AuthStart, error) {
	state := uuid.NewString()
	validUntil := s.now().UTC().AddDate(0, 0, s.config.AccessDays)

	resp, err := s.gateway.StartAuthorization(ctx, enablebanking.AuthRequest{
		Access:      enablebanking.Access{ValidUntil: validUntil.Format(time.RFC3339)},
		ASPSP:       enablebanking.ASPSP{Name: s.config.ASPSPName, Country: s.config.ASPSPCountry},
		State:       state,
		RedirectURL: s.config.RedirectURL,
		PSUType:     "personal",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start authorization: %w", err)
	}

	s.log.Infof("Started bank authorization with %s", s.config.ASPSPName)
	return &AuthStart{AuthURL: resp.URL, State: state}, nil
}

// CompleteAuth exchanges the callback code for a session and stores it.
// The first account of the session becomes the tracked account.
func (s *Service) CompleteAuth(ctx context.Context, code string) (*models.Session, []string, error) {
	resp, err := s.gateway.CreateSession(ctx, code)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create session: %w", err)
	}

	var uids []string
	for _, acc := range resp.Accounts {
		if acc.UID != "" {
			uids = append(uids, acc.UID)
		}
	}
	if len(uids) == 0 {
		return nil, nil, fmt.Errorf("session %s has no accounts: %w", resp.SessionID, apperr.ErrNoData)
	}

	expiry, err := time.Parse(time.RFC3339, resp.Access.ValidUntil)
	if err != nil {
		expiry = s.now().AddDate(0, 0, s.config.AccessDays)
	}

	sess := &models.Session{
		SessionID:  resp.SessionID,
		AccountUID: uids[0],
		ExpiryDate: expiry,
	}
	if err := s.store.CreateSession(ctx, sess); err != nil {
		return nil, nil, err
	}

	s.log.Infof("Linked bank session %s with %d account(s)", sess.SessionID, len(uids))
	return sess, uids, nil
}

// SessionStatus reports whether an unexpired session exists
func (s *Service) SessionStatus(ctx context.Context) (*SessionStatus, error) {
	sess, err := s.activeSession(ctx)
	if errors.Is(err, apperr.ErrNoSession) {
		return &SessionStatus{}, nil
	}
	if err != nil {
		return nil, err
	}
	return &SessionStatus{
		BankConnected: true,
		HasAccounts:   sess.AccountUID != "",
		ExpiresAt:     &sess.ExpiryDate,
	}, nil
}

// Accounts lists the account tracked by the active session
func (s *Service) Accounts(ctx context.Context) ([]string, error) {
	sess, err := s.activeSession(ctx)
	if err != nil {
		return nil, err
	}
	return []string{sess.AccountUID}, nil
}
