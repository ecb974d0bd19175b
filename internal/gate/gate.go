// Package gate guards the API behind a shared PIN.
//
// A Gate is created once per process and handed to the HTTP layer; its rate
// limiter and issued tokens are in-memory only and reset on restart.
package gate

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// PINResult is the outcome of a PIN verification
type PINResult struct {
	Success          bool   `json:"success,omitempty"`
	Error            bool   `json:"error,omitempty"`
	Locked           bool   `json:"locked,omitempty"`
	Detail           string `json:"detail,omitempty"`
	RemainingSeconds int    `json:"remaining_seconds,omitempty"`
	AttemptsLeft     *int   `json:"attempts_left,omitempty"`
	SessionToken     string `json:"session_token,omitempty"`
}

// Gate checks the PIN and tracks the access tokens it issued
type Gate struct {
	limiter *RateLimiter
	pinHash []byte
	ttl     time.Duration
	now     func() time.Time

	mu     sync.Mutex
	tokens map[string]time.Time
	states map[string]time.Time
}

// AuthStateTTL is how long a bank authorization state stays redeemable
const AuthStateTTL = 30 * time.Minute

// HashPIN hashes a plain PIN with bcrypt
func HashPIN(pin string) ([]byte, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash PIN: %w", err)
	}
	return hash, nil
}

// New creates a Gate. An empty pinHash means no PIN is configured and every
// verification fails.
func New(limiter *RateLimiter, pinHash []byte, ttl time.Duration, now func() time.Time) *Gate {
	if now == nil {
		now = time.Now
	}
	return &Gate{
		limiter: limiter,
		pinHash: pinHash,
		ttl:     ttl,
		now:     now,
		tokens:  make(map[string]time.Time),
		states:  make(map[string]time.Time),
	}
}

// VerifyPIN applies the rate limit for identity and checks pin
func (g *Gate) VerifyPIN(identity, pin string) PINResult {
	if allowed, remaining := g.limiter.Check(identity); !allowed {
		return PINResult{
			Error:            true,
			Locked:           true,
			Detail:           fmt.Sprintf("Too many attempts. Try again in %d seconds.", remaining),
			RemainingSeconds: remaining,
		}
	}

	if len(g.pinHash) == 0 {
		return PINResult{Error: true, Detail: "PIN not configured on server"}
	}

	if err := bcrypt.CompareHashAndPassword(g.pinHash, []byte(pin)); err != nil {
		g.limiter.Record(identity, false)
		left := g.limiter.AttemptsLeft(identity)
		return PINResult{Error: true, Detail: "Incorrect PIN", AttemptsLeft: &left}
	}

	g.limiter.Record(identity, true)
	return PINResult{Success: true, SessionToken: g.issue()}
}

func (g *Gate) issue() string {
	token := uuid.NewString()

	g.mu.Lock()
	defer g.mu.Unlock()
	g.tokens[token] = g.now().Add(g.ttl)
	return token
}

// ValidToken reports whether token was issued and has not expired.
// Expired tokens are dropped as they are seen.
func (g *Gate) ValidToken(token string) bool {
	if token == "" {
		return false
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	expiry, ok := g.tokens[token]
	if !ok {
		return false
	}
	if !g.now().Before(expiry) {
		delete(g.tokens, token)
		return false
	}
	return true
}

// RememberState records the state handed to the bank with an authorization
// request so the callback can be matched to it.
func (g *Gate) RememberState(state string) {
	if state == "" {
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	for s, expiry := range g.states {
		if !now.Before(expiry) {
			delete(g.states, s)
		}
	}
	g.states[state] = now.Add(AuthStateTTL)
}

// ConsumeState reports whether state was remembered and is still fresh.
// A state can be consumed once.
func (g *Gate) ConsumeState(state string) bool {
	if state == "" {
		return false
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	expiry, ok := g.states[state]
	if !ok {
		return false
	}
	delete(g.states, state)
	return g.now().Before(expiry)
}
