package models

import "time"

// Session is a bank gateway session linked to the tracked account
type Session struct {
	ID         int64     `json:"-"`
	SessionID  string    `json:"session_id"`
	AccountUID string    `json:"account_uid"`
	ExpiryDate time.Time `json:"expiry_date"`
	CreatedAt  time.Time `json:"created_at"`
}

// Active reports whether the session has not expired at now
func (s Session) Active(now time.Time) bool {
	return s.ExpiryDate.After(now)
}
