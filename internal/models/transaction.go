package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Indicator tells whether a transaction credited or debited the account
type Indicator string

const (
	Credit Indicator = "CRDT"
	Debit  Indicator = "DBIT"
)

// ParseIndicator maps the gateway's indicator to Credit or Debit.
// Anything that is not a credit is treated as a debit.
func ParseIndicator(s string) Indicator {
	switch s {
	case "CRDT", "CREDIT", "credit":
		return Credit
	default:
		return Debit
	}
}

// Transaction is a booked bank transaction as used by reconciliation.
// Amount.Valid is false when the feed value failed numeric validation.
// BalanceAfter is nil when the gateway did not report a post-transaction balance.
type Transaction struct {
	BookingDate  time.Time
	Amount       decimal.NullDecimal
	Indicator    Indicator
	BalanceAfter *decimal.NullDecimal
	Currency     string
}

// HasBalanceAfter reports whether the gateway sent a post-transaction balance
func (t Transaction) HasBalanceAfter() bool {
	return t.BalanceAfter != nil
}
