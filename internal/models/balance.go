package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DailyBalance is the closing balance recorded for one calendar date
type DailyBalance struct {
	RecordedDate  time.Time       `json:"recorded_date"`
	BalanceAmount decimal.Decimal `json:"balance_amount"`
	Currency      string          `json:"currency"`
}

// Balance is the live balance reported by the bank gateway
type Balance struct {
	Amount        decimal.Decimal `json:"balance"`
	Currency      string          `json:"currency"`
	Type          string          `json:"type"`
	ReferenceDate string          `json:"date,omitempty"`
}
