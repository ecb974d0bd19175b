package models

import "github.com/shopspring/decimal"

// ComparisonData is the current balance set against historical statistics
type ComparisonData struct {
	CurrentBalance          decimal.Decimal  `json:"current_balance"`
	Currency                string           `json:"currency"`
	Date                    string           `json:"date,omitempty"`
	DayOfMonth              int              `json:"day_of_month"`
	Median                  *decimal.Decimal `json:"median"`
	Average                 *decimal.Decimal `json:"average"`
	MedianWindowMonths      int              `json:"median_window_months"`
	AverageWindowMonths     int              `json:"average_window_months"`
	HistoricalDataAvailable bool             `json:"historical_data_available"`
	Message                 string           `json:"message,omitempty"`
}
