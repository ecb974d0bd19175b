package enablebanking

import (
	"bytes"
	"encoding/json"
)

// RawAmount keeps the amount text exactly as received. The gateway sends
// strings, but bare JSON numbers are accepted too.
type RawAmount string

func (r *RawAmount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*r = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*r = RawAmount(s)
		return nil
	}
	*r = RawAmount(b)
	return nil
}

type AmountType struct {
	Currency string    `json:"currency"`
	Amount   RawAmount `json:"amount"`
}

type Balance struct {
	Name          string     `json:"name,omitempty"`
	BalanceAmount AmountType `json:"balance_amount"`
	BalanceType   string     `json:"balance_type"`
	ReferenceDate string     `json:"reference_date,omitempty"`
}

type BalancesResponse struct {
	Balances []Balance `json:"balances"`
}

type Transaction struct {
	EntryReference          string      `json:"entry_reference,omitempty"`
	TransactionAmount       AmountType  `json:"transaction_amount"`
	CreditDebitIndicator    string      `json:"credit_debit_indicator"`
	Status                  string      `json:"status,omitempty"`
	BookingDate             string      `json:"booking_date"`
	ValueDate               string      `json:"value_date,omitempty"`
	BalanceAfterTransaction *AmountType `json:"balance_after_transaction,omitempty"`
}

type TransactionsPage struct {
	Transactions    []Transaction `json:"transactions"`
	ContinuationKey string        `json:"continuation_key,omitempty"`
}

type Access struct {
	ValidUntil string `json:"valid_until"`
}

type ASPSP struct {
	Name    string `json:"name"`
	Country string `json:"country"`
}

type AuthRequest struct {
	Access      Access `json:"access"`
	ASPSP       ASPSP  `json:"aspsp"`
	State       string `json:"state"`
	RedirectURL string `json:"redirect_url"`
	PSUType     string `json:"psu_type"`
}

type AuthResponse struct {
	URL             string `json:"url"`
	AuthorizationID string `json:"authorization_id,omitempty"`
}

type Account struct {
	UID      string `json:"uid"`
	Currency string `json:"currency,omitempty"`
	Name     string `json:"name,omitempty"`
}

type SessionResponse struct {
	SessionID string    `json:"session_id"`
	Accounts  []Account `json:"accounts"`
	Access    Access    `json:"access"`
}

// preferredBalanceTypes in order of preference
var preferredBalanceTypes = []string{"expected", "available", "closingBooked"}

// SelectBalance picks the balance reported under the most preferred type,
// falling back to the first entry.
func SelectBalance(balances []Balance) (Balance, bool) {
	if len(balances) == 0 {
		return Balance{}, false
	}
	for _, want := range preferredBalanceTypes {
		for _, b := range balances {
			if b.BalanceType == want {
				return b, true
			}
		}
	}
	return balances[0], true
}
