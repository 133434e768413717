package api

import (
	"time"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Account is one investment account owned by the authenticated user.
type Account struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Currency  string       `json:"currency"`
	Balance   *money.Money `json:"balance"`
	CreatedAt time.Time    `json:"created_at"`
}

// Holding is one open position within an account.
type Holding struct {
	AccountID   string          `json:"account_id"`
	Symbol      string          `json:"symbol"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   *money.Money    `json:"unit_price"`
	MarketValue *money.Money    `json:"market_value"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Transaction types accepted by the server.
const (
	TransactionBuy      = "buy"
	TransactionSell     = "sell"
	TransactionDividend = "dividend"
	TransactionDeposit  = "deposit"
	TransactionWithdraw = "withdraw"
)

// Transaction is one recorded account movement.
type Transaction struct {
	ID         string          `json:"id"`
	AccountID  string          `json:"account_id"`
	Type       string          `json:"type"`
	Symbol     string          `json:"symbol,omitempty"`
	Quantity   decimal.Decimal `json:"quantity"`
	Amount     *money.Money    `json:"amount"`
	Note       string          `json:"note,omitempty"`
	ExecutedAt time.Time       `json:"executed_at"`
}

// Summary is the dashboard roll-up across all accounts.
type Summary struct {
	TotalValue *money.Money `json:"total_value"`
	DayChange  *money.Money `json:"day_change"`
	Accounts   int          `json:"accounts"`
	Positions  int          `json:"positions"`
	AsOf       time.Time    `json:"as_of"`
}
