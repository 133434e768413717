package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// ListAccounts returns every account owned by the authenticated user.
func (c *Client) ListAccounts(ctx context.Context) ([]Account, error) {
	var out struct {
		Accounts []Account `json:"accounts"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/accounts", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Accounts, nil
}

// GetAccount returns one account by ID.
func (c *Client) GetAccount(ctx context.Context, id string) (*Account, error) {
	if id == "" {
		return nil, fmt.Errorf("account id is required")
	}
	var out Account
	if err := c.do(ctx, http.MethodGet, "/v1/accounts/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListHoldings returns open positions, optionally filtered to one account.
func (c *Client) ListHoldings(ctx context.Context, accountID string) ([]Holding, error) {
	var query url.Values
	if accountID != "" {
		query = url.Values{"account": []string{accountID}}
	}
	var out struct {
		Holdings []Holding `json:"holdings"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/holdings", query, nil, &out); err != nil {
		return nil, err
	}
	return out.Holdings, nil
}

// TransactionFilter narrows a transaction listing. Zero values mean no filter.
type TransactionFilter struct {
	AccountID string
	Type      string
	Limit     int
}

// ListTransactions returns recorded transactions, newest first.
func (c *Client) ListTransactions(ctx context.Context, filter TransactionFilter) ([]Transaction, error) {
	query := url.Values{}
	if filter.AccountID != "" {
		query.Set("account", filter.AccountID)
	}
	if filter.Type != "" {
		query.Set("type", filter.Type)
	}
	if filter.Limit > 0 {
		query.Set("limit", strconv.Itoa(filter.Limit))
	}

	var out struct {
		Transactions []Transaction `json:"transactions"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/transactions", query, nil, &out); err != nil {
		return nil, err
	}
	return out.Transactions, nil
}

// CreateTransactionParams are the fields required to record a transaction.
type CreateTransactionParams struct {
	AccountID string          `json:"account_id"`
	Type      string          `json:"type"`
	Symbol    string          `json:"symbol,omitempty"`
	Quantity  decimal.Decimal `json:"quantity"`
	Amount    *money.Money    `json:"amount"`
	Note      string          `json:"note,omitempty"`
}

// CreateTransaction records a new transaction and returns it as stored.
func (c *Client) CreateTransaction(ctx context.Context, params CreateTransactionParams) (*Transaction, error) {
	if params.AccountID == "" {
		return nil, fmt.Errorf("account id is required")
	}
	if params.Type == "" {
		return nil, fmt.Errorf("transaction type is required")
	}
	var out Transaction
	if err := c.do(ctx, http.MethodPost, "/v1/transactions", nil, params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteTransaction removes a transaction by ID.
func (c *Client) DeleteTransaction(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("transaction id is required")
	}
	return c.do(ctx, http.MethodDelete, "/v1/transactions/"+url.PathEscape(id), nil, nil, nil)
}

// Summary returns the dashboard roll-up across all accounts.
func (c *Client) Summary(ctx context.Context) (*Summary, error) {
	var out Summary
	if err := c.do(ctx, http.MethodGet, "/v1/summary", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
