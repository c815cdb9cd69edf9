package api

import (
	"fmt"
	"time"

	"github.com/antoinecstl/finance-portfolio/internal/portfolio"
)

// AccountRequest represents the incoming account create/update payload
type AccountRequest struct {
	Name     string                `json:"name"`
	Type     portfolio.AccountType `json:"type"`
	Balance  float64               `json:"balance"`
	Currency string                `json:"currency"`
}

// Validate checks if the account request is valid
func (r *AccountRequest) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("account name is required")
	}
	if !r.Type.Valid() {
		return fmt.Errorf("invalid account type: %s", r.Type)
	}
	if r.Balance < 0 {
		return fmt.Errorf("balance cannot be negative")
	}
	return nil
}

// TransactionRequest represents the incoming transaction request. The account
// comes from the URL path, not the payload.
type TransactionRequest struct {
	Type         portfolio.TransactionType `json:"type"`
	Amount       float64                   `json:"amount"`
	Description  string                    `json:"description"`
	Date         string                    `json:"date"`
	Symbol       string                    `json:"stock_symbol"`
	Quantity     float64                   `json:"quantity"`
	PricePerUnit float64                   `json:"price_per_unit"`
}

// Validate checks if the transaction request is valid
func (r *TransactionRequest) Validate() error {
	if _, err := r.ParseDate(); err != nil {
		return fmt.Errorf("date must be in YYYY-MM-DD format")
	}

	switch r.Type {
	case portfolio.Buy, portfolio.Sell:
		if r.Symbol == "" {
			return fmt.Errorf("stock_symbol is required for %s transactions", r.Type)
		}
		if r.Quantity <= 0 {
			return fmt.Errorf("quantity must be positive for %s transactions", r.Type)
		}
		if r.PricePerUnit <= 0 {
			return fmt.Errorf("price_per_unit must be positive for %s transactions", r.Type)
		}
	case portfolio.Deposit, portfolio.Withdrawal, portfolio.Dividend, portfolio.Interest, portfolio.Fee:
		if r.Amount <= 0 {
			return fmt.Errorf("amount must be positive for %s transactions", r.Type)
		}
	default:
		return fmt.Errorf("invalid transaction type: %s", r.Type)
	}
	return nil
}

// ParseDate parses the effective date of the transaction.
func (r *TransactionRequest) ParseDate() (time.Time, error) {
	return time.Parse("2006-01-02", r.Date)
}

// ToTransaction converts the request into a transaction. BUY and SELL amounts
// are derived from quantity and price so the stored amount always matches.
func (r *TransactionRequest) ToTransaction(accountID string) portfolio.Transaction {
	date, _ := r.ParseDate()
	tx := portfolio.Transaction{
		AccountID:   accountID,
		Type:        r.Type,
		Amount:      r.Amount,
		Description: r.Description,
		Date:        date,
	}
	if r.Type == portfolio.Buy || r.Type == portfolio.Sell {
		tx.Symbol = r.Symbol
		tx.Quantity = r.Quantity
		tx.PricePerUnit = r.PricePerUnit
		tx.Amount = r.Quantity * r.PricePerUnit
	} else if r.Type == portfolio.Dividend && r.Symbol != "" {
		tx.Symbol = r.Symbol
	}
	return tx
}

// PositionsResponse is the reconstructed portfolio view.
type PositionsResponse struct {
	Positions []PositionView           `json:"positions"`
	Oversold  []portfolio.OversoldSell `json:"oversold_sells,omitempty"`
}

// PositionView decorates a reconstructed position with market data.
type PositionView struct {
	portfolio.AccountPosition
	CurrentPrice    float64 `json:"current_price,omitempty"`
	CurrentValue    float64 `json:"current_value,omitempty"`
	GainLoss        float64 `json:"gain_loss,omitempty"`
	GainLossPercent float64 `json:"gain_loss_percent,omitempty"`
}
