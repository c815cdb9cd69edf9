// Package store persists accounts, transactions and cached positions in
// PostgreSQL. Every row belongs to a user; all queries are scoped by user id
// so one user can never read another's data.
package store

import (
	"errors"

	"github.com/antoinecstl/finance-portfolio/internal/portfolio"
)

// ErrNotFound is returned when a requested row does not exist or belongs to
// another user.
var ErrNotFound = errors.New("store: not found")

// Store is the persistence surface the API server depends on.
//
// Transactions come back ordered by effective date ascending, then creation
// time: the replay engines rely on that order for same-day transactions.
type Store interface {
	ListAccounts(userID string) ([]portfolio.Account, error)
	GetAccount(userID, accountID string) (*portfolio.Account, error)
	CreateAccount(userID string, account *portfolio.Account) error
	UpdateAccount(userID string, account *portfolio.Account) error
	DeleteAccount(userID, accountID string) error

	ListTransactions(userID string) ([]portfolio.Transaction, error)
	ListAccountTransactions(userID, accountID string) ([]portfolio.Transaction, error)
	CreateTransaction(userID string, tx *portfolio.Transaction) error
	DeleteTransaction(userID, transactionID string) error

	ListPositions(userID, accountID string) ([]portfolio.HeldPosition, error)
	UpsertPosition(userID, accountID string, position portfolio.HeldPosition) error
	DeletePosition(userID, accountID, symbol string) error
}
