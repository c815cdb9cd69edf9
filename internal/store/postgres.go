package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/antoinecstl/finance-portfolio/internal/portfolio"
	"github.com/antoinecstl/finance-portfolio/internal/utils"
)

// PostgresStore implements Store on top of database/sql with the pq driver.
type PostgresStore struct {
	db     *sql.DB
	logger utils.Logger
}

func NewPostgresStore(db *sql.DB, logger utils.Logger) *PostgresStore {
	return &PostgresStore{db: db, logger: logger}
}

func (s *PostgresStore) ListAccounts(userID string) ([]portfolio.Account, error) {
	rows, err := s.db.Query(`
		SELECT id, name, type, balance, currency, created_at, updated_at
		FROM accounts
		WHERE user_id = $1
		ORDER BY created_at ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	accounts := []portfolio.Account{}
	for rows.Next() {
		var a portfolio.Account
		if err := rows.Scan(&a.ID, &a.Name, &a.Type, &a.Balance, &a.Currency, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (s *PostgresStore) GetAccount(userID, accountID string) (*portfolio.Account, error) {
	var a portfolio.Account
	err := s.db.QueryRow(`
		SELECT id, name, type, balance, currency, created_at, updated_at
		FROM accounts
		WHERE user_id = $1 AND id = $2
	`, userID, accountID).Scan(&a.ID, &a.Name, &a.Type, &a.Balance, &a.Currency, &a.CreatedAt, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &a, nil
}

func (s *PostgresStore) CreateAccount(userID string, account *portfolio.Account) error {
	if account.ID == "" {
		account.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	account.CreatedAt = now
	account.UpdatedAt = now

	_, err := s.db.Exec(`
		INSERT INTO accounts (id, user_id, name, type, balance, currency, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, account.ID, userID, account.Name, account.Type, account.Balance, account.Currency, account.CreatedAt, account.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateAccount(userID string, account *portfolio.Account) error {
	account.UpdatedAt = time.Now().UTC()
	result, err := s.db.Exec(`
		UPDATE accounts
		SET name = $3, type = $4, balance = $5, currency = $6, updated_at = $7
		WHERE user_id = $1 AND id = $2
	`, userID, account.ID, account.Name, account.Type, account.Balance, account.Currency, account.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}
	return s.requireRow(result)
}

// DeleteAccount removes an account together with its transactions and cached
// positions.
func (s *PostgresStore) DeleteAccount(userID, accountID string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM positions WHERE user_id = $1 AND account_id = $2`, userID, accountID); err != nil {
		return fmt.Errorf("failed to delete positions: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM transactions WHERE user_id = $1 AND account_id = $2`, userID, accountID); err != nil {
		return fmt.Errorf("failed to delete transactions: %w", err)
	}
	result, err := tx.Exec(`DELETE FROM accounts WHERE user_id = $1 AND id = $2`, userID, accountID)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	if err := s.requireRow(result); err != nil {
		return err
	}
	return tx.Commit()
}

const transactionColumns = `
	id, account_id, type, amount,
	COALESCE(description, '') as description,
	date,
	COALESCE(stock_symbol, '') as stock_symbol,
	COALESCE(quantity, 0) as quantity,
	COALESCE(price_per_unit, 0) as price_per_unit,
	created_at`

func (s *PostgresStore) ListTransactions(userID string) ([]portfolio.Transaction, error) {
	rows, err := s.db.Query(`
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE user_id = $1
		ORDER BY date ASC, created_at ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return scanTransactions(rows)
}

func (s *PostgresStore) ListAccountTransactions(userID, accountID string) ([]portfolio.Transaction, error) {
	rows, err := s.db.Query(`
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE user_id = $1 AND account_id = $2
		ORDER BY date ASC, created_at ASC
	`, userID, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list account transactions: %w", err)
	}
	return scanTransactions(rows)
}

func scanTransactions(rows *sql.Rows) ([]portfolio.Transaction, error) {
	defer rows.Close()

	txs := []portfolio.Transaction{}
	for rows.Next() {
		var t portfolio.Transaction
		err := rows.Scan(
			&t.ID, &t.AccountID, &t.Type, &t.Amount,
			&t.Description, &t.Date,
			&t.Symbol, &t.Quantity, &t.PricePerUnit,
			&t.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

func (s *PostgresStore) CreateTransaction(userID string, tx *portfolio.Transaction) error {
	if tx.ID == "" {
		tx.ID = uuid.New().String()
	}
	tx.CreatedAt = time.Now().UTC()

	// Optional stock fields are stored as NULLs, not zero values.
	var symbol, quantity, price interface{}
	if tx.Symbol != "" {
		symbol = tx.Symbol
		quantity = tx.Quantity
		price = tx.PricePerUnit
	}

	_, err := s.db.Exec(`
		INSERT INTO transactions (id, user_id, account_id, type, amount, description, date, stock_symbol, quantity, price_per_unit, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, tx.ID, userID, tx.AccountID, tx.Type, tx.Amount, tx.Description, tx.Date, symbol, quantity, price, tx.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteTransaction(userID, transactionID string) error {
	result, err := s.db.Exec(`
		DELETE FROM transactions WHERE user_id = $1 AND id = $2
	`, userID, transactionID)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	return s.requireRow(result)
}

func (s *PostgresStore) ListPositions(userID, accountID string) ([]portfolio.HeldPosition, error) {
	rows, err := s.db.Query(`
		SELECT symbol, quantity, COALESCE(current_price, 0) as current_price
		FROM positions
		WHERE user_id = $1 AND account_id = $2
		ORDER BY symbol ASC
	`, userID, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list positions: %w", err)
	}
	defer rows.Close()

	positions := []portfolio.HeldPosition{}
	for rows.Next() {
		var p portfolio.HeldPosition
		if err := rows.Scan(&p.Symbol, &p.Quantity, &p.CurrentPrice); err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		positions = append(positions, p)
	}
	return positions, rows.Err()
}

func (s *PostgresStore) UpsertPosition(userID, accountID string, position portfolio.HeldPosition) error {
	_, err := s.db.Exec(`
		INSERT INTO positions (user_id, account_id, symbol, quantity, current_price, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, account_id, symbol)
		DO UPDATE SET quantity = EXCLUDED.quantity, current_price = EXCLUDED.current_price, updated_at = EXCLUDED.updated_at
	`, userID, accountID, position.Symbol, position.Quantity, position.CurrentPrice, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to upsert position: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeletePosition(userID, accountID, symbol string) error {
	result, err := s.db.Exec(`
		DELETE FROM positions WHERE user_id = $1 AND account_id = $2 AND symbol = $3
	`, userID, accountID, symbol)
	if err != nil {
		return fmt.Errorf("failed to delete position: %w", err)
	}
	return s.requireRow(result)
}

func (s *PostgresStore) requireRow(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
