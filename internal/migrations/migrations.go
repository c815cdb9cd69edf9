package migrations

import (
	"database/sql"
	"fmt"
	"log"
)

type Migration struct {
	Version     int
	Description string
	Func        func(*sql.DB) error
}

var Migrations = []Migration{
	{
		Version:     1,
		Description: "Create accounts, transactions and positions tables",
		Func:        CreatePortfolioSchema,
	},
	{
		Version:     2,
		Description: "Add description to transactions",
		Func:        AddTransactionDescription,
	},
	// Add future migrations here
}

// CreateMigrationsTable creates the migrations table if it doesn't exist
func CreateMigrationsTable(db *sql.DB) error {
	_, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS schema_migrations (
            version INTEGER PRIMARY KEY,
            description TEXT NOT NULL,
            applied_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        );
    `)
	return err
}

// RunMigrations runs all pending migrations
func RunMigrations(db *sql.DB) error {
	if err := CreateMigrationsTable(db); err != nil {
		return fmt.Errorf("failed to create migrations table: %v", err)
	}

	// Get applied migrations
	rows, err := db.Query("SELECT version FROM schema_migrations")
	if err != nil {
		return fmt.Errorf("failed to get applied migrations: %v", err)
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return fmt.Errorf("failed to scan migration version: %v", err)
		}
		applied[version] = true
	}

	// Run pending migrations
	for _, migration := range Migrations {
		if !applied[migration.Version] {
			log.Printf("Running migration %d: %s", migration.Version, migration.Description)

			if err := migration.Func(db); err != nil {
				return fmt.Errorf("migration %d failed: %v", migration.Version, err)
			}

			_, err := db.Exec(
				"INSERT INTO schema_migrations (version, description) VALUES ($1, $2)",
				migration.Version,
				migration.Description,
			)
			if err != nil {
				return fmt.Errorf("failed to record migration %d: %v", migration.Version, err)
			}

			log.Printf("Migration %d completed successfully", migration.Version)
		}
	}

	return nil
}

// CreatePortfolioSchema creates the base tables. Positions are a derived
// cache: the transactions table is the source of truth.
func CreatePortfolioSchema(db *sql.DB) error {
	_, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS accounts (
            id UUID PRIMARY KEY,
            user_id TEXT NOT NULL,
            name TEXT NOT NULL,
            type TEXT NOT NULL,
            balance NUMERIC(18, 4) NOT NULL DEFAULT 0,
            currency TEXT NOT NULL DEFAULT 'EUR',
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        );
        CREATE INDEX IF NOT EXISTS idx_accounts_user ON accounts(user_id);

        CREATE TABLE IF NOT EXISTS transactions (
            id UUID PRIMARY KEY,
            user_id TEXT NOT NULL,
            account_id UUID NOT NULL REFERENCES accounts(id),
            type TEXT NOT NULL,
            amount NUMERIC(18, 4) NOT NULL,
            date DATE NOT NULL,
            stock_symbol TEXT,
            quantity NUMERIC(18, 6),
            price_per_unit NUMERIC(18, 6),
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        );
        CREATE INDEX IF NOT EXISTS idx_transactions_user ON transactions(user_id);
        CREATE INDEX IF NOT EXISTS idx_transactions_account_date ON transactions(account_id, date);

        CREATE TABLE IF NOT EXISTS positions (
            user_id TEXT NOT NULL,
            account_id UUID NOT NULL REFERENCES accounts(id),
            symbol TEXT NOT NULL,
            quantity NUMERIC(18, 6) NOT NULL,
            current_price NUMERIC(18, 6),
            updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
            PRIMARY KEY (user_id, account_id, symbol)
        );
    `)
	return err
}

// AddTransactionDescription adds the free-text description column.
func AddTransactionDescription(db *sql.DB) error {
	_, err := db.Exec(`
        ALTER TABLE transactions
        ADD COLUMN IF NOT EXISTS description TEXT;
    `)
	return err
}

// RollbackLastMigration drops whatever the latest migration created and
// removes its record. Only meant for development databases.
func RollbackLastMigration(db *sql.DB) error {
	var lastVersion int
	err := db.QueryRow(`
        SELECT version FROM schema_migrations
        ORDER BY version DESC LIMIT 1
    `).Scan(&lastVersion)
	if err != nil {
		return fmt.Errorf("failed to get last migration: %v", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	switch lastVersion {
	case 1:
		_, err = tx.Exec(`
            DROP TABLE IF EXISTS positions;
            DROP TABLE IF EXISTS transactions;
            DROP TABLE IF EXISTS accounts;
        `)
	case 2:
		_, err = tx.Exec(`
            ALTER TABLE transactions
            DROP COLUMN IF EXISTS description;
        `)
	default:
		return fmt.Errorf("no rollback defined for migration %d", lastVersion)
	}
	if err != nil {
		return err
	}

	_, err = tx.Exec(`
        DELETE FROM schema_migrations
        WHERE version = $1
    `, lastVersion)
	if err != nil {
		return err
	}

	return tx.Commit()
}
