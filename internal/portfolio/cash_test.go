package portfolio

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCashAsOfSignConventions(t *testing.T) {
	txs := []Transaction{
		tx("acc-1", Deposit, "2024-01-01", 1000),
		tx("acc-1", Interest, "2024-01-05", 20),
		tx("acc-1", Dividend, "2024-01-10", 30),
		stockTx("acc-1", Sell, "2024-01-15", "AAPL", 2, 50),
		tx("acc-1", Withdrawal, "2024-02-01", 200),
		tx("acc-1", Fee, "2024-02-05", 10),
		stockTx("acc-1", Buy, "2024-02-10", "AAPL", 3, 100),
	}

	// 1000 + 20 + 30 + 100 - 200 - 10 - 300
	assert.Equal(t, 640.0, CashAsOf(txs, day("2024-12-31"), "acc-1"))
}

func TestCashAsOfHonorsDateAndAccount(t *testing.T) {
	txs := []Transaction{
		tx("acc-1", Deposit, "2024-01-01", 1000),
		tx("acc-2", Deposit, "2024-01-01", 9999),
		tx("acc-1", Withdrawal, "2024-06-01", 400),
	}

	assert.Equal(t, 1000.0, CashAsOf(txs, day("2024-05-31"), "acc-1"))
	// The cutoff day itself counts.
	assert.Equal(t, 600.0, CashAsOf(txs, day("2024-06-01"), "acc-1"))
}

func TestCashAsOfCanGoNegative(t *testing.T) {
	txs := []Transaction{
		tx("acc-1", Deposit, "2024-01-01", 100),
		stockTx("acc-1", Buy, "2024-01-02", "AAPL", 3, 100),
	}

	assert.Equal(t, -200.0, CashAsOf(txs, day("2024-12-31"), "acc-1"))
}

func TestBalanceAsOfSeed(t *testing.T) {
	txs := []Transaction{
		tx("acc-1", Interest, "2024-01-01", 50),
	}

	assert.Equal(t, 1050.0, BalanceAsOf(txs, day("2024-12-31"), "acc-1", 1000))
}

func TestCashAsOfEmptyLog(t *testing.T) {
	assert.Equal(t, 0.0, CashAsOf(nil, day("2024-12-31"), "acc-1"))
}
