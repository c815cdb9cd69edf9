package portfolio

import "time"

// cashEffect returns the signed cash impact of one transaction. Amounts are
// stored as magnitudes; the type carries the sign. Unknown types contribute
// nothing.
func cashEffect(tx Transaction) float64 {
	switch tx.Type {
	case Deposit, Dividend, Interest, Sell:
		return tx.Amount
	case Withdrawal, Fee, Buy:
		return -tx.Amount
	}
	return 0
}

// CashAsOf folds the signed cash effects of one account's transactions up to
// and including asOf, starting from zero. The balance is allowed to go
// negative: the ledger reports what the log implies and leaves policy to the
// caller.
func CashAsOf(txs []Transaction, asOf time.Time, accountID string) float64 {
	return BalanceAsOf(txs, asOf, accountID, 0)
}

// BalanceAsOf is CashAsOf with an explicit seed, used when a stored balance
// predates the transaction history.
func BalanceAsOf(txs []Transaction, asOf time.Time, accountID string, seed float64) float64 {
	cutoff := Date(asOf)
	balance := seed
	for _, tx := range txs {
		if accountID != "" && tx.AccountID != accountID {
			continue
		}
		if Date(tx.Date).After(cutoff) {
			continue
		}
		balance += cashEffect(tx)
	}
	return balance
}
