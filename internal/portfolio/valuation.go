package portfolio

import (
	"time"

	"github.com/antoinecstl/finance-portfolio/internal/marketdata"
)

// ValueAccount computes the value of one account as of a date.
//
// Investment accounts are valued from the transaction log: ledger cash plus
// reconstructed positions priced by live quotes. When a symbol has no usable
// quote the stored position price steps in, and failing that the average
// cost, so a quote outage degrades the valuation instead of zeroing it.
//
// Savings accounts are a plain ledger fold. Only an account with no
// transactions at all falls back to its stored balance, and the result is
// tagged accordingly.
func ValueAccount(account Account, txs []Transaction, held []HeldPosition, quotes map[string]marketdata.Quote, asOf time.Time) AccountValue {
	own := make([]Transaction, 0, len(txs))
	for _, tx := range txs {
		if tx.AccountID == account.ID {
			own = append(own, tx)
		}
	}

	if len(own) == 0 {
		return AccountValue{
			AccountID:  account.ID,
			Cash:       account.Balance,
			TotalValue: account.Balance,
			Source:     SourceStoredFallback,
		}
	}

	value := AccountValue{
		AccountID: account.ID,
		Cash:      CashAsOf(own, asOf, account.ID),
		Source:    SourceComputed,
	}

	if account.Type.IsInvestment() {
		storedPrice := make(map[string]float64, len(held))
		for _, h := range held {
			storedPrice[h.Symbol] = h.CurrentPrice
		}
		positions, _ := PositionsAsOf(own, asOf, account.ID)
		for _, pos := range positions {
			value.StocksValue += pos.Quantity * positionPrice(pos, quotes, storedPrice)
		}
	}

	value.TotalValue = value.Cash + value.StocksValue
	return value
}

// AccountTotalValue is the scalar shortcut over ValueAccount.
func AccountTotalValue(account Account, txs []Transaction, held []HeldPosition, quotes map[string]marketdata.Quote, asOf time.Time) float64 {
	return ValueAccount(account, txs, held, quotes, asOf).TotalValue
}

func positionPrice(pos Position, quotes map[string]marketdata.Quote, storedPrice map[string]float64) float64 {
	if q, ok := quotes[pos.Symbol]; ok && q.Price > 0 {
		return q.Price
	}
	if p := storedPrice[pos.Symbol]; p > 0 {
		return p
	}
	return pos.AveragePrice
}
