package portfolio

import (
	"sort"
	"time"
)

// sortByDate orders transactions by effective date ascending. The sort is
// stable so same-day transactions keep their input order, which the callers
// arrange to be insertion order.
func sortByDate(txs []Transaction) []Transaction {
	sorted := make([]Transaction, len(txs))
	copy(sorted, txs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})
	return sorted
}

// PositionsAsOf replays BUY and SELL transactions of one account up to and
// including asOf and returns the open positions keyed by symbol, plus a
// record of every SELL that exceeded the reconstructed quantity.
//
// A BUY folds into the volume-weighted average purchase price. A SELL keeps
// the average price untouched and only reduces quantity; selling everything
// removes the symbol entirely, so a later BUY starts a fresh cost basis. A
// SELL for more than is held (or with no prior BUY) is clamped at zero and
// reported, never made negative.
func PositionsAsOf(txs []Transaction, asOf time.Time, accountID string) (map[string]Position, []OversoldSell) {
	positions := make(map[string]Position)
	var oversold []OversoldSell

	cutoff := Date(asOf)
	for _, tx := range sortByDate(txs) {
		if accountID != "" && tx.AccountID != accountID {
			continue
		}
		if Date(tx.Date).After(cutoff) {
			break
		}
		if tx.Symbol == "" {
			continue
		}

		switch tx.Type {
		case Buy:
			pos := positions[tx.Symbol]
			newQuantity := pos.Quantity + tx.Quantity
			newInvested := pos.TotalInvested + tx.Quantity*tx.PricePerUnit
			positions[tx.Symbol] = Position{
				Symbol:        tx.Symbol,
				Quantity:      newQuantity,
				AveragePrice:  newInvested / newQuantity,
				TotalInvested: newInvested,
			}
		case Sell:
			pos, ok := positions[tx.Symbol]
			if !ok {
				oversold = append(oversold, OversoldSell{
					AccountID: tx.AccountID,
					Symbol:    tx.Symbol,
					Date:      Date(tx.Date),
					Requested: tx.Quantity,
					Held:      0,
				})
				continue
			}
			if tx.Quantity > pos.Quantity {
				oversold = append(oversold, OversoldSell{
					AccountID: tx.AccountID,
					Symbol:    tx.Symbol,
					Date:      Date(tx.Date),
					Requested: tx.Quantity,
					Held:      pos.Quantity,
				})
			}
			remaining := pos.Quantity - tx.Quantity
			if remaining <= 0 {
				delete(positions, tx.Symbol)
				continue
			}
			positions[tx.Symbol] = Position{
				Symbol:        tx.Symbol,
				Quantity:      remaining,
				AveragePrice:  pos.AveragePrice,
				TotalInvested: remaining * pos.AveragePrice,
			}
		}
	}

	return positions, oversold
}

// AllPositionsAsOf reconstructs positions per account across the whole
// transaction set. Positions never cross account boundaries: the same symbol
// held in two accounts yields two entries.
func AllPositionsAsOf(txs []Transaction, asOf time.Time) ([]AccountPosition, []OversoldSell) {
	byAccount := make(map[string][]Transaction)
	var order []string
	for _, tx := range txs {
		if _, seen := byAccount[tx.AccountID]; !seen {
			order = append(order, tx.AccountID)
		}
		byAccount[tx.AccountID] = append(byAccount[tx.AccountID], tx)
	}
	sort.Strings(order)

	var all []AccountPosition
	var oversold []OversoldSell
	for _, accountID := range order {
		positions, bad := PositionsAsOf(byAccount[accountID], asOf, accountID)
		oversold = append(oversold, bad...)
		for _, sym := range sortedSymbols(positions) {
			all = append(all, AccountPosition{Position: positions[sym], AccountID: accountID})
		}
	}
	return all, oversold
}

// AggregateBySymbol merges per-account positions of the same symbol into one
// consolidated position with a blended volume-weighted average price.
func AggregateBySymbol(positions []AccountPosition) map[string]Position {
	merged := make(map[string]Position)
	for _, p := range positions {
		agg := merged[p.Symbol]
		quantity := agg.Quantity + p.Quantity
		invested := agg.TotalInvested + p.TotalInvested
		merged[p.Symbol] = Position{
			Symbol:        p.Symbol,
			Quantity:      quantity,
			AveragePrice:  invested / quantity,
			TotalInvested: invested,
		}
	}
	return merged
}

// UniqueSymbols returns the distinct stock symbols referenced by txs, sorted.
func UniqueSymbols(txs []Transaction) []string {
	seen := make(map[string]bool)
	var symbols []string
	for _, tx := range txs {
		if tx.Symbol != "" && !seen[tx.Symbol] {
			seen[tx.Symbol] = true
			symbols = append(symbols, tx.Symbol)
		}
	}
	sort.Strings(symbols)
	return symbols
}

// FirstTransactionDate returns the earliest effective date in txs, or the
// zero time when txs is empty.
func FirstTransactionDate(txs []Transaction) time.Time {
	var first time.Time
	for _, tx := range txs {
		d := Date(tx.Date)
		if first.IsZero() || d.Before(first) {
			first = d
		}
	}
	return first
}

func sortedSymbols(positions map[string]Position) []string {
	symbols := make([]string, 0, len(positions))
	for sym := range positions {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)
	return symbols
}
