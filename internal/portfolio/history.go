package portfolio

import (
	"sort"
	"time"

	"github.com/antoinecstl/finance-portfolio/internal/marketdata"
)

// BuildHistory values the whole portfolio at every generated date between
// start and end and returns the points in chronological order. The final
// point always lands exactly on end, whatever the stepping.
//
// Stock positions are priced with the closest available close on or before
// each date; a symbol with no series at all is carried at its average cost so
// it never vanishes from the chart. Savings balances are refolded from the
// transaction log at each date. The function is deterministic: it performs no
// I/O and two calls over the same inputs return identical slices.
func BuildHistory(accounts []Account, txs []Transaction, series QuoteSeries, start, end time.Time, interval marketdata.Interval) []HistoryPoint {
	start, end = Date(start), Date(end)
	if start.After(end) {
		return nil
	}

	var investmentTxs []Transaction
	var savingsTxs []Transaction
	investment := make(map[string]bool, len(accounts))
	for _, a := range accounts {
		if a.Type.IsInvestment() {
			investment[a.ID] = true
		}
	}
	for _, tx := range txs {
		if investment[tx.AccountID] {
			investmentTxs = append(investmentTxs, tx)
		} else {
			savingsTxs = append(savingsTxs, tx)
		}
	}

	var points []HistoryPoint
	for _, date := range historyDates(start, end, interval) {
		point := HistoryPoint{Date: date}

		point.StocksValue = CashAsOf(investmentTxs, date, "")
		positions, _ := AllPositionsAsOf(investmentTxs, date)
		for sym, pos := range AggregateBySymbol(positions) {
			detail := PositionDetail{
				Symbol:   sym,
				Quantity: pos.Quantity,
				Price:    pos.AveragePrice,
				Source:   PriceAverageCost,
			}
			if q := marketdata.ClosestQuote(series[sym], date); q != nil {
				detail.Price = q.Close
				detail.Source = PriceClose
			}
			detail.Value = detail.Quantity * detail.Price
			point.StocksValue += detail.Value
			point.Positions = append(point.Positions, detail)
		}
		sort.Slice(point.Positions, func(i, j int) bool {
			return point.Positions[i].Symbol < point.Positions[j].Symbol
		})

		point.SavingsValue = CashAsOf(savingsTxs, date, "")
		point.TotalValue = point.StocksValue + point.SavingsValue
		points = append(points, point)
	}
	return points
}

// historyDates generates the sampling dates from start to end inclusive.
func historyDates(start, end time.Time, interval marketdata.Interval) []time.Time {
	var dates []time.Time
	for d := start; !d.After(end); d = nextDate(d, interval) {
		dates = append(dates, d)
	}
	if last := dates[len(dates)-1]; !last.Equal(end) {
		dates = append(dates, end)
	}
	return dates
}

func nextDate(d time.Time, interval marketdata.Interval) time.Time {
	switch interval {
	case marketdata.Weekly:
		return d.AddDate(0, 0, 7)
	case marketdata.Monthly:
		return d.AddDate(0, 1, 0)
	default:
		return d.AddDate(0, 0, 1)
	}
}
