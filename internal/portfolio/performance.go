package portfolio

import (
	"sort"
	"time"
)

// PortfolioPerformance computes the attribution report over the investment
// accounts. history must cover the period of interest (its last point is the
// current value) and now decides which yearly entry is flagged as the year in
// progress.
//
// Dividends raise the cash of their account, so they are already inside every
// valuation. They are totalled for display but never added to a gain figure a
// second time, and they are excluded from the Modified Dietz flow weighting
// for the same reason.
func PortfolioPerformance(accounts []Account, txs []Transaction, history []HistoryPoint, now time.Time) PerformanceData {
	result := PerformanceData{YearlyPerformance: []YearlyPerformance{}}
	if len(history) == 0 {
		return result
	}

	investment := make(map[string]bool, len(accounts))
	for _, a := range accounts {
		if a.Type.IsInvestment() {
			investment[a.ID] = true
		}
	}
	var stockTxs []Transaction
	for _, tx := range txs {
		if investment[tx.AccountID] {
			stockTxs = append(stockTxs, tx)
		}
	}

	for _, tx := range stockTxs {
		switch tx.Type {
		case Deposit:
			result.TotalDeposits += tx.Amount
		case Withdrawal:
			result.TotalWithdrawals += tx.Amount
		case Dividend:
			result.TotalDividends += tx.Amount
		}
	}

	result.NetDeposits = result.TotalDeposits - result.TotalWithdrawals
	result.CurrentValue = history[len(history)-1].StocksValue
	result.AbsoluteGain = result.CurrentValue - result.NetDeposits
	if result.NetDeposits > 0 {
		result.AbsoluteGainPercent = result.AbsoluteGain / result.NetDeposits * 100
	}
	result.TotalReturn = result.AbsoluteGain
	result.TotalReturnPercent = result.AbsoluteGainPercent

	result.YearlyPerformance = yearlyPerformance(history, stockTxs)
	currentYear := now.UTC().Year()
	for i := range result.YearlyPerformance {
		if result.YearlyPerformance[i].Year == currentYear {
			result.CurrentYearPerformance = &result.YearlyPerformance[i]
			break
		}
	}
	return result
}

// yearlyPerformance slices the history into calendar years and applies the
// Modified Dietz method to each. The first year starts at the first available
// history point: flows on or before that point are the initial capital, not
// performance flows. Every later year starts at the closing value of the
// previous one so the yearly gains chain without gaps or overlaps.
func yearlyPerformance(history []HistoryPoint, txs []Transaction) []YearlyPerformance {
	byYear := make(map[int][]HistoryPoint)
	var years []int
	for _, point := range history {
		y := point.Date.Year()
		if _, seen := byYear[y]; !seen {
			years = append(years, y)
		}
		byYear[y] = append(byYear[y], point)
	}
	sort.Ints(years)

	results := make([]YearlyPerformance, 0, len(years))
	for i, year := range years {
		yearHistory := byYear[year]

		var startValue float64
		var effectiveStart time.Time
		firstYear := i == 0
		if firstYear {
			startValue = yearHistory[0].StocksValue
			effectiveStart = yearHistory[0].Date
		} else {
			prev := byYear[years[i-1]]
			startValue = prev[len(prev)-1].StocksValue
			effectiveStart = NewDate(year, time.January, 1)
		}

		endPoint := yearHistory[len(yearHistory)-1]
		endValue := endPoint.StocksValue
		effectiveEnd := endPoint.Date

		effectiveDays := int(effectiveEnd.Sub(effectiveStart).Hours() / 24)
		if effectiveDays < 1 {
			effectiveDays = 1
		}
		if limit := daysInYear(year); effectiveDays > limit {
			effectiveDays = limit
		}

		perf := YearlyPerformance{Year: year, StartValue: startValue, EndValue: endValue}
		var weightedFlows float64
		for _, tx := range txs {
			d := Date(tx.Date)
			if firstYear {
				if !d.After(effectiveStart) || d.After(effectiveEnd) {
					continue
				}
			} else if d.Year() != year || d.After(effectiveEnd) {
				continue
			}

			daysFromStart := int(d.Sub(effectiveStart).Hours() / 24)
			weight := float64(effectiveDays-daysFromStart) / float64(effectiveDays)
			if weight < 0 {
				weight = 0
			}

			switch tx.Type {
			case Deposit:
				perf.Deposits += tx.Amount
				weightedFlows += tx.Amount * weight
			case Withdrawal:
				perf.Withdrawals += tx.Amount
				weightedFlows -= tx.Amount * weight
			case Dividend:
				perf.Dividends += tx.Amount
			}
		}

		perf.NetFlows = perf.Deposits - perf.Withdrawals
		perf.GainLoss = endValue - startValue - perf.NetFlows
		if averageCapital := startValue + weightedFlows; averageCapital > 0 {
			perf.GainLossPercent = perf.GainLoss / averageCapital * 100
		}
		perf.TotalReturn = perf.GainLoss
		perf.TotalReturnPercent = perf.GainLossPercent
		results = append(results, perf)
	}
	return results
}

func daysInYear(year int) int {
	if isLeapYear(year) {
		return 366
	}
	return 365
}

func isLeapYear(year int) bool {
	return (year%4 == 0 && year%100 != 0) || year%400 == 0
}
