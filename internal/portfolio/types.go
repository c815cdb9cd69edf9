// Package portfolio derives positions, cash balances and performance figures
// from an immutable transaction log plus externally supplied market prices.
// Every function here is a pure transformation: no I/O, no retained state, and
// identical inputs always produce identical outputs. Transactions are the
// single source of truth; positions and balances are recomputed on demand,
// never stored authoritatively.
package portfolio

import (
	"time"

	"github.com/antoinecstl/finance-portfolio/internal/marketdata"
)

// AccountType is the closed set of account categories.
type AccountType string

const (
	PEA          AccountType = "PEA"
	CTO          AccountType = "CTO"
	LivretA      AccountType = "LIVRET_A"
	LDDS         AccountType = "LDDS"
	AssuranceVie AccountType = "ASSURANCE_VIE"
	PEL          AccountType = "PEL"
	Autre        AccountType = "AUTRE"
)

// IsInvestment reports whether accounts of this type hold stock positions.
// Investment accounts are always valued from transactions plus live prices;
// their stored balance is ignored once history exists.
func (t AccountType) IsInvestment() bool {
	return t == PEA || t == CTO
}

// Valid reports whether t belongs to the known category set.
func (t AccountType) Valid() bool {
	switch t {
	case PEA, CTO, LivretA, LDDS, AssuranceVie, PEL, Autre:
		return true
	}
	return false
}

// Account is a brokerage or savings account. Balance is a stored fallback
// only: for investment accounts it is entirely superseded by computed values,
// and for savings accounts it seeds the valuation only while the account has
// no transactions at all.
type Account struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Type      AccountType `json:"type"`
	Balance   float64     `json:"balance"`
	Currency  string      `json:"currency"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// TransactionType tags a transaction. The Amount field always carries a
// non-negative magnitude; the type determines the sign of its cash effect.
type TransactionType string

const (
	Deposit    TransactionType = "DEPOSIT"
	Withdrawal TransactionType = "WITHDRAWAL"
	Buy        TransactionType = "BUY"
	Sell       TransactionType = "SELL"
	Dividend   TransactionType = "DIVIDEND"
	Interest   TransactionType = "INTEREST"
	Fee        TransactionType = "FEE"
)

// Valid reports whether t is a known transaction type.
func (t TransactionType) Valid() bool {
	switch t {
	case Deposit, Withdrawal, Buy, Sell, Dividend, Interest, Fee:
		return true
	}
	return false
}

// Transaction is an immutable event belonging to exactly one account. Date is
// an effective calendar date (midnight UTC), not a timestamp: same-day ordering
// follows insertion order. Symbol, Quantity and PricePerUnit are only set for
// BUY/SELL/DIVIDEND. For BUY and SELL the write path guarantees that Amount
// equals Quantity times PricePerUnit; the ledger trusts the stored Amount and
// never recomputes it.
type Transaction struct {
	ID           string          `json:"id"`
	AccountID    string          `json:"account_id"`
	Type         TransactionType `json:"type"`
	Amount       float64         `json:"amount"`
	Description  string          `json:"description"`
	Date         time.Time       `json:"date"`
	Symbol       string          `json:"stock_symbol,omitempty"`
	Quantity     float64         `json:"quantity,omitempty"`
	PricePerUnit float64         `json:"price_per_unit,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Position is a holding reconstructed from BUY/SELL transactions. It is a
// fresh value on every reconstruction; AveragePrice is the volume-weighted
// average purchase price, recalculated only on buys.
type Position struct {
	Symbol        string  `json:"symbol"`
	Quantity      float64 `json:"quantity"`
	AveragePrice  float64 `json:"average_price"`
	TotalInvested float64 `json:"total_invested"`
}

// AccountPosition is a reconstructed position scoped to one account.
type AccountPosition struct {
	Position
	AccountID string `json:"account_id"`
}

// HeldPosition is the persisted-row shape the valuator accepts: the stored
// CurrentPrice is the price of last resort when no live quote is available.
type HeldPosition struct {
	Symbol       string  `json:"symbol"`
	Quantity     float64 `json:"quantity"`
	CurrentPrice float64 `json:"current_price"`
}

// ValuationSource tags where an account value came from.
type ValuationSource string

const (
	// SourceComputed means the value was derived from the transaction log.
	SourceComputed ValuationSource = "computed"
	// SourceStoredFallback means the account has no transactions and the
	// stored balance was used as the initial seed.
	SourceStoredFallback ValuationSource = "stored-fallback"
)

// AccountValue is the valuation of a single account.
type AccountValue struct {
	AccountID   string          `json:"account_id"`
	Cash        float64         `json:"cash"`
	StocksValue float64         `json:"stocks_value"`
	TotalValue  float64         `json:"total_value"`
	Source      ValuationSource `json:"source"`
}

// PriceSource tags which price valued a position inside a history point.
type PriceSource string

const (
	// PriceClose is a matched closing price from a historical series.
	PriceClose PriceSource = "close"
	// PriceAverageCost is the average-cost fallback used when the symbol has
	// no historical series at all.
	PriceAverageCost PriceSource = "average-cost"
)

// PositionDetail is the per-symbol breakdown inside a history point.
type PositionDetail struct {
	Symbol   string      `json:"symbol"`
	Quantity float64     `json:"quantity"`
	Price    float64     `json:"price"`
	Value    float64     `json:"value"`
	Source   PriceSource `json:"price_source"`
}

// HistoryPoint is the portfolio valuation at one generated date. StocksValue
// includes the cash sitting on investment accounts: it is investable capital,
// not idle savings.
type HistoryPoint struct {
	Date         time.Time        `json:"date"`
	TotalValue   float64          `json:"total_value"`
	StocksValue  float64          `json:"stocks_value"`
	SavingsValue float64          `json:"savings_value"`
	Positions    []PositionDetail `json:"positions"`
}

// OversoldSell reports a SELL that referenced more quantity than was
// reconstructed at its date (or had no prior BUY at all). The reconstruction
// clamps exactly like the reference behavior; this record makes the anomaly
// visible so the caller can decide policy.
type OversoldSell struct {
	AccountID string    `json:"account_id"`
	Symbol    string    `json:"symbol"`
	Date      time.Time `json:"date"`
	Requested float64   `json:"requested"`
	Held      float64   `json:"held"`
}

// YearlyPerformance is the Modified Dietz breakdown of one calendar year.
type YearlyPerformance struct {
	Year               int     `json:"year"`
	StartValue         float64 `json:"start_value"`
	EndValue           float64 `json:"end_value"`
	Deposits           float64 `json:"deposits"`
	Withdrawals        float64 `json:"withdrawals"`
	NetFlows           float64 `json:"net_flows"`
	Dividends          float64 `json:"dividends"`
	GainLoss           float64 `json:"gain_loss"`
	GainLossPercent    float64 `json:"gain_loss_percent"`
	TotalReturn        float64 `json:"total_return"`
	TotalReturnPercent float64 `json:"total_return_percent"`
}

// PerformanceData is the full attribution report over the investment accounts.
// TotalDividends is informational: dividends already sit inside CurrentValue
// as cash, so they are never added to the gain a second time.
type PerformanceData struct {
	CurrentValue           float64             `json:"current_value"`
	TotalDeposits          float64             `json:"total_deposits"`
	TotalWithdrawals       float64             `json:"total_withdrawals"`
	NetDeposits            float64             `json:"net_deposits"`
	AbsoluteGain           float64             `json:"absolute_gain"`
	AbsoluteGainPercent    float64             `json:"absolute_gain_percent"`
	TotalDividends         float64             `json:"total_dividends"`
	TotalReturn            float64             `json:"total_return"`
	TotalReturnPercent     float64             `json:"total_return_percent"`
	YearlyPerformance      []YearlyPerformance `json:"yearly_performance"`
	CurrentYearPerformance *YearlyPerformance  `json:"current_year_performance"`
}

// QuoteSeries maps a stock symbol to its historical series.
type QuoteSeries map[string][]marketdata.HistoricalQuote

// Date truncates t to its calendar date in UTC. All effective dates flowing
// through the engine are normalized with it.
func Date(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// NewDate builds a calendar date.
func NewDate(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
