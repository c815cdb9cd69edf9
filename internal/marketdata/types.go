package marketdata

import (
	"context"
	"fmt"
	"time"
)

// Quote represents the current market snapshot for a single symbol.
type Quote struct {
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name"`
	Price         float64 `json:"price"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"change_percent"`
	PreviousClose float64 `json:"previous_close"`
	Open          float64 `json:"open"`
	High          float64 `json:"high"`
	Low           float64 `json:"low"`
	Volume        int64   `json:"volume"`
	Currency      string  `json:"currency"`
}

// HistoricalQuote is one daily/weekly/monthly OHLC record of a price series.
// Series are always chronologically ascending.
type HistoricalQuote struct {
	Date          time.Time `json:"date"`
	Open          float64   `json:"open"`
	High          float64   `json:"high"`
	Low           float64   `json:"low"`
	Close         float64   `json:"close"`
	Volume        int64     `json:"volume"`
	AdjustedClose float64   `json:"adjusted_close"`
}

// SearchResult is one match returned by symbol search.
type SearchResult struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Exchange string `json:"exchange"`
}

// Interval selects the spacing of a historical series.
type Interval string

const (
	Daily   Interval = "daily"
	Weekly  Interval = "weekly"
	Monthly Interval = "monthly"
)

// ParseInterval parses the query-parameter form of an interval.
func ParseInterval(s string) (Interval, error) {
	switch s {
	case "", "daily", "1d":
		return Daily, nil
	case "weekly", "1wk":
		return Weekly, nil
	case "monthly", "1mo":
		return Monthly, nil
	default:
		return "", fmt.Errorf("invalid interval: %q", s)
	}
}

// apiParam returns the interval in the chart API's own vocabulary.
func (i Interval) apiParam() string {
	switch i {
	case Weekly:
		return "1wk"
	case Monthly:
		return "1mo"
	default:
		return "1d"
	}
}

// Provider is the market data collaborator consumed by the API layer.
// Implementations must tolerate individual symbols failing inside a batch;
// partial results are acceptable.
type Provider interface {
	CurrentQuotes(ctx context.Context, symbols []string) ([]Quote, error)
	HistoricalSeries(ctx context.Context, symbol string, start, end time.Time, interval Interval) ([]HistoricalQuote, error)
	MultipleHistoricalSeries(ctx context.Context, symbols []string, start, end time.Time, interval Interval) (map[string][]HistoricalQuote, error)
	Search(ctx context.Context, query string) ([]SearchResult, error)
}
