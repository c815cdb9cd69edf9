package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/antoinecstl/finance-portfolio/internal/utils"
)

// Some chart endpoints reject requests without a browser user agent.
const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Client fetches quotes, historical series and symbol search results from the
// chart/search JSON endpoints. It implements Provider.
type Client struct {
	httpClient    *http.Client
	chartBaseURL  string
	searchBaseURL string
	batchSize     int
	logger        utils.Logger
}

func NewClient(config utils.MarketDataConfig, logger utils.Logger) *Client {
	batchSize := config.BatchSize
	if batchSize <= 0 {
		batchSize = 5
	}
	return &Client{
		httpClient:    &http.Client{Timeout: config.RequestTimeout()},
		chartBaseURL:  config.ChartBaseURL,
		searchBaseURL: config.SearchBaseURL,
		batchSize:     batchSize,
		logger:        logger,
	}
}

// chartResponse mirrors the chart API payload. Price arrays carry nulls for
// non-trading rows, hence the pointer elements.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol                string  `json:"symbol"`
				ShortName             string  `json:"shortName"`
				LongName              string  `json:"longName"`
				Currency              string  `json:"currency"`
				RegularMarketPrice    float64 `json:"regularMarketPrice"`
				PreviousClose         float64 `json:"previousClose"`
				ChartPreviousClose    float64 `json:"chartPreviousClose"`
				RegularMarketOpen     float64 `json:"regularMarketOpen"`
				RegularMarketDayHigh  float64 `json:"regularMarketDayHigh"`
				RegularMarketDayLow   float64 `json:"regularMarketDayLow"`
				RegularMarketVolume   int64   `json:"regularMarketVolume"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*int64   `json:"volume"`
				} `json:"quote"`
				AdjClose []struct {
					AdjClose []*float64 `json:"adjclose"`
				} `json:"adjclose"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type searchResponse struct {
	Quotes []struct {
		Symbol    string `json:"symbol"`
		ShortName string `json:"shortname"`
		LongName  string `json:"longname"`
		Exchange  string `json:"exchange"`
		QuoteType string `json:"quoteType"`
	} `json:"quotes"`
}

func (c *Client) getJSON(ctx context.Context, rawURL string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// CurrentQuotes fetches the latest quote for each symbol. A symbol that fails
// is logged and skipped; the batch never aborts because of one symbol.
func (c *Client) CurrentQuotes(ctx context.Context, symbols []string) ([]Quote, error) {
	if len(symbols) == 0 {
		return []Quote{}, nil
	}

	quotes := make([]Quote, 0, len(symbols))
	for _, symbol := range symbols {
		quote, err := c.fetchQuote(ctx, symbol)
		if err != nil {
			if ctx.Err() != nil {
				return quotes, ctx.Err()
			}
			c.logger.Warn("Failed to fetch quote for %s: %v", symbol, err)
			continue
		}
		quotes = append(quotes, *quote)
	}
	return quotes, nil
}

// fetchQuote derives a current quote from a 2-day daily chart window, which is
// more reliable than the quote endpoint.
func (c *Client) fetchQuote(ctx context.Context, symbol string) (*Quote, error) {
	rawURL := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&range=2d",
		c.chartBaseURL, url.PathEscape(symbol))

	var payload chartResponse
	if err := c.getJSON(ctx, rawURL, &payload); err != nil {
		return nil, err
	}
	if payload.Chart.Error != nil {
		return nil, fmt.Errorf("chart API error: %s", payload.Chart.Error.Description)
	}
	if len(payload.Chart.Result) == 0 {
		return nil, fmt.Errorf("no chart result for %s", symbol)
	}

	result := payload.Chart.Result[0]
	meta := result.Meta

	price := meta.RegularMarketPrice
	previousClose := meta.PreviousClose
	if previousClose == 0 {
		previousClose = meta.ChartPreviousClose
	}
	if previousClose == 0 {
		previousClose = price
	}

	change := price - previousClose
	changePercent := 0.0
	if previousClose > 0 {
		changePercent = change / previousClose * 100
	}

	name := meta.ShortName
	if name == "" {
		name = meta.LongName
	}
	if name == "" {
		name = symbol
	}
	currency := meta.Currency
	if currency == "" {
		currency = "EUR"
	}
	quoteSymbol := meta.Symbol
	if quoteSymbol == "" {
		quoteSymbol = symbol
	}

	return &Quote{
		Symbol:        quoteSymbol,
		Name:          name,
		Price:         price,
		Change:        change,
		ChangePercent: changePercent,
		PreviousClose: previousClose,
		Open:          meta.RegularMarketOpen,
		High:          meta.RegularMarketDayHigh,
		Low:           meta.RegularMarketDayLow,
		Volume:        meta.RegularMarketVolume,
		Currency:      currency,
	}, nil
}

// HistoricalSeries fetches the OHLC series for one symbol between start and
// end inclusive. Rows without a close price are skipped.
func (c *Client) HistoricalSeries(ctx context.Context, symbol string, start, end time.Time, interval Interval) ([]HistoricalQuote, error) {
	rawURL := fmt.Sprintf("%s/v8/finance/chart/%s?period1=%d&period2=%d&interval=%s",
		c.chartBaseURL, url.PathEscape(symbol), start.Unix(), end.Unix(), interval.apiParam())

	var payload chartResponse
	if err := c.getJSON(ctx, rawURL, &payload); err != nil {
		return nil, fmt.Errorf("failed to fetch history for %s: %w", symbol, err)
	}
	if payload.Chart.Error != nil {
		return nil, fmt.Errorf("chart API error for %s: %s", symbol, payload.Chart.Error.Description)
	}
	if len(payload.Chart.Result) == 0 {
		return []HistoricalQuote{}, nil
	}

	result := payload.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return []HistoricalQuote{}, nil
	}

	bars := result.Indicators.Quote[0]
	var adjClose []*float64
	if len(result.Indicators.AdjClose) > 0 {
		adjClose = result.Indicators.AdjClose[0].AdjClose
	}

	series := make([]HistoricalQuote, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(bars.Close) || bars.Close[i] == nil {
			continue
		}
		q := HistoricalQuote{
			Date:  dateOf(time.Unix(ts, 0).UTC()),
			Close: *bars.Close[i],
		}
		if i < len(bars.Open) && bars.Open[i] != nil {
			q.Open = *bars.Open[i]
		}
		if i < len(bars.High) && bars.High[i] != nil {
			q.High = *bars.High[i]
		}
		if i < len(bars.Low) && bars.Low[i] != nil {
			q.Low = *bars.Low[i]
		}
		if i < len(bars.Volume) && bars.Volume[i] != nil {
			q.Volume = *bars.Volume[i]
		}
		q.AdjustedClose = q.Close
		if i < len(adjClose) && adjClose[i] != nil {
			q.AdjustedClose = *adjClose[i]
		}
		series = append(series, q)
	}

	return series, nil
}

// MultipleHistoricalSeries fetches series for several symbols, a few at a time.
// A symbol whose fetch fails maps to an empty series so that one bad symbol
// does not lose the whole batch.
func (c *Client) MultipleHistoricalSeries(ctx context.Context, symbols []string, start, end time.Time, interval Interval) (map[string][]HistoricalQuote, error) {
	results := make(map[string][]HistoricalQuote, len(symbols))

	for i := 0; i < len(symbols); i += c.batchSize {
		batch := symbols[i:min(i+c.batchSize, len(symbols))]

		var wg sync.WaitGroup
		var mu sync.Mutex
		for _, symbol := range batch {
			wg.Add(1)
			go func(symbol string) {
				defer wg.Done()
				series, err := c.HistoricalSeries(ctx, symbol, start, end, interval)
				if err != nil {
					c.logger.Warn("Failed to fetch historical series for %s: %v", symbol, err)
					series = []HistoricalQuote{}
				}
				mu.Lock()
				results[symbol] = series
				mu.Unlock()
			}(symbol)
		}
		wg.Wait()

		if ctx.Err() != nil {
			return results, ctx.Err()
		}
	}

	return results, nil
}

// Search looks up symbols by name or ticker fragment. Queries shorter than two
// characters return no results.
func (c *Client) Search(ctx context.Context, query string) ([]SearchResult, error) {
	if len(query) < 2 {
		return []SearchResult{}, nil
	}

	rawURL := fmt.Sprintf("%s/v1/finance/search?q=%s&quotesCount=10&newsCount=0&enableFuzzyQuery=false",
		c.searchBaseURL, url.QueryEscape(query))

	var payload searchResponse
	if err := c.getJSON(ctx, rawURL, &payload); err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	results := make([]SearchResult, 0, len(payload.Quotes))
	for _, q := range payload.Quotes {
		if q.QuoteType != "EQUITY" && q.QuoteType != "ETF" {
			continue
		}
		name := q.ShortName
		if name == "" {
			name = q.LongName
		}
		if name == "" {
			name = q.Symbol
		}
		results = append(results, SearchResult{
			Symbol:   q.Symbol,
			Name:     name,
			Exchange: q.Exchange,
		})
	}
	return results, nil
}

// dateOf truncates a timestamp to its calendar date in UTC.
func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
