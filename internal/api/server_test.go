package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antoinecstl/finance-portfolio/internal/marketdata"
	"github.com/antoinecstl/finance-portfolio/internal/portfolio"
	"github.com/antoinecstl/finance-portfolio/internal/store"
	"github.com/antoinecstl/finance-portfolio/internal/utils"
)

// fakeStore is an in-memory Store for handler tests. User scoping is not
// exercised here, the handlers always resolve the same default user.
type fakeStore struct {
	accounts  []portfolio.Account
	txs       []portfolio.Transaction
	positions map[string][]portfolio.HeldPosition
	nextID    int
}

func newFakeStore() *fakeStore {
	return &fakeStore{positions: make(map[string][]portfolio.HeldPosition)}
}

func (f *fakeStore) id() string {
	f.nextID++
	return fmt.Sprintf("id-%d", f.nextID)
}

func (f *fakeStore) ListAccounts(userID string) ([]portfolio.Account, error) {
	return append([]portfolio.Account{}, f.accounts...), nil
}

func (f *fakeStore) GetAccount(userID, accountID string) (*portfolio.Account, error) {
	for i := range f.accounts {
		if f.accounts[i].ID == accountID {
			account := f.accounts[i]
			return &account, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) CreateAccount(userID string, account *portfolio.Account) error {
	if account.ID == "" {
		account.ID = f.id()
	}
	f.accounts = append(f.accounts, *account)
	return nil
}

func (f *fakeStore) UpdateAccount(userID string, account *portfolio.Account) error {
	for i := range f.accounts {
		if f.accounts[i].ID == account.ID {
			f.accounts[i] = *account
			return nil
		}
	}
	return store.ErrNotFound
}

func (f *fakeStore) DeleteAccount(userID, accountID string) error {
	for i := range f.accounts {
		if f.accounts[i].ID == accountID {
			f.accounts = append(f.accounts[:i], f.accounts[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (f *fakeStore) ListTransactions(userID string) ([]portfolio.Transaction, error) {
	return append([]portfolio.Transaction{}, f.txs...), nil
}

func (f *fakeStore) ListAccountTransactions(userID, accountID string) ([]portfolio.Transaction, error) {
	var txs []portfolio.Transaction
	for _, tx := range f.txs {
		if tx.AccountID == accountID {
			txs = append(txs, tx)
		}
	}
	return txs, nil
}

func (f *fakeStore) CreateTransaction(userID string, tx *portfolio.Transaction) error {
	if tx.ID == "" {
		tx.ID = f.id()
	}
	f.txs = append(f.txs, *tx)
	return nil
}

func (f *fakeStore) DeleteTransaction(userID, transactionID string) error {
	for i := range f.txs {
		if f.txs[i].ID == transactionID {
			f.txs = append(f.txs[:i], f.txs[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (f *fakeStore) ListPositions(userID, accountID string) ([]portfolio.HeldPosition, error) {
	return append([]portfolio.HeldPosition{}, f.positions[accountID]...), nil
}

func (f *fakeStore) UpsertPosition(userID, accountID string, position portfolio.HeldPosition) error {
	for i, p := range f.positions[accountID] {
		if p.Symbol == position.Symbol {
			f.positions[accountID][i] = position
			return nil
		}
	}
	f.positions[accountID] = append(f.positions[accountID], position)
	return nil
}

func (f *fakeStore) DeletePosition(userID, accountID, symbol string) error {
	for i, p := range f.positions[accountID] {
		if p.Symbol == symbol {
			f.positions[accountID] = append(f.positions[accountID][:i], f.positions[accountID][i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

// fakeProvider serves canned market data.
type fakeProvider struct {
	quotes  map[string]marketdata.Quote
	series  map[string][]marketdata.HistoricalQuote
	results []marketdata.SearchResult
}

func (f *fakeProvider) CurrentQuotes(ctx context.Context, symbols []string) ([]marketdata.Quote, error) {
	var quotes []marketdata.Quote
	for _, symbol := range symbols {
		if q, ok := f.quotes[symbol]; ok {
			quotes = append(quotes, q)
		}
	}
	return quotes, nil
}

func (f *fakeProvider) HistoricalSeries(ctx context.Context, symbol string, start, end time.Time, interval marketdata.Interval) ([]marketdata.HistoricalQuote, error) {
	return f.series[symbol], nil
}

func (f *fakeProvider) MultipleHistoricalSeries(ctx context.Context, symbols []string, start, end time.Time, interval marketdata.Interval) (map[string][]marketdata.HistoricalQuote, error) {
	result := make(map[string][]marketdata.HistoricalQuote)
	for _, symbol := range symbols {
		result[symbol] = f.series[symbol]
	}
	return result, nil
}

func (f *fakeProvider) Search(ctx context.Context, query string) ([]marketdata.SearchResult, error) {
	return f.results, nil
}

func newTestServer(st store.Store, provider marketdata.Provider) *Server {
	logger := utils.NewAppLogger()
	logger.SetLevel("error")
	config := &utils.Config{
		Server: utils.ServerConfig{
			Port:        "8080",
			DefaultUser: "local",
		},
	}
	return NewServer(logger, config, nil, st, provider)
}

func doRequest(s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func date(s string) time.Time {
	d, _ := time.Parse("2006-01-02", s)
	return d
}

func TestHealthCheck(t *testing.T) {
	s := newTestServer(newFakeStore(), &fakeProvider{})

	rec := doRequest(s, "GET", "/health", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestCreateAccount(t *testing.T) {
	st := newFakeStore()
	s := newTestServer(st, &fakeProvider{})

	rec := doRequest(s, "POST", "/api/accounts", AccountRequest{
		Name: "Mon PEA",
		Type: portfolio.PEA,
	})

	require.Equal(t, http.StatusCreated, rec.Code)
	var account portfolio.Account
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &account))
	assert.NotEmpty(t, account.ID)
	assert.Equal(t, "EUR", account.Currency, "currency defaults to EUR")
	require.Len(t, st.accounts, 1)
}

func TestCreateAccountValidation(t *testing.T) {
	s := newTestServer(newFakeStore(), &fakeProvider{})

	rec := doRequest(s, "POST", "/api/accounts", AccountRequest{Name: "X", Type: "SUPERLIVRET"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(s, "POST", "/api/accounts", AccountRequest{Type: portfolio.PEA})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetAccountNotFound(t *testing.T) {
	s := newTestServer(newFakeStore(), &fakeProvider{})

	rec := doRequest(s, "GET", "/api/accounts/nope", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateTransactionBuyDerivesAmount(t *testing.T) {
	st := newFakeStore()
	st.accounts = []portfolio.Account{{ID: "pea-1", Type: portfolio.PEA, Name: "PEA"}}
	s := newTestServer(st, &fakeProvider{})

	rec := doRequest(s, "POST", "/api/accounts/pea-1/transactions", TransactionRequest{
		Type:         portfolio.Buy,
		Date:         "2024-01-03",
		Symbol:       "aapl",
		Quantity:     5,
		PricePerUnit: 100,
	})

	require.Equal(t, http.StatusCreated, rec.Code)
	var created portfolio.Transaction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, 500.0, created.Amount, "amount is always quantity times price")
	assert.Equal(t, "AAPL", created.Symbol, "symbols are normalized to upper case")

	// The cached position rows follow the log.
	require.Len(t, st.positions["pea-1"], 1)
	assert.Equal(t, 5.0, st.positions["pea-1"][0].Quantity)
}

func TestCreateTransactionValidation(t *testing.T) {
	st := newFakeStore()
	st.accounts = []portfolio.Account{
		{ID: "pea-1", Type: portfolio.PEA},
		{ID: "liv-1", Type: portfolio.LivretA},
	}
	s := newTestServer(st, &fakeProvider{})

	// BUY without a symbol.
	rec := doRequest(s, "POST", "/api/accounts/pea-1/transactions", TransactionRequest{
		Type: portfolio.Buy, Date: "2024-01-03", Quantity: 5, PricePerUnit: 100,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Deposit without amount.
	rec = doRequest(s, "POST", "/api/accounts/pea-1/transactions", TransactionRequest{
		Type: portfolio.Deposit, Date: "2024-01-03",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Bad date.
	rec = doRequest(s, "POST", "/api/accounts/pea-1/transactions", TransactionRequest{
		Type: portfolio.Deposit, Date: "03/01/2024", Amount: 100,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Stock transaction on a savings account.
	rec = doRequest(s, "POST", "/api/accounts/liv-1/transactions", TransactionRequest{
		Type: portfolio.Buy, Date: "2024-01-03", Symbol: "AAPL", Quantity: 1, PricePerUnit: 10,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Unknown account.
	rec = doRequest(s, "POST", "/api/accounts/nope/transactions", TransactionRequest{
		Type: portfolio.Deposit, Date: "2024-01-03", Amount: 100,
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetAccountValue(t *testing.T) {
	st := newFakeStore()
	st.accounts = []portfolio.Account{{ID: "pea-1", Type: portfolio.PEA}}
	st.txs = []portfolio.Transaction{
		{ID: "t1", AccountID: "pea-1", Type: portfolio.Deposit, Amount: 1000, Date: date("2024-01-02")},
		{ID: "t2", AccountID: "pea-1", Type: portfolio.Buy, Amount: 500, Symbol: "AAPL", Quantity: 5, PricePerUnit: 100, Date: date("2024-01-03")},
	}
	provider := &fakeProvider{quotes: map[string]marketdata.Quote{
		"AAPL": {Symbol: "AAPL", Price: 120},
	}}
	s := newTestServer(st, provider)

	rec := doRequest(s, "GET", "/api/accounts/pea-1/value", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var value portfolio.AccountValue
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &value))
	assert.Equal(t, portfolio.SourceComputed, value.Source)
	assert.Equal(t, 500.0, value.Cash)
	assert.Equal(t, 600.0, value.StocksValue)
	assert.Equal(t, 1100.0, value.TotalValue)
}

func TestGetPositionsIncludesOversold(t *testing.T) {
	st := newFakeStore()
	st.accounts = []portfolio.Account{{ID: "pea-1", Type: portfolio.PEA}}
	st.txs = []portfolio.Transaction{
		{ID: "t1", AccountID: "pea-1", Type: portfolio.Buy, Amount: 500, Symbol: "AAPL", Quantity: 5, PricePerUnit: 100, Date: date("2024-01-03")},
		{ID: "t2", AccountID: "pea-1", Type: portfolio.Sell, Amount: 880, Symbol: "AAPL", Quantity: 8, PricePerUnit: 110, Date: date("2024-02-01")},
	}
	s := newTestServer(st, &fakeProvider{})

	rec := doRequest(s, "GET", "/api/portfolio/positions", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var response PositionsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Empty(t, response.Positions)
	require.Len(t, response.Oversold, 1)
	assert.Equal(t, 8.0, response.Oversold[0].Requested)
	assert.Equal(t, 5.0, response.Oversold[0].Held)
}

func TestGetPortfolioHistory(t *testing.T) {
	st := newFakeStore()
	st.accounts = []portfolio.Account{{ID: "pea-1", Type: portfolio.PEA}}
	st.txs = []portfolio.Transaction{
		{ID: "t1", AccountID: "pea-1", Type: portfolio.Deposit, Amount: 1000, Date: date("2024-01-02")},
		{ID: "t2", AccountID: "pea-1", Type: portfolio.Buy, Amount: 500, Symbol: "AAPL", Quantity: 5, PricePerUnit: 100, Date: date("2024-01-03")},
	}
	provider := &fakeProvider{series: map[string][]marketdata.HistoricalQuote{
		"AAPL": {{Date: date("2024-01-03"), Close: 100}, {Date: date("2024-01-04"), Close: 110}},
	}}
	s := newTestServer(st, provider)

	rec := doRequest(s, "GET", "/api/portfolio/history?startDate=2024-01-02&endDate=2024-01-04&interval=daily", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var points []portfolio.HistoryPoint
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &points))
	require.Len(t, points, 3)
	assert.Equal(t, 1000.0, points[0].TotalValue)
	assert.Equal(t, 1050.0, points[2].TotalValue, "5 shares at 110 plus 500 cash")
}

func TestGetPortfolioHistoryWithoutTransactions(t *testing.T) {
	s := newTestServer(newFakeStore(), &fakeProvider{})

	rec := doRequest(s, "GET", "/api/portfolio/history", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestGetPortfolioHistoryBadInterval(t *testing.T) {
	s := newTestServer(newFakeStore(), &fakeProvider{})

	rec := doRequest(s, "GET", "/api/portfolio/history?interval=hourly", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetPortfolioPerformance(t *testing.T) {
	st := newFakeStore()
	st.accounts = []portfolio.Account{{ID: "pea-1", Type: portfolio.PEA}}
	st.txs = []portfolio.Transaction{
		{ID: "t1", AccountID: "pea-1", Type: portfolio.Deposit, Amount: 1000, Date: date("2024-01-02")},
		{ID: "t2", AccountID: "pea-1", Type: portfolio.Dividend, Amount: 10, Date: date("2024-06-03")},
	}
	s := newTestServer(st, &fakeProvider{})

	rec := doRequest(s, "GET", "/api/portfolio/performance", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var result portfolio.PerformanceData
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 1000.0, result.TotalDeposits)
	assert.Equal(t, 10.0, result.TotalDividends)
	assert.Equal(t, 1010.0, result.CurrentValue)
	assert.Equal(t, 10.0, result.AbsoluteGain, "the dividend is the only gain")
	assert.NotEmpty(t, result.YearlyPerformance)
}

func TestGetQuotesRequiresSymbols(t *testing.T) {
	s := newTestServer(newFakeStore(), &fakeProvider{})

	rec := doRequest(s, "GET", "/api/stocks/quotes", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetQuotes(t *testing.T) {
	provider := &fakeProvider{quotes: map[string]marketdata.Quote{
		"AAPL": {Symbol: "AAPL", Price: 120},
		"MC.PA": {Symbol: "MC.PA", Price: 700},
	}}
	s := newTestServer(newFakeStore(), provider)

	rec := doRequest(s, "GET", "/api/stocks/quotes?symbols=aapl,%20mc.pa", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var response struct {
		Quotes map[string]marketdata.Quote `json:"quotes"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Len(t, response.Quotes, 2)
	assert.Equal(t, 120.0, response.Quotes["AAPL"].Price)
}

func TestGetStockHistory(t *testing.T) {
	provider := &fakeProvider{series: map[string][]marketdata.HistoricalQuote{
		"AAPL": {{Date: date("2024-01-03"), Close: 100}},
	}}
	s := newTestServer(newFakeStore(), provider)

	rec := doRequest(s, "GET", "/api/stocks/history?symbols=AAPL&startDate=2024-01-01&endDate=2024-02-01", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var series map[string][]marketdata.HistoricalQuote
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &series))
	require.Len(t, series["AAPL"], 1)
	assert.Equal(t, 100.0, series["AAPL"][0].Close)

	rec = doRequest(s, "GET", "/api/stocks/history", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(s, "GET", "/api/stocks/history?symbols=AAPL&startDate=2024-03-01&endDate=2024-02-01", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchStocks(t *testing.T) {
	provider := &fakeProvider{results: []marketdata.SearchResult{
		{Symbol: "AAPL", Name: "Apple Inc.", Exchange: "NMS"},
	}}
	s := newTestServer(newFakeStore(), provider)

	rec := doRequest(s, "GET", "/api/stocks/search?q=apple", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Apple Inc.")

	rec = doRequest(s, "GET", "/api/stocks/search?q=a", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "queries shorter than 2 characters are rejected")
}

func TestDeleteTransaction(t *testing.T) {
	st := newFakeStore()
	st.txs = []portfolio.Transaction{{ID: "t1", AccountID: "pea-1", Type: portfolio.Deposit, Amount: 100, Date: date("2024-01-02")}}
	s := newTestServer(st, &fakeProvider{})

	rec := doRequest(s, "DELETE", "/api/transactions/t1", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, st.txs)

	rec = doRequest(s, "DELETE", "/api/transactions/t1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
