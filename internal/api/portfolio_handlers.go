package api

import (
	"net/http"
	"time"

	"github.com/antoinecstl/finance-portfolio/internal/marketdata"
	"github.com/antoinecstl/finance-portfolio/internal/portfolio"
)

// GetPositions returns the reconstructed positions across all investment
// accounts, decorated with current quotes. Oversold sells found during the
// replay are included so anomalous logs are visible instead of silently
// clamped.
func (s *Server) GetPositions(w http.ResponseWriter, r *http.Request) {
	userID := s.userID(r)

	accounts, err := s.store.ListAccounts(userID)
	if err != nil {
		s.logger.Error("Failed to list accounts: %v", err)
		s.respondWithError(w, http.StatusInternalServerError, "Failed to fetch accounts")
		return
	}

	txs, err := s.investmentTransactions(userID, accounts)
	if err != nil {
		s.respondWithError(w, http.StatusInternalServerError, "Failed to fetch transactions")
		return
	}

	start := time.Now()
	all, oversold := portfolio.AllPositionsAsOf(txs, time.Now().UTC())
	quotes := s.currentQuotes(r.Context(), portfolio.UniqueSymbols(txs))
	s.tracker.TrackOperation("portfolio.positions", time.Since(start))

	response := PositionsResponse{Positions: []PositionView{}, Oversold: oversold}
	for _, pos := range all {
		view := PositionView{AccountPosition: pos}
		if q, ok := quotes[pos.Symbol]; ok && q.Price > 0 {
			view.CurrentPrice = q.Price
			view.CurrentValue = pos.Quantity * q.Price
			view.GainLoss = view.CurrentValue - pos.TotalInvested
			if pos.TotalInvested > 0 {
				view.GainLossPercent = view.GainLoss / pos.TotalInvested * 100
			}
		}
		response.Positions = append(response.Positions, view)
	}

	s.respondWithJSON(w, http.StatusOK, response)
}

// GetPortfolioHistory builds the valuation series of the whole portfolio.
// Query parameters: period1, period2 (YYYY-MM-DD) and interval.
func (s *Server) GetPortfolioHistory(w http.ResponseWriter, r *http.Request) {
	userID := s.userID(r)

	interval, err := marketdata.ParseInterval(r.URL.Query().Get("interval"))
	if err != nil {
		s.respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	accounts, txs, err := s.portfolioInputs(userID)
	if err != nil {
		s.respondWithError(w, http.StatusInternalServerError, "Failed to load portfolio data")
		return
	}
	if len(txs) == 0 {
		s.respondWithJSON(w, http.StatusOK, []portfolio.HistoryPoint{})
		return
	}

	end := portfolio.Date(time.Now().UTC())
	start := portfolio.FirstTransactionDate(txs)
	if raw := r.URL.Query().Get("startDate"); raw != "" {
		if start, err = time.Parse("2006-01-02", raw); err != nil {
			s.respondWithError(w, http.StatusBadRequest, "startDate must be in YYYY-MM-DD format")
			return
		}
	}
	if raw := r.URL.Query().Get("endDate"); raw != "" {
		if end, err = time.Parse("2006-01-02", raw); err != nil {
			s.respondWithError(w, http.StatusBadRequest, "endDate must be in YYYY-MM-DD format")
			return
		}
	}
	if start.After(end) {
		s.respondWithError(w, http.StatusBadRequest, "startDate must not be after endDate")
		return
	}

	began := time.Now()
	series, err := s.historicalSeries(r, txs, start, end)
	if err != nil {
		s.respondWithError(w, http.StatusBadGateway, "Failed to fetch historical quotes")
		return
	}
	points := portfolio.BuildHistory(accounts, txs, series, start, end, interval)
	s.tracker.TrackOperation("portfolio.history", time.Since(began))

	if points == nil {
		points = []portfolio.HistoryPoint{}
	}
	s.respondWithJSON(w, http.StatusOK, points)
}

// GetPortfolioPerformance returns the Modified Dietz attribution per calendar
// year over the investment accounts.
func (s *Server) GetPortfolioPerformance(w http.ResponseWriter, r *http.Request) {
	userID := s.userID(r)

	accounts, txs, err := s.portfolioInputs(userID)
	if err != nil {
		s.respondWithError(w, http.StatusInternalServerError, "Failed to load portfolio data")
		return
	}

	now := time.Now().UTC()
	if len(txs) == 0 {
		s.respondWithJSON(w, http.StatusOK, portfolio.PortfolioPerformance(accounts, txs, nil, now))
		return
	}

	// Start one day before inception so the opening deposit is measured as a
	// flow against zero capital rather than folded into the start value.
	start := portfolio.FirstTransactionDate(txs).AddDate(0, 0, -1)
	end := portfolio.Date(now)

	began := time.Now()
	series, err := s.historicalSeries(r, txs, start, end)
	if err != nil {
		s.respondWithError(w, http.StatusBadGateway, "Failed to fetch historical quotes")
		return
	}
	history := portfolio.BuildHistory(accounts, txs, series, start, end, marketdata.Weekly)
	result := portfolio.PortfolioPerformance(accounts, txs, history, now)
	s.tracker.TrackOperation("portfolio.performance", time.Since(began))

	s.respondWithJSON(w, http.StatusOK, result)
}

// portfolioInputs loads the accounts and the full transaction log of a user.
func (s *Server) portfolioInputs(userID string) ([]portfolio.Account, []portfolio.Transaction, error) {
	accounts, err := s.store.ListAccounts(userID)
	if err != nil {
		s.logger.Error("Failed to list accounts: %v", err)
		return nil, nil, err
	}
	txs, err := s.store.ListTransactions(userID)
	if err != nil {
		s.logger.Error("Failed to list transactions: %v", err)
		return nil, nil, err
	}
	return accounts, txs, nil
}

// investmentTransactions returns the transactions belonging to PEA/CTO
// accounts only.
func (s *Server) investmentTransactions(userID string, accounts []portfolio.Account) ([]portfolio.Transaction, error) {
	txs, err := s.store.ListTransactions(userID)
	if err != nil {
		s.logger.Error("Failed to list transactions: %v", err)
		return nil, err
	}

	investment := make(map[string]bool, len(accounts))
	for _, a := range accounts {
		if a.Type.IsInvestment() {
			investment[a.ID] = true
		}
	}

	filtered := txs[:0:0]
	for _, tx := range txs {
		if investment[tx.AccountID] {
			filtered = append(filtered, tx)
		}
	}
	return filtered, nil
}

// historicalSeries fetches the series of every symbol in txs for the period.
func (s *Server) historicalSeries(r *http.Request, txs []portfolio.Transaction, start, end time.Time) (portfolio.QuoteSeries, error) {
	symbols := portfolio.UniqueSymbols(txs)
	if len(symbols) == 0 {
		return portfolio.QuoteSeries{}, nil
	}

	series, err := s.provider.MultipleHistoricalSeries(r.Context(), symbols, start, end.AddDate(0, 0, 1), marketdata.Daily)
	if err != nil {
		s.logger.Error("Failed to fetch historical series: %v", err)
		return nil, err
	}
	return series, nil
}
