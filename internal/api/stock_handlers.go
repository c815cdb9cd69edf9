package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/antoinecstl/finance-portfolio/internal/marketdata"
	"github.com/antoinecstl/finance-portfolio/internal/portfolio"
)

// parseSymbols splits a comma separated symbols parameter and normalizes to
// upper case.
func parseSymbols(raw string) []string {
	var symbols []string
	for _, symbol := range strings.Split(raw, ",") {
		symbol = strings.ToUpper(strings.TrimSpace(symbol))
		if symbol != "" {
			symbols = append(symbols, symbol)
		}
	}
	return symbols
}

// GetQuotes returns current quotes keyed by symbol for a comma separated
// symbols parameter.
func (s *Server) GetQuotes(w http.ResponseWriter, r *http.Request) {
	symbols := parseSymbols(r.URL.Query().Get("symbols"))
	if len(symbols) == 0 {
		s.respondWithError(w, http.StatusBadRequest, "symbols parameter is required")
		return
	}

	start := time.Now()
	quotes := s.currentQuotes(r.Context(), symbols)
	s.tracker.TrackOperation("stocks.quotes", time.Since(start))

	s.respondWithJSON(w, http.StatusOK, map[string]interface{}{"quotes": quotes})
}

// GetStockHistory returns historical series keyed by symbol.
// Query parameters: symbols (csv), startDate, endDate (YYYY-MM-DD), interval.
func (s *Server) GetStockHistory(w http.ResponseWriter, r *http.Request) {
	symbols := parseSymbols(r.URL.Query().Get("symbols"))
	if len(symbols) == 0 {
		s.respondWithError(w, http.StatusBadRequest, "symbols parameter is required")
		return
	}

	interval, err := marketdata.ParseInterval(r.URL.Query().Get("interval"))
	if err != nil {
		s.respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	end := portfolio.Date(time.Now().UTC())
	start := end.AddDate(-1, 0, 0)
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
	series, err := s.provider.MultipleHistoricalSeries(r.Context(), symbols, start, end.AddDate(0, 0, 1), interval)
	s.tracker.TrackOperation("stocks.history", time.Since(began))
	if err != nil {
		s.logger.Error("Failed to fetch history: %v", err)
		s.respondWithError(w, http.StatusBadGateway, "Failed to fetch historical data")
		return
	}

	s.respondWithJSON(w, http.StatusOK, series)
}

// SearchStocks looks up symbols matching the q parameter.
func (s *Server) SearchStocks(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if len(query) < 2 {
		s.respondWithError(w, http.StatusBadRequest, "q must be at least 2 characters")
		return
	}

	start := time.Now()
	results, err := s.provider.Search(r.Context(), query)
	s.tracker.TrackOperation("stocks.search", time.Since(start))
	if err != nil {
		s.logger.Error("Search failed for %q: %v", query, err)
		s.respondWithError(w, http.StatusBadGateway, "Search failed")
		return
	}
	if results == nil {
		results = []marketdata.SearchResult{}
	}

	s.respondWithJSON(w, http.StatusOK, map[string]interface{}{"results": results})
}
