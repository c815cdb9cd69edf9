package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/antoinecstl/finance-portfolio/internal/portfolio"
	"github.com/antoinecstl/finance-portfolio/internal/store"
)

// ListAccounts returns all accounts of the requesting user.
func (s *Server) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.store.ListAccounts(s.userID(r))
	if err != nil {
		s.logger.Error("Failed to list accounts: %v", err)
		s.respondWithError(w, http.StatusInternalServerError, "Failed to fetch accounts")
		return
	}
	s.respondWithJSON(w, http.StatusOK, accounts)
}

// CreateAccount creates a new account.
func (s *Server) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req AccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	currency := req.Currency
	if currency == "" {
		currency = "EUR"
	}
	account := portfolio.Account{
		Name:     req.Name,
		Type:     req.Type,
		Balance:  req.Balance,
		Currency: currency,
	}
	if err := s.store.CreateAccount(s.userID(r), &account); err != nil {
		s.logger.Error("Failed to create account: %v", err)
		s.respondWithError(w, http.StatusInternalServerError, "Failed to create account")
		return
	}

	s.respondWithJSON(w, http.StatusCreated, account)
}

// GetAccount returns one account by id.
func (s *Server) GetAccount(w http.ResponseWriter, r *http.Request) {
	account, err := s.store.GetAccount(s.userID(r), mux.Vars(r)["id"])
	if errors.Is(err, store.ErrNotFound) {
		s.respondWithError(w, http.StatusNotFound, "Account not found")
		return
	}
	if err != nil {
		s.logger.Error("Failed to get account: %v", err)
		s.respondWithError(w, http.StatusInternalServerError, "Failed to fetch account")
		return
	}
	s.respondWithJSON(w, http.StatusOK, account)
}

// UpdateAccount updates name, type, balance and currency of an account.
func (s *Server) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	var req AccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	userID := s.userID(r)
	account, err := s.store.GetAccount(userID, mux.Vars(r)["id"])
	if errors.Is(err, store.ErrNotFound) {
		s.respondWithError(w, http.StatusNotFound, "Account not found")
		return
	}
	if err != nil {
		s.logger.Error("Failed to get account: %v", err)
		s.respondWithError(w, http.StatusInternalServerError, "Failed to fetch account")
		return
	}

	account.Name = req.Name
	account.Type = req.Type
	account.Balance = req.Balance
	if req.Currency != "" {
		account.Currency = req.Currency
	}
	if err := s.store.UpdateAccount(userID, account); err != nil {
		s.logger.Error("Failed to update account: %v", err)
		s.respondWithError(w, http.StatusInternalServerError, "Failed to update account")
		return
	}

	s.respondWithJSON(w, http.StatusOK, account)
}

// DeleteAccount removes an account and everything attached to it.
func (s *Server) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	err := s.store.DeleteAccount(s.userID(r), mux.Vars(r)["id"])
	if errors.Is(err, store.ErrNotFound) {
		s.respondWithError(w, http.StatusNotFound, "Account not found")
		return
	}
	if err != nil {
		s.logger.Error("Failed to delete account: %v", err)
		s.respondWithError(w, http.StatusInternalServerError, "Failed to delete account")
		return
	}
	s.respondWithJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// GetAccountValue values one account from its transaction log and live quotes.
func (s *Server) GetAccountValue(w http.ResponseWriter, r *http.Request) {
	userID := s.userID(r)
	accountID := mux.Vars(r)["id"]

	account, err := s.store.GetAccount(userID, accountID)
	if errors.Is(err, store.ErrNotFound) {
		s.respondWithError(w, http.StatusNotFound, "Account not found")
		return
	}
	if err != nil {
		s.logger.Error("Failed to get account: %v", err)
		s.respondWithError(w, http.StatusInternalServerError, "Failed to fetch account")
		return
	}

	txs, err := s.store.ListAccountTransactions(userID, accountID)
	if err != nil {
		s.logger.Error("Failed to list transactions: %v", err)
		s.respondWithError(w, http.StatusInternalServerError, "Failed to fetch transactions")
		return
	}

	held, err := s.store.ListPositions(userID, accountID)
	if err != nil {
		s.logger.Error("Failed to list positions: %v", err)
		s.respondWithError(w, http.StatusInternalServerError, "Failed to fetch positions")
		return
	}

	start := time.Now()
	quoteMap := s.currentQuotes(r.Context(), portfolio.UniqueSymbols(txs))
	value := portfolio.ValueAccount(*account, txs, held, quoteMap, time.Now().UTC())
	s.tracker.TrackOperation("accounts.value", time.Since(start))

	s.respondWithJSON(w, http.StatusOK, value)
}
