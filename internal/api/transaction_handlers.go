package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/antoinecstl/finance-portfolio/internal/portfolio"
	"github.com/antoinecstl/finance-portfolio/internal/store"
)

// ListTransactions returns every transaction of the user, oldest first.
func (s *Server) ListTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := s.store.ListTransactions(s.userID(r))
	if err != nil {
		s.logger.Error("Failed to list transactions: %v", err)
		s.respondWithError(w, http.StatusInternalServerError, "Failed to fetch transactions")
		return
	}
	s.respondWithJSON(w, http.StatusOK, txs)
}

// ListAccountTransactions returns the transactions of one account.
func (s *Server) ListAccountTransactions(w http.ResponseWriter, r *http.Request) {
	userID := s.userID(r)
	accountID := mux.Vars(r)["id"]

	if _, err := s.store.GetAccount(userID, accountID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.respondWithError(w, http.StatusNotFound, "Account not found")
			return
		}
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
	s.respondWithJSON(w, http.StatusOK, txs)
}

// CreateTransaction records a new transaction on the account in the URL and
// refreshes the account's cached positions.
func (s *Server) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req TransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	req.Symbol = strings.ToUpper(strings.TrimSpace(req.Symbol))
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

	if (req.Type == portfolio.Buy || req.Type == portfolio.Sell) && !account.Type.IsInvestment() {
		s.respondWithError(w, http.StatusBadRequest, "Stock transactions require a PEA or CTO account")
		return
	}

	tx := req.ToTransaction(account.ID)
	if err := s.store.CreateTransaction(userID, &tx); err != nil {
		s.logger.Error("Failed to create transaction: %v", err)
		s.respondWithError(w, http.StatusInternalServerError, "Failed to create transaction")
		return
	}

	if tx.Type == portfolio.Buy || tx.Type == portfolio.Sell {
		s.refreshAccountPositions(userID, account)
	}

	s.respondWithJSON(w, http.StatusCreated, tx)
}

// DeleteTransaction removes a transaction. Derived positions and balances
// adjust automatically on the next reconstruction.
func (s *Server) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	err := s.store.DeleteTransaction(s.userID(r), mux.Vars(r)["id"])
	if errors.Is(err, store.ErrNotFound) {
		s.respondWithError(w, http.StatusNotFound, "Transaction not found")
		return
	}
	if err != nil {
		s.logger.Error("Failed to delete transaction: %v", err)
		s.respondWithError(w, http.StatusInternalServerError, "Failed to delete transaction")
		return
	}
	s.respondWithJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// refreshAccountPositions rebuilds the cached position rows of one account
// from its transaction log. The cache only exists to remember last known
// prices; reconstruction stays the source of truth.
func (s *Server) refreshAccountPositions(userID string, account *portfolio.Account) {
	txs, err := s.store.ListAccountTransactions(userID, account.ID)
	if err != nil {
		s.logger.Warn("Failed to refresh positions for account %s: %v", account.ID, err)
		return
	}

	positions, oversold := portfolio.PositionsAsOf(txs, time.Now().UTC(), account.ID)
	for _, bad := range oversold {
		s.logger.Warn("Oversold %s on account %s at %s: requested %.4f, held %.4f",
			bad.Symbol, bad.AccountID, bad.Date.Format("2006-01-02"), bad.Requested, bad.Held)
	}

	held, err := s.store.ListPositions(userID, account.ID)
	if err != nil {
		s.logger.Warn("Failed to list cached positions for account %s: %v", account.ID, err)
		return
	}

	stored := make(map[string]portfolio.HeldPosition, len(held))
	for _, h := range held {
		stored[h.Symbol] = h
	}

	for symbol, pos := range positions {
		price := stored[symbol].CurrentPrice
		err := s.store.UpsertPosition(userID, account.ID, portfolio.HeldPosition{
			Symbol:       symbol,
			Quantity:     pos.Quantity,
			CurrentPrice: price,
		})
		if err != nil {
			s.logger.Warn("Failed to upsert position %s: %v", symbol, err)
		}
	}
	for symbol := range stored {
		if _, still := positions[symbol]; !still {
			if err := s.store.DeletePosition(userID, account.ID, symbol); err != nil && !errors.Is(err, store.ErrNotFound) {
				s.logger.Warn("Failed to drop closed position %s: %v", symbol, err)
			}
		}
	}
}
