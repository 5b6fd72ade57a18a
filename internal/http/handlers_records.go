package http

import (
	"net/http"
	"time"

	"budget/internal/core"
)

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	l, err := s.agg.Ledger(r.Context())
	if err != nil {
		s.fail(w, r, "list_accounts", err)
		return
	}
	NewJSONResponse().Body(l.Accounts()).Write(w)
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, "create_account", err)
		return
	}
	a, err := req.toAccount(s.places)
	if err != nil {
		s.fail(w, r, "create_account", err)
		return
	}
	a, err = s.ledger.CreateAccount(r.Context(), a)
	if err != nil {
		s.fail(w, r, "create_account", err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(a).Write(w)
}

func (s *Server) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, "update_account", err)
		return
	}
	var req accountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, "update_account", err)
		return
	}
	a, err := req.toAccount(s.places)
	if err != nil {
		s.fail(w, r, "update_account", err)
		return
	}
	a.ID = id
	if err := s.ledger.UpdateAccount(r.Context(), a); err != nil {
		s.fail(w, r, "update_account", err)
		return
	}
	NewJSONResponse().Body(a).Write(w)
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, "delete_account", err)
		return
	}
	if err := s.ledger.DeleteAccount(r.Context(), id); err != nil {
		s.fail(w, r, "delete_account", err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	l, err := s.agg.Ledger(r.Context())
	if err != nil {
		s.fail(w, r, "list_categories", err)
		return
	}
	NewJSONResponse().Body(l.Categories()).Write(w)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, "create_category", err)
		return
	}
	c, err := req.toCategory(s.places)
	if err != nil {
		s.fail(w, r, "create_category", err)
		return
	}
	c, err = s.ledger.CreateCategory(r.Context(), c)
	if err != nil {
		s.fail(w, r, "create_category", err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(c).Write(w)
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, "update_category", err)
		return
	}
	var req categoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, "update_category", err)
		return
	}
	c, err := req.toCategory(s.places)
	if err != nil {
		s.fail(w, r, "update_category", err)
		return
	}
	c.ID = id
	if err := s.ledger.UpdateCategory(r.Context(), c); err != nil {
		s.fail(w, r, "update_category", err)
		return
	}
	NewJSONResponse().Body(c).Write(w)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, "delete_category", err)
		return
	}
	if err := s.ledger.DeleteCategory(r.Context(), id); err != nil {
		s.fail(w, r, "delete_category", err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

// transaction turns a request body into a signed transaction.
func (s *Server) transaction(r *http.Request, req transactionRequest, loc *time.Location) (core.Transaction, error) {
	magnitude, err := core.ParseAmount(req.Amount, s.places)
	if err != nil {
		return core.Transaction{}, err
	}
	date, err := parseDate(req.Date, loc)
	if err != nil {
		return core.Transaction{}, err
	}
	amount, err := s.ledger.SignAmount(r.Context(), req.CategoryID, magnitude)
	if err != nil {
		return core.Transaction{}, err
	}
	return core.Transaction{
		Date:        date,
		AccountID:   req.AccountID,
		CategoryID:  req.CategoryID,
		Amount:      amount,
		Description: sanitizeInput(req.Description),
	}, nil
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, "create_transaction", err)
		return
	}
	t, err := s.transaction(r, req, s.agg.Location())
	if err != nil {
		s.fail(w, r, "create_transaction", err)
		return
	}
	t, err = s.ledger.CreateTransaction(r.Context(), t)
	if err != nil {
		s.fail(w, r, "create_transaction", err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(t).Write(w)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, "update_transaction", err)
		return
	}
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, "update_transaction", err)
		return
	}
	t, err := s.transaction(r, req, s.agg.Location())
	if err != nil {
		s.fail(w, r, "update_transaction", err)
		return
	}
	t.ID = id
	if err := s.ledger.UpdateTransaction(r.Context(), t); err != nil {
		s.fail(w, r, "update_transaction", err)
		return
	}
	NewJSONResponse().Body(t).Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, "delete_transaction", err)
		return
	}
	if err := s.ledger.DeleteTransaction(r.Context(), id); err != nil {
		s.fail(w, r, "delete_transaction", err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}
