package http

import (
	"fmt"
	"net/http"
	"strings"
)

// transferID validates the {id} path value. Ids are opaque: imported
// documents may carry ids that are not UUIDs.
func transferID(r *http.Request) (string, error) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" || len(id) > 64 {
		return "", fmt.Errorf("%w: invalid transfer id", errBadRequest)
	}
	return id, nil
}

func (s *Server) handleCreateTransfer(w http.ResponseWriter, r *http.Request) {
	var body transferRequest
	if err := decodeJSON(w, r, &body); err != nil {
		s.fail(w, r, "create_transfer", err)
		return
	}
	req, err := body.toRequest(s.agg.Location(), s.places)
	if err != nil {
		s.fail(w, r, "create_transfer", err)
		return
	}
	t, err := s.transfers.Create(r.Context(), req)
	if err != nil {
		s.fail(w, r, "create_transfer", err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(t).Write(w)
}

func (s *Server) handleGetTransfer(w http.ResponseWriter, r *http.Request) {
	id, err := transferID(r)
	if err != nil {
		s.fail(w, r, "get_transfer", err)
		return
	}
	t, err := s.transfers.Get(r.Context(), id)
	if err != nil {
		s.fail(w, r, "get_transfer", err)
		return
	}
	NewJSONResponse().Body(t).Write(w)
}

func (s *Server) handleEditTransfer(w http.ResponseWriter, r *http.Request) {
	id, err := transferID(r)
	if err != nil {
		s.fail(w, r, "edit_transfer", err)
		return
	}
	var body transferRequest
	if err := decodeJSON(w, r, &body); err != nil {
		s.fail(w, r, "edit_transfer", err)
		return
	}
	req, err := body.toRequest(s.agg.Location(), s.places)
	if err != nil {
		s.fail(w, r, "edit_transfer", err)
		return
	}
	t, err := s.transfers.Edit(r.Context(), id, req)
	if err != nil {
		s.fail(w, r, "edit_transfer", err)
		return
	}
	NewJSONResponse().Body(t).Write(w)
}

func (s *Server) handleDeleteTransfer(w http.ResponseWriter, r *http.Request) {
	id, err := transferID(r)
	if err != nil {
		s.fail(w, r, "delete_transfer", err)
		return
	}
	if err := s.transfers.Delete(r.Context(), id); err != nil {
		s.fail(w, r, "delete_transfer", err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}
