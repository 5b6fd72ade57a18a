package http

import (
	"fmt"
	"net/http"
	"strconv"

	"budget/internal/exchange"
	applog "budget/internal/log"
)

// handleExport streams the full JSON document as an attachment.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	doc, err := exchange.Export(r.Context(), s.store, now)
	if err != nil {
		s.fail(w, r, "export", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="budget-export-%s.json"`, now.UTC().Format("2006-01-02")))
	if err := exchange.Write(w, doc); err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Export write failed", applog.FieldError, err.Error())
	}
}

// handleImport loads an export document. With ?clear=true the current data
// is replaced, otherwise rows are merged by id.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	clearFirst := false
	if v := r.URL.Query().Get("clear"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			s.fail(w, r, "import", fmt.Errorf("%w: clear must be a boolean", errBadRequest))
			return
		}
		clearFirst = b
	}

	doc, err := exchange.Read(http.MaxBytesReader(w, r.Body, maxImportBytes))
	if err != nil {
		s.fail(w, r, "import", importError(err))
		return
	}
	if err := s.ledger.Import(r.Context(), doc, clearFirst); err != nil {
		s.fail(w, r, "import", err)
		return
	}
	NewJSONResponse().Body(map[string]int{
		"accounts":     len(doc.Accounts),
		"categories":   len(doc.Categories),
		"transactions": len(doc.Transactions),
	}).Write(w)
}

// importError keeps recognised validation failures and reports anything
// else from decoding as a malformed request.
func importError(err error) error {
	if isAny(err, validationErrors) {
		return err
	}
	return fmt.Errorf("%w: %v", errBadRequest, err)
}
