package http

import (
	"net/http"
	"strings"

	"budget/internal/core"
	"budget/internal/exchange"
	applog "budget/internal/log"
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.agg.Dashboard(r.Context())
	if err != nil {
		s.fail(w, r, "dashboard", err)
		return
	}
	NewJSONResponse().Body(d).Write(w)
}

// handleMonthlyReport serves ?month=YYYY-MM, the current month by default.
func (s *Server) handleMonthlyReport(w http.ResponseWriter, r *http.Request) {
	at, err := parseMonth(r.URL.Query().Get("month"), s.now(), s.agg.Location())
	if err != nil {
		s.fail(w, r, "monthly_report", err)
		return
	}
	report, err := s.agg.MonthlyReport(r.Context(), at)
	if err != nil {
		s.fail(w, r, "monthly_report", err)
		return
	}
	NewJSONResponse().Body(report).Write(w)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.agg.Summary(r.Context())
	if err != nil {
		s.fail(w, r, "summary", err)
		return
	}
	NewJSONResponse().Body(sum).Write(w)
}

func (s *Server) handleBalances(w http.ResponseWriter, r *http.Request) {
	b, err := s.agg.Balances(r.Context())
	if err != nil {
		s.fail(w, r, "balances", err)
		return
	}
	NewJSONResponse().Body(b).Write(w)
}

type transactionList struct {
	ActiveFilters int                        `json:"activeFilters"`
	Count         int                        `json:"count"`
	Items         []core.EnrichedTransaction `json:"items"`
}

// handleListTransactions filters the enriched list. With format=csv the
// result is returned as a CSV attachment.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	c, err := ParseCriteria(q, s.agg.Location(), s.places)
	if err != nil {
		s.fail(w, r, "list_transactions", err)
		return
	}
	txs, err := s.agg.Transactions(r.Context(), c)
	if err != nil {
		s.fail(w, r, "list_transactions", err)
		return
	}

	if strings.EqualFold(q.Get("format"), "csv") {
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="transactions.csv"`)
		if err := exchange.WriteCSV(w, txs, s.agg.Location(), s.places); err != nil {
			// Headers are already sent; the client sees a truncated file.
			applog.FromContext(r.Context()).ErrorContext(r.Context(), "CSV export failed", applog.FieldError, err.Error())
		}
		return
	}
	NewJSONResponse().Body(transactionList{
		ActiveFilters: c.ActiveCount(),
		Count:         len(txs),
		Items:         txs,
	}).Write(w)
}
