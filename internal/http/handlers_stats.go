package http

import (
	"net/http"

	"finances/internal/core"
	"finances/internal/log"
	"finances/internal/storage"
)

// handleCategoryTotals serves per-category sums of one type. Without a
// window every transaction counts.
func (s *Server) handleCategoryTotals(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	kind, err := requiredKind(q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	win, err := optionalWindow(q, s.now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	shares, err := s.svc.CategoryTotals(r.Context(), kind, win)
	if err != nil {
		writeError(w, r, err)
		return
	}
	logAggregate(r, "categories", optionalKey(win))
	writeJSON(w, http.StatusOK, shares)
}

// handleMonthlyTotals accepts either a year or a window. A year lists its
// months oldest first unless order says otherwise; everything else defaults
// to newest first.
func (s *Server) handleMonthlyTotals(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	year, err := parseYear(q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	win, err := optionalWindow(q, s.now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	def := core.Descending
	if year != 0 {
		def = core.Ascending
	}
	order, err := core.ParseSortOrder(q.Get("order"), def)
	if err != nil {
		writeError(w, r, err)
		return
	}

	months, err := s.svc.MonthlyTotals(r.Context(), storage.MonthlyQuery{Year: year, Window: win, Order: order})
	if err != nil {
		writeError(w, r, err)
		return
	}
	logAggregate(r, "monthly", optionalKey(win))
	writeJSON(w, http.StatusOK, months)
}

func (s *Server) handleWeeklyTotals(w http.ResponseWriter, r *http.Request) {
	win, err := windowOrAll(r.URL.Query(), s.now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	weeks, err := s.svc.WeeklyTotals(r.Context(), win)
	if err != nil {
		writeError(w, r, err)
		return
	}
	logAggregate(r, "weekly", win.String())
	writeJSON(w, http.StatusOK, weeks)
}

func (s *Server) handleAvailableYears(w http.ResponseWriter, r *http.Request) {
	years, err := s.svc.AvailableYears(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	logAggregate(r, "years", "all")
	writeJSON(w, http.StatusOK, years)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	win, err := windowOrAll(r.URL.Query(), s.now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	report, err := s.svc.Summary(r.Context(), win)
	if err != nil {
		writeError(w, r, err)
		return
	}
	logAggregate(r, "summary", win.String())
	writeJSON(w, http.StatusOK, report)
}

func logAggregate(r *http.Request, name, window string) {
	fields := log.NewFields().WithOperation(log.OpAggregate).WithWindow(window)
	log.FromContext(r.Context()).DebugContext(r.Context(), "Aggregate served",
		append(fields.ToSlice(), "aggregate", name)...)
}

func optionalKey(w *core.Window) string {
	if w == nil {
		return "all"
	}
	return w.String()
}
