package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"expensedash/internal/core"
	"expensedash/internal/log"
	"expensedash/internal/services"
)

type callerKey struct{}

type expenseJSON struct {
	ID          int64           `json:"id"`
	Username    string          `json:"username"`
	Date        string          `json:"date"`
	Category    core.Category   `json:"category"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

func toExpenseJSON(e core.Expense) expenseJSON {
	return expenseJSON{
		ID:          e.ID,
		Username:    e.Username,
		Date:        e.Date.String(),
		Category:    e.Category,
		Amount:      e.Amount.Round(core.AmountPlaces),
		Description: e.Description,
	}
}

type categoryTotalJSON struct {
	Category core.Category   `json:"category"`
	Total    decimal.Decimal `json:"total"`
}

type monthTotalJSON struct {
	Month string          `json:"month"`
	Total decimal.Decimal `json:"total"`
}

type summaryJSON struct {
	Count      int                 `json:"count"`
	Total      decimal.Decimal     `json:"total"`
	ByCategory []categoryTotalJSON `json:"by_category"`
	ByMonth    []monthTotalJSON    `json:"by_month"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// apiError maps service errors onto status codes.
func apiError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case services.IsNotFound(err):
		writeJSONError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, errBadRequest):
		writeJSONError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidCategory):
		writeJSONError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		log.FromContext(r.Context()).ErrorContext(r.Context(), "API request failed", log.FieldError, err)
		writeJSONError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) apiLogin(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		apiError(w, r, err)
		return
	}

	u, err := s.creds.Authenticate(r.Context(), p.Get("username"), p.GetRaw("password"))
	if errors.Is(err, core.ErrAuthFailed) {
		writeJSONError(w, http.StatusUnauthorized, err.Error())
		return
	}
	if err != nil {
		apiError(w, r, err)
		return
	}

	token, err := s.tokens.Issue(s.creds.Caller(u.Username))
	if err != nil {
		apiError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// requireToken authenticates API calls with a bearer token. Admin rights
// are recomputed from the username rather than trusted from the claims.
func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || raw == "" {
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeJSONError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		claimed, err := s.tokens.Parse(strings.TrimSpace(raw))
		if err != nil {
			w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
			writeJSONError(w, http.StatusUnauthorized, err.Error())
			return
		}

		caller := s.creds.Caller(claimed.Username)
		ctx := context.WithValue(r.Context(), callerKey{}, caller)
		logger := log.FromContext(ctx).With(log.FieldUsername, caller.Username)
		next.ServeHTTP(w, r.WithContext(log.NewContext(ctx, logger)))
	})
}

func apiCaller(r *http.Request) core.Caller {
	c, _ := r.Context().Value(callerKey{}).(core.Caller)
	return c
}

func (s *Server) apiListExpenses(w http.ResponseWriter, r *http.Request) {
	rows, err := s.expenses.List(r.Context(), apiCaller(r))
	if err != nil {
		apiError(w, r, err)
		return
	}
	out := make([]expenseJSON, 0, len(rows))
	for _, e := range rows {
		out = append(out, toExpenseJSON(e))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) apiCreateExpense(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		apiError(w, r, err)
		return
	}
	in, err := ParseExpenseInput(p)
	if err != nil {
		apiError(w, r, err)
		return
	}
	e, err := s.expenses.Add(r.Context(), apiCaller(r), in)
	if err != nil {
		apiError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toExpenseJSON(e))
}

func (s *Server) apiGetExpense(w http.ResponseWriter, r *http.Request) {
	id, err := expenseID(r)
	if err != nil {
		apiError(w, r, err)
		return
	}
	e, err := s.expenses.Get(r.Context(), apiCaller(r), id)
	if err != nil {
		apiError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toExpenseJSON(e))
}

func (s *Server) apiUpdateExpense(w http.ResponseWriter, r *http.Request) {
	id, err := expenseID(r)
	if err != nil {
		apiError(w, r, err)
		return
	}
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		apiError(w, r, err)
		return
	}
	in, err := ParseExpenseInput(p)
	if err != nil {
		apiError(w, r, err)
		return
	}
	e, err := s.expenses.Update(r.Context(), apiCaller(r), id, in)
	if err != nil {
		apiError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toExpenseJSON(e))
}

func (s *Server) apiDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, err := expenseID(r)
	if err != nil {
		apiError(w, r, err)
		return
	}
	if err := s.expenses.Delete(r.Context(), apiCaller(r), id); err != nil {
		apiError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) apiSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.expenses.Summary(r.Context(), apiCaller(r))
	if err != nil {
		apiError(w, r, err)
		return
	}

	out := summaryJSON{
		Count:      sum.Count,
		Total:      sum.Total,
		ByCategory: make([]categoryTotalJSON, 0, len(sum.ByCategory)),
		ByMonth:    make([]monthTotalJSON, 0, len(sum.ByMonth)),
	}
	for _, c := range sum.ByCategory {
		out.ByCategory = append(out.ByCategory, categoryTotalJSON{Category: c.Category, Total: c.Total})
	}
	for _, m := range sum.ByMonth {
		out.ByMonth = append(out.ByMonth, monthTotalJSON{Month: m.Month, Total: m.Total})
	}
	writeJSON(w, http.StatusOK, out)
}

type statsJSON struct {
	Requests           int64 `json:"requests"`
	AvgResponseMicros  int64 `json:"avg_response_us"`
	LoginThrottled     int64 `json:"login_throttled"`
	LoginClients       int64 `json:"login_clients"`
	SuspiciousRequests int64 `json:"suspicious_requests"`
	BlockedMethods     int64 `json:"blocked_methods"`
	Sessions           int   `json:"sessions"`
}

// apiStats reports process counters. Admin only.
func (s *Server) apiStats(w http.ResponseWriter, r *http.Request) {
	if !apiCaller(r).IsAdmin {
		writeJSONError(w, http.StatusForbidden, "admin only")
		return
	}

	traced := s.tracer.GetMetrics()
	limited := s.loginLimit.GetMetrics()
	detected := s.detector.GetMetrics()
	writeJSON(w, http.StatusOK, statsJSON{
		Requests:           traced.TotalRequests,
		AvgResponseMicros:  traced.AverageResponseTime,
		LoginThrottled:     limited.TotalHits,
		LoginClients:       limited.ClientCount,
		SuspiciousRequests: detected.SuspiciousRequests,
		BlockedMethods:     detected.BlockedMethods,
		Sessions:           s.sessions.Len(),
	})
}
