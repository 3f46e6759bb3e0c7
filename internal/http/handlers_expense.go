package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"expensedash/internal/core"
	"expensedash/internal/log"
	"expensedash/internal/report"
	"expensedash/internal/services"
	"expensedash/internal/session"
)

const (
	msgExpenseAdded   = "Expense added successfully!"
	msgInvalidDate    = "Please enter a valid date."
	msgInvalidAmount  = "Please enter a valid, non-negative amount."
	msgInvalidCat     = "Please choose a category from the list."
	msgExpenseMissing = "That expense no longer exists."
)

// inputMessage maps an input validation error to the text shown to the user.
// ok is false for errors that are not the user's fault.
func inputMessage(err error) (string, bool) {
	switch {
	case errors.Is(err, core.ErrInvalidDate):
		return msgInvalidDate, true
	case errors.Is(err, core.ErrInvalidAmount):
		return msgInvalidAmount, true
	case errors.Is(err, core.ErrInvalidCategory):
		return msgInvalidCat, true
	}
	return "", false
}

func (s *Server) handleAddPage(w http.ResponseWriter, r *http.Request) {
	st := s.apply(r, session.Navigate{To: session.ScreenAdd})
	s.render(w, r, http.StatusOK, "add", pageData{
		Title: "Add Expense",
		State: st,
		Flash: s.sessions.TakeFlash(sessionToken(r)),
		Form:  formValues{Date: core.Today().String(), Category: string(core.Food)},
	})
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	st := s.apply(r, session.Navigate{To: session.ScreenAdd})

	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		s.renderError(w, r, http.StatusBadRequest, "The form could not be read.")
		return
	}
	form := formValues{
		Date:        p.Get("date"),
		Category:    p.Get("category"),
		Amount:      p.Get("amount"),
		Description: p.Get("description"),
	}

	in, err := ParseExpenseInput(p)
	if err == nil {
		_, err = s.expenses.Add(r.Context(), s.caller(r), in)
	}
	if err != nil {
		msg, ok := inputMessage(err)
		if !ok {
			s.serverError(w, r, err)
			return
		}
		s.render(w, r, http.StatusUnprocessableEntity, "add", pageData{
			Title: "Add Expense",
			State: st,
			Flash: session.Flash{Level: session.FlashWarning, Text: msg},
			Form:  form,
		})
		return
	}

	s.flash(r, session.FlashSuccess, msgExpenseAdded)
	http.Redirect(w, r, "/expenses/new", http.StatusSeeOther)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	st := s.apply(r, session.Navigate{To: session.ScreenSummary})
	caller := s.caller(r)

	sum, err := s.expenses.Summary(r.Context(), caller)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	rows, err := s.expenses.List(r.Context(), caller)
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	s.render(w, r, http.StatusOK, "summary", pageData{
		Title:    "Summary",
		State:    st,
		Flash:    s.sessions.TakeFlash(sessionToken(r)),
		Summary:  sum,
		Expenses: rows,
	})
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	kind, ok := report.ParseChartKind(chi.URLParam(r, "kind"))
	if !ok {
		http.NotFound(w, r)
		return
	}

	png, err := s.expenses.Chart(r.Context(), s.caller(r), kind)
	if errors.Is(err, report.ErrNoData) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Chart render failed",
			"chart", string(kind), log.FieldError, err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	_, _ = w.Write(png)
}

func (s *Server) handleManage(w http.ResponseWriter, r *http.Request) {
	st := s.apply(r, session.Navigate{To: session.ScreenManage})

	rows, err := s.expenses.List(r.Context(), s.caller(r))
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	// A row deleted elsewhere cannot stay in edit mode.
	if st.EditID != nil && !containsExpense(rows, *st.EditID) {
		st = s.apply(r, session.CancelEdit{})
	}

	s.render(w, r, http.StatusOK, "manage", pageData{
		Title:    "Manage Records",
		State:    st,
		Flash:    s.sessions.TakeFlash(sessionToken(r)),
		Expenses: rows,
		Actions:  true,
	})
}

func containsExpense(rows []core.Expense, id int64) bool {
	for _, e := range rows {
		if e.ID == id {
			return true
		}
	}
	return false
}

func (s *Server) handleStartEdit(w http.ResponseWriter, r *http.Request) {
	id, err := expenseID(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	if _, err := s.expenses.Get(r.Context(), s.caller(r), id); err != nil {
		if !services.IsNotFound(err) {
			s.serverError(w, r, err)
			return
		}
		s.flash(r, session.FlashError, msgExpenseMissing)
	} else {
		s.apply(r, session.StartEdit{ID: id})
	}
	http.Redirect(w, r, "/manage", http.StatusSeeOther)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	id, err := expenseID(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		s.renderError(w, r, http.StatusBadRequest, "The form could not be read.")
		return
	}

	in, err := ParseExpenseInput(p)
	if err == nil {
		_, err = s.expenses.Update(r.Context(), s.caller(r), id, in)
	}
	switch {
	case err == nil:
		s.apply(r, session.SubmitEdit{})
		s.flash(r, session.FlashSuccess, fmt.Sprintf("Updated record with ID: %d", id))
	case services.IsNotFound(err):
		s.apply(r, session.CancelEdit{})
		s.flash(r, session.FlashError, msgExpenseMissing)
	default:
		msg, ok := inputMessage(err)
		if !ok {
			s.serverError(w, r, err)
			return
		}
		// The row stays in edit mode so the user can correct it.
		s.flash(r, session.FlashWarning, msg)
	}
	http.Redirect(w, r, "/manage", http.StatusSeeOther)
}

func (s *Server) handleCancelEdit(w http.ResponseWriter, r *http.Request) {
	s.apply(r, session.CancelEdit{})
	http.Redirect(w, r, "/manage", http.StatusSeeOther)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, err := expenseID(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	err = s.expenses.Delete(r.Context(), s.caller(r), id)
	switch {
	case err == nil:
		if s.state(r).Editing(id) {
			s.apply(r, session.CancelEdit{})
		}
		s.flash(r, session.FlashSuccess, fmt.Sprintf("Deleted record with ID: %d", id))
	case services.IsNotFound(err):
		s.flash(r, session.FlashError, msgExpenseMissing)
	default:
		s.serverError(w, r, err)
		return
	}
	http.Redirect(w, r, "/manage", http.StatusSeeOther)
}

func (s *Server) handleExport(format services.ExportFormat) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, err := s.expenses.Export(r.Context(), s.caller(r), format)
		if err != nil {
			s.serverError(w, r, err)
			return
		}

		w.Header().Set("Content-Type", f.ContentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", f.Name))
		w.Header().Set("Content-Length", strconv.Itoa(len(f.Body)))
		_, _ = w.Write(f.Body)
	}
}
