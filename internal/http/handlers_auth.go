package http

import (
	"errors"
	"net/http"

	"expensedash/internal/core"
	"expensedash/internal/log"
	"expensedash/internal/session"
)

const (
	msgAuthFailed       = "Incorrect Username/Password"
	msgDuplicateUser    = "Username already exists"
	msgPasswordMismatch = "Passwords do not match"
	msgMissingFields    = "Username and password are required"
	msgAccountCreated   = "Account created. Please log in."
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, screenPath(s.state(r).Current()), http.StatusSeeOther)
}

func screenPath(sc session.Screen) string {
	switch sc {
	case session.ScreenSignUp:
		return "/signup"
	case session.ScreenAdd:
		return "/expenses/new"
	case session.ScreenSummary:
		return "/summary"
	case session.ScreenManage:
		return "/manage"
	default:
		return "/login"
	}
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if s.state(r).LoggedIn {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	st := s.apply(r, session.ShowLogin{})
	s.render(w, r, http.StatusOK, "login", pageData{
		Title: "Login",
		State: st,
		Flash: s.sessions.TakeFlash(sessionToken(r)),
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		s.renderError(w, r, http.StatusBadRequest, "The form could not be read.")
		return
	}
	username := p.Get("username")
	password := p.GetRaw("password")

	u, err := s.creds.Authenticate(r.Context(), username, password)
	if errors.Is(err, core.ErrAuthFailed) {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Login failed",
			log.FieldOperation, log.OpLogin, log.FieldUsername, username)
		st := s.apply(r, session.LoginFailed{})
		s.render(w, r, http.StatusUnauthorized, "login", pageData{
			Title:    "Login",
			State:    st,
			Username: username,
			Flash:    session.Flash{Level: session.FlashWarning, Text: msgAuthFailed},
		})
		return
	}
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	// A fresh token on login so a planted cookie never becomes authenticated.
	token, err := session.NewToken()
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	s.sessions.Destroy(sessionToken(r))
	caller := s.creds.Caller(u.Username)
	s.sessions.Apply(token, session.LoginSucceeded{Username: caller.Username, IsAdmin: caller.IsAdmin})
	s.sessions.SetFlash(token, session.Flash{Level: session.FlashSuccess, Text: "Welcome " + caller.Username})
	s.setSessionCookie(w, token)

	log.FromContext(r.Context()).InfoContext(r.Context(), "Login succeeded",
		log.NewFields().WithOperation(log.OpLogin).WithUser(caller.Username, caller.IsAdmin).ToSlice()...)
	http.Redirect(w, r, screenPath(session.ScreenAdd), http.StatusSeeOther)
}

func (s *Server) handleSignUpPage(w http.ResponseWriter, r *http.Request) {
	if s.state(r).LoggedIn {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	st := s.apply(r, session.ShowSignUp{})
	s.render(w, r, http.StatusOK, "signup", pageData{
		Title: "Sign Up",
		State: st,
		Flash: s.sessions.TakeFlash(sessionToken(r)),
	})
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		s.renderError(w, r, http.StatusBadRequest, "The form could not be read.")
		return
	}
	username := p.Get("username")

	err := s.creds.RegisterConfirmed(r.Context(), username, p.GetRaw("password"), p.GetRaw("confirm"))
	if err == nil {
		s.apply(r, session.ShowLogin{})
		s.flash(r, session.FlashSuccess, msgAccountCreated)
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	var (
		status int
		flash  session.Flash
	)
	switch {
	case errors.Is(err, core.ErrPasswordMismatch):
		status, flash = http.StatusUnprocessableEntity, session.Flash{Level: session.FlashWarning, Text: msgPasswordMismatch}
	case errors.Is(err, core.ErrDuplicateUser):
		status, flash = http.StatusConflict, session.Flash{Level: session.FlashError, Text: msgDuplicateUser}
	case errors.Is(err, core.ErrInvalidCredentials):
		status, flash = http.StatusUnprocessableEntity, session.Flash{Level: session.FlashWarning, Text: msgMissingFields}
	default:
		s.serverError(w, r, err)
		return
	}

	s.render(w, r, status, "signup", pageData{
		Title:    "Sign Up",
		State:    s.state(r),
		Username: username,
		Flash:    flash,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	st := s.state(r)
	s.apply(r, session.Logout{})
	s.clearSessionCookie(w)
	if st.LoggedIn {
		log.FromContext(r.Context()).InfoContext(r.Context(), "Logout",
			log.FieldOperation, log.OpLogout, log.FieldUsername, st.Username)
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
