package http

import (
	"context"
	"net/http"

	"expensedash/internal/core"
	"expensedash/internal/log"
	"expensedash/internal/session"
)

const sessionCookieName = "expensedash_session"

type sessionKey struct{}

// withSession guarantees every browser request carries a session token,
// minting one for first-time visitors.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := ""
		if c, err := r.Cookie(sessionCookieName); err == nil {
			token = c.Value
		}
		if _, ok := s.sessions.Load(token); !ok {
			fresh, err := session.NewToken()
			if err != nil {
				s.serverError(w, r, err)
				return
			}
			token = fresh
			s.sessions.Apply(token, session.ShowLogin{})
			s.setSessionCookie(w, token)
		}

		ctx := context.WithValue(r.Context(), sessionKey{}, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireLogin sends anonymous sessions to the login page and tags the
// request logger with the user.
func (s *Server) requireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		st, _ := s.sessions.Load(sessionToken(r))
		if !st.LoggedIn {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		logger := log.FromContext(r.Context()).With(log.FieldUsername, st.Username)
		next.ServeHTTP(w, r.WithContext(log.NewContext(r.Context(), logger)))
	})
}

func sessionToken(r *http.Request) string {
	if token, ok := r.Context().Value(sessionKey{}).(string); ok {
		return token
	}
	if c, err := r.Cookie(sessionCookieName); err == nil {
		return c.Value
	}
	return ""
}

func (s *Server) state(r *http.Request) session.State {
	st, _ := s.sessions.Load(sessionToken(r))
	return st
}

func (s *Server) caller(r *http.Request) core.Caller {
	st := s.state(r)
	return core.Caller{Username: st.Username, IsAdmin: st.IsAdmin}
}

func (s *Server) apply(r *http.Request, ev session.Event) session.State {
	return s.sessions.Apply(sessionToken(r), ev)
}

func (s *Server) flash(r *http.Request, level session.FlashLevel, text string) {
	s.sessions.SetFlash(sessionToken(r), session.Flash{Level: level, Text: text})
}

func (s *Server) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.sessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
