// Package session models the per-browser UI state as a value and the pure
// transitions between states.
package session

// Screen is the page a session is currently on.
type Screen string

const (
	ScreenLogin   Screen = "login"
	ScreenSignUp  Screen = "signup"
	ScreenAdd     Screen = "add"
	ScreenSummary Screen = "summary"
	ScreenManage  Screen = "manage"
)

// Authenticated reports whether s is only reachable after login.
func (s Screen) Authenticated() bool {
	switch s {
	case ScreenAdd, ScreenSummary, ScreenManage:
		return true
	}
	return false
}

// State is the whole per-session context. The zero value is an anonymous
// session on the login screen.
type State struct {
	LoggedIn bool
	Username string
	IsAdmin  bool
	Screen   Screen
	// EditID is the expense being edited on the manage screen, if any.
	EditID *int64
	// Flash is shown once on the next rendered page.
	Flash Flash
}

// FlashLevel selects how a flash message is styled.
type FlashLevel string

const (
	FlashSuccess FlashLevel = "success"
	FlashWarning FlashLevel = "warning"
	FlashError   FlashLevel = "error"
)

// Flash is a one-shot message carried across a redirect.
type Flash struct {
	Level FlashLevel
	Text  string
}

// Empty reports whether there is nothing to show.
func (f Flash) Empty() bool { return f.Text == "" }

// Anonymous returns the logged-out state.
func Anonymous() State {
	return State{Screen: ScreenLogin}
}

// Current returns the screen to render, treating an unset screen as login
// or add depending on authentication.
func (s State) Current() Screen {
	if s.Screen != "" {
		return s.Screen
	}
	if s.LoggedIn {
		return ScreenAdd
	}
	return ScreenLogin
}

// Editing reports whether id is the expense under edit.
func (s State) Editing(id int64) bool {
	return s.EditID != nil && *s.EditID == id
}

// Event is an input to Transition.
type Event interface {
	event()
}

type (
	ShowLogin  struct{}
	ShowSignUp struct{}

	LoginSucceeded struct {
		Username string
		IsAdmin  bool
	}

	// LoginFailed keeps the session anonymous on the login screen.
	LoginFailed struct{}

	Logout struct{}

	Navigate struct {
		To Screen
	}

	StartEdit struct {
		ID int64
	}

	SubmitEdit struct{}
	CancelEdit struct{}
)

func (ShowLogin) event()      {}
func (ShowSignUp) event()     {}
func (LoginSucceeded) event() {}
func (LoginFailed) event()    {}
func (Logout) event()         {}
func (Navigate) event()       {}
func (StartEdit) event()      {}
func (SubmitEdit) event()     {}
func (CancelEdit) event()     {}

// Transition computes the state after ev. It never mutates s.
func Transition(s State, ev Event) State {
	if _, ok := ev.(Logout); ok {
		return Anonymous()
	}

	if !s.LoggedIn {
		switch e := ev.(type) {
		case ShowLogin, LoginFailed:
			return Anonymous()
		case ShowSignUp:
			return State{Screen: ScreenSignUp}
		case LoginSucceeded:
			if e.Username == "" {
				return s
			}
			return State{LoggedIn: true, Username: e.Username, IsAdmin: e.IsAdmin, Screen: ScreenAdd}
		}
		return s
	}

	switch e := ev.(type) {
	case Navigate:
		if !e.To.Authenticated() {
			return s
		}
		next := s
		next.Screen = e.To
		if e.To != ScreenManage {
			next.EditID = nil
		}
		return next
	case StartEdit:
		id := e.ID
		next := s
		next.Screen = ScreenManage
		next.EditID = &id
		return next
	case SubmitEdit, CancelEdit:
		next := s
		next.EditID = nil
		return next
	case LoginSucceeded:
		if e.Username == "" {
			return s
		}
		return State{LoggedIn: true, Username: e.Username, IsAdmin: e.IsAdmin, Screen: ScreenAdd}
	}
	return s
}
