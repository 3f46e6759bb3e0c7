package session

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensedash/internal/cache"
)

func loggedIn() State {
	return Transition(Anonymous(), LoginSucceeded{Username: "demo"})
}

func TestAnonymousOnlyAcceptsAuthEvents(t *testing.T) {
	s := Anonymous()
	assert.Equal(t, ScreenLogin, s.Current())

	for _, ev := range []Event{Navigate{To: ScreenSummary}, StartEdit{ID: 1}, SubmitEdit{}, CancelEdit{}} {
		assert.Equal(t, s, Transition(s, ev), "%T", ev)
	}

	up := Transition(s, ShowSignUp{})
	assert.Equal(t, ScreenSignUp, up.Current())
	assert.False(t, up.LoggedIn)

	back := Transition(up, ShowLogin{})
	assert.Equal(t, ScreenLogin, back.Current())

	failed := Transition(up, LoginFailed{})
	assert.Equal(t, Anonymous(), failed)
}

func TestLoginSucceeded(t *testing.T) {
	s := Transition(Anonymous(), LoginSucceeded{Username: "admin", IsAdmin: true})
	assert.True(t, s.LoggedIn)
	assert.True(t, s.IsAdmin)
	assert.Equal(t, "admin", s.Username)
	assert.Equal(t, ScreenAdd, s.Current())
	assert.Nil(t, s.EditID)

	assert.Equal(t, Anonymous(), Transition(Anonymous(), LoginSucceeded{}), "empty username ignored")
}

func TestNavigate(t *testing.T) {
	s := loggedIn()
	for _, to := range []Screen{ScreenSummary, ScreenManage, ScreenAdd} {
		s = Transition(s, Navigate{To: to})
		assert.Equal(t, to, s.Current())
		assert.True(t, s.LoggedIn)
	}

	same := Transition(s, Navigate{To: ScreenLogin})
	assert.Equal(t, s, same, "login screen unreachable while logged in")
	assert.Equal(t, s, Transition(s, ShowSignUp{}))
}

func TestEditFlow(t *testing.T) {
	s := Transition(loggedIn(), StartEdit{ID: 42})
	assert.Equal(t, ScreenManage, s.Current())
	require.NotNil(t, s.EditID)
	assert.True(t, s.Editing(42))
	assert.False(t, s.Editing(7))

	saved := Transition(s, SubmitEdit{})
	assert.Nil(t, saved.EditID)
	assert.Equal(t, ScreenManage, saved.Current())

	cancelled := Transition(s, CancelEdit{})
	assert.Nil(t, cancelled.EditID)

	stay := Transition(s, Navigate{To: ScreenManage})
	assert.True(t, stay.Editing(42), "staying on manage keeps the edit")

	away := Transition(s, Navigate{To: ScreenSummary})
	assert.Nil(t, away.EditID, "leaving manage drops the edit")
}

func TestTransitionDoesNotAlias(t *testing.T) {
	a := Transition(loggedIn(), StartEdit{ID: 1})
	b := Transition(a, StartEdit{ID: 2})
	assert.True(t, a.Editing(1))
	assert.True(t, b.Editing(2))
}

func TestLogoutFromAnywhere(t *testing.T) {
	states := []State{
		Anonymous(),
		Transition(Anonymous(), ShowSignUp{}),
		loggedIn(),
		Transition(loggedIn(), StartEdit{ID: 3}),
	}
	for _, s := range states {
		assert.Equal(t, Anonymous(), Transition(s, Logout{}))
	}
}

func TestStoreApply(t *testing.T) {
	store := NewStore(cache.NewIdleCache[State](10, time.Hour))
	tok, err := NewToken()
	require.NoError(t, err)
	assert.Len(t, tok, 64)

	_, ok := store.Load(tok)
	assert.False(t, ok)

	s := store.Apply(tok, LoginSucceeded{Username: "demo"})
	assert.True(t, s.LoggedIn)

	got, ok := store.Load(tok)
	require.True(t, ok)
	assert.Equal(t, "demo", got.Username)
	assert.Equal(t, 1, store.Len())

	store.Apply(tok, Logout{})
	_, ok = store.Load(tok)
	assert.False(t, ok, "logout discards the session")
	assert.Equal(t, 0, store.Len())
}

func TestStoreEmptyToken(t *testing.T) {
	store := NewStore(cache.NewIdleCache[State](10, time.Hour))
	s := store.Apply("", LoginSucceeded{Username: "demo"})
	assert.True(t, s.LoggedIn)
	assert.Equal(t, 0, store.Len())
}

func TestStoreFlashIsOneShot(t *testing.T) {
	store := NewStore(cache.NewIdleCache[State](10, time.Hour))
	tok, err := NewToken()
	require.NoError(t, err)

	assert.True(t, store.TakeFlash(tok).Empty())

	store.SetFlash(tok, Flash{Level: FlashWarning, Text: "Incorrect Username/Password"})
	st, ok := store.Load(tok)
	require.True(t, ok)
	assert.False(t, st.LoggedIn, "flash keeps an anonymous session anonymous")

	f := store.TakeFlash(tok)
	assert.Equal(t, FlashWarning, f.Level)
	assert.Equal(t, "Incorrect Username/Password", f.Text)
	assert.True(t, store.TakeFlash(tok).Empty())

	store.SetFlash("", Flash{Text: "dropped"})
	assert.Equal(t, 1, store.Len())
}

func TestStoreFlashSurvivesTransition(t *testing.T) {
	store := NewStore(cache.NewIdleCache[State](10, time.Hour))
	tok, err := NewToken()
	require.NoError(t, err)

	store.Apply(tok, ShowSignUp{})
	store.SetFlash(tok, Flash{Level: FlashSuccess, Text: "Account created. Please log in."})
	st := store.Apply(tok, ShowLogin{})
	assert.Equal(t, ScreenLogin, st.Current())
	assert.Equal(t, "Account created. Please log in.", store.TakeFlash(tok).Text)

	store.SetFlash(tok, Flash{Text: "gone"})
	store.Apply(tok, Logout{})
	assert.True(t, store.TakeFlash(tok).Empty())
}

func TestStoreConcurrentUpdatesKeepFlash(t *testing.T) {
	store := NewStore(cache.NewIdleCache[State](10, time.Hour))
	tok, err := NewToken()
	require.NoError(t, err)
	store.Apply(tok, LoginSucceeded{Username: "demo"})
	store.Apply(tok, Navigate{To: ScreenManage})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(id int64) {
			defer wg.Done()
			store.Apply(tok, StartEdit{ID: id})
		}(int64(i + 1))
		go func() {
			defer wg.Done()
			store.SetFlash(tok, Flash{Level: FlashSuccess, Text: "saved"})
		}()
	}
	wg.Wait()

	st, ok := store.Load(tok)
	require.True(t, ok)
	require.NotNil(t, st.EditID)
	assert.Equal(t, "saved", store.TakeFlash(tok).Text)
}
