// Package identity supplies the current user's identifier to the card store
// and notifies it when the session changes.
package identity

import "sync"

// LocalUser is the identity used by the local-only storage shapes.
const LocalUser = "local"

// Provider yields the current user's identifier. An empty string means nobody is signed in.
type Provider interface {
	CurrentUserID() string
	// OnSessionChange registers fn to be called with the new user id
	// (empty on sign-out) whenever the session changes.
	OnSessionChange(fn func(userID string))
}

// Static is a Provider with a fixed identity that never changes.
type Static string

// CurrentUserID returns the fixed identity.
func (s Static) CurrentUserID() string { return string(s) }

// OnSessionChange is a no-op: a static identity has no session lifecycle.
func (s Static) OnSessionChange(func(string)) {}

// Session is a mutable Provider driven by sign-in and sign-out events.
type Session struct {
	mu        sync.Mutex
	userID    string
	listeners []func(string)
}

// NewSession returns a signed-out session.
func NewSession() *Session {
	return &Session{}
}

// CurrentUserID returns the signed-in user id or "".
func (s *Session) CurrentUserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

// OnSessionChange registers a listener.
func (s *Session) OnSessionChange(fn func(string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// SignIn sets the current user and notifies listeners if it changed.
func (s *Session) SignIn(userID string) {
	s.set(userID)
}

// SignOut clears the current user and notifies listeners if someone was signed in.
func (s *Session) SignOut() {
	s.set("")
}

func (s *Session) set(userID string) {
	s.mu.Lock()
	if s.userID == userID {
		s.mu.Unlock()
		return
	}
	s.userID = userID
	listeners := make([]func(string), len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(userID)
	}
}
