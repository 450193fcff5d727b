package engine

import "sync/atomic"

// Session is per-connection state owned by the engine. A new session starts
// with the missing-coordinator warning unseen.
type Session struct {
	UserID string
	warned atomic.Bool
}

// NewSession creates a session for the connected user
func NewSession(userID string) *Session {
	return &Session{UserID: userID}
}

// FirstWarning reports true exactly once per session
func (s *Session) FirstWarning() bool {
	return s.warned.CompareAndSwap(false, true)
}
