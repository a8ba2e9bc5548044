// Package session provides domain.SessionContext implementations.
package session

import (
	"sync"

	"github.com/neomorfeo/fleetsignup/internal/domain"
)

// Compile-time check: Static implements domain.SessionContext.
var _ domain.SessionContext = (*Static)(nil)

// Static holds a service credential configured at startup. Clearing it
// drops the token for the rest of the process lifetime.
type Static struct {
	mu    sync.RWMutex
	token string
	user  *domain.User
}

// NewStatic creates a session context for token. user may be nil.
func NewStatic(token string, user *domain.User) *Static {
	return &Static{token: token, user: user}
}

func (s *Static) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Static) ClearSession() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.user = nil
}

func (s *Static) CurrentUser() (domain.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return domain.User{}, false
	}
	return *s.user, true
}
