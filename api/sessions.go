package api

import (
	"sync"

	"github.com/google/uuid"
)

// Sessions maps bearer tokens to usernames. Tokens live until the
// process exits.
type Sessions struct {
	mu     sync.RWMutex
	tokens map[string]string
}

func NewSessions() *Sessions {
	return &Sessions{tokens: make(map[string]string)}
}

// Issue creates a new token for owner.
func (s *Sessions) Issue(owner string) string {
	token := uuid.NewString()
	s.mu.Lock()
	s.tokens[token] = owner
	s.mu.Unlock()
	return token
}

func (s *Sessions) Owner(token string) (string, bool) {
	if token == "" {
		return "", false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	owner, ok := s.tokens[token]
	return owner, ok
}

func (s *Sessions) Revoke(token string) {
	s.mu.Lock()
	delete(s.tokens, token)
	s.mu.Unlock()
}
