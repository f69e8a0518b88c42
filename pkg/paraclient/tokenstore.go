package paraclient

import (
	"context"
	"sync"
	"time"
)

// Token is a JWT access token issued by the server.
type Token struct {
	AccessToken string    `json:"access_token"`
	Expires     time.Time `json:"expires"`
	NextRefresh time.Time `json:"refresh"`
}

// TokenStore persists the JWT between client instances.
type TokenStore interface {
	// Load returns the stored token or nil if there is none.
	Load(ctx context.Context) (*Token, error)
	Save(ctx context.Context, token *Token) error
	Clear(ctx context.Context) error
}

// MemoryTokenStore keeps the token in memory only.
type MemoryTokenStore struct {
	mu    sync.RWMutex
	token *Token
}

// NewMemoryTokenStore returns an empty in-memory store.
func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{}
}

func (s *MemoryTokenStore) Load(_ context.Context) (*Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == nil {
		return nil, nil
	}
	t := *s.token
	return &t, nil
}

func (s *MemoryTokenStore) Save(_ context.Context, token *Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if token == nil {
		s.token = nil
		return nil
	}
	t := *token
	s.token = &t
	return nil
}

func (s *MemoryTokenStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = nil
	return nil
}
