package session

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Provider owns the current session of a single-user process such as the CLI.
// It is built once at startup and injected wherever the session is needed;
// reads are served from memory and only Load, Refresh and Clear touch the store.
type Provider struct {
	store Store
	key   string
	now   func() time.Time

	mu      sync.RWMutex
	current *Session
}

// NewProvider returns a Provider that keeps its session in store under key.
func NewProvider(store Store, key string) *Provider {
	return &Provider{store: store, key: key, now: time.Now}
}

// Load reads the stored session into memory. ErrNotFound means nobody is
// signed in; ErrExpired means the stored token has lapsed.
func (p *Provider) Load(ctx context.Context) (*Session, error) {
	s, err := p.store.Get(ctx, p.key)
	if err != nil {
		p.set(nil)
		return nil, err
	}
	if s.Expired(p.now()) {
		p.set(nil)
		return nil, ErrExpired
	}
	p.set(s)
	return s, nil
}

// Refresh replaces the session with one built from a new backend token, as on
// sign-in or token renewal.
func (p *Provider) Refresh(ctx context.Context, token string) (*Session, error) {
	s, err := FromToken(token, p.now())
	if err != nil {
		return nil, err
	}
	s.ID = p.key
	if err := p.store.Put(ctx, s); err != nil {
		return nil, err
	}
	p.set(s)
	return s, nil
}

// Clear signs out: the stored session is deleted and memory is emptied.
func (p *Provider) Clear(ctx context.Context) error {
	p.set(nil)
	if err := p.store.Delete(ctx, p.key); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	return nil
}

// Current returns the in-memory session, or nil when signed out or expired.
func (p *Provider) Current() *Session {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.current == nil || p.current.Expired(p.now()) {
		return nil
	}
	cp := *p.current
	return &cp
}

func (p *Provider) set(s *Session) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = s
}
