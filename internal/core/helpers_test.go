package core_test

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"panic-list/internal/core"

	"github.com/stretchr/testify/require"
)

func decodeOrders(t *testing.T, js string) []core.RawOrder {
	t.Helper()
	var orders []core.RawOrder
	require.NoError(t, json.Unmarshal([]byte(js), &orders))
	return orders
}

// stubLookup serves canned profiles and counts calls.
type stubLookup struct {
	mu      sync.Mutex
	public  map[string]*core.UserProfile
	user    map[string]*core.UserProfile
	failPub map[string]error
	failUsr map[string]error
	calls   map[string]int

	delay    time.Duration
	inflight atomic.Int32
	peak     atomic.Int32
}

func newStubLookup() *stubLookup {
	return &stubLookup{
		public:  map[string]*core.UserProfile{},
		user:    map[string]*core.UserProfile{},
		failPub: map[string]error{},
		failUsr: map[string]error{},
		calls:   map[string]int{},
	}
}

func (s *stubLookup) enter() func() {
	n := s.inflight.Add(1)
	for {
		p := s.peak.Load()
		if n <= p || s.peak.CompareAndSwap(p, n) {
			break
		}
	}
	return func() { s.inflight.Add(-1) }
}

func (s *stubLookup) PublicProfile(ctx context.Context, id string) (*core.UserProfile, error) {
	defer s.enter()()
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["public:"+id]++
	if err := s.failPub[id]; err != nil {
		return nil, err
	}
	return s.public[id], nil
}

func (s *stubLookup) UserRecord(_ context.Context, id string) (*core.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["user:"+id]++
	if err := s.failUsr[id]; err != nil {
		return nil, err
	}
	return s.user[id], nil
}

func (s *stubLookup) callCount(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[key]
}
