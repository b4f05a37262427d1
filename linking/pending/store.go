package pending

import (
	"context"
	"errors"
	"sync"
	"time"
)

const (
	DefaultTTL           = 10 * time.Minute
	DefaultSweepInterval = time.Minute
)

var ErrDuplicateToken = errors.New("request token already registered")

type state int

const (
	statePending state = iota
	stateConsumed
)

type record struct {
	entry Entry
	state state
}

var _ Repo = (*Store)(nil)

// Store is a thread-safe in-memory Repo. Entries move from pending to consumed on
// Take and are dropped by Sweep once they are older than the TTL.
type Store struct {
	mu      sync.Mutex
	records map[string]record

	ttl           time.Duration
	sweepInterval time.Duration
	nowTime       func() time.Time

	cancel context.CancelFunc
	done   chan struct{}
}

// StoreOption defines a function type to modify the Store instance.
type StoreOption func(*Store)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) StoreOption {
	return func(s *Store) {
		s.nowTime = nowFunc
	}
}

func WithTTL(ttl time.Duration) StoreOption {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func WithSweepInterval(interval time.Duration) StoreOption {
	return func(s *Store) {
		if interval > 0 {
			s.sweepInterval = interval
		}
	}
}

// NewStore creates an empty store. Call Start to run the background sweep.
func NewStore(options ...StoreOption) *Store {
	s := &Store{
		records:       make(map[string]record),
		ttl:           DefaultTTL,
		sweepInterval: DefaultSweepInterval,
		nowTime:       time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// Put stores a copy of entry. CreatedAt is stamped from the store clock when unset.
func (s *Store) Put(token string, entry Entry) error {
	if token == "" {
		return errors.New("token cannot be empty")
	}
	if entry.UserID == "" {
		return errors.New("entry user id cannot be empty")
	}
	entry.RequestToken = token
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.nowTime()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[token]; exists {
		return ErrDuplicateToken
	}
	s.records[token] = record{entry: entry, state: statePending}
	return nil
}

// Take implements the pending -> consumed transition as a single compare-and-swap
// under the lock, so concurrent callbacks for one token cannot both succeed.
func (s *Store) Take(token string) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[token]
	if !ok || rec.state != statePending {
		return Entry{}, false
	}
	if s.expired(rec.entry, s.nowTime()) {
		delete(s.records, token)
		return Entry{}, false
	}
	s.records[token] = record{entry: rec.entry, state: stateConsumed}
	return rec.entry, true
}

func (s *Store) Consumed(token string) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[token]
	if !ok || rec.state != stateConsumed {
		return Entry{}, false
	}
	return rec.entry, true
}

func (s *Store) Restore(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[token]
	if !ok || rec.state != stateConsumed {
		return false
	}
	if s.expired(rec.entry, s.nowTime()) {
		delete(s.records, token)
		return false
	}
	s.records[token] = record{entry: rec.entry, state: statePending}
	return true
}

// Len reports the number of pending (not yet consumed) entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, rec := range s.records {
		if rec.state == statePending {
			n++
		}
	}
	return n
}

// Sweep removes every record older than the TTL and returns how many were removed.
func (s *Store) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for token, rec := range s.records {
		if s.expired(rec.entry, now) {
			delete(s.records, token)
			removed++
		}
	}
	return removed
}

func (s *Store) expired(entry Entry, now time.Time) bool {
	return now.Sub(entry.CreatedAt) > s.ttl
}

// Start runs Sweep on its own goroutine every sweep interval until ctx is cancelled
// or Stop is called. Calling Start on a running store is a no-op.
func (s *Store) Start(ctx context.Context) {
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done
	s.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(s.sweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Sweep(s.nowTime())
			}
		}
	}()
}

// Stop cancels the sweeper and waits for it to exit.
func (s *Store) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}
