package pending_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/go-catalog-link/linking/pending"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newEntry(userID string) pending.Entry {
	return pending.Entry{RequestTokenSecret: "secret-" + userID, UserID: userID}
}

func TestStore_PutTake(t *testing.T) {
	clock := newFakeClock()
	s := pending.NewStore(pending.WithNowTime(clock.Now))

	require.NoError(t, s.Put("tok-1", newEntry("user-1")))
	require.Equal(t, 1, s.Len())

	entry, ok := s.Take("tok-1")
	require.True(t, ok)
	require.Equal(t, "tok-1", entry.RequestToken)
	require.Equal(t, "user-1", entry.UserID)
	require.Equal(t, "secret-user-1", entry.RequestTokenSecret)
	require.Equal(t, clock.Now(), entry.CreatedAt)
	require.Equal(t, 0, s.Len())

	_, ok = s.Take("tok-1")
	require.False(t, ok, "second take must report absent")
}

func TestStore_ConsumedRecord(t *testing.T) {
	clock := newFakeClock()
	s := pending.NewStore(pending.WithNowTime(clock.Now))

	require.NoError(t, s.Put("tok-1", newEntry("user-1")))
	_, ok := s.Consumed("tok-1")
	require.False(t, ok, "pending entries are not consumed")

	_, ok = s.Take("tok-1")
	require.True(t, ok)

	consumed, ok := s.Consumed("tok-1")
	require.True(t, ok)
	require.Equal(t, "user-1", consumed.UserID)

	clock.Advance(pending.DefaultTTL + time.Second)
	s.Sweep(clock.Now())
	_, ok = s.Consumed("tok-1")
	require.False(t, ok)
}

func TestStore_Restore(t *testing.T) {
	clock := newFakeClock()
	s := pending.NewStore(pending.WithNowTime(clock.Now))

	require.False(t, s.Restore("unknown"))
	require.NoError(t, s.Put("tok-1", newEntry("user-1")))
	require.False(t, s.Restore("tok-1"), "pending entries cannot be restored")

	_, ok := s.Take("tok-1")
	require.True(t, ok)
	require.True(t, s.Restore("tok-1"))
	_, ok = s.Consumed("tok-1")
	require.False(t, ok)

	entry, ok := s.Take("tok-1")
	require.True(t, ok, "a restored token can be taken again")
	require.Equal(t, "user-1", entry.UserID)

	clock.Advance(pending.DefaultTTL + time.Second)
	require.False(t, s.Restore("tok-1"), "restoring never extends the TTL")
	_, ok = s.Take("tok-1")
	require.False(t, ok)
}

func TestStore_PutValidation(t *testing.T) {
	s := pending.NewStore()

	require.Error(t, s.Put("", newEntry("user-1")))
	require.Error(t, s.Put("tok", pending.Entry{}))

	require.NoError(t, s.Put("tok", newEntry("user-1")))
	require.ErrorIs(t, s.Put("tok", newEntry("user-2")), pending.ErrDuplicateToken)
}

func TestStore_RetrievableUntilTTL(t *testing.T) {
	clock := newFakeClock()
	s := pending.NewStore(pending.WithNowTime(clock.Now))

	require.NoError(t, s.Put("tok-edge", newEntry("user-1")))
	require.NoError(t, s.Put("tok-late", newEntry("user-2")))

	clock.Advance(pending.DefaultTTL)
	_, ok := s.Take("tok-edge")
	require.True(t, ok, "an entry is retrievable up to exactly the TTL")

	clock.Advance(time.Second)
	_, ok = s.Take("tok-late")
	require.False(t, ok, "an entry past the TTL is gone even before a sweep")
}

func TestStore_SweepKeepsYoungEntries(t *testing.T) {
	clock := newFakeClock()
	s := pending.NewStore(pending.WithNowTime(clock.Now))

	require.NoError(t, s.Put("old", newEntry("user-1")))
	clock.Advance(6 * time.Minute)
	require.NoError(t, s.Put("young", newEntry("user-2")))
	clock.Advance(5 * time.Minute)

	removed := s.Sweep(clock.Now())
	require.Equal(t, 1, removed)

	_, ok := s.Take("old")
	require.False(t, ok)
	_, ok = s.Take("young")
	require.True(t, ok)
}

func TestStore_CustomTTL(t *testing.T) {
	clock := newFakeClock()
	s := pending.NewStore(pending.WithNowTime(clock.Now), pending.WithTTL(time.Minute))

	require.NoError(t, s.Put("tok", newEntry("user-1")))
	clock.Advance(2 * time.Minute)
	require.Equal(t, 1, s.Sweep(clock.Now()))
}

func TestStore_ConcurrentTakeIsExactlyOnce(t *testing.T) {
	s := pending.NewStore()
	require.NoError(t, s.Put("tok", newEntry("user-1")))

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := s.Take("tok"); ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	require.Equal(t, int32(1), wins.Load())
}

func TestStore_BackgroundSweep(t *testing.T) {
	clock := newFakeClock()
	s := pending.NewStore(
		pending.WithNowTime(clock.Now),
		pending.WithSweepInterval(5*time.Millisecond),
	)

	for i := 0; i < 3; i++ {
		require.NoError(t, s.Put(fmt.Sprintf("tok-%d", i), newEntry("user")))
	}
	clock.Advance(pending.DefaultTTL + time.Minute)

	s.Start(context.Background())
	defer s.Stop()

	require.Eventually(t, func() bool { return s.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestStore_StopIsIdempotent(t *testing.T) {
	s := pending.NewStore(pending.WithSweepInterval(time.Millisecond))

	s.Stop()
	s.Start(context.Background())
	s.Start(context.Background())
	s.Stop()
	s.Stop()

	// Still usable after the sweeper has stopped.
	require.NoError(t, s.Put("tok", newEntry("user-1")))
	_, ok := s.Take("tok")
	require.True(t, ok)
}

func TestStore_StopsWhenContextCancelled(t *testing.T) {
	s := pending.NewStore(pending.WithSweepInterval(time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	cancel()

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return after context cancellation")
	}
}
