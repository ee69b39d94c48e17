package session

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"eco-assistant/internal/domain"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestManager(clock *fakeClock) *Manager {
	n := 0
	var mu sync.Mutex
	return NewManager(Options{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:    clock.Now,
		NewID: func() string {
			mu.Lock()
			defer mu.Unlock()
			n++
			return fmt.Sprintf("s%d", n)
		},
	})
}

func msg(id, text string) domain.Message {
	return domain.Message{ID: id, Text: text, Sender: domain.SenderUser}
}

func TestCreateAndGet(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)}
	m := newTestManager(clock)

	s := m.Create("u1")
	require.Equal(t, "s1", s.ID)
	require.Equal(t, "u1", s.UserID)
	require.Equal(t, clock.now, s.CreatedAt)
	require.Equal(t, clock.now, s.LastActivity)
	require.Empty(t, s.Messages)

	got, ok := m.Get("s1")
	require.True(t, ok)
	require.Equal(t, s.ID, got.ID)

	_, ok = m.Get("missing")
	require.False(t, ok)
}

func TestCreateUsesUUIDByDefault(t *testing.T) {
	m := NewManager(Options{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	a, b := m.Create("u1"), m.Create("u1")
	require.Len(t, a.ID, 36)
	require.NotEqual(t, a.ID, b.ID)
}

func TestAppendPreservesSubmissionOrder(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)}
	m := newTestManager(clock)
	s := m.Create("u1")

	for _, id := range []string{"A", "B", "C"} {
		clock.Advance(time.Second)
		require.True(t, m.Append(s.ID, msg(id, "text "+id)))
	}

	got := m.Transcript(s.ID)
	require.Len(t, got, 3)
	require.Equal(t, "A", got[0].ID)
	require.Equal(t, "B", got[1].ID)
	require.Equal(t, "C", got[2].ID)

	after, _ := m.Get(s.ID)
	require.Equal(t, clock.now, after.LastActivity)
}

func TestAppendNormalizesBotMessages(t *testing.T) {
	m := newTestManager(&fakeClock{now: time.Now()})
	s := m.Create("u1")

	require.True(t, m.Append(s.ID, domain.Message{ID: "b1", Text: "hi", Sender: domain.SenderBot}))

	got := m.Transcript(s.ID)
	require.Equal(t, domain.ActionUnknown, got[0].Action)
	require.NotNil(t, got[0].Parameters)
	require.Empty(t, got[0].Parameters)
}

func TestTranscriptIsACopy(t *testing.T) {
	m := newTestManager(&fakeClock{now: time.Now()})
	s := m.Create("u1")
	m.Append(s.ID, msg("A", "hello"))

	got := m.Transcript(s.ID)
	got[0].Text = "mutated"

	require.Equal(t, "hello", m.Transcript(s.ID)[0].Text)
}

func TestTranscriptParametersAreCopies(t *testing.T) {
	m := newTestManager(&fakeClock{now: time.Now()})
	s := m.Create("u1")
	params := domain.Parameters{domain.ParamCategory: "transport"}
	m.Append(s.ID, domain.Message{ID: "b1", Sender: domain.SenderBot, Action: domain.ActionAddActivity, Parameters: params})

	params[domain.ParamCategory] = "food"
	got := m.Transcript(s.ID)
	require.Equal(t, "transport", got[0].Parameters[domain.ParamCategory])

	got[0].Parameters[domain.ParamCategory] = "waste"
	require.Equal(t, "transport", m.Transcript(s.ID)[0].Parameters[domain.ParamCategory])
}

func TestAppendToUnknownSessionDoesNotPanic(t *testing.T) {
	m := newTestManager(&fakeClock{now: time.Now()})
	require.False(t, m.Append("missing", msg("A", "hi")))
	require.Nil(t, m.Transcript("missing"))
}

func TestGetOrCreate(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)}
	m := newTestManager(clock)
	s := m.Create("u1")

	clock.Advance(time.Minute)
	got, created := m.GetOrCreate("u1", s.ID)
	require.False(t, created)
	require.Equal(t, s.ID, got.ID)
	require.Equal(t, clock.now, got.LastActivity)

	got, created = m.GetOrCreate("u1", "unknown")
	require.True(t, created)
	require.NotEqual(t, "unknown", got.ID)

	got, created = m.GetOrCreate("intruder", s.ID)
	require.True(t, created)
	require.NotEqual(t, s.ID, got.ID)
	require.Equal(t, "intruder", got.UserID)

	_, created = m.GetOrCreate("u1", "")
	require.True(t, created)
}

func TestClear(t *testing.T) {
	m := newTestManager(&fakeClock{now: time.Now()})
	s := m.Create("u1")

	require.True(t, m.Clear(s.ID))
	require.False(t, m.Clear(s.ID))
	_, ok := m.Get(s.ID)
	require.False(t, ok)
}

func TestUserSessionsOldestFirst(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)}
	m := newTestManager(clock)
	first := m.Create("u1")
	clock.Advance(time.Minute)
	m.Create("u2")
	clock.Advance(time.Minute)
	second := m.Create("u1")

	got := m.UserSessions("u1")
	require.Len(t, got, 2)
	require.Equal(t, first.ID, got[0].ID)
	require.Equal(t, second.ID, got[1].ID)
	require.Empty(t, m.UserSessions("nobody"))
}

func TestReapRemovesOnlyIdleSessions(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)}
	m := newTestManager(clock)
	idle := m.Create("u1")
	active := m.Create("u2")

	clock.Advance(23 * time.Hour)
	m.Append(active.ID, msg("A", "still here"))
	clock.Advance(2 * time.Hour)

	require.Equal(t, 1, m.Reap(DefaultTTL))
	_, ok := m.Get(idle.ID)
	require.False(t, ok)
	_, ok = m.Get(active.ID)
	require.True(t, ok)
	require.Equal(t, 1, m.Len())
}

func TestConcurrentAppendsAcrossSessions(t *testing.T) {
	m := newTestManager(&fakeClock{now: time.Now()})
	const sessions, perSession = 8, 50
	ids := make([]string, sessions)
	for i := range ids {
		ids[i] = m.Create(fmt.Sprintf("u%d", i)).ID
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			for j := 0; j < perSession; j++ {
				m.Append(id, msg(fmt.Sprintf("%d", j), "x"))
			}
		}(id)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for j := 0; j < perSession; j++ {
			m.Reap(time.Hour)
		}
	}()
	wg.Wait()

	for _, id := range ids {
		got := m.Transcript(id)
		require.Len(t, got, perSession)
		for j, mm := range got {
			require.Equal(t, fmt.Sprintf("%d", j), mm.ID)
		}
	}
}

func TestLockTurnSerializes(t *testing.T) {
	m := newTestManager(&fakeClock{now: time.Now()})
	s := m.Create("u1")

	unlock, ok := m.LockTurn(s.ID)
	require.True(t, ok)

	acquired := make(chan struct{})
	go func() {
		u, _ := m.LockTurn(s.ID)
		close(acquired)
		u()
	}()

	select {
	case <-acquired:
		t.Fatal("second turn acquired the lock while the first held it")
	case <-time.After(20 * time.Millisecond):
	}
	unlock()
	<-acquired

	_, ok = m.LockTurn("missing")
	require.False(t, ok)
}

func TestStartReaperSweepsAndStops(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)}
	m := newTestManager(clock)
	m.Create("u1")
	clock.Advance(25 * time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := m.StartReaper(ctx, time.Millisecond, DefaultTTL)

	require.Eventually(t, func() bool { return m.Len() == 0 }, time.Second, time.Millisecond)
	cancel()
	<-done
}
