package task

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/mindengage-ltienrol/internal/config"
	"github.com/mind-engage/mindengage-ltienrol/internal/host"
	"github.com/mind-engage/mindengage-ltienrol/internal/unenrol"
)

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

type counter struct {
	name string
	runs int
	err  error
}

func (c *counter) Name() string { return c.name }
func (c *counter) Run(context.Context) error {
	c.runs++
	return c.err
}

func TestLocalLockerExcludes(t *testing.T) {
	l := NewLocalLocker()
	release, err := l.Acquire(context.Background(), "a", time.Minute)
	require.NoError(t, err)

	_, err = l.Acquire(context.Background(), "a", time.Minute)
	assert.ErrorIs(t, err, ErrLocked)
	_, err = l.Acquire(context.Background(), "b", time.Minute)
	assert.NoError(t, err)

	release()
	_, err = l.Acquire(context.Background(), "a", time.Minute)
	assert.NoError(t, err)
}

func TestRunOnceSkipsWhileLocked(t *testing.T) {
	s := NewScheduler(nil, quiet())
	c := &counter{name: "job"}
	release, err := s.Locker.Acquire(context.Background(), "job", time.Minute)
	require.NoError(t, err)

	assert.ErrorIs(t, s.RunOnce(context.Background(), c), ErrLocked)
	assert.Zero(t, c.runs)

	release()
	require.NoError(t, s.RunOnce(context.Background(), c))
	assert.Equal(t, 1, c.runs)
}

func TestRunDueHonoursInterval(t *testing.T) {
	s := NewScheduler(nil, quiet())
	now := time.Unix(1000, 0)
	s.Now = func() time.Time { return now }
	fast := &counter{name: "fast"}
	slow := &counter{name: "slow", err: errors.New("boom")}
	s.Add(fast, time.Minute)
	s.Add(slow, time.Hour)

	s.runDue(context.Background())
	assert.Equal(t, 1, fast.runs)
	assert.Equal(t, 1, slow.runs)

	now = now.Add(2 * time.Minute)
	s.runDue(context.Background())
	assert.Equal(t, 2, fast.runs)
	assert.Equal(t, 1, slow.runs, "a failing task keeps its schedule")
}

func TestRunStopsOnCancel(t *testing.T) {
	s := NewScheduler(nil, quiet())
	s.Tick = time.Millisecond
	c := &counter{name: "job"}
	s.Add(c, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
	assert.Equal(t, 1, c.runs)
}

type fakeRedis struct {
	keys     map[string]string
	released []string
}

func (f *fakeRedis) SetNX(_ context.Context, key string, value interface{}, _ time.Duration) *redis.BoolCmd {
	if _, ok := f.keys[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	f.keys[key] = value.(string)
	return redis.NewBoolResult(true, nil)
}

func (f *fakeRedis) Eval(_ context.Context, _ string, keys []string, args ...interface{}) *redis.Cmd {
	if f.keys[keys[0]] == args[0] {
		delete(f.keys, keys[0])
		f.released = append(f.released, keys[0])
		return redis.NewCmdResult(int64(1), nil)
	}
	return redis.NewCmdResult(int64(0), nil)
}

func TestRedisLocker(t *testing.T) {
	fr := &fakeRedis{keys: map[string]string{}}
	l := &RedisLocker{Client: fr, Prefix: "p:"}

	release, err := l.Acquire(context.Background(), "sync", time.Minute)
	require.NoError(t, err)
	_, err = l.Acquire(context.Background(), "sync", time.Minute)
	assert.ErrorIs(t, err, ErrLocked)

	release()
	assert.Equal(t, []string{"p:sync"}, fr.released)
	_, err = l.Acquire(context.Background(), "sync", time.Minute)
	assert.NoError(t, err)
}

type noTools struct{}

func (noTools) Tools(context.Context, host.ToolFilter) ([]host.Tool, error) { return nil, nil }
func (noTools) Memberships(context.Context, int64) ([]host.Membership, error) { return nil, nil }
func (noTools) Unenrol(context.Context, host.Tool, int64) error { return nil }

func TestUnenrolExpiredTask(t *testing.T) {
	j := unenrol.New(noTools{}, config.Static{AuthEnabled: true, EnrolEnabled: true}, quiet())
	tk := UnenrolExpired(j, quiet())
	assert.Equal(t, "unenrol_expired", tk.Name())
	assert.NoError(t, tk.Run(context.Background()))
}
