package dispatch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recorder struct {
	mu    sync.Mutex
	names []string
}

func (r *recorder) work(name string) Work {
	return Work{Name: name, Run: func(context.Context) {
		r.mu.Lock()
		r.names = append(r.names, name)
		r.mu.Unlock()
	}}
}

func (r *recorder) get() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.names...)
}

func TestDispatch_InlineRunsImmediately(t *testing.T) {
	s := New(DefaultConfig(), zap.NewNop().Sugar())
	rec := &recorder{}

	require.NoError(t, s.Dispatch(context.Background(), Inline, rec.work("clock")))
	assert.Equal(t, []string{"clock"}, rec.get())
	assert.Equal(t, int64(0), s.QueueStats().Sent)
}

func TestDispatch_DeferredWaitsForWorker(t *testing.T) {
	s := New(DefaultConfig(), zap.NewNop().Sugar())
	rec := &recorder{}

	require.NoError(t, s.Dispatch(context.Background(), Deferred, rec.work("weather")))
	assert.Empty(t, rec.get())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.Run(ctx)
	}()

	require.Eventually(t, func() bool { return len(rec.get()) == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
}

func TestDispatch_DeferredPreservesFIFO(t *testing.T) {
	s := New(Config{QueueSize: 64, EnqueueTimeout: time.Second}, zap.NewNop().Sugar())
	rec := &recorder{}

	want := []string{"sync", "wifi", "indoor", "outdoor", "clock", "wifi", "indoor"}
	for _, name := range want {
		require.NoError(t, s.Dispatch(context.Background(), Deferred, rec.work(name)))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Run(ctx) }()

	require.Eventually(t, func() bool { return len(rec.get()) == len(want) }, time.Second, 5*time.Millisecond)
	assert.Equal(t, want, rec.get())
}

func TestDispatch_QueueFull(t *testing.T) {
	s := New(Config{QueueSize: 1, EnqueueTimeout: 5 * time.Millisecond}, zap.NewNop().Sugar())
	rec := &recorder{}

	require.NoError(t, s.Dispatch(context.Background(), Deferred, rec.work("a")))
	err := s.Dispatch(context.Background(), Deferred, rec.work("b"))

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrQueueFull))
}

func TestDispatch_PanicDoesNotStopWorker(t *testing.T) {
	s := New(DefaultConfig(), zap.NewNop().Sugar())
	rec := &recorder{}

	require.NoError(t, s.Dispatch(context.Background(), Deferred, Work{Name: "boom", Run: func(context.Context) {
		panic("sensor bus stuck")
	}}))
	require.NoError(t, s.Dispatch(context.Background(), Deferred, rec.work("after")))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Run(ctx) }()

	require.Eventually(t, func() bool { return len(rec.get()) == 1 }, time.Second, 5*time.Millisecond)
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
	assert.Error(t, Config{QueueSize: 0, EnqueueTimeout: time.Second}.Validate())
	assert.Error(t, Config{QueueSize: 1}.Validate())
}

func TestModeString(t *testing.T) {
	assert.Equal(t, "inline", Inline.String())
	assert.Equal(t, "deferred", Deferred.String())
	assert.Equal(t, "unknown", Mode(9).String())
}
