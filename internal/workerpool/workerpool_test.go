package workerpool

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigSize(t *testing.T) {
	cfg := DefaultConfig()
	tests := []struct {
		name      string
		available uint64
		want      int
	}{
		{"plenty", 16 << 30, 4},
		{"two-workers", 600 << 20, 2},
		{"starved", 10 << 20, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cfg.Size(tt.available))
		})
	}
}

func TestDoRunsAndWaits(t *testing.T) {
	p, err := NewSized(2, time.Second, nil)
	require.NoError(t, err)
	defer p.Release(time.Second)

	var n atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, p.Do(context.Background(), func() { n.Add(1) }))
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(10), n.Load())
	assert.Equal(t, int64(10), p.Stats().Executed)
}

func TestDoHonorsContext(t *testing.T) {
	p, err := NewSized(1, time.Second, nil)
	require.NoError(t, err)
	defer p.Release(time.Second)

	release := make(chan struct{})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err = p.Do(ctx, func() { <-release })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	close(release)
}

func TestDoRecoversPanic(t *testing.T) {
	p, err := NewSized(1, time.Second, nil)
	require.NoError(t, err)
	defer p.Release(time.Second)

	err = p.Do(context.Background(), func() { panic("boom") })
	require.NoError(t, err)
	assert.Eventually(t, func() bool { return p.Stats().Panics == 1 }, time.Second, 10*time.Millisecond)
}

func TestDoAfterRelease(t *testing.T) {
	p, err := NewSized(1, time.Second, nil)
	require.NoError(t, err)
	require.NoError(t, p.Release(time.Second))
	assert.ErrorIs(t, p.Do(context.Background(), func() {}), ErrPoolClosed)
}

func TestNewRejectsBadBounds(t *testing.T) {
	_, err := New(Config{MinWorkers: 0, MaxWorkers: 4}, nil)
	assert.Error(t, err)
	_, err = New(Config{MinWorkers: 3, MaxWorkers: 2}, nil)
	assert.Error(t, err)
}
