package workerpool

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/shirou/gopsutil/v3/mem"
	"go.uber.org/zap"
)

// ErrPoolClosed is returned by Do after Release.
var ErrPoolClosed = errors.New("worker pool closed")

// #region config
// Config sizes the request worker pool from available memory.
type Config struct {
	MinWorkers     int           `mapstructure:"min-workers"`
	MaxWorkers     int           `mapstructure:"max-workers"`
	BytesPerWorker uint64        `mapstructure:"bytes-per-worker"`
	ExpiryDuration time.Duration `mapstructure:"expiry"`
}

// DefaultConfig allows 1 to 4 workers at 256 MiB each.
func DefaultConfig() Config {
	return Config{
		MinWorkers:     1,
		MaxWorkers:     4,
		BytesPerWorker: 256 << 20,
		ExpiryDuration: 10 * time.Second,
	}
}

// Size returns the worker count for the given available memory.
func (c Config) Size(available uint64) int {
	n := c.MaxWorkers
	if c.BytesPerWorker > 0 {
		n = int(min(available/c.BytesPerWorker, uint64(c.MaxWorkers)))
	}
	return max(n, c.MinWorkers)
}

// #endregion config

// #region pool
// Pool bounds how many pipeline executions run at once.
type Pool struct {
	pool     *ants.Pool
	log      *zap.Logger
	panics   atomic.Int64
	executed atomic.Int64
}

// Stats is a snapshot of pool counters.
type Stats struct {
	Capacity int
	Running  int
	Waiting  int
	Executed int64
	Panics   int64
}

// New sizes the pool from gopsutil's available memory reading. If memory
// cannot be read the pool uses MinWorkers.
func New(config Config, log *zap.Logger) (*Pool, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if config.MinWorkers < 1 || config.MaxWorkers < config.MinWorkers {
		return nil, fmt.Errorf("invalid worker bounds [%d,%d]", config.MinWorkers, config.MaxWorkers)
	}

	size := config.MinWorkers
	if vm, err := mem.VirtualMemory(); err != nil {
		log.Warn("read available memory", zap.Error(err))
	} else {
		size = config.Size(vm.Available)
	}
	return NewSized(size, config.ExpiryDuration, log)
}

// NewSized creates a pool with an explicit worker count.
func NewSized(size int, expiry time.Duration, log *zap.Logger) (*Pool, error) {
	if log == nil {
		log = zap.NewNop()
	}
	p := &Pool{log: log}
	opts := []ants.Option{
		ants.WithNonblocking(false),
		ants.WithPanicHandler(func(v interface{}) {
			p.panics.Add(1)
			log.Error("worker panic recovered", zap.Any("panic", v))
		}),
	}
	if expiry > 0 {
		opts = append(opts, ants.WithExpiryDuration(expiry))
	}
	ap, err := ants.NewPool(size, opts...)
	if err != nil {
		return nil, fmt.Errorf("create ants pool: %w", err)
	}
	p.pool = ap
	log.Info("worker pool created", zap.Int("workers", size))
	return p, nil
}

// Cap returns the number of workers.
func (p *Pool) Cap() int {
	return p.pool.Cap()
}

// Do runs fn on a worker and waits for it or for ctx. When ctx ends first,
// fn keeps running to completion on its worker and its result is dropped.
func (p *Pool) Do(ctx context.Context, fn func()) error {
	if p.pool.IsClosed() {
		return ErrPoolClosed
	}
	done := make(chan struct{})
	err := p.pool.Submit(func() {
		defer close(done)
		p.executed.Add(1)
		fn()
	})
	if err != nil {
		if errors.Is(err, ants.ErrPoolClosed) {
			return ErrPoolClosed
		}
		return fmt.Errorf("submit: %w", err)
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns current pool counters.
func (p *Pool) Stats() Stats {
	return Stats{
		Capacity: p.pool.Cap(),
		Running:  p.pool.Running(),
		Waiting:  p.pool.Waiting(),
		Executed: p.executed.Load(),
		Panics:   p.panics.Load(),
	}
}

// Release waits up to timeout for running tasks, then closes the pool.
func (p *Pool) Release(timeout time.Duration) error {
	if err := p.pool.ReleaseTimeout(timeout); err != nil {
		return fmt.Errorf("release pool: %w", err)
	}
	return nil
}

// #endregion pool
