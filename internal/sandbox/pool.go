package sandbox

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	ErrPoolClosed = errors.New("sandbox pool is closed")
	ErrTimeout    = errors.New("sandbox acquisition timeout")
)

// PoolStats is a point-in-time view of a Pool
type PoolStats struct {
	Size      int  `json:"size"`
	Available int  `json:"available"`
	InUse     int  `json:"in_use"`
	Closed    bool `json:"closed"`
}

// Pool manages a pool of reusable sandboxes
type Pool struct {
	config    Config
	opts      []Option
	sandboxes chan *Runtime
	size      int
	logger    *zap.Logger
	mu        sync.RWMutex
	closed    bool
}

// NewPool creates a sandbox pool. Options are applied to every runtime.
func NewPool(config Config, size int, opts ...Option) (*Pool, error) {
	if size <= 0 {
		size = 4
	}

	pool := &Pool{
		config:    config,
		opts:      opts,
		sandboxes: make(chan *Runtime, size),
		size:      size,
		logger:    zap.NewNop(),
	}

	// Pre-create sandboxes
	for i := 0; i < size; i++ {
		sandbox, err := New(config, opts...)
		if err != nil {
			pool.Close()
			return nil, err
		}
		pool.logger = sandbox.logger
		pool.sandboxes <- sandbox
	}

	return pool, nil
}

// Acquire gets a sandbox from pool with timeout
func (p *Pool) Acquire(ctx context.Context) (*Runtime, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return nil, ErrPoolClosed
	}

	timeout := p.config.AcquireTimeout
	if timeout <= 0 {
		timeout = DefaultConfig().AcquireTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case sandbox := <-p.sandboxes:
		return sandbox, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, ErrTimeout
	}
}

// Release returns sandbox to pool
func (p *Pool) Release(sandbox *Runtime) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return sandbox.Close()
	}

	// Reset sandbox state
	if err := sandbox.Reset(); err != nil {
		sandbox.Close()
		p.logger.Warn("Sandbox reset failed, replacing", zap.Error(err))
		// Create new sandbox
		if newSandbox, err := New(p.config, p.opts...); err == nil {
			p.sandboxes <- newSandbox
		}
		return err
	}

	select {
	case p.sandboxes <- sandbox:
		return nil
	default:
		// Pool full, close sandbox
		return sandbox.Close()
	}
}

// Execute runs script using pool
func (p *Pool) Execute(ctx context.Context, script string) (*Result, error) {
	sandbox, err := p.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer p.Release(sandbox)

	return sandbox.Execute(ctx, script)
}

// Close closes pool and all sandboxes
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}

	p.closed = true
	close(p.sandboxes)

	// Close all sandboxes
	for sandbox := range p.sandboxes {
		sandbox.Close()
	}

	return nil
}

// Stats returns pool statistics
func (p *Pool) Stats() PoolStats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	available := len(p.sandboxes)
	return PoolStats{
		Size:      p.size,
		Available: available,
		InUse:     p.size - available,
		Closed:    p.closed,
	}
}
