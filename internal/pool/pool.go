package pool

import (
	"context"
	"fmt"
	"sync"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/burugo/record/common"
)

// DefaultMaxSize is the number of idle connections kept when none is configured.
const DefaultMaxSize = 5

// Opener opens one live handle to the backing store.
type Opener func(ctx context.Context) (*sqlx.DB, error)

// Conn is a single live handle checked out of a Pool.
type Conn struct {
	*sqlx.DB
	id       uint64
	overflow bool
}

// ID returns the pool-local identifier of the connection.
func (c *Conn) ID() uint64 { return c.id }

// Overflow reports whether the connection was opened because the idle set was empty.
func (c *Conn) Overflow() bool { return c.overflow }

// Stats holds pool operation counters.
type Stats struct {
	Opened   int // connections opened, including overflow
	Reused   int // acquisitions served from the idle set
	Overflow int // connections opened while the idle set was empty
	Closed   int // connections closed by the pool
}

// Pool keeps a bounded LIFO set of idle connections. It never blocks or queues:
// when the idle set is empty a fresh overflow connection is opened instead.
type Pool struct {
	mu      sync.Mutex
	idle    []*Conn
	maxSize int
	open    Opener
	logger  *zap.Logger
	nextID  uint64
	stats   Stats
	closed  bool
}

// New creates a pool and eagerly opens maxSize connections.
func New(ctx context.Context, maxSize int, open Opener, logger *zap.Logger) (*Pool, error) {
	if open == nil {
		return nil, fmt.Errorf("%w: no connection opener configured", common.ErrStorageUnavailable)
	}
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Pool{
		idle:    make([]*Conn, 0, maxSize),
		maxSize: maxSize,
		open:    open,
		logger:  logger,
	}
	for i := 0; i < maxSize; i++ {
		c, err := p.dial(ctx, false)
		if err != nil {
			_ = p.CloseAll()
			return nil, err
		}
		p.idle = append(p.idle, c)
	}
	logger.Debug("connection pool initialized", zap.Int("max_size", maxSize))
	return p, nil
}

// dial opens a connection outside of the pool lock.
func (p *Pool) dial(ctx context.Context, overflow bool) (*Conn, error) {
	db, err := p.open(ctx)
	if err != nil {
		p.logger.Error("failed to open connection", zap.Bool("overflow", overflow), zap.Error(err))
		return nil, fmt.Errorf("%w: open connection: %w", common.ErrStorageUnavailable, err)
	}
	p.mu.Lock()
	p.nextID++
	c := &Conn{DB: db, id: p.nextID, overflow: overflow}
	p.stats.Opened++
	if overflow {
		p.stats.Overflow++
	}
	p.mu.Unlock()
	return c, nil
}

// Acquire hands out the most recently released idle connection, or opens an
// overflow connection when none is idle.
func (p *Pool) Acquire(ctx context.Context) (*Conn, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, fmt.Errorf("%w: %w", common.ErrStorageUnavailable, common.ErrPoolClosed)
	}
	if n := len(p.idle); n > 0 {
		c := p.idle[n-1]
		p.idle[n-1] = nil
		p.idle = p.idle[:n-1]
		p.stats.Reused++
		p.mu.Unlock()
		return c, nil
	}
	p.mu.Unlock()

	p.logger.Debug("idle set empty, opening overflow connection")
	return p.dial(ctx, true)
}

// Release returns c to the idle set, or closes it when it is an overflow
// connection, the idle set is full, or the pool has been closed.
// Every Acquire must be paired with a Release.
func (p *Pool) Release(c *Conn) {
	if c == nil {
		return
	}
	p.mu.Lock()
	if !c.overflow && !p.closed && len(p.idle) < p.maxSize {
		p.idle = append(p.idle, c)
		p.mu.Unlock()
		return
	}
	p.stats.Closed++
	p.mu.Unlock()

	if err := c.Close(); err != nil {
		p.logger.Warn("failed to close released connection", zap.Uint64("conn", c.id), zap.Error(err))
	}
}

// CloseAll closes every idle connection. Checked-out connections are closed
// when they are released.
func (p *Pool) CloseAll() error {
	p.mu.Lock()
	idle := p.idle
	p.idle = nil
	p.closed = true
	p.stats.Closed += len(idle)
	p.mu.Unlock()

	var firstErr error
	for _, c := range idle {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close connection %d: %w", c.id, err)
		}
	}
	return firstErr
}

// Idle returns the number of idle connections.
func (p *Pool) Idle() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.idle)
}

// MaxSize returns the idle capacity.
func (p *Pool) MaxSize() int { return p.maxSize }

// Stats returns a snapshot of the pool counters.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}
