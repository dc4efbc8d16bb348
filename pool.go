package orgtrack

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/swdee/go-orgtrack/postprocess"
)

// Pool is a simple pool of Labelers so their mask buffers are reused across
// the sequences of a batch
type Pool struct {
	// pool of labelers
	labelers chan *postprocess.Labeler
	// size of pool
	size int
	// mu guards closed so Return never sends on a closed channel
	mu     sync.Mutex
	closed bool
}

// NewPool creates a pool of size Labelers with the same parameters
func NewPool(size int, p postprocess.LabelParams, logger *slog.Logger) (*Pool, error) {

	if size < 1 {
		return nil, fmt.Errorf("pool size must be at least 1, got %d", size)
	}

	pool := &Pool{
		labelers: make(chan *postprocess.Labeler, size),
		size:     size,
	}

	for i := 0; i < size; i++ {
		l, err := postprocess.NewLabeler(p, logger)

		if err != nil {
			pool.Close()
			return nil, err
		}

		// attach to pool
		pool.Return(l)
	}

	return pool, nil
}

// Get a labeler from the pool, blocks until one is available.  Returns nil
// once the pool is closed.
func (p *Pool) Get() *postprocess.Labeler {
	return <-p.labelers
}

// Return a labeler to the pool
func (p *Pool) Return(l *postprocess.Labeler) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}

	select {
	case p.labelers <- l:
	default:
		// pool is full
	}
}

// Size returns the number of labelers the pool was created with
func (p *Pool) Size() int {
	return p.size
}

// Close the pool, labelers still checked out are discarded on Return
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}

	p.closed = true
	close(p.labelers)

	// drain
	for range p.labelers {
	}
}
