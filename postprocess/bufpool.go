package postprocess

import (
	"fmt"
	"sync"
)

// maskPool recycles the per frame []uint8 mask buffers of a Labeler under a
// buffer name, so consecutive frames of equal size do not allocate
type maskPool struct {
	mu    sync.Mutex
	pools map[string]*maskEntry
}

// maskEntry is the pool of a single named buffer
type maskEntry struct {
	pool sync.Pool
	// size is the pixel count buffers are allocated with
	size int
}

// newMaskPool returns a maskPool with no named buffers
func newMaskPool() *maskPool {
	return &maskPool{
		pools: make(map[string]*maskEntry),
	}
}

// Create registers the named buffer with buffers of size pixels.  Calling it
// twice with the same name returns an error.
func (b *maskPool) Create(name string, size int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.pools[name]; exists {
		return fmt.Errorf("mask buffer %q already exists", name)
	}

	entry := &maskEntry{size: size}

	entry.pool.New = func() any {
		return make([]uint8, size)
	}

	b.pools[name] = entry
	return nil
}

// entry returns the named pool, panics if the name was never registered as
// that is a programming error
func (b *maskPool) entry(name string) *maskEntry {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry, ok := b.pools[name]
	if !ok {
		panic(fmt.Sprintf("mask buffer %q not registered", name))
	}

	return entry
}

// Get returns a zeroed buffer of length size from the named pool.  Frames
// larger than the registered size get a fresh allocation.
func (b *maskPool) Get(name string, size int) []uint8 {

	buf := b.entry(name).pool.Get().([]uint8)

	if cap(buf) < size {
		return make([]uint8, size)
	}

	buf = buf[:size]
	clear(buf)

	return buf
}

// Put returns a buffer obtained from Get with the same name.  Buffers smaller
// than the registered size are dropped.
func (b *maskPool) Put(name string, buf []uint8) {

	entry := b.entry(name)

	if cap(buf) < entry.size {
		return
	}

	entry.pool.Put(buf[:entry.size])
}
