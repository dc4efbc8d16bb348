package result

import "sync"

// IDGenerator hands out incremental track IDs.  Each tracking session owns
// its own generator so that IDs of independent sequences never collide and
// sessions can run in parallel.
type IDGenerator struct {
	id int64
	sync.Mutex
}

func NewIDGenerator() *IDGenerator {
	return &IDGenerator{}
}

// GetNext returns the next incremental number, starting at 1
func (id *IDGenerator) GetNext() int64 {
	id.Lock()
	defer id.Unlock()
	id.id++
	return id.id
}

// Last returns the most recently issued ID or 0 if none have been issued
func (id *IDGenerator) Last() int64 {
	id.Lock()
	defer id.Unlock()
	return id.id
}
