package attls

import (
	"golang.org/x/sync/semaphore"
)

// Buffer names used in ResourceExhaustionError.
const (
	bufferControl     = "control block"
	bufferCertificate = "certificate"
)

// bufferBudget bounds the bytes held by control and certificate buffers of
// all contexts of one manager. Allocation never waits.
type bufferBudget struct {
	sem *semaphore.Weighted
}

func newBufferBudget(limit int64) *bufferBudget {
	return &bufferBudget{sem: semaphore.NewWeighted(limit)}
}

// alloc returns a zeroed buffer of size bytes or a *ResourceExhaustionError.
func (b *bufferBudget) alloc(name string, size int) ([]byte, error) {
	if !b.sem.TryAcquire(int64(size)) {
		return nil, &ResourceExhaustionError{Buffer: name, Size: size}
	}
	return make([]byte, size), nil
}

// free returns buf's bytes to the budget. buf must come from alloc and be
// freed once.
func (b *bufferBudget) free(buf []byte) {
	if buf != nil {
		b.sem.Release(int64(len(buf)))
	}
}
