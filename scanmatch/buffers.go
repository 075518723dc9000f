package scanmatch

import (
	"sync"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// ErrDoubleRelease is returned when Buffers are released more than once.
var ErrDoubleRelease = errors.New("scan match buffers already released")

// Buffers holds the auxiliary matrices a matcher allocates when it estimates covariance.
//
// CovX is the 3×3 covariance of (x, y, theta). DxDy1 and DxDy2 are the first order sensitivities
// of the estimate to the reference and candidate readings.
type Buffers struct {
	CovX  *mat.Dense
	DxDy1 *mat.Dense
	DxDy2 *mat.Dense

	pool     *BufferPool
	released bool
}

// Release returns the buffers to the pool that allocated them.
func (b *Buffers) Release() error {
	if b == nil {
		return nil
	}
	if b.pool == nil {
		b.CovX, b.DxDy1, b.DxDy2 = nil, nil, nil
		return nil
	}
	return b.pool.release(b)
}

// Released returns whether Release has been called.
func (b *Buffers) Released() bool {
	if b.pool == nil {
		return b.CovX == nil && b.DxDy1 == nil && b.DxDy2 == nil
	}
	b.pool.mu.Lock()
	defer b.pool.mu.Unlock()
	return b.released
}

// BufferPool tracks the Buffers handed out by a matcher so a missed or repeated release is visible.
type BufferPool struct {
	mu        sync.Mutex
	live      int
	allocated int
	released  int
}

// NewBufferPool returns an empty pool.
func NewBufferPool() *BufferPool {
	return &BufferPool{}
}

// Acquire allocates a buffer set for frames of refLen and candLen readings. DxDy1 is 3×refLen and
// DxDy2 is 3×candLen.
func (p *BufferPool) Acquire(refLen, candLen int) *Buffers {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.live++
	p.allocated++
	b := &Buffers{CovX: mat.NewDense(3, 3, nil), pool: p}
	if refLen > 0 {
		b.DxDy1 = mat.NewDense(3, refLen, nil)
	}
	if candLen > 0 {
		b.DxDy2 = mat.NewDense(3, candLen, nil)
	}
	return b
}

func (p *BufferPool) release(b *Buffers) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if b.released {
		return ErrDoubleRelease
	}
	b.released = true
	b.CovX, b.DxDy1, b.DxDy2 = nil, nil, nil
	p.live--
	p.released++
	return nil
}

// Live returns the number of buffer sets acquired and not yet released.
func (p *BufferPool) Live() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.live
}

// Allocated returns the number of buffer sets ever acquired.
func (p *BufferPool) Allocated() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.allocated
}
