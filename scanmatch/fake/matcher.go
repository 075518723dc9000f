// Package fake implements a scripted scan matcher for tests.
package fake

import (
	"sync"

	"github.com/pkg/errors"

	"go.viam.com/laserodometry/lidar"
	"go.viam.com/laserodometry/scanmatch"
)

// Response scripts the outcome of one Match call.
type Response struct {
	Valid bool
	X     [3]float64
	// CovX is copied into the result buffers when covariance is requested.
	CovX [9]float64
	Err  error
}

// Call records what a Match call was handed. Frames are cloned at call time.
type Call struct {
	Reference *lidar.PointFrame
	Candidate *lidar.PointFrame
	Input     scanmatch.Input
}

// Matcher replays Responses in order. Once the script runs out the last response repeats; an
// empty script always reports a failed registration.
type Matcher struct {
	mu        sync.Mutex
	pool      *scanmatch.BufferPool
	responses []Response
	calls     []Call
	// MatchFunc, when set, replaces the script.
	MatchFunc func(in *scanmatch.Input) (*scanmatch.Result, error)
}

// NewMatcher returns a fake matcher replaying responses.
func NewMatcher(responses ...Response) *Matcher {
	return &Matcher{pool: scanmatch.NewBufferPool(), responses: responses}
}

// Match records in and returns the next scripted response.
func (m *Matcher) Match(in *scanmatch.Input) (*scanmatch.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := scanmatch.ValidateInput(in); err != nil {
		return nil, err
	}
	m.calls = append(m.calls, Call{
		Reference: in.Reference.Clone(),
		Candidate: in.Candidate.Clone(),
		Input:     *in,
	})
	if m.MatchFunc != nil {
		return m.MatchFunc(in)
	}

	resp := Response{}
	switch n := len(m.responses); {
	case len(m.calls) <= n:
		resp = m.responses[len(m.calls)-1]
	case n > 0:
		resp = m.responses[n-1]
	}
	if resp.Err != nil {
		return nil, errors.Wrap(resp.Err, "scripted match error")
	}

	res := &scanmatch.Result{Valid: resp.Valid, X: resp.X}
	if in.Params.DoComputeCovariance {
		res.Buffers = m.pool.Acquire(in.Reference.Len(), in.Candidate.Len())
		for i, v := range resp.CovX {
			res.Buffers.CovX.Set(i/3, i%3, v)
		}
	}
	return res, nil
}

// Calls returns every call made so far.
func (m *Matcher) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// Pool returns the pool result buffers come from.
func (m *Matcher) Pool() *scanmatch.BufferPool {
	return m.pool
}
