package engine

import "sync/atomic"

// status is the lifecycle state of the request currently owned by a session.
type status int32

const (
	// statusClosed means no extraction is in flight; the document may still
	// be open.
	statusClosed status = iota
	// statusActive means the worker is running or about to run.
	statusActive
	// statusComplete means the worker finished and the buffer holds a final
	// result.
	statusComplete
	// statusCancelled means the consumer abandoned the request; the worker
	// closes the document on its next wake.
	statusCancelled
)

func (s status) String() string {
	switch s {
	case statusClosed:
		return "closed"
	case statusActive:
		return "active"
	case statusComplete:
		return "complete"
	case statusCancelled:
		return "cancelled"
	}
	return "invalid"
}

// statusCell holds a status with guarded transitions. All mutation goes
// through transition; set is reserved for the terminal teardown path.
type statusCell struct {
	v atomic.Int32
}

// load returns the current status.
func (c *statusCell) load() status {
	return status(c.v.Load())
}

// transition moves from to to, reporting whether the swap happened. A failed
// transition means another party moved the state first.
func (c *statusCell) transition(from, to status) bool {
	return c.v.CompareAndSwap(int32(from), int32(to))
}

// set overwrites the status unconditionally. Teardown only.
func (c *statusCell) set(to status) {
	c.v.Store(int32(to))
}
