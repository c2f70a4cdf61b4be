package engine

import (
	"sync"
	"time"
)

// waitResult is the tri-state outcome of a handshake wait.
type waitResult int

const (
	waitSignaled waitResult = iota
	waitTimedOut
	waitFailed
)

func (w waitResult) String() string {
	switch w {
	case waitSignaled:
		return "signaled"
	case waitTimedOut:
		return "timed out"
	}
	return "failed"
}

// handshake carries the two auto-resetting wake signals between the consumer
// and the worker, plus the worker-lifetime handle. Each signal is a
// single-slot channel: a successful receive clears it, so one notify yields
// exactly one wake per handshake round.
type handshake struct {
	producerGo chan struct{} // consumer -> worker: a request is armed
	consumerGo chan struct{} // worker -> consumer: data is ready
	quit       chan struct{} // closed on teardown
	quitOnce   sync.Once
	workerDone chan struct{} // closed when the worker goroutine exits
}

func newHandshake() *handshake {
	return &handshake{
		producerGo: make(chan struct{}, 1),
		consumerGo: make(chan struct{}, 1),
		quit:       make(chan struct{}),
		workerDone: make(chan struct{}),
	}
}

// notifyProducer wakes the worker. A wake already pending is not duplicated.
func (h *handshake) notifyProducer() {
	select {
	case h.producerGo <- struct{}{}:
	default:
	}
}

// notifyConsumer wakes the consumer. A wake already pending is not
// duplicated.
func (h *handshake) notifyConsumer() {
	select {
	case h.consumerGo <- struct{}{}:
	default:
	}
}

// drainProducer clears a pending producer wake so a stale signal cannot fire
// on the next round.
func (h *handshake) drainProducer() {
	select {
	case <-h.producerGo:
	default:
	}
}

// drainConsumer clears a pending consumer wake.
func (h *handshake) drainConsumer() {
	select {
	case <-h.consumerGo:
	default:
	}
}

// waitForProducer blocks the worker until a request is armed, the timeout
// elapses, or teardown begins. A negative timeout waits indefinitely.
func (h *handshake) waitForProducer(timeout time.Duration) waitResult {
	if timeout < 0 {
		select {
		case <-h.producerGo:
			return waitSignaled
		case <-h.quit:
			return waitFailed
		}
	}
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-h.producerGo:
		return waitSignaled
	case <-t.C:
		return waitTimedOut
	case <-h.quit:
		return waitFailed
	}
}

// waitForConsumer blocks until the worker reports data ready or the timeout
// elapses.
func (h *handshake) waitForConsumer(timeout time.Duration) waitResult {
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-h.consumerGo:
		return waitSignaled
	case <-t.C:
		return waitTimedOut
	case <-h.quit:
		return waitFailed
	}
}

// signalProducerAndWaitForConsumer wakes the worker and blocks until it
// reports data ready. Any stale consumer wake is cleared before arming. On
// timeout the pending producer wake is withdrawn so it cannot fire on the
// next call.
func (h *handshake) signalProducerAndWaitForConsumer(timeout time.Duration) waitResult {
	h.drainConsumer()
	h.notifyProducer()
	r := h.waitForConsumer(timeout)
	if r != waitSignaled {
		h.drainProducer()
	}
	return r
}

// quitting reports whether teardown has begun.
func (h *handshake) quitting() bool {
	select {
	case <-h.quit:
		return true
	default:
		return false
	}
}

// signalQuit begins teardown. Safe to call more than once.
func (h *handshake) signalQuit() {
	h.quitOnce.Do(func() { close(h.quit) })
}

// signalQuitAndWaitForWorkerExit begins teardown and blocks until the worker
// goroutine itself has exited, not merely been signaled.
func (h *handshake) signalQuitAndWaitForWorkerExit(timeout time.Duration) waitResult {
	h.signalQuit()
	h.notifyProducer()
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-h.workerDone:
		return waitSignaled
	case <-t.C:
		return waitTimedOut
	}
}
