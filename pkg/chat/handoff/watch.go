package handoff

import (
	"context"
	"fmt"
	"sync"
	"time"

	"support-chat-be/internal/entity"
	"support-chat-be/pkg/chat/chaterr"
)

// FailureWarningThreshold is the number of consecutive failed polls that
// raise OnWarning. It fires once per streak; a successful poll re-arms it.
const FailureWarningThreshold = 3

// Callbacks are invoked from the watch goroutine while it holds its latch,
// so they must not block or call Stop.
type Callbacks struct {
	OnConnected func(req *entity.LiveChatRequest)
	OnTimeout   func()
	OnWarning   func(consecutiveFailures int)
}

// Watch polls a session's latest request until it is connected or the
// deadline passes. Exactly one of OnConnected and OnTimeout fires, and
// neither fires once Stop has returned.
type Watch struct {
	coordinator *Coordinator
	sessionID   string
	callbacks   Callbacks

	ctx    context.Context
	cancel context.CancelFunc
	nudge  chan struct{}
	done   chan struct{}

	mu       sync.Mutex
	finished bool
	failures int
	warned   bool
	err      error
}

// Watch starts polling for sessionID. The ticker and the deadline share
// ctx: cancelling it or calling Stop tears down both.
func (c *Coordinator) Watch(ctx context.Context, sessionID string, cb Callbacks) *Watch {
	return c.WatchFrom(ctx, sessionID, c.now(), cb)
}

// WatchFrom is Watch with the deadline measured from since, for requests
// made before a restart. An already elapsed window expires on the first
// loop iteration.
func (c *Coordinator) WatchFrom(ctx context.Context, sessionID string, since time.Time, cb Callbacks) *Watch {
	timeout := c.timeout - c.now().Sub(since)
	if timeout <= 0 {
		timeout = time.Nanosecond
	}

	wctx, cancel := context.WithCancel(ctx)
	w := &Watch{
		coordinator: c,
		sessionID:   sessionID,
		callbacks:   cb,
		ctx:         wctx,
		cancel:      cancel,
		nudge:       make(chan struct{}, 1),
		done:        make(chan struct{}),
	}
	c.register(w)
	go w.run(c.interval, timeout)
	return w
}

// Stop cancels the watch. After it returns no callback will fire.
func (w *Watch) Stop() {
	w.mu.Lock()
	w.finished = true
	w.mu.Unlock()
	w.cancel()
}

// Err reports why the watch gave up: it wraps chaterr.ErrHandoffTimeout
// once the window expired or the request ended unconnected, and is nil
// otherwise.
func (w *Watch) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

// Done is closed when the poll goroutine has exited.
func (w *Watch) Done() <-chan struct{} {
	return w.done
}

func (w *Watch) run(interval, timeout time.Duration) {
	ticker := time.NewTicker(interval)
	deadline := time.NewTimer(timeout)
	defer func() {
		ticker.Stop()
		deadline.Stop()
		w.cancel()
		w.coordinator.unregister(w)
		close(w.done)
	}()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-deadline.C:
			w.expire()
			return
		case <-ticker.C:
			if w.check() {
				return
			}
		case <-w.nudge:
			if w.check() {
				return
			}
		}
	}
}

// check polls once and reports whether the watch reached a terminal state.
func (w *Watch) check() bool {
	req, err := w.coordinator.Latest(w.ctx, w.sessionID)
	if w.ctx.Err() != nil {
		return true
	}
	if err != nil {
		w.failed(err)
		return false
	}

	w.mu.Lock()
	w.failures = 0
	w.warned = false
	w.mu.Unlock()

	if req == nil {
		return false
	}
	switch req.Status {
	case entity.LiveChatStatusConnected:
		w.fire(func() {
			if w.callbacks.OnConnected != nil {
				w.callbacks.OnConnected(req)
			}
		})
		return true
	case entity.LiveChatStatusEnded:
		// closed by an operator before anyone connected
		w.fire(w.timedOut(fmt.Errorf("request ended before connect: %w", chaterr.ErrHandoffTimeout)))
		return true
	}
	return false
}

func (w *Watch) failed(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.finished {
		return
	}
	w.failures++
	log := map[string]interface{}{
		"session_id":           w.sessionID,
		"consecutive_failures": w.failures,
		"error":                err.Error(),
	}
	if w.warned || w.failures < FailureWarningThreshold {
		w.coordinator.logger.Debug(module, "Handoff poll failed", log)
		return
	}
	w.warned = true
	w.coordinator.logger.Warn(module, "Handoff poll keeps failing", log)
	if w.callbacks.OnWarning != nil {
		w.callbacks.OnWarning(w.failures)
	}
}

// expire ends the still-waiting request. If an operator connected it in the
// meantime the conditional update loses and the connection is reported
// instead of the timeout.
func (w *Watch) expire() {
	w.mu.Lock()
	finished := w.finished
	w.mu.Unlock()
	if finished {
		return
	}

	c := w.coordinator
	req, err := c.Latest(w.ctx, w.sessionID)
	if err == nil && req != nil && req.Status == entity.LiveChatStatusWaiting {
		now := c.now()
		req.EndedAt = &now
		err = c.transition(w.ctx, req, entity.LiveChatStatusEnded)
		if err != nil {
			req, _ = c.Latest(w.ctx, w.sessionID)
		}
	}
	if err != nil {
		c.logger.Warn(module, "Could not end expired live chat request", map[string]interface{}{
			"session_id": w.sessionID,
			"error":      err.Error(),
		})
	}

	if req != nil && req.Status == entity.LiveChatStatusConnected {
		w.fire(func() {
			if w.callbacks.OnConnected != nil {
				w.callbacks.OnConnected(req)
			}
		})
		return
	}

	timeout := fmt.Errorf("session %s: %w", w.sessionID, chaterr.ErrHandoffTimeout)
	c.logger.Info(module, "Live chat request timed out", map[string]interface{}{
		"session_id": w.sessionID,
		"error":      timeout.Error(),
	})
	w.fire(w.timedOut(timeout))
}

// timedOut records err and reports the timeout. It runs under fire's lock.
func (w *Watch) timedOut(err error) func() {
	return func() {
		w.err = err
		if w.callbacks.OnTimeout != nil {
			w.callbacks.OnTimeout()
		}
	}
}

// fire runs fn at most once, and never after Stop.
func (w *Watch) fire(fn func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.finished || w.ctx.Err() != nil {
		return
	}
	w.finished = true
	fn()
}
