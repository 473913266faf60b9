package nfc

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

type sessionState int

const (
	stateIdle sessionState = iota
	stateStarting
	stateListening
)

// EndpointHandler is called with each withdraw endpoint resolved from a tag.
type EndpointHandler func(endpoint string)

// Session owns at most one active scan against a Capability and turns raw
// tag reads into withdraw endpoints. A session stays usable after any error
// and can be restarted.
type Session struct {
	cap Capability

	mu         sync.Mutex
	state      sessionState
	cancel     context.CancelFunc
	onEndpoint EndpointHandler
	onError    ErrorHandler
	waiters    []chan onceResult
}

type onceResult struct {
	endpoint string
	err      error
}

// NewSession creates an idle session over the given capability.
func NewSession(cap Capability) *Session {
	return &Session{cap: cap}
}

// Available reports whether the underlying scanner exists and is reachable.
func (s *Session) Available() bool {
	return s.cap.Available()
}

// Listening reports whether a scan is currently active.
func (s *Session) Listening() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == stateListening
}

// OnEndpoint sets the callback invoked with each resolved endpoint.
// Overwrites any previous callback.
func (s *Session) OnEndpoint(fn EndpointHandler) {
	s.mu.Lock()
	s.onEndpoint = fn
	s.mu.Unlock()
}

// OnError sets the callback invoked when a read cannot be resolved.
// Overwrites any previous callback.
func (s *Session) OnError(fn ErrorHandler) {
	s.mu.Lock()
	s.onError = fn
	s.mu.Unlock()
}

// Start begins listening for tag reads. It returns once scanning has begun.
// Starting an already-listening session is a no-op, so dispatch never gets
// wired twice. Cancelling ctx stops the session the same way Stop does.
func (s *Session) Start(ctx context.Context) error {
	if !s.cap.Available() {
		return ErrUnavailable
	}

	s.mu.Lock()
	if s.state != stateIdle {
		s.mu.Unlock()
		return nil
	}
	s.state = stateStarting
	scanCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	if err := s.cap.Scan(scanCtx, s.dispatchRead, s.dispatchReadError); err != nil {
		s.teardown()
		return mapScanFault(err)
	}

	s.mu.Lock()
	s.state = stateListening
	s.mu.Unlock()

	// External cancellation and Stop converge on the same teardown.
	go func() {
		<-scanCtx.Done()
		s.teardown()
	}()

	return nil
}

// Stop cancels the active scan, if any. Idempotent and safe to call while
// idle.
func (s *Session) Stop() {
	s.teardown()
}

func (s *Session) teardown() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.state = stateIdle
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// ListenOnce resolves with the first endpoint (or terminal read error) seen
// by the session. If the session was not already listening it is started and
// stopped again afterward; an already-listening session is left listening.
// Callbacks registered with OnEndpoint/OnError still observe the event.
func (s *Session) ListenOnce(ctx context.Context) (string, error) {
	ch := make(chan onceResult, 1)

	s.mu.Lock()
	wasListening := s.state != stateIdle
	s.waiters = append(s.waiters, ch)
	s.mu.Unlock()
	defer s.removeWaiter(ch)

	if !wasListening {
		if err := s.Start(ctx); err != nil {
			return "", err
		}
		defer s.Stop()
	}

	select {
	case <-ctx.Done():
		return "", ErrAborted
	case r := <-ch:
		return r.endpoint, r.err
	}
}

func (s *Session) removeWaiter(ch chan onceResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, w := range s.waiters {
		if w == ch {
			s.waiters = append(s.waiters[:i], s.waiters[i+1:]...)
			return
		}
	}
}

// dispatchRead handles one tag read from the capability. The session keeps
// listening across reads; only ListenOnce terminates after a resolution.
func (s *Session) dispatchRead(msg *Message) {
	endpoint, err := resolveMessage(msg)
	s.deliver(endpoint, err)
}

// dispatchReadError handles a hardware-reported read failure.
func (s *Session) dispatchReadError(err error) {
	if err == nil || errors.Is(err, ErrReadingError) {
		s.deliver("", ErrReadingError)
		return
	}
	s.deliver("", fmt.Errorf("%w: %v", ErrReadingError, err))
}

// deliver fans one resolution out to the registered callbacks and to every
// pending one-shot waiter. Waiter channels are buffered, so the send never
// blocks.
func (s *Session) deliver(endpoint string, err error) {
	s.mu.Lock()
	onEndpoint, onError := s.onEndpoint, s.onError
	waiters := s.waiters
	s.waiters = nil
	s.mu.Unlock()

	if err != nil {
		if onError != nil {
			onError(err)
		}
	} else if onEndpoint != nil {
		onEndpoint(endpoint)
	}

	for _, ch := range waiters {
		ch <- onceResult{endpoint: endpoint, err: err}
	}
}

// mapScanFault normalizes context cancellation into the session's error
// taxonomy. Capability faults that already carry a sentinel, or that the
// taxonomy doesn't cover, pass through unchanged.
func mapScanFault(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ErrAborted
	}
	return err
}
