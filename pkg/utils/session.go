package utils

import (
	"context"
	"errors"
	"time"
)

// ErrClosed is the cause of a session that was cancelled without one.
var ErrClosed = errors.New("session closed")

// Session is the lifetime of a long-running component such as a server,
// a client connection or a socket. Ending it cancels everything started
// under its context and records why.
type Session struct {
	ctx     context.Context
	cancel  context.CancelCauseFunc
	started time.Time
}

func NewSession(parent context.Context) Session {
	ctx, cancel := context.WithCancelCause(parent)
	return Session{
		ctx:     ctx,
		cancel:  cancel,
		started: time.Now(),
	}
}

func (s *Session) Ctx() context.Context {
	return s.ctx
}

func (s *Session) Uptime() time.Duration {
	return time.Since(s.started)
}

func (s *Session) Cancel() {
	s.cancel(ErrClosed)
}

// End cancels the session with the given cause. Only the first cause
// sticks.
func (s *Session) End(cause error) {
	s.cancel(cause)
}

// Cause reports why the session ended, or nil while it is running.
func (s *Session) Cause() error {
	return context.Cause(s.ctx)
}
