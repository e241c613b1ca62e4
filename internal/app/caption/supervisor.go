package caption

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"callinvite/internal/pkg/logx"
)

// RestartDelay is the pause between the end of a recognition session and the next one.
const RestartDelay = 100 * time.Millisecond

// Recognizer is a speech-to-text engine. Listen runs one session, calling emit for
// every interim and final result, until ctx is cancelled or the engine stops on its own.
type Recognizer interface {
	Listen(ctx context.Context, emit func(Transcript)) error
}

// Supervisor keeps a Recognizer running. Every session is ended after its first
// final result, and any ended session is restarted after RestartDelay until Stop.
type Supervisor struct {
	recognizer Recognizer
	handle     func(context.Context, Transcript)
	delay      time.Duration

	// mu protects stopped and cancelSession.
	mu            sync.Mutex
	stopped       bool
	started       bool
	cancelSession context.CancelFunc

	stop     chan struct{}
	done     chan struct{}
	sessions int

	logger zerolog.Logger
}

// NewSupervisor returns a Supervisor feeding results from r into handle.
// handle runs on the supervision loop.
func NewSupervisor(r Recognizer, handle func(context.Context, Transcript)) *Supervisor {
	return &Supervisor{
		recognizer: r,
		handle:     handle,
		delay:      RestartDelay,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
		logger:     logx.Component("recognizer"),
	}
}

// Start launches the supervision loop. ctx bounds the whole run; cancelling it has
// the same effect as Stop. Start may be called once.
func (s *Supervisor) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started || s.stopped {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()

	go s.run(ctx)
}

func (s *Supervisor) run(ctx context.Context) {
	defer close(s.done)

	for {
		sessionCtx, ok := s.beginSession(ctx)
		if !ok {
			return
		}

		err := s.recognizer.Listen(sessionCtx, func(t Transcript) {
			if sessionCtx.Err() != nil {
				return
			}
			s.handle(ctx, t)
			if t.IsFinal {
				s.endSession()
			}
		})
		s.endSession()

		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Warn().Err(err).Msg("Recognition session ended with error.")
		}

		timer := time.NewTimer(s.delay)
		select {
		case <-timer.C:
		case <-s.stop:
			timer.Stop()
			return
		case <-ctx.Done():
			timer.Stop()
			return
		}
	}
}

// beginSession starts a session unless Stop has been called. Checking under mu
// makes Stop win any race with a pending restart.
func (s *Supervisor) beginSession(parent context.Context) (context.Context, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped || parent.Err() != nil {
		return nil, false
	}

	ctx, cancel := context.WithCancel(parent)
	s.cancelSession = cancel
	s.sessions++
	return ctx, true
}

func (s *Supervisor) endSession() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancelSession != nil {
		s.cancelSession()
		s.cancelSession = nil
	}
}

// Sessions returns how many recognition sessions have been started.
func (s *Supervisor) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions
}

// Halt ends the current session and suppresses any pending restart without waiting
// for the loop to exit. Unlike Stop it may be called from the handle callback.
func (s *Supervisor) Halt() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	wasStopped := s.stopped
	s.stopped = true
	if s.cancelSession != nil {
		s.cancelSession()
		s.cancelSession = nil
	}
	if !wasStopped {
		close(s.stop)
	}
	return s.started
}

// Stop halts the supervisor and waits for the loop to exit. It is idempotent.
// Stop must not be called from the handle callback, which runs on the loop itself;
// use Halt there.
func (s *Supervisor) Stop() {
	if s.Halt() {
		<-s.done
	}
}
