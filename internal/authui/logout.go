package authui

import (
	"context"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// LogoutState is the state of a LogoutFlow
type LogoutState int32

const (
	LogoutPending LogoutState = iota
	LogoutCompleted
)

func (s LogoutState) String() string {
	if s == LogoutCompleted {
		return "completed"
	}
	return "pending"
}

// LogoutFlow signs the user out once per activation and always ends on the
// login route. A failed sign-out is logged and otherwise treated as success:
// the local session is abandoned even if the provider could not invalidate it.
//
// A flow instance is single-shot. Activate may be called any number of times
// (re-renders, retried requests); only the first call reaches the provider.
type LogoutFlow struct {
	provider SessionProvider
	nav      Navigator
	logger   zerolog.Logger

	invoked atomic.Bool
	state   atomic.Int32
	done    chan struct{}

	// written before done is closed
	failure error
}

// NewLogoutFlow creates a flow in the Pending state
func NewLogoutFlow(provider SessionProvider, nav Navigator, logger zerolog.Logger) *LogoutFlow {
	return &LogoutFlow{
		provider: provider,
		nav:      nav,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Activate starts the sign-out. It returns false when the flow was already
// activated, in which case nothing happens.
func (f *LogoutFlow) Activate(ctx context.Context) bool {
	if !f.invoked.CompareAndSwap(false, true) {
		return false
	}

	go func() {
		if err := f.provider.SignOut(ctx); err != nil {
			f.complete(&SignOutFailure{Err: err})
			return
		}
		f.complete(nil)
	}()

	return true
}

// Run activates the flow and waits for it to complete
func (f *LogoutFlow) Run(ctx context.Context) error {
	f.Activate(ctx)
	return f.Wait(ctx)
}

// complete is the single terminal transition for both outcomes
func (f *LogoutFlow) complete(err error) {
	if err != nil {
		f.failure = err
		f.logger.Warn().Err(err).Msg("Sign out failed, redirecting to login anyway")
	}

	f.nav.Replace(LoginPath)
	f.state.Store(int32(LogoutCompleted))
	close(f.done)
}

// Done is closed once the flow reaches Completed
func (f *LogoutFlow) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the flow completes or ctx is done. It only reports ctx
// errors; sign-out failures never propagate to the caller.
func (f *LogoutFlow) Wait(ctx context.Context) error {
	select {
	case <-f.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State returns the current state
func (f *LogoutFlow) State() LogoutState {
	return LogoutState(f.state.Load())
}

// Failure returns the sign-out failure once completed, for diagnostics
func (f *LogoutFlow) Failure() error {
	select {
	case <-f.done:
		return f.failure
	default:
		return nil
	}
}
