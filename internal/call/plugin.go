package call

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/vovakirdan/wirecall/internal/event"
	"github.com/vovakirdan/wirecall/internal/signal"
)

// Plugin extends the orchestrator. A plugin implements any subset of the
// capability interfaces below; hooks it does not implement are skipped.
type Plugin interface {
	Name() string
}

// Initializer runs once from Init.
type Initializer interface {
	OnInitial(ctx context.Context) error
}

// Leaver runs after the room was left and before state is reset.
type Leaver interface {
	OnLeave(ctx context.Context, roomID int64) error
}

// Ticker runs every time the call duration notice is rendered.
type Ticker interface {
	OnTick(elapsed time.Duration)
}

// StateObserver sees every state transition.
type StateObserver interface {
	OnChangeState(ctx context.Context, from, to State) error
}

// CreateObserver runs before a call is placed.
type CreateObserver interface {
	OnCreateMessage(ctx context.Context, p CreateParams) error
}

// SignalObserver sees every signaling message accepted for the current room.
type SignalObserver interface {
	OnSignal(ctx context.Context, msg signal.Message) error
}

// EventObserver sees every session event.
type EventObserver interface {
	OnEvent(ctx context.Context, ev event.Event) error
}

// BanHandler runs after the client was banned from the room and left it.
type BanHandler interface {
	OnClientBanned(ctx context.Context, roomID int64) error
}

// each calls fn on every plugin implementing T. Errors and panics are
// logged and returned combined; they never stop the remaining plugins.
// Hooks must not call Leave, Create or UpdateView synchronously.
func each[T any](o *Orchestrator, hook string, fn func(T) error) error {
	var errs error
	for _, p := range o.plugins {
		t, ok := p.(T)
		if !ok {
			continue
		}
		if err := callHook(func() error { return fn(t) }); err != nil {
			o.log.Warn().Err(err).Str("plugin", p.Name()).Str("hook", hook).Msg("plugin hook failed")
			errs = multierr.Append(errs, fmt.Errorf("%s.%s: %w", p.Name(), hook, err))
		}
	}
	return errs
}

func callHook(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}
