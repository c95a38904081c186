package chain

import (
	"context"

	"github.com/OpenTrons/opentrons-sub006/internal/robot"
)

// Handler is the remainder of the middleware stack for one command.
type Handler func(ctx context.Context) error

// Middleware wraps the execution of one command. It must call next to
// continue, unless it short-circuits with an error.
type Middleware func(ctx context.Context, cmd robot.Command, next Handler) error

// Chain composes middleware. The first middleware in the list is the
// outermost wrapper.
func Chain(mws ...Middleware) Middleware {
	return func(ctx context.Context, cmd robot.Command, next Handler) error {
		h := next
		for i := len(mws) - 1; i >= 0; i-- {
			mw := mws[i]
			prev := h
			h = func(ctx context.Context) error {
				return mw(ctx, cmd, prev)
			}
		}
		return h(ctx)
	}
}
