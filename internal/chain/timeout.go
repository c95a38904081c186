package chain

import (
	"context"

	"github.com/OpenTrons/opentrons-sub006/internal/robot"
)

// Timeout bounds a command by its Timeout. Commands without one run until
// the robot answers or the caller's context ends. Exceeding the deadline
// fails the command with context.DeadlineExceeded.
func Timeout() Middleware {
	return func(ctx context.Context, cmd robot.Command, next Handler) error {
		if cmd.Timeout <= 0 {
			return next(ctx)
		}
		ctx, cancel := context.WithTimeout(ctx, cmd.Timeout)
		defer cancel()
		err := next(ctx)
		if err == nil && ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
}
