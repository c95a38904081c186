package chain

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/OpenTrons/opentrons-sub006/internal/ctxlog"
	"github.com/OpenTrons/opentrons-sub006/internal/robot"
)

// Logging logs every command with the logger carried by the context.
func Logging() Middleware {
	return func(ctx context.Context, cmd robot.Command, next Handler) error {
		logger := ctxlog.FromContext(ctx).With(
			slog.String("command_type", cmd.CommandType),
			slog.String("command_key", cmd.Key),
		)
		logger.Debug("command issued")

		start := time.Now()
		err := next(ctx)
		elapsed := time.Since(start)

		if err != nil {
			logger.Error("command failed", slog.Duration("elapsed", elapsed), slog.String("error", err.Error()))
		} else {
			logger.Debug("command completed", slog.Duration("elapsed", elapsed))
		}
		return err
	}
}

// Recover turns a panic below it into an error for the command.
func Recover() Middleware {
	return func(ctx context.Context, cmd robot.Command, next Handler) (retErr error) {
		defer func() {
			if r := recover(); r != nil {
				ctxlog.FromContext(ctx).Error("command handler panicked",
					slog.String("command_type", cmd.CommandType),
					slog.Any("panic", r),
					slog.String("stack", string(debug.Stack())),
				)
				retErr = fmt.Errorf("panic in %s: %v", cmd.CommandType, r)
			}
		}()
		return next(ctx)
	}
}
