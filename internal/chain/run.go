package chain

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/OpenTrons/opentrons-sub006/internal/ctxlog"
	"github.com/OpenTrons/opentrons-sub006/internal/robot"
)

// Exec issues one command to the robot. robot.Client.Execute satisfies it.
type Exec func(ctx context.Context, cmd robot.Command) (robot.CommandResult, error)

// CommandFailure is the command that stopped a chain.
type CommandFailure struct {
	Index   int
	Command robot.Command
	Err     error
}

func (e *CommandFailure) Error() string {
	return fmt.Sprintf("command %d (%s): %v", e.Index, e.Command.CommandType, e.Err)
}

func (e *CommandFailure) Unwrap() error {
	return e.Err
}

type options struct {
	continuePastFailure bool
	middleware          []Middleware
}

// Option configures Run.
type Option func(*options)

// ContinuePastFailure keeps issuing commands after one fails. The failure is
// logged and Run reports only the outcome of the last command.
func ContinuePastFailure() Option {
	return func(o *options) { o.continuePastFailure = true }
}

// WithMiddleware wraps every command of the chain in mws, outermost first.
func WithMiddleware(mws ...Middleware) Option {
	return func(o *options) { o.middleware = append(o.middleware, mws...) }
}

// Run issues cmds in order through exec. It returns the result of every
// command that was issued. In the default fail-fast mode the first failure
// ends the chain and is returned as a *CommandFailure. Cancelling ctx stops
// the chain in either mode.
func Run(ctx context.Context, cmds []robot.Command, exec Exec, opts ...Option) ([]robot.CommandResult, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	// Timeout is innermost so middleware observes the timed-out outcome.
	mw := Chain(append(o.middleware, Timeout())...)
	logger := ctxlog.FromContext(ctx)

	results := make([]robot.CommandResult, 0, len(cmds))
	var last error
	for i, cmd := range cmds {
		if err := ctx.Err(); err != nil {
			return results, &CommandFailure{Index: i, Command: cmd, Err: err}
		}

		var res robot.CommandResult
		err := mw(ctx, cmd, func(ctx context.Context) error {
			r, err := exec(ctx, cmd)
			res = r
			return err
		})
		results = append(results, res)

		if err == nil {
			last = nil
			continue
		}
		failure := &CommandFailure{Index: i, Command: cmd, Err: err}
		if !o.continuePastFailure {
			return results, failure
		}
		logger.Warn("command failed, continuing", slog.String("command_type", cmd.CommandType), slog.String("error", err.Error()))
		last = failure
	}
	return results, last
}
