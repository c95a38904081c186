package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/OpenTrons/opentrons-sub006/internal/ctxlog"
	"github.com/OpenTrons/opentrons-sub006/internal/flow"
	"github.com/OpenTrons/opentrons-sub006/internal/robot"
	"golang.org/x/term"
)

// Handle is the part of a flow the console drives.
type Handle interface {
	Proceed(ctx context.Context) error
	GoBack(ctx context.Context) error
	Jog(ctx context.Context, axis robot.Axis, direction int, distance float64) error
	ConfirmExit() error
	CancelExit() error
	Exit(ctx context.Context) error
	DismissFatalError(ctx context.Context) error
	ResetToDefault(definitionURI, slot string) error
	SaveAsDefault(definitionURI, slot string) error
	Snapshot() flow.Snapshot
}

var _ Handle = (*flow.Flow)(nil)

// ErrUnknownCommand is returned for input the console does not understand.
var ErrUnknownCommand = errors.New("unknown command")

// Options configure a Console.
type Options struct {
	// JogStep is the distance of a jog that names no distance.
	JogStep float64
	// Prompt prints "> " before reading each line.
	Prompt bool
}

// Console reads commands from in and reports to out.
type Console struct {
	h    Handle
	in   io.Reader
	out  io.Writer
	opts Options
}

// New creates a console. A non-positive JogStep falls back to 0.1mm.
func New(h Handle, in io.Reader, out io.Writer, opts Options) *Console {
	if opts.JogStep <= 0 {
		opts.JogStep = 0.1
	}
	return &Console{h: h, in: in, out: out, opts: opts}
}

// Interactive reports whether r is a terminal.
func Interactive(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Run processes input until the flow closes, the input ends or ctx is
// cancelled. Ending the input or cancelling ctx exits the flow first.
func (c *Console) Run(ctx context.Context, closed <-chan struct{}) error {
	logger := ctxlog.FromContext(ctx)
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		sc := bufio.NewScanner(c.in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-closed:
				return
			case <-ctx.Done():
				return
			}
		}
		readErr <- sc.Err()
	}()

	c.status()
	for {
		c.prompt()
		select {
		case <-closed:
			return nil
		case <-ctx.Done():
			logger.Info("Interrupted, exiting position check.")
			if err := c.h.Exit(context.WithoutCancel(ctx)); err != nil {
				logger.Error("Failed to exit position check.", "error", err)
			}
			return ctx.Err()
		case err := <-readErr:
			if c.h.Snapshot().Mode != flow.ModeClosed {
				logger.Info("Input closed, exiting position check.")
				if err := c.h.Exit(ctx); err != nil {
					logger.Error("Failed to exit position check.", "error", err)
				}
			}
			return err
		case line := <-lines:
			if err := c.Execute(ctx, line); err != nil {
				fmt.Fprintf(c.out, "error: %v\n", err)
			}
			select {
			case <-closed:
				return nil
			default:
			}
			c.status()
		}
	}
}

// Execute runs one command line.
func (c *Console) Execute(ctx context.Context, line string) error {
	fields := strings.Fields(strings.ToLower(line))
	if len(fields) == 0 {
		return c.h.Proceed(ctx)
	}

	switch cmd, args := fields[0], fields[1:]; cmd {
	case "p", "proceed", "next", "confirm":
		return c.h.Proceed(ctx)
	case "b", "back":
		return c.h.GoBack(ctx)
	case "jog", "j":
		return c.jog(ctx, args)
	case "x+", "x-", "y+", "y-", "z+", "z-":
		return c.jog(ctx, append([]string{cmd[:1], cmd[1:]}, args...))
	case "step":
		if len(args) != 1 {
			return fmt.Errorf("usage: step <mm>")
		}
		mm, err := parseDistance(args[0])
		if err != nil {
			return err
		}
		c.opts.JogStep = mm
		fmt.Fprintf(c.out, "jog step set to %gmm\n", mm)
		return nil
	case "exit", "quit", "q":
		return c.h.ConfirmExit()
	case "yes", "y":
		if c.h.Snapshot().Mode != flow.ModeConfirmExit {
			return fmt.Errorf("%w: nothing to confirm", flow.ErrNotAvailable)
		}
		return c.h.Exit(ctx)
	case "no", "n", "cancel":
		return c.h.CancelExit()
	case "exit!", "quit!":
		return c.h.Exit(ctx)
	case "dismiss":
		return c.h.DismissFatalError(ctx)
	case "reset":
		// uris are case sensitive, so reparse the original line.
		raw := strings.Fields(line)
		if len(raw) != 3 {
			return fmt.Errorf("usage: reset <definition-uri> <slot>")
		}
		return c.h.ResetToDefault(raw[1], raw[2])
	case "default":
		raw := strings.Fields(line)
		if len(raw) != 3 {
			return fmt.Errorf("usage: default <definition-uri> <slot>")
		}
		return c.h.SaveAsDefault(raw[1], raw[2])
	case "status", "s":
		return nil
	case "help", "h", "?":
		c.help()
		return nil
	}
	return fmt.Errorf("%w %q, type 'help'", ErrUnknownCommand, fields[0])
}

// jog handles "<axis> <+|-> [mm]".
func (c *Console) jog(ctx context.Context, args []string) error {
	if len(args) < 2 || len(args) > 3 {
		return fmt.Errorf("usage: jog <x|y|z> <+|-> [mm]")
	}
	axis, err := robot.ParseAxis(args[0])
	if err != nil {
		return err
	}
	var dir int
	switch args[1] {
	case "+":
		dir = 1
	case "-":
		dir = -1
	default:
		return fmt.Errorf("jog direction must be + or -, got %q", args[1])
	}
	mm := c.opts.JogStep
	if len(args) == 3 {
		if mm, err = parseDistance(args[2]); err != nil {
			return err
		}
	}
	return c.h.Jog(ctx, axis, dir, mm)
}

func parseDistance(s string) (float64, error) {
	mm, err := strconv.ParseFloat(strings.TrimSuffix(s, "mm"), 64)
	if err != nil || mm <= 0 {
		return 0, fmt.Errorf("invalid distance %q", s)
	}
	return mm, nil
}

func (c *Console) prompt() {
	if c.opts.Prompt {
		fmt.Fprint(c.out, "> ")
	}
}

func (c *Console) status() {
	fmt.Fprintln(c.out, Describe(c.h.Snapshot()))
}

func (c *Console) help() {
	fmt.Fprint(c.out, `Commands:
  proceed | p | <enter>   confirm the current step and move on
  back | b                go back one step
  jog <x|y|z> <+|-> [mm]  move the pipette (shorthand: x+ 0.5, z-)
  step <mm>               set the default jog distance
  exit | q                ask to exit, answer with yes or no
  exit!                   exit without asking
  dismiss                 acknowledge a fatal error and exit
  reset <uri> <slot>      use the default offset for a placement
  default <uri> <slot>    save a placement's offset as the default
  status | s              print the current step
`)
}
