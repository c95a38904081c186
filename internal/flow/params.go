package flow

import (
	"context"
	"errors"
	"time"

	"github.com/OpenTrons/opentrons-sub006/internal/chain"
	"github.com/OpenTrons/opentrons-sub006/internal/offsets"
	"github.com/OpenTrons/opentrons-sub006/internal/protocol"
	"github.com/OpenTrons/opentrons-sub006/internal/robot"
)

// DefaultJogTimeout bounds a single jog.
const DefaultJogTimeout = 10 * time.Second

// DefaultTrashArea is where a held tip is dropped on exit.
const DefaultTrashArea = "fixedTrash"

// OffsetWriter persists pending offset writes. It returns the stored record
// for every upsert.
type OffsetWriter interface {
	Apply(ctx context.Context, writes []offsets.Write) ([]offsets.LabwareOffset, error)
}

// Observer is told about every state change.
type Observer interface {
	Observe(Snapshot)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Snapshot)

// Observe calls f.
func (f ObserverFunc) Observe(s Snapshot) { f(s) }

// Applied describes what accepting the results did. Infos is the state
// before the writes were committed, so working offsets mark what changed.
type Applied struct {
	Writes  []offsets.Write            `json:"writes" yaml:"writes"`
	Stored  []offsets.LabwareOffset    `json:"stored" yaml:"stored"`
	Run     []offsets.OffsetCreateData `json:"run" yaml:"run"`
	Infos   []offsets.LabwareInfo      `json:"labware" yaml:"labware"`
	RunID   string                     `json:"runId" yaml:"run_id"`
	Applied time.Time                  `json:"appliedAt" yaml:"applied_at"`
}

// Reason says why a flow closed.
type Reason string

const (
	ReasonApplied   Reason = "applied"
	ReasonCancelled Reason = "cancelled"
	ReasonFatal     Reason = "fatalError"
)

// Outcome is passed to OnClose exactly once.
type Outcome struct {
	Reason  Reason
	Fatal   error
	Cleanup error
}

// Params configure Begin.
type Params struct {
	Document        *protocol.Document
	ExistingOffsets []offsets.LabwareOffset
	Client          robot.Client
	RunID           string

	// JogTimeout defaults to DefaultJogTimeout.
	JogTimeout time.Duration
	// TrashArea defaults to DefaultTrashArea.
	TrashArea string
	// Middleware wraps every command the flow issues.
	Middleware []chain.Middleware
	// Writer persists offsets when the results are accepted. Without one
	// the writes are only applied to the run.
	Writer OffsetWriter

	// OnApply runs after offsets were persisted and applied to the run.
	OnApply func(context.Context, Applied) error
	// OnClose runs once when the flow closes.
	OnClose  func(Outcome)
	Observer Observer
}

func (p *Params) validate() error {
	var errs []error
	if p.Document == nil {
		errs = append(errs, errors.New("no analysis document"))
	}
	if p.Client == nil {
		errs = append(errs, errors.New("no robot client"))
	}
	if p.JogTimeout < 0 {
		errs = append(errs, errors.New("jog timeout must not be negative"))
	}
	if p.JogTimeout == 0 {
		p.JogTimeout = DefaultJogTimeout
	}
	if p.TrashArea == "" {
		p.TrashArea = DefaultTrashArea
	}
	return errors.Join(errs...)
}
