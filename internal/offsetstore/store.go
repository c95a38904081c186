// Package offsetstore persists labware offsets between position checks.
//
// # Why a store
//
// The position check starts from the offsets confirmed in earlier sessions
// and, when its results are accepted, writes back what changed. The store is
// the only state that outlives a flow.
//
// # Semantics
//
// Offsets are keyed by (definition URI, location sequence). An upsert for a
// key replaces whatever was stored for it and gets a fresh ID and timestamp;
// a delete removes one record by ID and ignores unknown IDs. Apply runs a
// batch of writes atomically.
//
// Two implementations exist: an ephemeral in-memory store and a SQLite
// store for operators who want offsets to survive restarts.
package offsetstore

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/OpenTrons/opentrons-sub006/internal/offsets"
)

// Store persists labware offsets.
type Store interface {
	// List returns every stored offset, oldest first.
	List(ctx context.Context) ([]offsets.LabwareOffset, error)
	// Apply performs writes atomically and returns the stored record of
	// every upsert, in write order.
	Apply(ctx context.Context, writes []offsets.Write) ([]offsets.LabwareOffset, error)
	// Close releases the store.
	Close() error
}

// Drivers accepted by Open.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
)

// ErrUnknownDriver is returned by Open for an unsupported driver name.
var ErrUnknownDriver = errors.New("unknown offset store driver")

// Open creates the store named by driver. path is only used by SQLite.
func Open(ctx context.Context, driver, path string) (Store, error) {
	switch strings.ToLower(driver) {
	case "", DriverMemory:
		return NewMemory(), nil
	case DriverSQLite:
		return OpenSQLite(ctx, path)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
}

func key(uri, sequenceKey string) string {
	return uri + "|" + sequenceKey
}

func validate(w offsets.Write) error {
	switch w.Kind {
	case offsets.WriteDelete:
		if w.ID == "" {
			return errors.New("delete without id")
		}
	case offsets.WriteUpsert:
		if w.DefinitionURI == "" {
			return errors.New("upsert without definition uri")
		}
		if err := w.Sequence.Validate(); err != nil {
			return fmt.Errorf("upsert for %s: %w", w.DefinitionURI, err)
		}
		if err := w.Vector.Validate(); err != nil {
			return fmt.Errorf("upsert for %s: %w", w.DefinitionURI, err)
		}
	default:
		return fmt.Errorf("unknown write kind %q", w.Kind)
	}
	return nil
}

func sortByCreated(list []offsets.LabwareOffset) {
	slices.SortStableFunc(list, func(a, b offsets.LabwareOffset) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
}
