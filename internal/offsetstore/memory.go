package offsetstore

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/OpenTrons/opentrons-sub006/internal/offsets"
	"github.com/google/uuid"
)

// Memory is an ephemeral Store. Records live in a sync.Map keyed by
// (definition URI, sequence key); Apply batches are serialised by a mutex so
// a batch is never observed half-applied.
type Memory struct {
	apply   sync.Mutex
	records sync.Map // key(uri, sequence key) -> offsets.LabwareOffset
	now     func() time.Time
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{now: func() time.Time { return time.Now().UTC() }}
}

// Seed stores offsets as they are, keeping their IDs and timestamps.
func (m *Memory) Seed(list ...offsets.LabwareOffset) {
	m.apply.Lock()
	defer m.apply.Unlock()
	for _, lo := range list {
		if lo.ID == "" {
			lo.ID = uuid.NewString()
		}
		m.records.Store(key(lo.DefinitionURI, lo.Sequence.Key()), lo)
	}
}

// List implements Store.
func (m *Memory) List(ctx context.Context) ([]offsets.LabwareOffset, error) {
	var out []offsets.LabwareOffset
	m.records.Range(func(_, v any) bool {
		out = append(out, v.(offsets.LabwareOffset))
		return true
	})
	sortByCreated(out)
	return out, nil
}

// Apply implements Store.
func (m *Memory) Apply(ctx context.Context, writes []offsets.Write) ([]offsets.LabwareOffset, error) {
	for _, w := range writes {
		if err := validate(w); err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.apply.Lock()
	defer m.apply.Unlock()
	var stored []offsets.LabwareOffset
	for _, w := range writes {
		switch w.Kind {
		case offsets.WriteDelete:
			m.records.Range(func(k, v any) bool {
				if v.(offsets.LabwareOffset).ID == w.ID {
					m.records.Delete(k)
					return false
				}
				return true
			})
		case offsets.WriteUpsert:
			lo := offsets.LabwareOffset{
				ID:            uuid.NewString(),
				DefinitionURI: w.DefinitionURI,
				Sequence:      slices.Clone(w.Sequence),
				Vector:        w.Vector,
				CreatedAt:     m.now(),
			}
			m.records.Store(key(lo.DefinitionURI, lo.Sequence.Key()), lo)
			stored = append(stored, lo)
		}
	}
	return stored, nil
}

// Close implements Store.
func (m *Memory) Close() error {
	return nil
}
