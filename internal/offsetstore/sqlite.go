package offsetstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/OpenTrons/opentrons-sub006/internal/location"
	"github.com/OpenTrons/opentrons-sub006/internal/offsets"
	"github.com/OpenTrons/opentrons-sub006/internal/vector"
	_ "github.com/glebarez/go-sqlite"
	"github.com/google/uuid"
)

// SQLite is a Store backed by a SQLite database file.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

var _ Store = (*SQLite)(nil)

// timeLayout has a fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const schema = `CREATE TABLE IF NOT EXISTS labware_offsets (
	id TEXT PRIMARY KEY,
	definition_uri TEXT NOT NULL,
	sequence_key TEXT NOT NULL,
	location_sequence TEXT NOT NULL,
	x REAL NOT NULL,
	y REAL NOT NULL,
	z REAL NOT NULL,
	created_at TEXT NOT NULL,
	UNIQUE (definition_uri, sequence_key)
);`

// OpenSQLite opens or creates the database at path. ":memory:" works for
// tests.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite offset store: empty path")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite offset store: %w", err)
	}
	// A single connection keeps ":memory:" databases alive and serialises
	// writers.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create offset table: %w", err)
	}
	return &SQLite{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

// List implements Store.
func (s *SQLite) List(ctx context.Context) ([]offsets.LabwareOffset, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, definition_uri, location_sequence, x, y, z, created_at FROM labware_offsets ORDER BY created_at, rowid`)
	if err != nil {
		return nil, fmt.Errorf("list offsets: %w", err)
	}
	defer rows.Close()

	var out []offsets.LabwareOffset
	for rows.Next() {
		var (
			lo        offsets.LabwareOffset
			seqJSON   string
			createdAt string
		)
		if err := rows.Scan(&lo.ID, &lo.DefinitionURI, &seqJSON, &lo.Vector.X, &lo.Vector.Y, &lo.Vector.Z, &createdAt); err != nil {
			return nil, fmt.Errorf("scan offset: %w", err)
		}
		if err := json.Unmarshal([]byte(seqJSON), &lo.Sequence); err != nil {
			return nil, fmt.Errorf("offset %s: bad location sequence: %w", lo.ID, err)
		}
		if lo.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
			return nil, fmt.Errorf("offset %s: bad timestamp: %w", lo.ID, err)
		}
		out = append(out, lo)
	}
	return out, rows.Err()
}

// Apply implements Store. The batch runs in one transaction.
func (s *SQLite) Apply(ctx context.Context, writes []offsets.Write) ([]offsets.LabwareOffset, error) {
	for _, w := range writes {
		if err := validate(w); err != nil {
			return nil, err
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin offset batch: %w", err)
	}
	defer tx.Rollback()

	var stored []offsets.LabwareOffset
	for _, w := range writes {
		switch w.Kind {
		case offsets.WriteDelete:
			if _, err := tx.ExecContext(ctx, `DELETE FROM labware_offsets WHERE id = ?`, w.ID); err != nil {
				return nil, fmt.Errorf("delete offset %s: %w", w.ID, err)
			}
		case offsets.WriteUpsert:
			lo, err := s.upsert(ctx, tx, w.DefinitionURI, w.Sequence, w.Vector)
			if err != nil {
				return nil, err
			}
			stored = append(stored, lo)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit offset batch: %w", err)
	}
	return stored, nil
}

func (s *SQLite) upsert(ctx context.Context, tx *sql.Tx, uri string, seq location.Sequence, v vector.Vector3) (offsets.LabwareOffset, error) {
	seqJSON, err := json.Marshal(seq)
	if err != nil {
		return offsets.LabwareOffset{}, fmt.Errorf("encode location sequence: %w", err)
	}
	lo := offsets.LabwareOffset{
		ID:            uuid.NewString(),
		DefinitionURI: uri,
		Sequence:      seq,
		Vector:        v,
		CreatedAt:     s.now(),
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO labware_offsets (id, definition_uri, sequence_key, location_sequence, x, y, z, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (definition_uri, sequence_key) DO UPDATE SET
			id = excluded.id,
			location_sequence = excluded.location_sequence,
			x = excluded.x, y = excluded.y, z = excluded.z,
			created_at = excluded.created_at`,
		lo.ID, uri, seq.Key(), string(seqJSON), v.X, v.Y, v.Z, lo.CreatedAt.Format(timeLayout))
	if err != nil {
		return offsets.LabwareOffset{}, fmt.Errorf("upsert offset for %s: %w", uri, err)
	}
	return lo, nil
}

// Close implements Store.
func (s *SQLite) Close() error {
	return s.db.Close()
}
