// Package report renders the results of a position check as YAML.
package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/OpenTrons/opentrons-sub006/internal/flow"
	"github.com/OpenTrons/opentrons-sub006/internal/offsets"
	"github.com/OpenTrons/opentrons-sub006/internal/vector"
	"gopkg.in/yaml.v3"
)

// Source says where the offset applied at a placement comes from.
type Source string

const (
	SourceLocation  Source = "location"
	SourceDefault   Source = "default"
	SourceHardcoded Source = "hardcoded"
	SourceNone      Source = "none"
)

// Row is one placement of one labware definition.
type Row struct {
	DefinitionURI string          `yaml:"definition_uri"`
	DisplayName   string          `yaml:"display_name,omitempty"`
	Slot          string          `yaml:"slot"`
	Location      string          `yaml:"location"`
	Source        Source          `yaml:"source"`
	Vector        *vector.Vector3 `yaml:"vector,omitempty"`
	Pending       bool            `yaml:"pending,omitempty"`
}

// Report is the exported document.
type Report struct {
	RunID     string                     `yaml:"run_id,omitempty"`
	AppliedAt time.Time                  `yaml:"applied_at"`
	Rows      []Row                      `yaml:"labware"`
	Writes    []offsets.Write            `yaml:"writes,omitempty"`
	Applied   []offsets.OffsetCreateData `yaml:"applied,omitempty"`
}

// Summarize lists every placement with the vector it resolves to. Pending
// marks placements whose value was confirmed or reset in this session.
func Summarize(infos []offsets.LabwareInfo) []Row {
	var rows []Row
	for _, info := range infos {
		for _, d := range info.LocationSpecific {
			row := Row{
				DefinitionURI: info.DefinitionURI,
				DisplayName:   info.DisplayName,
				Slot:          d.SlotName,
				Location:      d.Sequence.Key(),
				Pending:       d.Working != nil,
			}
			switch {
			case d.IsHardCoded():
				row.Source, row.Vector = SourceHardcoded, d.HardCodedVector
			case offsets.MostRecentVector(d.Existing, d.Working) != nil:
				row.Source, row.Vector = SourceLocation, offsets.MostRecentVector(d.Existing, d.Working)
			case offsets.MostRecentVector(info.Default.Existing, info.Default.Working) != nil:
				row.Source, row.Vector = SourceDefault, offsets.MostRecentVector(info.Default.Existing, info.Default.Working)
			default:
				row.Source = SourceNone
			}
			rows = append(rows, row)
		}
	}
	return rows
}

// FromApplied builds the report for accepted results.
func FromApplied(a flow.Applied) Report {
	return Report{
		RunID:     a.RunID,
		AppliedAt: a.Applied,
		Rows:      Summarize(a.Infos),
		Writes:    a.Writes,
		Applied:   a.Run,
	}
}

// Write encodes r as YAML.
func Write(w io.Writer, r Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return enc.Close()
}

// WriteFile writes r to path, creating parent directories.
func WriteFile(path string, r Report) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	if err := Write(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Exporter returns an OnApply callback that writes the report to path.
func Exporter(path string) func(a flow.Applied) error {
	return func(a flow.Applied) error {
		return WriteFile(path, FromApplied(a))
	}
}
