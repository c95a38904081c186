package hcl

import (
	"context"
	"fmt"

	"github.com/OpenTrons/opentrons-sub006/internal/ctxlog"
	"github.com/OpenTrons/opentrons-sub006/internal/location"
	"github.com/OpenTrons/opentrons-sub006/internal/protocol"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
)

// protocolRoot decodes every protocol fixture block from one file.
type protocolRoot struct {
	Pipettes         []*pipetteBlock         `hcl:"pipette,block"`
	Modules          []*moduleBlock          `hcl:"module,block"`
	Labware          []*labwareBlock         `hcl:"labware,block"`
	Commands         []*commandBlock         `hcl:"command,block"`
	HardcodedOffsets []*hardcodedOffsetBlock `hcl:"hardcoded_offset,block"`
	Remain           hcl.Body                `hcl:",remain"`
}

type pipetteBlock struct {
	ID    string  `hcl:"id,label"`
	Name  *string `hcl:"name,optional"`
	Mount string  `hcl:"mount"`
}

type moduleBlock struct {
	ID       string    `hcl:"id,label"`
	Model    string    `hcl:"model"`
	Location cty.Value `hcl:"location"`
}

type labwareBlock struct {
	ID            string    `hcl:"id,label"`
	DefinitionURI string    `hcl:"definition_uri"`
	DisplayName   *string   `hcl:"display_name,optional"`
	Location      cty.Value `hcl:"location"`
	Tiprack       *bool     `hcl:"tiprack,optional"`
	Adapter       *bool     `hcl:"adapter,optional"`
}

type commandBlock struct {
	Type   string    `hcl:"type,label"`
	ID     *string   `hcl:"id,optional"`
	Params cty.Value `hcl:"params,optional"`
}

type hardcodedOffsetBlock struct {
	ID               string    `hcl:"id,label"`
	DefinitionURI    string    `hcl:"definition_uri"`
	LocationSequence cty.Value `hcl:"location_sequence"`
	Vector           cty.Value `hcl:"vector"`
}

const defaultPipetteName = "p300_single_gen2"

// LoadProtocol assembles one protocol.Document from every fixture file under
// paths. Commands keep file order, files keep walk order. The result is
// validated exactly like an analysis document.
func LoadProtocol(ctx context.Context, paths ...string) (*protocol.Document, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL protocol loader started.", "path_count", len(paths))

	files, err := findAllHCLFiles(paths)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .hcl protocol files found")
	}

	doc := &protocol.Document{}
	parser := hclparse.NewParser()
	for _, file := range files {
		f, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var root protocolRoot
		if diags := gohcl.DecodeBody(f.Body, nil, &root); diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}
		if err := translateProtocol(&root, doc); err != nil {
			return nil, fmt.Errorf("%s: %w", file, err)
		}
	}

	if err := doc.Validate(); err != nil {
		return nil, err
	}
	logger.Debug("HCL protocol loading complete.",
		"pipettes", len(doc.Pipettes),
		"labware", len(doc.Labware),
		"modules", len(doc.Modules),
		"commands", len(doc.Commands),
	)
	return doc, nil
}

// translateProtocol appends the decoded blocks of one file to doc.
func translateProtocol(root *protocolRoot, doc *protocol.Document) error {
	for _, p := range root.Pipettes {
		name := defaultPipetteName
		if p.Name != nil {
			name = *p.Name
		}
		doc.Pipettes = append(doc.Pipettes, protocol.Pipette{ID: p.ID, PipetteName: name, Mount: p.Mount})
	}

	for _, m := range root.Modules {
		loc, err := locationFromCty(m.Location)
		if err != nil {
			return fmt.Errorf("module %q: %w", m.ID, err)
		}
		doc.Modules = append(doc.Modules, protocol.Module{ID: m.ID, Model: m.Model, Location: loc})
	}

	for _, l := range root.Labware {
		loc, err := locationFromCty(l.Location)
		if err != nil {
			return fmt.Errorf("labware %q: %w", l.ID, err)
		}
		lw := protocol.Labware{
			ID:            l.ID,
			DefinitionURI: l.DefinitionURI,
			Location:      loc,
			IsTiprack:     l.Tiprack != nil && *l.Tiprack,
			IsAdapter:     l.Adapter != nil && *l.Adapter,
		}
		if l.DisplayName != nil {
			lw.DisplayName = *l.DisplayName
		}
		doc.Labware = append(doc.Labware, lw)
	}

	for i, c := range root.Commands {
		params, err := paramsFromCty(c.Params)
		if err != nil {
			return fmt.Errorf("command %d (%s): %w", i, c.Type, err)
		}
		cmd := protocol.Command{CommandType: c.Type, Params: params}
		if c.ID != nil {
			cmd.ID = *c.ID
		}
		doc.Commands = append(doc.Commands, cmd)
	}

	for _, h := range root.HardcodedOffsets {
		seq, err := sequenceFromCty(h.LocationSequence)
		if err != nil {
			return fmt.Errorf("hardcoded_offset %q: %w", h.ID, err)
		}
		vec, err := vectorFromCty(h.Vector)
		if err != nil {
			return fmt.Errorf("hardcoded_offset %q: %w", h.ID, err)
		}
		doc.HardcodedOffsets = append(doc.HardcodedOffsets, protocol.HardcodedOffset{
			ID:            h.ID,
			DefinitionURI: h.DefinitionURI,
			Sequence:      seq,
			Vector:        vec,
		})
	}
	return nil
}

// paramsFromCty reads the parameters the position check understands and
// ignores the rest.
func paramsFromCty(v cty.Value) (protocol.Params, error) {
	var p protocol.Params
	obj, err := nativeObject(v)
	if err != nil || obj == nil {
		return p, err
	}

	for name, dst := range map[string]*string{
		"pipette_id": &p.PipetteID,
		"labware_id": &p.LabwareID,
		"well_name":  &p.WellName,
	} {
		s, err := stringField(obj, name)
		if err != nil {
			return p, err
		}
		*dst = s
	}

	for name, dst := range map[string]**location.LabwareLocation{
		"location":     &p.Location,
		"new_location": &p.NewLocation,
	} {
		raw, ok := obj[name]
		if !ok || raw == nil {
			continue
		}
		loc, err := nativeLocation(raw)
		if err != nil {
			return p, fmt.Errorf("%s: %w", name, err)
		}
		*dst = &loc
	}
	return p, nil
}
