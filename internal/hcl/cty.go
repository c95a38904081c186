// This file converts cty values produced by HCL attribute evaluation into
// the Go values the loaders need.

package hcl

import (
	"fmt"

	"github.com/OpenTrons/opentrons-sub006/internal/location"
	"github.com/OpenTrons/opentrons-sub006/internal/vector"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// ctyToNative recursively converts a cty.Value to its most natural Go
// counterpart: string, float64, bool, []any or map[string]any.
func ctyToNative(v cty.Value) (any, error) {
	if v.IsNull() || !v.IsKnown() {
		return nil, nil
	}

	ty := v.Type()
	switch {
	case ty == cty.String:
		return v.AsString(), nil

	case ty == cty.Number:
		var f float64
		if err := gocty.FromCtyValue(v, &f); err != nil {
			return nil, fmt.Errorf("could not convert number to float64: %w", err)
		}
		return f, nil

	case ty == cty.Bool:
		return v.True(), nil

	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		out := make([]any, 0, v.LengthInt())
		it := v.ElementIterator()
		for it.Next() {
			_, el := it.Element()
			native, err := ctyToNative(el)
			if err != nil {
				return nil, err
			}
			out = append(out, native)
		}
		return out, nil

	case ty.IsObjectType() || ty.IsMapType():
		out := make(map[string]any)
		it := v.ElementIterator()
		for it.Next() {
			key, el := it.Element()
			name := key.AsString()
			native, err := ctyToNative(el)
			if err != nil {
				return nil, fmt.Errorf("in attribute '%s': %w", name, err)
			}
			out[name] = native
		}
		return out, nil

	default:
		return nil, fmt.Errorf("unsupported type %s", ty.FriendlyName())
	}
}

// nativeObject converts v and requires the result to be an object.
func nativeObject(v cty.Value) (map[string]any, error) {
	native, err := ctyToNative(v)
	if err != nil {
		return nil, err
	}
	if native == nil {
		return nil, nil
	}
	obj, ok := native.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected an object, got %s", v.Type().FriendlyName())
	}
	return obj, nil
}

// stringField reads an optional string attribute of a native object.
func stringField(obj map[string]any, name string) (string, error) {
	raw, ok := obj[name]
	if !ok || raw == nil {
		return "", nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("attribute '%s' must be a string", name)
	}
	return s, nil
}

var vectorType = cty.Object(map[string]cty.Type{
	"x": cty.Number,
	"y": cty.Number,
	"z": cty.Number,
})

type ctyVector struct {
	X float64 `cty:"x"`
	Y float64 `cty:"y"`
	Z float64 `cty:"z"`
}

// vectorFromCty decodes `{ x = 1, y = 0, z = 0.5 }`.
func vectorFromCty(v cty.Value) (vector.Vector3, error) {
	if v.IsNull() {
		return vector.Zero, nil
	}
	conv, err := convert.Convert(v, vectorType)
	if err != nil {
		return vector.Vector3{}, fmt.Errorf("vector: %w", err)
	}
	var out ctyVector
	if err := gocty.FromCtyValue(conv, &out); err != nil {
		return vector.Vector3{}, fmt.Errorf("vector: %w", err)
	}
	vec, err := vector.New(out.X, out.Y, out.Z)
	if err != nil {
		return vector.Vector3{}, fmt.Errorf("vector: %w", err)
	}
	return vec, nil
}

// locationFromCty decodes a labware location. The string "offDeck" is
// accepted, otherwise an object naming exactly one parent.
func locationFromCty(v cty.Value) (location.LabwareLocation, error) {
	native, err := ctyToNative(v)
	if err != nil {
		return location.LabwareLocation{}, fmt.Errorf("location: %w", err)
	}
	if native == nil {
		return location.LabwareLocation{}, fmt.Errorf("location is required")
	}
	return nativeLocation(native)
}

func nativeLocation(raw any) (location.LabwareLocation, error) {
	switch v := raw.(type) {
	case string:
		if v != "offDeck" {
			return location.LabwareLocation{}, fmt.Errorf("unknown location %q", v)
		}
		return location.OffDeckLocation(), nil
	case map[string]any:
		return locationFromObject(v)
	}
	return location.LabwareLocation{}, fmt.Errorf("location must be an object or \"offDeck\"")
}

func locationFromObject(obj map[string]any) (location.LabwareLocation, error) {
	var loc location.LabwareLocation
	for name, dst := range map[string]*string{
		"slot_name":             &loc.SlotName,
		"module_id":             &loc.ModuleID,
		"labware_id":            &loc.LabwareID,
		"addressable_area_name": &loc.AddressableAreaName,
	} {
		s, err := stringField(obj, name)
		if err != nil {
			return loc, fmt.Errorf("location: %w", err)
		}
		*dst = s
	}
	if err := loc.Validate(); err != nil {
		return loc, err
	}
	return loc, nil
}

// sequenceFromCty decodes a list of `{ kind = "...", ... }` objects.
func sequenceFromCty(v cty.Value) (location.Sequence, error) {
	native, err := ctyToNative(v)
	if err != nil {
		return nil, err
	}
	items, ok := native.([]any)
	if !ok {
		return nil, fmt.Errorf("location_sequence must be a list of objects")
	}
	seq := make(location.Sequence, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("location_sequence[%d] must be an object", i)
		}
		var c location.SequenceComponent
		var kind string
		fields := map[string]*string{
			"kind":                  &kind,
			"labware_uri":           &c.LabwareURI,
			"module_model":          &c.ModuleModel,
			"addressable_area_name": &c.AddressableAreaName,
		}
		for name, dst := range fields {
			s, err := stringField(obj, name)
			if err != nil {
				return nil, fmt.Errorf("location_sequence[%d]: %w", i, err)
			}
			*dst = s
		}
		c.Kind = location.ComponentKind(kind)
		seq = append(seq, c)
	}
	if err := seq.Validate(); err != nil {
		return nil, err
	}
	return seq, nil
}
