package protocol

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// analysisEnvelope accepts both a bare document and one wrapped in the
// "data" envelope returned by the robot HTTP API.
type analysisEnvelope struct {
	Data *Document `json:"data"`
}

// LoadJSON decodes and validates an analysis document.
func LoadJSON(r io.Reader) (*Document, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read analysis: %w", err)
	}

	var env analysisEnvelope
	if err := json.Unmarshal(raw, &env); err == nil && env.Data != nil {
		if err := env.Data.Validate(); err != nil {
			return nil, err
		}
		return env.Data, nil
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode analysis: %w", err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// LoadJSONFile reads an analysis document from disk.
func LoadJSONFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open analysis %s: %w", path, err)
	}
	defer f.Close()

	doc, err := LoadJSON(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}
