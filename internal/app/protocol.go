package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/OpenTrons/opentrons-sub006/internal/hcl"
	"github.com/OpenTrons/opentrons-sub006/internal/protocol"
)

// loadProtocol reads an analysis document (.json) or HCL fixtures (.hcl
// file or directory).
func loadProtocol(ctx context.Context, path string) (*protocol.Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("protocol: %w", err)
	}
	if info.IsDir() || strings.EqualFold(filepath.Ext(path), ".hcl") {
		return hcl.LoadProtocol(ctx, path)
	}
	return protocol.LoadJSONFile(path)
}
