// Package file reads workflow documents from disk and keeps tracker
// snapshots as JSON files.
package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Loader implements ports.WorkflowLoader for a single file.
type Loader struct {
	path string
}

// NewLoader checks the extension and returns a loader for path.
// Accepted extensions are .json, .yaml and .yml.
func NewLoader(path string) (*Loader, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
	default:
		return nil, fmt.Errorf("unsupported workflow file %q: want .json, .yaml or .yml", path)
	}
	return &Loader{path: path}, nil
}

// Source is the path the loader was created with.
func (l *Loader) Source() string {
	return l.path
}

// Load reads the file. The read is abandoned if ctx is already done.
func (l *Loader) Load(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow: %w", err)
	}
	return data, nil
}
