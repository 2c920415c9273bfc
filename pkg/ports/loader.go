package ports

import "context"

// WorkflowLoader defines how the engine retrieves a workflow document.
type WorkflowLoader interface {
	// Source identifies the document (path, name). It keys the graph cache.
	Source() string

	// Load returns the raw document bytes, JSON or YAML.
	Load(ctx context.Context) ([]byte, error)
}
