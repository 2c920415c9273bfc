package memory

import (
	"context"
	"sync"
)

// Loader implements ports.WorkflowLoader over a document held in memory.
type Loader struct {
	source string

	mu  sync.RWMutex
	raw []byte
}

// NewLoader creates a loader for a JSON or YAML document.
func NewLoader(source string, raw []byte) *Loader {
	return &Loader{source: source, raw: append([]byte(nil), raw...)}
}

// Source returns the name given at construction.
func (l *Loader) Source() string { return l.source }

// Load returns a copy of the document.
func (l *Loader) Load(context.Context) ([]byte, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]byte(nil), l.raw...), nil
}

// Replace swaps the document. Callers holding a graph cache must invalidate it.
func (l *Loader) Replace(raw []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.raw = append([]byte(nil), raw...)
}
