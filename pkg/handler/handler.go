package handler

import (
	"context"
	"log/slog"

	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/ports"
)

// Result is what a handler hands back to the session.
type Result struct {
	// Output is saved under every SavingKeys entry. Nil means nothing to save.
	Output any
	// Intent selects the branch to follow. Empty means no intent.
	Intent string
}

// Meta is the metadata common to every handler variant.
type Meta struct {
	Type       domain.NodeType
	SavingKeys []string
	Show       bool
	Feedback   bool
	Elements   []domain.Element
}

// Handler executes the behaviour of one node.
type Handler interface {
	Execute(ctx context.Context, value any, tracker domain.Tracker) (Result, error)
	Meta() Meta
}

// Labeled is implemented by handlers that a branching parent routes to by intent.
type Labeled interface {
	Label() string
}

// Deps are the collaborators handlers may call.
// Missing collaborators make the dependent handlers take their failure path.
type Deps struct {
	Classifier    ports.Classifier
	KnowledgeBase ports.KnowledgeBase
	Generator     ports.Generator
	Ticketing     ports.Ticketing
	ChatLog       ports.ChatLog
	Logger        *slog.Logger
}

type base struct {
	meta Meta
}

func (b base) Meta() Meta { return b.meta }
