package rest

import (
	"context"
	"fmt"
	"net/url"

	"resty.dev/v3"

	"github.com/aretw0/parley/pkg/ports"
)

// KnowledgeBase is the client of the knowledge-base service.
// It serves both ports.KnowledgeBase and ports.Generator.
type KnowledgeBase struct {
	c *resty.Client
}

// NewKnowledgeBase creates a knowledge-base client.
func NewKnowledgeBase(ep Endpoint) *KnowledgeBase {
	return &KnowledgeBase{c: ep.client()}
}

// Query posts the question to /kb/{collection}/query.
func (k *KnowledgeBase) Query(ctx context.Context, q ports.DocumentQuery) (ports.DocumentAnswer, error) {
	var out ports.DocumentAnswer
	res, err := k.c.R().
		SetContext(ctx).
		SetBody(q).
		SetResult(&out).
		Post("/kb/" + url.PathEscape(q.Collection) + "/query")
	if err := check(res, err); err != nil {
		return ports.DocumentAnswer{}, fmt.Errorf("query collection %q: %w", q.Collection, err)
	}
	return out, nil
}

type generateResponse struct {
	Answer string `json:"answer"`
}

// Generate posts the prompts to /generate.
func (k *KnowledgeBase) Generate(ctx context.Context, q ports.GenerateQuery) (string, error) {
	var out generateResponse
	res, err := k.c.R().
		SetContext(ctx).
		SetBody(q).
		SetResult(&out).
		Post("/generate")
	if err := check(res, err); err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	return out.Answer, nil
}

// Close releases idle connections.
func (k *KnowledgeBase) Close() error {
	return k.c.Close()
}
