package rest

import (
	"context"
	"fmt"

	"resty.dev/v3"

	"github.com/aretw0/parley/pkg/ports"
)

// Classifier calls a zero-shot classification service.
// It posts {text, labels, multi_label} to /classify and reads {labels, scores}.
type Classifier struct {
	c *resty.Client
}

// NewClassifier creates a classifier client.
func NewClassifier(ep Endpoint) *Classifier {
	return &Classifier{c: ep.client()}
}

type classifyRequest struct {
	Text       string   `json:"text"`
	Labels     []string `json:"labels"`
	MultiLabel bool     `json:"multi_label"`
}

func (c *Classifier) Classify(ctx context.Context, text string, labels []string) (ports.Classification, error) {
	var out ports.Classification
	res, err := c.c.R().
		SetContext(ctx).
		SetBody(classifyRequest{Text: text, Labels: labels}).
		SetResult(&out).
		Post("/classify")
	if err := check(res, err); err != nil {
		return ports.Classification{}, fmt.Errorf("classify: %w", err)
	}
	return out, nil
}

// Close releases idle connections.
func (c *Classifier) Close() error {
	return c.c.Close()
}
