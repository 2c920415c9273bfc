package ports

import (
	"context"

	"github.com/aretw0/parley/pkg/domain"
)

// Classification is the classifier answer. Labels and Scores are parallel.
type Classification struct {
	Labels []string  `json:"labels"`
	Scores []float64 `json:"scores"`
}

// Classifier scores a sentence against candidate labels.
type Classifier interface {
	Classify(ctx context.Context, text string, labels []string) (Classification, error)
}

// ModelKwargs tunes the language model behind the knowledge base.
type ModelKwargs struct {
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

// DocumentQuery asks a knowledge-base collection a question.
type DocumentQuery struct {
	Collection  string      `json:"-"`
	Question    string      `json:"question"`
	Model       string      `json:"model"`
	ModelKwargs ModelKwargs `json:"llm_model_kwargs"`
	Generate    bool        `json:"generate"`
	NumResults  int         `json:"num_results"`
}

// Document is a knowledge-base match.
type Document struct {
	PageContent string         `json:"page_content"`
	Metadata    map[string]any `json:"metadata"`
	Score       float64        `json:"score"`
}

// DocumentAnswer is the knowledge-base answer with its supporting documents.
type DocumentAnswer struct {
	Answer    string     `json:"answer"`
	Documents []Document `json:"documents"`
}

// KnowledgeBase answers questions from indexed documents.
type KnowledgeBase interface {
	Query(ctx context.Context, q DocumentQuery) (DocumentAnswer, error)
}

// GenerateQuery asks the language model for a free-form answer.
type GenerateQuery struct {
	SystemPrompt string      `json:"system_prompt"`
	HumanPrompt  string      `json:"human_prompt"`
	Model        string      `json:"model"`
	ModelKwargs  ModelKwargs `json:"llm_model_kwargs"`
}

// Generator produces text from prompts.
type Generator interface {
	Generate(ctx context.Context, q GenerateQuery) (string, error)
}

// TicketRequest is a support ticket raised on behalf of the user.
type TicketRequest struct {
	Subject     string
	Description string
	Email       string
	Name        string
	Platform    string
}

// Ticketing opens support tickets and returns their id.
type Ticketing interface {
	CreateTicket(ctx context.Context, req TicketRequest) (string, error)
}

// ChatLog is the logging collaborator. Callers treat its failures as non-fatal.
type ChatLog interface {
	SaveMessages(ctx context.Context, msgs []domain.MessageRecord) error
	SaveSession(ctx context.Context, rec domain.SessionRecord) error
	SaveTicket(ctx context.Context, rec domain.TicketRecord) error
	SaveFeedback(ctx context.Context, rec domain.FeedbackRecord) error
}
