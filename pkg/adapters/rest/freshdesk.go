package rest

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"resty.dev/v3"

	"github.com/aretw0/parley/pkg/ports"
)

// Freshdesk ticket constants.
const (
	ticketPriorityLow = 1
	ticketStatusOpen  = 2
	ticketSourceChat  = 7
)

// FreshdeskConfig holds the account credentials.
// BaseURL overrides the https://{Domain}.freshdesk.com address.
type FreshdeskConfig struct {
	Domain   string
	APIKey   string
	Password string
	BaseURL  string
}

// Freshdesk implements ports.Ticketing on the Freshdesk v2 API.
type Freshdesk struct {
	c   *resty.Client
	cfg FreshdeskConfig
}

// NewFreshdesk creates a ticketing client.
func NewFreshdesk(cfg FreshdeskConfig) *Freshdesk {
	base := cfg.BaseURL
	if base == "" {
		base = "https://" + cfg.Domain + ".freshdesk.com"
	}
	return &Freshdesk{c: Endpoint{URL: base}.client(), cfg: cfg}
}

type freshdeskTicket struct {
	Subject      string            `json:"subject"`
	Description  string            `json:"description"`
	Email        string            `json:"email"`
	Name         string            `json:"name"`
	Priority     int               `json:"priority"`
	Status       int               `json:"status"`
	Source       int               `json:"source"`
	CustomFields map[string]string `json:"custom_fields"`
}

type freshdeskCreated struct {
	ID int64 `json:"id"`
}

// CreateTicket opens a ticket and returns its id.
func (f *Freshdesk) CreateTicket(ctx context.Context, req ports.TicketRequest) (string, error) {
	body := freshdeskTicket{
		Subject:     req.Subject,
		Description: req.Description,
		Email:       req.Email,
		Name:        req.Name,
		Priority:    ticketPriorityLow,
		Status:      ticketStatusOpen,
		Source:      ticketSourceChat,
		CustomFields: map[string]string{
			"cf_type_of_query_2": req.Platform,
			"cf_sub_category":    "Other",
		},
	}

	var out freshdeskCreated
	res, err := f.c.R().
		SetContext(ctx).
		SetBasicAuth(f.cfg.APIKey, f.cfg.Password).
		SetBody(body).
		SetResult(&out).
		Post("/api/v2/tickets")
	if err := check(res, err); err != nil {
		return "", fmt.Errorf("create ticket: %w", err)
	}
	if out.ID == 0 {
		return "", errors.New("create ticket: freshdesk returned id 0")
	}
	return strconv.FormatInt(out.ID, 10), nil
}

// Close releases idle connections.
func (f *Freshdesk) Close() error {
	return f.c.Close()
}
