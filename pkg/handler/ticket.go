package handler

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/ports"
)

// Ticket opens a support ticket carrying the conversation so far.
type Ticket struct {
	base
	platform  string
	ticketing ports.Ticketing
	chatlog   ports.ChatLog
	logger    *slog.Logger
}

type ticketConfig struct {
	commonConfig `mapstructure:",squash"`
	Platform     string `mapstructure:"freshdesk_environment"`
}

func newTicket(id string, data map[string]any, deps Deps) (Handler, error) {
	cfg := ticketConfig{Platform: "Support"}
	if err := decodeData(id, data, &cfg); err != nil {
		return nil, err
	}
	return &Ticket{
		base: base{meta: cfg.meta(Meta{
			Type:       domain.NodeTypeTicket,
			SavingKeys: []string{domain.KeyTicketResponse},
		})},
		platform:  cfg.Platform,
		ticketing: deps.Ticketing,
		chatlog:   deps.ChatLog,
		logger:    loggerOrNop(deps.Logger),
	}, nil
}

func (h *Ticket) Execute(ctx context.Context, _ any, tracker domain.Tracker) (Result, error) {
	sessionID := tracker.String(domain.KeySessionID)

	id, err := h.open(ctx, tracker)
	if err != nil {
		h.logger.Error("ticket creation failed", "session_id", sessionID, "err", err)
		return Result{Intent: domain.IntentFail}, nil
	}
	h.logger.Info("ticket created", "session_id", sessionID, "ticket_id", id)

	if h.chatlog != nil {
		rec := domain.TicketRecord{SessionID: sessionID, Data: tracker.String(domain.KeyEmail), TicketID: id}
		if err := h.chatlog.SaveTicket(ctx, rec); err != nil {
			h.logger.Warn("failed to log ticket", "session_id", sessionID, "ticket_id", id, "err", err)
		}
	}
	return Result{Output: id, Intent: domain.IntentSuccess}, nil
}

func (h *Ticket) open(ctx context.Context, tracker domain.Tracker) (string, error) {
	if h.ticketing == nil {
		return "", &domain.ExternalServiceError{Service: "ticketing", Err: errors.New("not configured")}
	}
	body, err := TranscriptHTML(tracker)
	if err != nil {
		return "", err
	}
	email := tracker.String(domain.KeyEmail)
	id, err := h.ticketing.CreateTicket(ctx, ports.TicketRequest{
		Subject:     "Chatbot Ticket from " + email,
		Description: body,
		Email:       email,
		Name:        tracker.String(domain.KeyName),
		Platform:    h.platform,
	})
	if err != nil {
		return "", &domain.ExternalServiceError{Service: "ticketing", Err: err}
	}
	if id == "" {
		return "", &domain.ExternalServiceError{Service: "ticketing", Err: errors.New("empty ticket id")}
	}
	return id, nil
}
