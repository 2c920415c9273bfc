// Package rest talks to the collaborator services over HTTP: the intent
// classifier, the knowledge base, Freshdesk and the chat log service.
package rest

import (
	"fmt"
	"time"

	"resty.dev/v3"
)

// DefaultTimeout bounds every collaborator call.
const DefaultTimeout = 30 * time.Second

// Endpoint is a service base URL with its bearer token.
type Endpoint struct {
	URL     string
	Token   string
	Timeout time.Duration
}

func (e Endpoint) client() *resty.Client {
	timeout := e.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	c := resty.New().
		SetBaseURL(e.URL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")
	if e.Token != "" {
		c.SetAuthToken(e.Token)
	}
	return c
}

// StatusError is returned when a service answers with a non-2xx status.
type StatusError struct {
	Method string
	URL    string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.URL, e.Status, e.Body)
}

func check(res *resty.Response, err error) error {
	if err != nil {
		return err
	}
	if res.IsError() {
		return &StatusError{
			Method: res.Request.Method,
			URL:    res.Request.URL,
			Status: res.StatusCode(),
			Body:   res.String(),
		}
	}
	return nil
}
