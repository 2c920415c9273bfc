package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aretw0/parley"
	"github.com/aretw0/parley/internal/metrics"
	"github.com/aretw0/parley/pkg/adapters/file"
	"github.com/aretw0/parley/pkg/adapters/redis"
	"github.com/aretw0/parley/pkg/adapters/rest"
	"github.com/aretw0/parley/pkg/adapters/sqlite"
	"github.com/aretw0/parley/pkg/domain"
)

// app holds the bot and everything that has to be closed with it.
type app struct {
	bot     *parley.Bot
	metrics http.Handler
	closers []io.Closer
}

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i].Close())
	}
	return errors.Join(errs...)
}

// newApp wires the collaborators named in the configuration into a Bot.
func newApp(ctx context.Context, workflow string, hooks ...domain.LifecycleHooks) (*app, error) {
	if workflow == "" {
		return nil, errors.New("no workflow given: pass it as an argument or set --workflow")
	}
	loader, err := file.NewLoader(workflow)
	if err != nil {
		return nil, err
	}

	a := &app{}
	opts := []parley.Option{
		parley.WithLoader(loader),
		parley.WithLogger(logger),
		parley.WithAgentName(cfg.AgentName),
		parley.WithTimeout(cfg.Timeout),
		parley.WithDelay(cfg.Delay),
		parley.WithGraphCacheTTL(cfg.GraphCacheTTL),
	}
	for _, h := range hooks {
		opts = append(opts, parley.WithLifecycleHooks(h))
	}

	if cfg.Classifier.URL != "" {
		c := rest.NewClassifier(rest.Endpoint{URL: cfg.Classifier.URL, Token: cfg.Classifier.Token})
		a.closers = append(a.closers, c)
		opts = append(opts, parley.WithClassifier(c))
	}
	if cfg.KB.URL != "" {
		kb := rest.NewKnowledgeBase(rest.Endpoint{URL: cfg.KB.URL, Token: cfg.KB.Token})
		a.closers = append(a.closers, kb)
		opts = append(opts, parley.WithKnowledgeBase(kb), parley.WithGenerator(kb))
	}
	if cfg.Freshdesk.Domain != "" {
		fd := rest.NewFreshdesk(rest.FreshdeskConfig{
			Domain:   cfg.Freshdesk.Domain,
			APIKey:   cfg.Freshdesk.APIKey,
			Password: cfg.Freshdesk.Password,
		})
		a.closers = append(a.closers, fd)
		opts = append(opts, parley.WithTicketing(fd))
	}

	switch {
	case cfg.ChatLog.URL != "":
		cl := rest.NewChatLog(rest.Endpoint{URL: cfg.ChatLog.URL, Token: cfg.ChatLog.Token})
		a.closers = append(a.closers, cl)
		opts = append(opts, parley.WithChatLog(cl))
	case cfg.ChatLog.SQLite != "":
		cl, err := sqlite.Open(ctx, cfg.ChatLog.SQLite)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, cl)
		opts = append(opts, parley.WithChatLog(cl))
	}

	switch {
	case cfg.Redis.Addr != "":
		client := redis.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		store := redis.NewFromClient(client, redis.WithTTL(cfg.Redis.TTL))
		if err := store.Ping(ctx); err != nil {
			client.Close()
			a.Close()
			return nil, fmt.Errorf("redis unavailable: %w", err)
		}
		a.closers = append(a.closers, store)
		opts = append(opts,
			parley.WithStore(store),
			parley.WithLocker(redis.NewLocker(client, redis.DefaultPrefix), 0),
		)
	case cfg.SessionsDir != "":
		opts = append(opts, parley.WithStore(file.NewStore(cfg.SessionsDir)))
	}

	bot, err := parley.New(opts...)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.bot = bot
	return a, nil
}

// withMetrics creates the Prometheus registry and returns the hooks feeding it.
func withMetrics() (domain.LifecycleHooks, http.Handler, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	c, err := metrics.New(reg)
	if err != nil {
		return domain.LifecycleHooks{}, nil, err
	}
	return c.Hooks(), promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}), nil
}
