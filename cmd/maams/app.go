package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/Kelompok-5-PPL-A/MAAMS-NG-BE-sub000/internal/clock"
	"github.com/Kelompok-5-PPL-A/MAAMS-NG-BE-sub000/internal/config"
	"github.com/Kelompok-5-PPL-A/MAAMS-NG-BE-sub000/internal/grid"
	"github.com/Kelompok-5-PPL-A/MAAMS-NG-BE-sub000/internal/llm"
	"github.com/Kelompok-5-PPL-A/MAAMS-NG-BE-sub000/internal/logging"
	"github.com/Kelompok-5-PPL-A/MAAMS-NG-BE-sub000/internal/metrics"
	"github.com/Kelompok-5-PPL-A/MAAMS-NG-BE-sub000/internal/ratelimit"
	"github.com/Kelompok-5-PPL-A/MAAMS-NG-BE-sub000/internal/store"
	"github.com/Kelompok-5-PPL-A/MAAMS-NG-BE-sub000/internal/types"
	"github.com/Kelompok-5-PPL-A/MAAMS-NG-BE-sub000/internal/validator"
)

// app holds the collaborators built from config for one command.
type app struct {
	store   store.Store
	limiter *ratelimit.Limiter
	metrics *metrics.Prometheus
	grid    *grid.Service
	closers []func() error
}

// buildApp wires the store, and when withLLM is set, the LLM client, engine
// and rate-limit gate.
func buildApp(ctx context.Context, c *config.Config, withLLM bool) (*app, error) {
	a := &app{metrics: metrics.NewPrometheus()}

	st, err := store.Open(ctx, c.Database.Driver, c.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", c.Database.Driver, err)
	}
	a.store = st
	a.closers = append(a.closers, st.Close)

	var engine grid.Validator = unavailableEngine{}
	if withLLM {
		if err := c.Validate(); err != nil {
			a.Close()
			return nil, err
		}
		client, err := llm.NewClient(ctx, c.ProviderConfig())
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("create LLM client: %w", err)
		}
		adapter := llm.NewAdapter(client, c.Envelope(), a.metrics)
		engine = validator.New(st, adapter,
			validator.WithRecorder(a.metrics),
			validator.WithMaxColumns(c.Engine.MaxColumns),
		)

		cache, closeCache, err := buildCache(ctx, c)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, closeCache)
		a.limiter = ratelimit.NewLimiter(cache, c.RateLimit.Rules(), a.metrics)
	}

	a.grid = grid.New(st, engine, c.Engine.MaxColumns)
	return a, nil
}

func buildCache(ctx context.Context, c *config.Config) (ratelimit.Cache, func() error, error) {
	r := c.RateLimit.Redis
	if r.Addr == "" {
		logging.Boot("rate-limit counters kept in memory")
		return ratelimit.NewMemoryCache(clock.Real{}), func() error { return nil }, nil
	}
	client, err := ratelimit.DialRedis(ctx, r.Addr, r.Password, r.DB)
	if err != nil {
		return nil, nil, fmt.Errorf("connect redis %s: %w", r.Addr, err)
	}
	logging.Boot("rate-limit counters kept in redis at %s", r.Addr)
	return ratelimit.NewRedisCache(client), client.Close, nil
}

// Close releases every collaborator in reverse order of creation.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// unavailableEngine backs commands that never validate.
type unavailableEngine struct{}

func (unavailableEngine) Validate(context.Context, string) ([]types.Cell, error) {
	return nil, errors.New("validation is not available in this command")
}
