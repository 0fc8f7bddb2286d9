// Package resolver walks a static, rank-ordered list of providers until one
// answers.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"cambioproxy/internal/provider"
)

// Outcome labels passed to an Observer.
const (
	OutcomeOK      = "ok"
	OutcomeSkipped = "skipped"
)

// Spec binds one provider into a chain.
type Spec[T any] struct {
	Name string
	// Rank orders the chain ascending; ties keep declaration order.
	Rank int
	// Timeout bounds a single attempt. Zero means the parent deadline only.
	Timeout time.Duration
	// Supports reports whether the provider can answer the pair. Nil means all.
	Supports func(provider.Pair) bool
	Fetch    func(ctx context.Context, req provider.QuoteRequest) (T, error)
}

// Observer receives one call per attempt.
type Observer interface {
	Observe(provider, outcome string, took time.Duration)
}

// Chain is immutable after New and safe for concurrent use.
type Chain[T any] struct {
	name     string
	specs    []Spec[T]
	observer Observer
	logger   *slog.Logger
}

type options struct {
	observer Observer
	logger   *slog.Logger
}

// Option configures a Chain.
type Option func(*options)

// WithObserver reports every attempt to o.
func WithObserver(o Observer) Option {
	return func(opts *options) { opts.observer = o }
}

// WithLogger sets the logger failed attempts are written to.
func WithLogger(l *slog.Logger) Option {
	return func(opts *options) { opts.logger = l }
}

// New sorts specs by rank. It returns an error for specs without a name or
// fetch function.
func New[T any](name string, specs []Spec[T], opts ...Option) (*Chain[T], error) {
	o := options{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(&o)
	}
	sorted := make([]Spec[T], 0, len(specs))
	for i, s := range specs {
		if s.Name == "" || s.Fetch == nil {
			return nil, fmt.Errorf("chain %s: spec %d needs a name and a fetch function", name, i)
		}
		sorted = append(sorted, s)
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Rank < sorted[j].Rank })
	return &Chain[T]{name: name, specs: sorted, observer: o.observer, logger: o.logger}, nil
}

// Names lists providers in the order they are tried.
func (c *Chain[T]) Names() []string {
	out := make([]string, len(c.specs))
	for i, s := range c.specs {
		out[i] = s.Name
	}
	return out
}

// Resolve tries each provider in rank order and returns the first success with
// the provider's name. Later providers are never called once one succeeds.
//
// Invalid requests and a cancelled ctx stop the walk immediately. When every
// provider fails the error matches provider.ErrAllProvidersExhausted and
// carries each attempt's error.
func (c *Chain[T]) Resolve(ctx context.Context, req provider.QuoteRequest) (T, string, error) {
	var (
		zero T
		errs = make([]error, 0, len(c.specs))
	)
	for _, s := range c.specs {
		if err := ctx.Err(); err != nil {
			return zero, "", err
		}
		if s.Supports != nil && !s.Supports(req.Pair) {
			errs = append(errs, provider.Unavailablef(s.Name, provider.KindUnmapped, "%s not mapped", req.Pair))
			c.observe(s.Name, OutcomeSkipped, 0)
			continue
		}

		start := time.Now()
		v, err := attempt(ctx, s, req)
		took := time.Since(start)
		if err == nil {
			c.observe(s.Name, OutcomeOK, took)
			return v, s.Name, nil
		}
		if errors.Is(err, provider.ErrInvalidRequest) {
			return zero, "", err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, "", ctxErr
		}

		err = provider.Classify(s.Name, err)
		c.observe(s.Name, string(provider.KindOf(err)), took)
		c.logger.LogAttrs(ctx, slog.LevelDebug, "provider attempt failed",
			slog.String("chain", c.name),
			slog.String("provider", s.Name),
			slog.String("pair", req.Pair.String()),
			slog.Duration("took", took),
			slog.Any("error", err),
		)
		errs = append(errs, err)
	}
	return zero, "", fmt.Errorf("%s %s: %w: %w", c.name, req.Pair, provider.ErrAllProvidersExhausted, errors.Join(errs...))
}

func attempt[T any](ctx context.Context, s Spec[T], req provider.QuoteRequest) (T, error) {
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}
	return s.Fetch(ctx, req)
}

func (c *Chain[T]) observe(name, outcome string, took time.Duration) {
	if c.observer != nil {
		c.observer.Observe(name, outcome, took)
	}
}

// Latest adapts a LatestProvider into a Spec.
func Latest(p provider.LatestProvider, rank int, timeout time.Duration) Spec[provider.Result] {
	return Spec[provider.Result]{Name: p.Name(), Rank: rank, Timeout: timeout, Fetch: p.Latest}
}

// History adapts a HistoryProvider into a Spec.
func History(p provider.HistoryProvider, rank int, timeout time.Duration) Spec[[]provider.Quote] {
	return Spec[[]provider.Quote]{Name: p.Name(), Rank: rank, Timeout: timeout, Fetch: p.History}
}
