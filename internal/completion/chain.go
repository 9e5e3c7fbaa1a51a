package completion

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

// Chain tries its generators in order and returns the first success.
// It is read-only after construction.
type Chain struct {
	model      string
	primary    Generator
	generators []Generator
	timeout    time.Duration
}

type ChainOption func(*Chain)

// WithTimeout bounds one Generate call across every strategy. Zero disables it.
func WithTimeout(d time.Duration) ChainOption {
	return func(c *Chain) {
		c.timeout = d
	}
}

func NewChain(model string, primary Generator, fallbacks []Generator, opts ...ChainOption) *Chain {
	c := &Chain{model: model, primary: primary}
	if primary != nil {
		c.generators = append(c.generators, primary)
	}
	for _, g := range fallbacks {
		if g != nil {
			c.generators = append(c.generators, g)
		}
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Model reports the configured model when the primary client initialized.
func (c *Chain) Model() string {
	if c.primary == nil || !c.primary.Available() {
		return ""
	}
	return c.model
}

func (c *Chain) Generate(ctx context.Context, req Request) (Result, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	log := zerolog.Ctx(ctx)

	var errs []error
	for _, g := range c.generators {
		if !g.Available() {
			log.Debug().Str("provider", g.Name()).Msg("provider unavailable, skipping")
			continue
		}
		if ctx.Err() != nil && g.Name() != SourceCanned {
			errs = append(errs, upstreamError(g.Name(), 0, ctx.Err()))
			continue
		}
		text, err := g.Generate(ctx, req)
		if err == nil {
			if len(errs) > 0 {
				log.Warn().Str("provider", g.Name()).Int("failed", len(errs)).Msg("served by fallback provider")
			}
			return Result{Text: text, Source: g.Name()}, nil
		}
		if errors.Is(err, ErrUnavailable) {
			continue
		}
		log.Warn().Err(err).Str("provider", g.Name()).Msg("provider failed")
		errs = append(errs, err)
	}

	if len(errs) == 0 {
		return Result{}, ErrUnavailable
	}
	if len(errs) == 1 {
		return Result{}, errs[0]
	}
	return Result{}, errors.Join(errs...)
}
