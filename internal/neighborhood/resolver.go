// Package neighborhood turns a coordinate into a neighborhood name by trying
// an ordered list of strategies: the remote identification service first,
// then a static table of named boxes.
package neighborhood

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/StreetCred/SC-Backend/internal/geo"
	"github.com/StreetCred/SC-Backend/internal/metrics"
)

// SourceNone is reported when no strategy resolved the coordinate.
const SourceNone = "none"

type Outcome uint8

const (
	OutcomeUnresolved Outcome = iota
	OutcomeResolved
	OutcomeTransient
)

func (o Outcome) String() string {
	switch o {
	case OutcomeResolved:
		return "resolved"
	case OutcomeTransient:
		return "transient_failure"
	default:
		return "unresolved"
	}
}

// Result is what a single strategy, or the whole chain, produced.
type Result struct {
	Outcome Outcome
	Name    string
	Source  string
	Cached  bool
	Err     error
}

func Resolved(source, name string) Result {
	return Result{Outcome: OutcomeResolved, Name: name, Source: source}
}

func Unresolved(source string) Result {
	return Result{Outcome: OutcomeUnresolved, Source: source}
}

func Transient(source string, err error) Result {
	return Result{Outcome: OutcomeTransient, Source: source, Err: err}
}

func (r Result) OK() bool { return r.Outcome == OutcomeResolved }

// Strategy is one tier of the chain. Resolve never returns a Go error;
// failures are carried in the Result.
type Strategy interface {
	Name() string
	Resolve(ctx context.Context, c geo.Coordinate) Result
}

// Chain tries each strategy in order and stops at the first Resolved
// result. It holds no per-request state.
type Chain struct {
	strategies []Strategy
	log        *zap.Logger
}

func NewChain(log *zap.Logger, strategies ...Strategy) *Chain {
	return &Chain{strategies: strategies, log: log.Named("neighborhood")}
}

// Resolve runs the chain. An invalid coordinate or an exhausted chain
// yields an Unresolved result with Source "none".
func (ch *Chain) Resolve(ctx context.Context, c geo.Coordinate) Result {
	if err := c.Validate(); err != nil {
		return Result{Outcome: OutcomeUnresolved, Source: SourceNone, Err: err}
	}

	for _, s := range ch.strategies {
		start := time.Now()
		res := s.Resolve(ctx, c)
		metrics.ResolverDurationMs.WithLabelValues(s.Name()).Observe(float64(time.Since(start).Milliseconds()))
		metrics.ResolverOutcomesTotal.WithLabelValues(s.Name(), res.Outcome.String()).Inc()

		switch res.Outcome {
		case OutcomeResolved:
			return res
		case OutcomeTransient:
			ch.log.Warn("strategy failed, trying next",
				zap.String("strategy", s.Name()),
				zap.Stringer("coordinate", c),
				zap.Error(res.Err))
		default:
			ch.log.Debug("strategy did not resolve",
				zap.String("strategy", s.Name()),
				zap.Stringer("coordinate", c))
		}
	}
	return Unresolved(SourceNone)
}

// Lookup is the caller-facing form of Resolve: name and ok.
func (ch *Chain) Lookup(ctx context.Context, c geo.Coordinate) (string, bool) {
	r := ch.Resolve(ctx, c)
	return r.Name, r.OK()
}

func (ch *Chain) String() string {
	names := make([]string, len(ch.strategies))
	for i, s := range ch.strategies {
		names[i] = s.Name()
	}
	return fmt.Sprintf("chain%v", names)
}
