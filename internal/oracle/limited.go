package oracle

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/clipcheck/clipcheck/internal/model"
)

// LimitedOracle throttles calls to a shared evaluator/rewriter pair so
// concurrent filter workers stay inside the provider's rate limits.
type LimitedOracle struct {
	eval     GateEvaluator
	rewriter ContentRewriter
	limiter  *rate.Limiter
}

// NewLimitedOracle wraps eval and rewriter with a shared token bucket.
// callsPerSecond <= 0 disables throttling.
func NewLimitedOracle(eval GateEvaluator, rewriter ContentRewriter, callsPerSecond float64, burst int) *LimitedOracle {
	var limiter *rate.Limiter
	if callsPerSecond > 0 {
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(callsPerSecond), burst)
	}
	return &LimitedOracle{eval: eval, rewriter: rewriter, limiter: limiter}
}

// Evaluate waits for rate-limit clearance, then delegates.
func (l *LimitedOracle) Evaluate(ctx context.Context, content string, gate model.GateSpec) (Verdict, error) {
	if err := l.wait(ctx); err != nil {
		return Verdict{}, err
	}
	return l.eval.Evaluate(ctx, content, gate)
}

// Rewrite waits for rate-limit clearance, then delegates.
func (l *LimitedOracle) Rewrite(ctx context.Context, content string, feedback []string) (string, error) {
	if err := l.wait(ctx); err != nil {
		return "", err
	}
	return l.rewriter.Rewrite(ctx, content, feedback)
}

func (l *LimitedOracle) wait(ctx context.Context) error {
	if l.limiter == nil {
		return nil
	}
	return l.limiter.Wait(ctx)
}
