// Package oracle wraps the external judgment model behind two narrow
// interfaces: a binary gate evaluator and a content rewriter. Verdicts are
// non-deterministic by nature, so callers treat retries as attempt-level
// and tests use scripted fakes.
package oracle

import (
	"context"
	"errors"
	"fmt"

	"github.com/clipcheck/clipcheck/internal/model"
)

// Verdict is one binary judgment about a content string.
type Verdict struct {
	Passed        bool   `json:"passed"`
	Justification string `json:"justification"`
	Evidence      string `json:"evidence,omitempty"`
}

// GateEvaluator answers one binary question about one content string.
type GateEvaluator interface {
	Evaluate(ctx context.Context, content string, gate model.GateSpec) (Verdict, error)
}

// ContentRewriter produces a corrected version of content given the
// feedback from failing gates.
type ContentRewriter interface {
	Rewrite(ctx context.Context, content string, feedback []string) (string, error)
}

// Error is a transport-level oracle failure (timeout, connection, API
// error). It is transient: callers retry up to their configured bound and
// then fail closed.
type Error struct {
	Op  string // "evaluate" or "rewrite"
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("oracle %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is an oracle transport failure, i.e.
// worth retrying.
func IsTransient(err error) bool {
	var oe *Error
	return errors.As(err, &oe)
}
