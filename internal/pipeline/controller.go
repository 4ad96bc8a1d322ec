// Package pipeline sequences the curation stages and gives a run resume
// semantics through the artifact store.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/clipcheck/clipcheck/internal/store"
)

// Canonical stage names, in execution order.
const (
	StagePass1                 = "pass_1"
	StageBinaryFiltering       = "binary_filtering"
	StageDiversitySelection    = "diversity_selection"
	StageFalseNegativeRecovery = "false_negative_recovery"
	StageScriptGeneration      = "script_generation"
	StageOutputQualityGate     = "output_quality_gate"
	StageRebuttalVerification  = "rebuttal_verification"
)

// Outputs maps completed stage names to their artifacts.
type Outputs map[string]any

// Stage is one named pipeline step. NewArtifact returns a pointer the
// stored artifact decodes into on resume; Run computes the artifact fresh
// and must return the same type NewArtifact points at.
type Stage struct {
	Name        string
	NewArtifact func() any
	Run         func(ctx context.Context, prior Outputs) (any, error)
}

// StageMeta records how a stage completed.
type StageMeta struct {
	Resumed     bool          `json:"resumed"`
	Duration    time.Duration `json:"duration"`
	CompletedAt time.Time     `json:"completed_at"`
}

// Controller runs stages strictly sequentially. It is the only writer to
// the artifact store, one stage at a time, so the store never sees
// concurrent writes to the same artifact.
type Controller struct {
	store  store.Store
	stages []Stage

	Completed []string
	Outputs   Outputs
	Metadata  map[string]StageMeta
}

// NewController creates a controller over the given store and stages.
func NewController(st store.Store, stages []Stage) *Controller {
	return &Controller{
		store:    st,
		stages:   stages,
		Outputs:  make(Outputs),
		Metadata: make(map[string]StageMeta),
	}
}

// Execute runs every stage in order. A stage whose artifact already exists
// in the store is loaded and recorded as completed without recomputation.
// Any stage error halts the controller with a stage-tagged error; artifacts
// from earlier stages stay intact for diagnosis. Retries live inside the
// stage components, not here.
func (c *Controller) Execute(ctx context.Context) error {
	for _, stage := range c.stages {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("stage %s: %w", stage.Name, err)
		}

		started := time.Now()

		artifact := stage.NewArtifact()
		err := c.store.Read(stage.Name, artifact)
		switch {
		case err == nil:
			c.record(stage.Name, reflect.ValueOf(artifact).Elem().Interface(), StageMeta{
				Resumed:     true,
				CompletedAt: time.Now().UTC(),
			})
			continue
		case errors.Is(err, store.ErrNotFound):
			// compute below
		default:
			return fmt.Errorf("stage %s: %w", stage.Name, err)
		}

		output, err := stage.Run(ctx, c.Outputs)
		if err != nil {
			return fmt.Errorf("stage %s: %w", stage.Name, err)
		}

		if err := c.store.Write(stage.Name, output); err != nil {
			return fmt.Errorf("stage %s: %w", stage.Name, err)
		}

		c.record(stage.Name, output, StageMeta{
			Duration:    time.Since(started),
			CompletedAt: time.Now().UTC(),
		})
	}
	return nil
}

func (c *Controller) record(name string, output any, meta StageMeta) {
	c.Outputs[name] = output
	c.Completed = append(c.Completed, name)
	c.Metadata[name] = meta
}
