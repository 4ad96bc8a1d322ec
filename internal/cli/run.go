package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/clipcheck/clipcheck/internal/diversity"
	"github.com/clipcheck/clipcheck/internal/filter"
	"github.com/clipcheck/clipcheck/internal/model"
	"github.com/clipcheck/clipcheck/internal/pipeline"
	"github.com/clipcheck/clipcheck/internal/quality"
	"github.com/clipcheck/clipcheck/internal/recovery"
	"github.com/clipcheck/clipcheck/internal/script"
	"github.com/clipcheck/clipcheck/internal/verify"
)

var (
	runTheme   string
	runOut     string
	runTimeout time.Duration
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run <segments.json>",
	Short: "Run the full curation pipeline with resume",
	Long: `Run executes every pipeline stage in order:
  pass_1 -> binary_filtering -> diversity_selection ->
  false_negative_recovery -> script_generation ->
  output_quality_gate -> rebuttal_verification

Stages whose artifacts already exist in the store are loaded instead of
recomputed, so an interrupted run picks up where it stopped. Delete the
artifact directory (or database) to force a fresh run.

Example:
  clipcheck run segments.json --theme "Episode 214" --out script.json`,
	Args: cobra.ExactArgs(1),
	RunE: runPipeline,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runTheme, "theme", "extracted claims", "script theme / episode title")
	runCmd.Flags().StringVar(&runOut, "out", "script.json", "output path for the final script")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 30*time.Minute, "overall pipeline timeout")
}

func runPipeline(cmd *cobra.Command, args []string) error {
	segmentsPath := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	artifacts, closeStore, err := buildStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	eval, rewriter, err := buildOracle(cfg)
	if err != nil {
		return err
	}

	filterPipeline := filter.NewPipeline(eval, cfg.Oracle.MaxRetries, cfg.Filter.Workers)
	gates := filter.DefaultGates()
	selector := diversity.NewSelector(cfg.Diversity.MinSegments, cfg.Diversity.MaxSegments, cfg.Diversity.MaxPerTopic)
	scanner := recovery.NewScanner(cfg.Recovery.MinGatesPassed, cfg.Recovery.Keywords, cfg.Recovery.MaxRecovery)
	verifier := verify.NewVerifier(eval, rewriter, cfg.Verification.MaxIterations, cfg.Oracle.MaxRetries)

	stages := []pipeline.Stage{
		{
			Name:        pipeline.StagePass1,
			NewArtifact: func() any { return &[]model.CandidateSegment{} },
			Run: func(ctx context.Context, prior pipeline.Outputs) (any, error) {
				return loadSegments(segmentsPath)
			},
		},
		{
			Name:        pipeline.StageBinaryFiltering,
			NewArtifact: func() any { return &model.FilterOutcome{} },
			Run: func(ctx context.Context, prior pipeline.Outputs) (any, error) {
				candidates := prior[pipeline.StagePass1].([]model.CandidateSegment)
				outcome, err := filterPipeline.Filter(ctx, candidates, gates)
				if err != nil {
					return nil, err
				}
				return *outcome, nil
			},
		},
		{
			Name:        pipeline.StageDiversitySelection,
			NewArtifact: func() any { return &[]model.CandidateSegment{} },
			Run: func(ctx context.Context, prior pipeline.Outputs) (any, error) {
				outcome := prior[pipeline.StageBinaryFiltering].(model.FilterOutcome)
				return selector.Select(outcome.Passed), nil
			},
		},
		{
			Name:        pipeline.StageFalseNegativeRecovery,
			NewArtifact: func() any { return &[]model.CandidateSegment{} },
			Run: func(ctx context.Context, prior pipeline.Outputs) (any, error) {
				if !cfg.Recovery.Enabled {
					return []model.CandidateSegment{}, nil
				}
				outcome := prior[pipeline.StageBinaryFiltering].(model.FilterOutcome)
				selected := prior[pipeline.StageDiversitySelection].([]model.CandidateSegment)
				return scanner.Scan(outcome.Rejected, selected), nil
			},
		},
		{
			Name:        pipeline.StageScriptGeneration,
			NewArtifact: func() any { return &model.UnifiedScript{} },
			Run: func(ctx context.Context, prior pipeline.Outputs) (any, error) {
				selected := prior[pipeline.StageDiversitySelection].([]model.CandidateSegment)
				recovered := prior[pipeline.StageFalseNegativeRecovery].([]model.CandidateSegment)
				final := append(append([]model.CandidateSegment{}, selected...), recovered...)
				return *script.Assemble(runTheme, final), nil
			},
		},
		{
			Name:        pipeline.StageOutputQualityGate,
			NewArtifact: func() any { return &model.QualityGateResult{} },
			Run: func(ctx context.Context, prior pipeline.Outputs) (any, error) {
				generated := prior[pipeline.StageScriptGeneration].(model.UnifiedScript)
				return quality.Validate(&generated), nil
			},
		},
		{
			Name:        pipeline.StageRebuttalVerification,
			NewArtifact: func() any { return &verify.Outcome{} },
			Run: func(ctx context.Context, prior pipeline.Outputs) (any, error) {
				generated := prior[pipeline.StageScriptGeneration].(model.UnifiedScript)
				verified, meta, err := verifier.Verify(ctx, &generated)
				if err != nil {
					return nil, err
				}
				return verify.Outcome{Script: *verified, Meta: *meta}, nil
			},
		},
	}

	controller := pipeline.NewController(artifacts, stages)

	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	if err := controller.Execute(ctx); err != nil {
		return fmt.Errorf("pipeline failed: %w", err)
	}

	printRunSummary(controller)

	outcome := controller.Outputs[pipeline.StageRebuttalVerification].(verify.Outcome)

	// Final structural verdict on the script as it will actually render,
	// i.e. after rebuttal correction.
	finalGate := quality.Validate(&outcome.Script)
	if finalGate.Passed {
		fmt.Fprintf(os.Stderr, "✓ Final script passed the output quality gate\n")
	} else {
		fmt.Fprintf(os.Stderr, "✗ Final script has %d critical issue(s)\n", finalGate.CriticalCount)
		for _, issue := range finalGate.Issues {
			if issue.Severity == model.SeverityCritical {
				fmt.Fprintf(os.Stderr, "  - [%s] %s: %s\n", issue.CheckName, issue.SectionID, issue.Message)
			}
		}
	}

	if runOut != "" {
		if err := writeJSON(runOut, outcome.Script); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "✓ Wrote script: %s\n", runOut)
	}

	if !finalGate.Passed {
		return fmt.Errorf("script rejected by output quality gate (%d critical issues)", finalGate.CriticalCount)
	}
	return nil
}

func printRunSummary(c *pipeline.Controller) {
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Clipcheck Pipeline\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	for _, name := range c.Completed {
		meta := c.Metadata[name]
		if meta.Resumed {
			fmt.Fprintf(os.Stderr, "  %-26s resumed from artifact\n", name)
		} else {
			fmt.Fprintf(os.Stderr, "  %-26s %v\n", name, meta.Duration.Round(time.Millisecond))
		}
	}
	fmt.Fprintf(os.Stderr, "\n")

	if outcome, ok := c.Outputs[pipeline.StageBinaryFiltering].(model.FilterOutcome); ok {
		fmt.Fprintf(os.Stderr, "  Segments: %d total, %d passed, %d rejected\n",
			outcome.Meta.TotalSegments, outcome.Meta.PassedCount, outcome.Meta.RejectedCount)
	}
	if selected, ok := c.Outputs[pipeline.StageDiversitySelection].([]model.CandidateSegment); ok {
		fmt.Fprintf(os.Stderr, "  Selected: %d\n", len(selected))
	}
	if recovered, ok := c.Outputs[pipeline.StageFalseNegativeRecovery].([]model.CandidateSegment); ok {
		fmt.Fprintf(os.Stderr, "  Recovered: %d\n", len(recovered))
	}
	if vo, ok := c.Outputs[pipeline.StageRebuttalVerification].(verify.Outcome); ok {
		passed := 0
		for _, r := range vo.Meta.Results {
			if r.Passed {
				passed++
			}
		}
		fmt.Fprintf(os.Stderr, "  Rebuttals: %d verified, %d passed\n", vo.Meta.RebuttalsVerified, passed)
	}
	fmt.Fprintf(os.Stderr, "\n")
}
