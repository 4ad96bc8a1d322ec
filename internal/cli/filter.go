package cli

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/clipcheck/clipcheck/internal/filter"
)

var (
	filterOut     string
	filterTimeout time.Duration
)

// filterCmd represents the filter command
var filterCmd = &cobra.Command{
	Use:   "filter <segments.json>",
	Short: "Run binary gate filtering only",
	Long: `Filter evaluates every candidate segment against the ordered quality
gates and reports which passed, which were rejected, and at which gate.

Useful for tuning gates before committing to a full pipeline run.

Example:
  clipcheck filter segments.json --out outcome.json`,
	Args: cobra.ExactArgs(1),
	RunE: runFilter,
}

func init() {
	rootCmd.AddCommand(filterCmd)

	filterCmd.Flags().StringVar(&filterOut, "out", "", "output path for the filter outcome JSON (optional)")
	filterCmd.Flags().DurationVar(&filterTimeout, "timeout", 15*time.Minute, "overall filtering timeout")
}

func runFilter(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	eval, _, err := buildOracle(cfg)
	if err != nil {
		return err
	}

	candidates, err := loadSegments(args[0])
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), filterTimeout)
	defer cancel()

	p := filter.NewPipeline(eval, cfg.Oracle.MaxRetries, cfg.Filter.Workers)
	outcome, err := p.Filter(ctx, candidates, filter.DefaultGates())
	if err != nil {
		return fmt.Errorf("filtering failed: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Filtered %d segments: %d passed, %d rejected\n",
		outcome.Meta.TotalSegments, outcome.Meta.PassedCount, outcome.Meta.RejectedCount)

	if len(outcome.Meta.FailuresByGate) > 0 {
		gateNames := make([]string, 0, len(outcome.Meta.FailuresByGate))
		for name := range outcome.Meta.FailuresByGate {
			gateNames = append(gateNames, name)
		}
		sort.Strings(gateNames)
		fmt.Fprintf(os.Stderr, "Failures by gate:\n")
		for _, name := range gateNames {
			fmt.Fprintf(os.Stderr, "  %-28s %d\n", name, outcome.Meta.FailuresByGate[name])
		}
	}

	if filterOut != "" {
		if err := writeJSON(filterOut, outcome); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "✓ Wrote outcome: %s\n", filterOut)
	}
	return nil
}
