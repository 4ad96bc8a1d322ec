package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/clipcheck/clipcheck/internal/model"
	"github.com/clipcheck/clipcheck/internal/quality"
)

// validateCmd represents the validate command
var validateCmd = &cobra.Command{
	Use:   "validate <script.json>",
	Short: "Validate a script's structural integrity",
	Long: `Validate runs the output quality gate over an assembled script:
clip references, timestamp ordering, empty sections, and TTS-hostile
formatting. Exits non-zero when any CRITICAL issue is found.

Example:
  clipcheck validate script.json`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	script, err := loadScript(args[0])
	if err != nil {
		return err
	}

	result := quality.Validate(script)

	for _, issue := range result.Issues {
		marker := "i"
		if issue.Severity == model.SeverityCritical {
			marker = "✗"
		}
		fmt.Fprintf(os.Stderr, "%s [%s] %s", marker, issue.CheckName, issue.Message)
		if issue.SectionID != "" {
			fmt.Fprintf(os.Stderr, " (section %s)", issue.SectionID)
		}
		fmt.Fprintln(os.Stderr)
	}

	if !result.Passed {
		return fmt.Errorf("script has %d critical issue(s)", result.CriticalCount)
	}

	fmt.Fprintf(os.Stderr, "✓ Script passed (%d informational issue(s))\n", len(result.Issues))
	return nil
}
