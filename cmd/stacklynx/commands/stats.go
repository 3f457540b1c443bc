package commands

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/bl4ck0w1/stacklynx/internal/analysis"
	"github.com/bl4ck0w1/stacklynx/internal/reporting"
	"github.com/bl4ck0w1/stacklynx/internal/signatures"
	"github.com/bl4ck0w1/stacklynx/pkg/models"
)

func NewStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show signature table and checklist coverage",
		Long: `Print how many signatures the loaded rule set carries per category, plus
the sizes of the fixed absence checklists. Extension files configured via
signatures.extra_files are included.`,
		Args: cobra.NoArgs,
		RunE: runStats,
	}
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg := configFromViper()
	rules, err := signatures.Load(cfg.Signatures.ExtraFiles, logrus.StandardLogger())
	if err != nil {
		return fmt.Errorf("load signatures: %w", err)
	}

	stats := rules.Stats()
	total := 0
	fmt.Println("Signature coverage by category:")
	for _, category := range models.Categories() {
		count := stats[category]
		total += count
		fmt.Printf("  %-28s %d\n", reporting.CategoryTitle(category.String()), count)
	}
	fmt.Printf("  %-28s %d\n", "Total", total)

	if files := cfg.Signatures.ExtraFiles; len(files) > 0 {
		fmt.Printf("\nExtension files: %d loaded\n", len(files))
		for _, f := range files {
			fmt.Printf("  %s\n", f)
		}
	}

	security, files, metaTags := analysis.ChecklistSizes()
	fmt.Printf("\nAbsence checklists:\n")
	fmt.Printf("  %-28s %d\n", "Security Headers", security)
	fmt.Printf("  %-28s %d\n", "Well-Known Files", files)
	fmt.Printf("  %-28s %d\n", "Meta Tags", metaTags)
	return nil
}
