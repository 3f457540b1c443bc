package commands

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bl4ck0w1/stacklynx/internal/analysis"
	"github.com/bl4ck0w1/stacklynx/internal/reporting"
	"github.com/bl4ck0w1/stacklynx/internal/storage"
)

func NewAggregateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "aggregate <batch-id>",
		Short: "Aggregate a stored batch into cross-site statistics",
		Long: `Re-read the site records of a stored batch and fold them into a fresh
summary: technology frequencies, majority technologies per category,
missing-feature counts, and boolean ratio statistics.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runAggregate,
	}

	cmd.Flags().StringSliceP("formats", "f", []string{"json", "txt"}, "Summary report formats (json, csv, txt)")
	cmd.Flags().Bool("list", false, "List stored batch IDs and exit")

	_ = viper.BindPFlag("aggregate.formats", cmd.Flags().Lookup("formats"))
	_ = viper.BindPFlag("aggregate.list", cmd.Flags().Lookup("list"))

	return cmd
}

func runAggregate(cmd *cobra.Command, args []string) error {
	cfg := configFromViper()
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := logrus.StandardLogger()
	store, err := storage.NewRecordStore(cfg.Storage, logger)
	if err != nil {
		return err
	}

	if viper.GetBool("aggregate.list") {
		batches, err := store.ListBatches()
		if err != nil {
			return fmt.Errorf("list batches: %w", err)
		}
		if len(batches) == 0 {
			fmt.Println("No stored batches.")
			return nil
		}
		fmt.Println("Stored batches:")
		for _, id := range batches {
			fmt.Printf("  %s\n", id)
		}
		return nil
	}

	if len(args) == 0 {
		return fmt.Errorf("batch ID required (or use --list)")
	}
	batchID := args[0]

	records, err := store.LoadBatch(batchID)
	if err != nil {
		return err
	}
	logger.WithFields(logrus.Fields{"batch_id": batchID, "records": len(records)}).Info("Loaded batch")

	summary, err := analysis.Summarize(records)
	if err != nil {
		return fmt.Errorf("summarize batch %s: %w", batchID, err)
	}
	summary.BatchID = batchID

	if err := store.SaveSummary(summary); err != nil {
		return fmt.Errorf("persist summary: %w", err)
	}

	generator, err := reporting.NewGenerator(viper.GetString("output_directory"), logger)
	if err != nil {
		return err
	}
	paths, err := generator.WriteSummary(summary, viper.GetStringSlice("aggregate.formats"))
	if err != nil {
		return err
	}

	fmt.Printf("Batch %s aggregated: %d sites, %d categories with majority technologies.\n",
		summary.BatchID, summary.TotalSites, len(summary.CommonTechnologies))
	fmt.Printf("Reports:\n  %s\n", strings.Join(paths, "\n  "))
	return nil
}
