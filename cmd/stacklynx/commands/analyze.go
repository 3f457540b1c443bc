package commands

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bl4ck0w1/stacklynx/internal/analysis"
	"github.com/bl4ck0w1/stacklynx/internal/detection"
	"github.com/bl4ck0w1/stacklynx/internal/fetch"
	"github.com/bl4ck0w1/stacklynx/internal/orchestration"
	"github.com/bl4ck0w1/stacklynx/internal/reporting"
	"github.com/bl4ck0w1/stacklynx/internal/signatures"
	"github.com/bl4ck0w1/stacklynx/internal/storage"
	"github.com/bl4ck0w1/stacklynx/pkg/models"
	"github.com/bl4ck0w1/stacklynx/pkg/utils"
)

func NewAnalyzeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze [url...]",
		Short: "Analyze the technology stack of one or more websites",
		Long: `Fetch each website's public HTTP response, classify its technology stack
against the signature table, check for missing best-practice signals, and
store the resulting site records as a batch.`,
		Args: cobra.ArbitraryArgs,
		RunE: runAnalyze,
	}

	cmd.Flags().StringP("input", "i", "", "File with one URL per line")
	cmd.Flags().StringSliceP("formats", "f", []string{"json", "txt"}, "Summary report formats (json, csv, txt)")
	cmd.Flags().String("batch-id", "", "Batch ID (generated when empty)")
	cmd.Flags().Bool("no-summary", false, "Skip aggregation after analysis")
	cmd.Flags().IntP("timeout", "t", 10, "Overall batch timeout in minutes")

	_ = viper.BindPFlag("analyze.input", cmd.Flags().Lookup("input"))
	_ = viper.BindPFlag("analyze.formats", cmd.Flags().Lookup("formats"))
	_ = viper.BindPFlag("analyze.batch_id", cmd.Flags().Lookup("batch-id"))
	_ = viper.BindPFlag("analyze.no_summary", cmd.Flags().Lookup("no-summary"))
	_ = viper.BindPFlag("analyze.timeout", cmd.Flags().Lookup("timeout"))

	return cmd
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	urls, err := collectURLs(args, viper.GetString("analyze.input"))
	if err != nil {
		return err
	}
	if len(urls) == 0 {
		return fmt.Errorf("no URLs given: pass them as arguments or via --input")
	}

	cfg := configFromViper()
	if err := cfg.Validate(); err != nil {
		return err
	}

	timeout := time.Duration(viper.GetInt("analyze.timeout")) * time.Minute
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logrus.Info("Received interrupt signal, shutting down gracefully...")
		cancel()
	}()

	logger := logrus.StandardLogger()
	metrics := utils.NewMetricsCollector(true)
	if addr := viper.GetString("metrics_listen"); addr != "" {
		go func() {
			if err := metrics.StartServer(ctx, addr); err != nil {
				logger.Warnf("Metrics server stopped: %v", err)
			}
		}()
	}

	rules, err := signatures.Load(cfg.Signatures.ExtraFiles, logger)
	if err != nil {
		return fmt.Errorf("load signatures: %w", err)
	}

	fetcher := fetch.NewFetcher(cfg.Fetch, logger)
	builder := analysis.NewBuilder(detection.NewDetector(rules))
	runner := orchestration.NewRunner(fetcher, builder, cfg.Batch, metrics, logger)

	logger.WithField("sites", len(urls)).Info("Starting batch analysis")
	started := time.Now()

	records, err := runner.Run(ctx, urls)
	if err != nil {
		return fmt.Errorf("batch analysis failed: %w", err)
	}
	if len(records) == 0 {
		return fmt.Errorf("no records produced for %d URLs", len(urls))
	}

	batchID := viper.GetString("analyze.batch_id")
	if batchID == "" {
		batchID = utils.GenerateShortID()
	}

	store, err := storage.NewRecordStore(cfg.Storage, logger)
	if err != nil {
		return err
	}
	if err := store.SaveBatch(batchID, records); err != nil {
		return fmt.Errorf("persist batch: %w", err)
	}
	logger.WithFields(logrus.Fields{"batch_id": batchID, "records": len(records)}).Info("Batch stored")

	if viper.GetBool("analyze.no_summary") {
		fmt.Printf("\nBatch %s stored with %d site records (no summary requested).\n", batchID, len(records))
		return nil
	}

	summary, err := analysis.Summarize(records)
	if err != nil {
		return fmt.Errorf("summarize batch: %w", err)
	}
	summary.BatchID = batchID
	metrics.BatchesSummarized.Inc()

	if err := store.SaveSummary(summary); err != nil {
		return fmt.Errorf("persist summary: %w", err)
	}

	generator, err := reporting.NewGenerator(viper.GetString("output_directory"), logger)
	if err != nil {
		return err
	}
	if _, err := generator.WriteSummary(summary, viper.GetStringSlice("analyze.formats")); err != nil {
		return err
	}
	if _, err := generator.WriteRecords(summary, records); err != nil {
		return err
	}

	displayBatchSummary(summary, records, time.Since(started))
	return nil
}

func collectURLs(args []string, inputPath string) ([]string, error) {
	urls := make([]string, 0, len(args))
	for _, arg := range args {
		if u := utils.NormalizeURL(arg); u != "" {
			urls = append(urls, u)
		}
	}

	if inputPath != "" {
		f, err := os.Open(inputPath)
		if err != nil {
			return nil, fmt.Errorf("open input file: %w", err)
		}
		defer f.Close()

		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			urls = append(urls, utils.NormalizeURL(line))
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read input file: %w", err)
		}
	}

	for _, u := range urls {
		if !utils.IsValidURL(u) {
			return nil, fmt.Errorf("invalid url: %s", u)
		}
	}
	return utils.RemoveDuplicates(urls), nil
}

func displayBatchSummary(summary *models.BatchSummary, records []models.SiteRecord, elapsed time.Duration) {
	degraded := 0
	for _, record := range records {
		if record.Degraded {
			degraded++
		}
	}

	fmt.Printf(`
Batch Summary:
═══════════════════════════════════════════════════════════════
Batch ID:       %s
Sites Analyzed: %d (%d degraded)
SSL Enabled:    %d%%
Responsive:     %d%%
HTTP/2:         %d%%
Duration:       %v
═══════════════════════════════════════════════════════════════
`,
		summary.BatchID,
		summary.TotalSites,
		degraded,
		summary.Statistics[models.StatSSLEnabled].Percentage,
		summary.Statistics[models.StatResponsiveDesign].Percentage,
		summary.Statistics[models.StatHTTP2].Percentage,
		elapsed.Round(time.Millisecond),
	)

	for _, category := range models.Categories() {
		counts := summary.CommonTechnologies[category]
		if len(counts) == 0 {
			continue
		}
		names := make([]string, len(counts))
		for i, tc := range counts {
			names[i] = fmt.Sprintf("%s (%d%%)", tc.Name, tc.Percentage)
		}
		fmt.Printf("%-24s %s\n", reporting.CategoryTitle(category.String())+":", strings.Join(names, ", "))
	}
}
