package orchestration

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/bl4ck0w1/stacklynx/internal/analysis"
	"github.com/bl4ck0w1/stacklynx/internal/detection"
	"github.com/bl4ck0w1/stacklynx/internal/fetch"
	"github.com/bl4ck0w1/stacklynx/pkg/models"
	"github.com/bl4ck0w1/stacklynx/pkg/utils"
)

// PageFetcher is the collaborator contract the runner drives. The production
// implementation is internal/fetch; tests substitute their own.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (*fetch.Result, error)
	WellKnownProbes(ctx context.Context, pageURL string, names []string) map[string]bool
}

// Runner fans a URL batch out over the fetcher and produces one SiteRecord
// per input URL, in input order. Detection itself is pure, so the only
// coordination is the concurrency cap and collecting results.
type Runner struct {
	fetcher     PageFetcher
	builder     *analysis.Builder
	logger      *logrus.Logger
	metrics     *utils.MetricsCollector
	concurrency int
	failPolicy  string
}

func NewRunner(fetcher PageFetcher, builder *analysis.Builder, cfg models.BatchConfig, metrics *utils.MetricsCollector, logger *logrus.Logger) *Runner {
	if logger == nil {
		logger = logrus.New()
	}
	if builder == nil {
		builder = analysis.NewBuilder(nil)
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 8
	}
	failPolicy := cfg.FailPolicy
	if failPolicy == "" {
		failPolicy = models.FailPolicyDegrade
	}
	return &Runner{
		fetcher:     fetcher,
		builder:     builder,
		logger:      logger,
		metrics:     metrics,
		concurrency: concurrency,
		failPolicy:  failPolicy,
	}
}

// Run analyzes every URL. Under the default degrade policy a fetch failure
// yields a degraded record instead of dropping the site, so batch totals
// reflect the attempted count.
func (r *Runner) Run(ctx context.Context, urls []string) ([]models.SiteRecord, error) {
	results := make([]*models.SiteRecord, len(urls))
	sem := semaphore.NewWeighted(int64(r.concurrency))
	g, ctx := errgroup.WithContext(ctx)

	for i, rawURL := range urls {
		i, rawURL := i, utils.NormalizeURL(rawURL)
		g.Go(func() error {
			if err := sem.Acquire(ctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			record := r.analyzeOne(ctx, rawURL)
			results[i] = record
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	records := make([]models.SiteRecord, 0, len(urls))
	for _, record := range results {
		if record != nil {
			records = append(records, *record)
		}
	}
	return records, nil
}

func (r *Runner) analyzeOne(ctx context.Context, rawURL string) *models.SiteRecord {
	start := time.Now()

	result, err := r.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		r.logger.WithField("url", rawURL).Warnf("Fetch failed: %v", err)
		if r.metrics != nil {
			r.metrics.FetchFailures.Inc()
		}
		if r.failPolicy == models.FailPolicyDrop {
			if r.metrics != nil {
				r.metrics.PagesAnalyzed.WithLabelValues("dropped").Inc()
			}
			return nil
		}
		if r.metrics != nil {
			r.metrics.PagesAnalyzed.WithLabelValues("degraded").Inc()
		}
		record := r.builder.Degraded(rawURL, time.Now())
		return &record
	}

	probes := r.fetcher.WellKnownProbes(ctx, rawURL, detection.WellKnownFiles)
	record := r.builder.Build(rawURL, result.RawHeaders, result.Body, probes, time.Now())

	if r.metrics != nil {
		r.metrics.ObserveFetch(time.Since(start))
		r.metrics.PagesAnalyzed.WithLabelValues("ok").Inc()
		for category, technologies := range record.Technologies {
			if len(technologies) > 0 {
				r.metrics.Detections.WithLabelValues(category.String()).Add(float64(len(technologies)))
			}
		}
	}

	r.logger.WithFields(logrus.Fields{
		"url":          rawURL,
		"technologies": record.Technologies.Total(),
		"missing":      record.Missing.Total(),
		"duration_ms":  time.Since(start).Milliseconds(),
	}).Info("Site analyzed")

	return &record
}
