package analysis

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/bl4ck0w1/stacklynx/internal/detection"
	"github.com/bl4ck0w1/stacklynx/pkg/models"
	"github.com/bl4ck0w1/stacklynx/pkg/utils"
)

// ErrEmptyBatch is returned when aggregation is requested over zero records.
// Percentages are undefined for an empty batch; callers must handle this
// instead of receiving all-zero statistics.
var ErrEmptyBatch = errors.New("cannot summarize an empty batch")

// Summarize folds a record collection into a fresh BatchSummary. It is a pure
// projection: counts and floor-truncated percentages per (category,
// technology) pair, missing-item statistics, and boolean ratio statistics.
//
// Percentage truncation is integer division by contract, not rounding; the
// strict-majority rule below depends on it.
func Summarize(records []models.SiteRecord) (*models.BatchSummary, error) {
	if len(records) == 0 {
		return nil, ErrEmptyBatch
	}

	total := len(records)
	summary := &models.BatchSummary{
		BatchID:            utils.GenerateShortID(),
		AnalyzedAt:         time.Now().UTC(),
		TotalSites:         total,
		Statistics:         make(map[string]models.Stat, 3),
		CommonTechnologies: make(map[models.Category][]models.TechCount),
	}

	techCounts := make(map[models.Category]map[string]int)
	for _, record := range records {
		for category, technologies := range record.Technologies {
			if techCounts[category] == nil {
				techCounts[category] = make(map[string]int)
			}
			for _, tech := range technologies {
				techCounts[category][tech]++
			}
		}
	}

	// Common technologies: strict majority only. A count of exactly half the
	// batch does not qualify (count > total/2, integer truncation).
	for category, counts := range techCounts {
		var common []models.TechCount
		for tech, count := range counts {
			if count > total/2 {
				common = append(common, models.TechCount{
					Name:       tech,
					Count:      count,
					Percentage: percentage(count, total),
				})
			}
		}
		if len(common) > 0 {
			sortTechCounts(common)
			summary.CommonTechnologies[category] = common
		}
	}

	// Missing-item statistics surface every gap seen at least once; majority
	// filtering would defeat their purpose.
	summary.CommonMissing = models.MissingStats{
		SecurityHeaders: countMissing(records, total, func(r models.SiteRecord) []string { return r.Missing.Security }),
		Files:           countMissing(records, total, func(r models.SiteRecord) []string { return r.Missing.Files }),
		MetaTags:        countMissing(records, total, func(r models.SiteRecord) []string { return r.Missing.MetaTags }),
	}

	summary.Statistics[models.StatResponsiveDesign] = ratioStat(records, total, func(r models.SiteRecord) bool { return r.Meta.Responsive })
	summary.Statistics[models.StatSSLEnabled] = ratioStat(records, total, func(r models.SiteRecord) bool { return r.Meta.SSLEnabled })
	summary.Statistics[models.StatHTTP2] = ratioStat(records, total, func(r models.SiteRecord) bool {
		return isHTTP2(r.Meta.HTTPVersion)
	})

	return summary, nil
}

// isHTTP2 accepts both spellings of the version token: Go's net/http reports
// "HTTP/2.0" while raw h2 status lines carry "HTTP/2".
func isHTTP2(version string) bool {
	return strings.EqualFold(version, "HTTP/2") || strings.EqualFold(version, "HTTP/2.0")
}

func countMissing(records []models.SiteRecord, total int, pick func(models.SiteRecord) []string) []models.TechCount {
	counts := make(map[string]int)
	for _, record := range records {
		for _, item := range pick(record) {
			counts[item]++
		}
	}

	out := make([]models.TechCount, 0, len(counts))
	for item, count := range counts {
		out = append(out, models.TechCount{
			Name:       item,
			Count:      count,
			Percentage: percentage(count, total),
		})
	}
	sortTechCounts(out)
	return out
}

func ratioStat(records []models.SiteRecord, total int, holds func(models.SiteRecord) bool) models.Stat {
	count := 0
	for _, record := range records {
		if holds(record) {
			count++
		}
	}
	return models.Stat{Count: count, Percentage: percentage(count, total)}
}

// percentage floors by integer division; the truncation is a behavior
// contract shared with the majority threshold.
func percentage(count, total int) int {
	return count * 100 / total
}

// sortTechCounts orders by descending count, ties broken by name ascending,
// so reports are reproducible.
func sortTechCounts(counts []models.TechCount) {
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Name < counts[j].Name
	})
}

// ChecklistSizes reports the fixed checklist lengths; the stats command uses
// it to show coverage alongside signature counts.
func ChecklistSizes() (security, files, metaTags int) {
	return len(detection.SecurityHeaderChecklist), len(detection.WellKnownFiles), len(detection.MetaTagChecklist())
}
