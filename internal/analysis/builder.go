package analysis

import (
	"fmt"
	"time"

	"github.com/zeebo/xxh3"

	"github.com/bl4ck0w1/stacklynx/internal/detection"
	"github.com/bl4ck0w1/stacklynx/pkg/models"
)

// Builder combines detection, absence checking, and page-meta extraction into
// immutable SiteRecords. Safe for concurrent use on disjoint inputs.
type Builder struct {
	detector *detection.Detector
}

func NewBuilder(detector *detection.Detector) *Builder {
	if detector == nil {
		detector = detection.NewDetector(nil)
	}
	return &Builder{detector: detector}
}

// Build assembles one record from already-fetched text. Empty headers/body
// are legal inputs and produce a record with empty technology sets.
func (b *Builder) Build(url, headers, body string, fileProbes map[string]bool, now time.Time) models.SiteRecord {
	record := models.SiteRecord{
		URL:          url,
		AnalyzedAt:   now.UTC(),
		Technologies: b.detector.Detect(headers, body),
		Meta:         detection.ExtractPageMeta(url, headers, body),
		Missing:      detection.CheckMissing(headers, body, fileProbes),
	}
	if body != "" {
		record.ContentHash = fmt.Sprintf("%016x", xxh3.HashString(body))
	}
	return record
}

// Degraded builds the record for a failed fetch: empty technologies and every
// checklist item missing. Degraded records stay in the batch so aggregate
// percentages reflect the attempted site count.
func (b *Builder) Degraded(url string, now time.Time) models.SiteRecord {
	record := b.Build(url, "", "", nil, now)
	record.Degraded = true
	return record
}
