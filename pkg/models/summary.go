package models

import (
	"fmt"
	"strings"
	"time"
)

const (
	StatResponsiveDesign = "responsive_design"
	StatSSLEnabled       = "ssl_enabled"
	StatHTTP2            = "http2"
)

type Stat struct {
	Count      int `json:"count" yaml:"count"`
	Percentage int `json:"percentage" yaml:"percentage"`
}

type TechCount struct {
	Name       string `json:"name" yaml:"name"`
	Count      int    `json:"count" yaml:"count"`
	Percentage int    `json:"percentage" yaml:"percentage"`
}

type MissingStats struct {
	SecurityHeaders []TechCount `json:"security_headers" yaml:"security_headers"`
	Files           []TechCount `json:"files" yaml:"files"`
	MetaTags        []TechCount `json:"meta_tags" yaml:"meta_tags"`
}

// BatchSummary is a pure projection over a full record set. It is rebuilt
// from scratch on every aggregation, never incrementally mutated.
type BatchSummary struct {
	BatchID            string                 `json:"batch_id" yaml:"batch_id"`
	AnalyzedAt         time.Time              `json:"analyzed_at" yaml:"analyzed_at"`
	TotalSites         int                    `json:"total_sites" yaml:"total_sites"`
	Statistics         map[string]Stat        `json:"statistics" yaml:"statistics"`
	CommonTechnologies map[Category][]TechCount `json:"common_technologies" yaml:"common_technologies"`
	CommonMissing      MissingStats           `json:"common_missing_features" yaml:"common_missing_features"`
}

func (s *BatchSummary) Validate() error {
	var problems []string

	if s.BatchID == "" {
		problems = append(problems, "batch ID is required")
	}
	if s.TotalSites <= 0 {
		problems = append(problems, "total_sites must be positive")
	}
	if s.Statistics == nil {
		problems = append(problems, "statistics map is required")
	} else {
		for _, key := range []string{StatResponsiveDesign, StatSSLEnabled, StatHTTP2} {
			if _, ok := s.Statistics[key]; !ok {
				problems = append(problems, fmt.Sprintf("statistics missing key: %s", key))
			}
		}
	}
	for c := range s.CommonTechnologies {
		if !c.IsValid() {
			problems = append(problems, fmt.Sprintf("unknown category in common_technologies: %s", c))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("batch summary validation failed:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}

// GenerateFileName builds a report file name for this batch.
func (s *BatchSummary) GenerateFileName(kind, ext string) string {
	ts := s.AnalyzedAt
	if ts.IsZero() {
		ts = time.Now()
	}
	return fmt.Sprintf("stacklynx_%s_%s_%s.%s", s.BatchID, kind, ts.Format("20060102_150405"), ext)
}
