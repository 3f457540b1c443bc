package reporting

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/bl4ck0w1/stacklynx/pkg/models"
	"github.com/bl4ck0w1/stacklynx/pkg/utils"
)

const (
	FormatJSON = "json"
	FormatCSV  = "csv"
	FormatTXT  = "txt"
)

var titleCaser = cases.Title(language.English)

// Generator writes batch summaries and per-site records to report files.
type Generator struct {
	outputDir string
	logger    *logrus.Logger
}

func NewGenerator(outputDir string, logger *logrus.Logger) (*Generator, error) {
	if logger == nil {
		logger = logrus.New()
	}
	if err := utils.EnsureDir(outputDir); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	return &Generator{outputDir: outputDir, logger: logger}, nil
}

// WriteSummary renders the summary in every requested format and returns the
// paths written.
func (g *Generator) WriteSummary(summary *models.BatchSummary, formats []string) ([]string, error) {
	if err := summary.Validate(); err != nil {
		return nil, err
	}

	var paths []string
	for _, format := range formats {
		format = strings.ToLower(strings.TrimSpace(format))
		path := filepath.Join(g.outputDir, summary.GenerateFileName("summary", format))

		var err error
		switch format {
		case FormatJSON:
			err = utils.WriteFileJSON(path, summary, true)
		case FormatCSV:
			err = g.writeSummaryCSV(path, summary)
		case FormatTXT:
			err = utils.SafeWriteFile(path, []byte(g.renderSummaryText(summary)), 0o644)
		default:
			return nil, fmt.Errorf("unsupported report format: %s", format)
		}
		if err != nil {
			return nil, fmt.Errorf("write %s report: %w", format, err)
		}

		g.logger.WithField("path", path).Infof("Generated %s report", format)
		paths = append(paths, path)
	}
	return paths, nil
}

// WriteRecords writes the per-site records of a batch as one JSON document.
func (g *Generator) WriteRecords(summary *models.BatchSummary, records []models.SiteRecord) (string, error) {
	path := filepath.Join(g.outputDir, summary.GenerateFileName("records", FormatJSON))
	if err := utils.WriteFileJSON(path, records, true); err != nil {
		return "", fmt.Errorf("write records: %w", err)
	}
	g.logger.WithField("path", path).Info("Generated records file")
	return path, nil
}

func (g *Generator) writeSummaryCSV(path string, summary *models.BatchSummary) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"section", "category", "name", "count", "percentage"}); err != nil {
		return err
	}

	for _, key := range []string{models.StatResponsiveDesign, models.StatSSLEnabled, models.StatHTTP2} {
		stat := summary.Statistics[key]
		if err := w.Write([]string{"statistics", "", key, strconv.Itoa(stat.Count), strconv.Itoa(stat.Percentage)}); err != nil {
			return err
		}
	}

	for _, category := range models.Categories() {
		for _, tc := range summary.CommonTechnologies[category] {
			row := []string{"common_technologies", category.String(), models.EscapeQuotes(tc.Name), strconv.Itoa(tc.Count), strconv.Itoa(tc.Percentage)}
			if err := w.Write(row); err != nil {
				return err
			}
		}
	}

	missing := map[string][]models.TechCount{
		"security_headers": summary.CommonMissing.SecurityHeaders,
		"files":            summary.CommonMissing.Files,
		"meta_tags":        summary.CommonMissing.MetaTags,
	}
	for _, section := range []string{"security_headers", "files", "meta_tags"} {
		for _, tc := range missing[section] {
			row := []string{"common_missing_features", section, models.EscapeQuotes(tc.Name), strconv.Itoa(tc.Count), strconv.Itoa(tc.Percentage)}
			if err := w.Write(row); err != nil {
				return err
			}
		}
	}
	return w.Error()
}

func (g *Generator) renderSummaryText(summary *models.BatchSummary) string {
	var b strings.Builder

	fmt.Fprintf(&b, "StackLynx Batch Summary\n")
	fmt.Fprintf(&b, "%s\n", strings.Repeat("=", 63))
	fmt.Fprintf(&b, "Batch ID:    %s\n", summary.BatchID)
	fmt.Fprintf(&b, "Analyzed:    %s\n", summary.AnalyzedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&b, "Total sites: %d\n\n", summary.TotalSites)

	fmt.Fprintf(&b, "Statistics\n")
	for _, key := range []string{models.StatResponsiveDesign, models.StatSSLEnabled, models.StatHTTP2} {
		stat := summary.Statistics[key]
		fmt.Fprintf(&b, "  %-20s %d/%d (%d%%)\n", CategoryTitle(key)+":", stat.Count, summary.TotalSites, stat.Percentage)
	}

	fmt.Fprintf(&b, "\nCommon technologies (majority of sites)\n")
	any := false
	for _, category := range models.Categories() {
		counts := summary.CommonTechnologies[category]
		if len(counts) == 0 {
			continue
		}
		any = true
		fmt.Fprintf(&b, "  %s\n", CategoryTitle(category.String()))
		for _, tc := range counts {
			fmt.Fprintf(&b, "    %-28s %d (%d%%)\n", models.EscapeQuotes(tc.Name), tc.Count, tc.Percentage)
		}
	}
	if !any {
		fmt.Fprintf(&b, "  (none crossed the majority threshold)\n")
	}

	fmt.Fprintf(&b, "\nCommon missing features\n")
	sections := []struct {
		title  string
		counts []models.TechCount
	}{
		{"Security Headers", summary.CommonMissing.SecurityHeaders},
		{"Files", summary.CommonMissing.Files},
		{"Meta Tags", summary.CommonMissing.MetaTags},
	}
	for _, section := range sections {
		if len(section.counts) == 0 {
			continue
		}
		fmt.Fprintf(&b, "  %s\n", section.title)
		for _, tc := range section.counts {
			fmt.Fprintf(&b, "    %-28s %d (%d%%)\n", tc.Name, tc.Count, tc.Percentage)
		}
	}

	return b.String()
}

// CategoryTitle turns a snake_case taxonomy key into a display title, with
// fixups for initialisms the generic caser gets wrong.
func CategoryTitle(key string) string {
	title := titleCaser.String(strings.ReplaceAll(key, "_", " "))
	replacer := strings.NewReplacer(
		"Cms", "CMS",
		"Cdn", "CDN",
		"Rum", "RUM",
		"Ui ", "UI ",
		"Javascript", "JavaScript",
		"Ssl", "SSL",
		"Http2", "HTTP/2",
	)
	return replacer.Replace(title)
}
