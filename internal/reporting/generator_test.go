package reporting

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bl4ck0w1/stacklynx/pkg/models"
)

func testSummary() *models.BatchSummary {
	return &models.BatchSummary{
		BatchID:    "test01",
		AnalyzedAt: time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC),
		TotalSites: 4,
		Statistics: map[string]models.Stat{
			models.StatResponsiveDesign: {Count: 3, Percentage: 75},
			models.StatSSLEnabled:       {Count: 4, Percentage: 100},
			models.StatHTTP2:            {Count: 2, Percentage: 50},
		},
		CommonTechnologies: map[models.Category][]models.TechCount{
			models.CategoryCMS: {{Name: "WordPress", Count: 3, Percentage: 75}},
			models.CategoryCDN: {{Name: "Cloudflare", Count: 4, Percentage: 100}},
		},
		CommonMissing: models.MissingStats{
			SecurityHeaders: []models.TechCount{{Name: "Content-Security-Policy", Count: 2, Percentage: 50}},
			Files:           []models.TechCount{{Name: "humans.txt", Count: 4, Percentage: 100}},
			MetaTags:        []models.TechCount{},
		},
	}
}

func TestWriteSummaryAllFormats(t *testing.T) {
	dir := t.TempDir()
	g, err := NewGenerator(dir, nil)
	if err != nil {
		t.Fatal(err)
	}

	paths, err := g.WriteSummary(testSummary(), []string{"json", "csv", "txt"})
	if err != nil {
		t.Fatalf("WriteSummary: %v", err)
	}
	if len(paths) != 3 {
		t.Fatalf("got %d paths, want 3", len(paths))
	}
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			t.Errorf("report not written: %v", err)
			continue
		}
		if info.Size() == 0 {
			t.Errorf("report %s is empty", path)
		}
		if filepath.Dir(path) != dir {
			t.Errorf("report %s written outside output dir", path)
		}
	}
}

func TestWriteSummaryRejectsUnknownFormat(t *testing.T) {
	g, err := NewGenerator(t.TempDir(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := g.WriteSummary(testSummary(), []string{"xml"}); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestSummaryCSVContent(t *testing.T) {
	g, err := NewGenerator(t.TempDir(), nil)
	if err != nil {
		t.Fatal(err)
	}
	paths, err := g.WriteSummary(testSummary(), []string{"csv"})
	if err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(paths[0])
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}

	if len(rows) == 0 || strings.Join(rows[0], ",") != "section,category,name,count,percentage" {
		t.Fatalf("unexpected header row: %v", rows)
	}

	found := map[string]bool{}
	for _, row := range rows[1:] {
		found[row[0]+"/"+row[2]] = true
	}
	for _, key := range []string{
		"statistics/ssl_enabled",
		"common_technologies/WordPress",
		"common_missing_features/Content-Security-Policy",
		"common_missing_features/humans.txt",
	} {
		if !found[key] {
			t.Errorf("csv missing row %s; got %v", key, found)
		}
	}
}

func TestSummaryTextContent(t *testing.T) {
	g, err := NewGenerator(t.TempDir(), nil)
	if err != nil {
		t.Fatal(err)
	}

	text := g.renderSummaryText(testSummary())
	for _, want := range []string{
		"Batch ID:    test01",
		"Total sites: 4",
		"WordPress",
		"Cloudflare",
		"Content-Security-Policy",
		"humans.txt",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("text report missing %q", want)
		}
	}
}

func TestWriteRecords(t *testing.T) {
	g, err := NewGenerator(t.TempDir(), nil)
	if err != nil {
		t.Fatal(err)
	}

	records := []models.SiteRecord{{
		URL:          "https://example.com",
		AnalyzedAt:   time.Now(),
		Technologies: models.NewTechProfile(),
		Missing:      models.NewMissingReport(),
	}}
	path, err := g.WriteRecords(testSummary(), records)
	if err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "https://example.com") {
		t.Error("records file missing the record URL")
	}
}

func TestCategoryTitle(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"cms", "CMS"},
		{"javascript_frameworks", "JavaScript Frameworks"},
		{"ui_frameworks", "UI Frameworks"},
		{"reverse_proxies", "Reverse Proxies"},
		{"ssl_enabled", "SSL Enabled"},
		{"http2", "HTTP/2"},
		{"rum", "RUM"},
		{"responsive_design", "Responsive Design"},
	}
	for _, tc := range tests {
		if got := CategoryTitle(tc.in); got != tc.want {
			t.Errorf("CategoryTitle(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
