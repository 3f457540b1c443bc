package storage

import (
	"reflect"
	"testing"
	"time"

	"github.com/bl4ck0w1/stacklynx/pkg/models"
)

func testStore(t *testing.T, compression bool) *RecordStore {
	t.Helper()
	store, err := NewRecordStore(models.StorageConfig{
		BaseDir:     t.TempDir(),
		Compression: compression,
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	return store
}

func testRecord(url string, offset time.Duration) models.SiteRecord {
	record := models.SiteRecord{
		URL:          url,
		AnalyzedAt:   time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC).Add(offset),
		Technologies: models.NewTechProfile(),
		Missing:      models.NewMissingReport(),
	}
	record.Technologies.Add(models.CategoryCMS, "WordPress")
	record.Missing.Security = append(record.Missing.Security, "Content-Security-Policy")
	return record
}

func TestSaveAndLoadBatch(t *testing.T) {
	for _, compression := range []bool{false, true} {
		name := "plain"
		if compression {
			name = "gzip"
		}
		t.Run(name, func(t *testing.T) {
			store := testStore(t, compression)

			want := []models.SiteRecord{
				testRecord("https://a.example", 0),
				testRecord("https://b.example", time.Second),
			}
			if err := store.SaveBatch("batch-1", want); err != nil {
				t.Fatalf("SaveBatch: %v", err)
			}

			got, err := store.LoadBatch("batch-1")
			if err != nil {
				t.Fatalf("LoadBatch: %v", err)
			}
			if len(got) != len(want) {
				t.Fatalf("loaded %d records, want %d", len(got), len(want))
			}
			for i := range want {
				if got[i].URL != want[i].URL {
					t.Errorf("record %d URL = %s, want %s", i, got[i].URL, want[i].URL)
				}
				if !got[i].Technologies.Has(models.CategoryCMS, "WordPress") {
					t.Errorf("record %d lost its technologies", i)
				}
				if !reflect.DeepEqual(got[i].Missing, want[i].Missing) {
					t.Errorf("record %d Missing = %+v, want %+v", i, got[i].Missing, want[i].Missing)
				}
			}
		})
	}
}

func TestSaveRecordRejectsInvalid(t *testing.T) {
	store := testStore(t, false)
	if err := store.SaveRecord("batch-1", models.SiteRecord{}); err == nil {
		t.Error("expected validation error for empty record")
	}
}

func TestSaveAndReloadSummary(t *testing.T) {
	store := testStore(t, false)

	records := []models.SiteRecord{testRecord("https://a.example", 0)}
	if err := store.SaveBatch("batch-2", records); err != nil {
		t.Fatal(err)
	}

	summary := &models.BatchSummary{
		BatchID:    "batch-2",
		AnalyzedAt: time.Now().UTC(),
		TotalSites: 1,
		Statistics: map[string]models.Stat{
			models.StatResponsiveDesign: {Count: 0, Percentage: 0},
			models.StatSSLEnabled:       {Count: 1, Percentage: 100},
			models.StatHTTP2:            {Count: 0, Percentage: 0},
		},
	}
	if err := store.SaveSummary(summary); err != nil {
		t.Fatalf("SaveSummary: %v", err)
	}

	// Records must still be loadable with the summary file alongside them.
	got, err := store.LoadBatch("batch-2")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Errorf("loaded %d records, want 1 (summary.json must not be read as a record)", len(got))
	}
}

func TestListBatches(t *testing.T) {
	store := testStore(t, false)

	for _, id := range []string{"zulu", "alpha", "mike"} {
		if err := store.SaveBatch(id, []models.SiteRecord{testRecord("https://x.example", 0)}); err != nil {
			t.Fatal(err)
		}
	}

	got, err := store.ListBatches()
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"alpha", "mike", "zulu"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ListBatches() = %v, want %v", got, want)
	}
}

func TestLoadBatchMissing(t *testing.T) {
	store := testStore(t, false)
	if _, err := store.LoadBatch("no-such-batch"); err == nil {
		t.Error("expected error for unknown batch")
	}
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"https://Example.com/path?q=1", "example.com_path_q_1"},
		{"http://a.example", "a.example"},
		{"", "unknown"},
		{"plain-id_01", "plain-id_01"},
	}
	for _, tc := range tests {
		if got := sanitizeName(tc.in); got != tc.want {
			t.Errorf("sanitizeName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
