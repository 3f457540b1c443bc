package storage

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bl4ck0w1/stacklynx/pkg/models"
)

var fileNameSanitizer = regexp.MustCompile(`[^\w\-.]+`)

// RecordStore persists SiteRecords and BatchSummaries as JSON files under a
// batch directory tree:
//
//	<base>/batches/<batch-id>/record_<host>_<timestamp>.json
//	<base>/batches/<batch-id>/summary.json
type RecordStore struct {
	baseDir     string
	logger      *logrus.Logger
	mu          sync.RWMutex
	compression bool
	retention   time.Duration
}

func NewRecordStore(cfg models.StorageConfig, logger *logrus.Logger) (*RecordStore, error) {
	if logger == nil {
		logger = logrus.New()
	}
	if err := os.MkdirAll(filepath.Join(cfg.BaseDir, "batches"), 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}

	rs := &RecordStore{
		baseDir:     cfg.BaseDir,
		logger:      logger,
		compression: cfg.Compression,
		retention:   cfg.Retention,
	}
	if rs.retention > 0 {
		rs.sweepExpired()
	}
	return rs, nil
}

func (rs *RecordStore) SaveRecord(batchID string, record models.SiteRecord) error {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if err := record.Validate(); err != nil {
		return err
	}

	dir := rs.batchDir(batchID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create batch directory: %w", err)
	}

	name := fmt.Sprintf("record_%s_%s.json",
		sanitizeName(record.URL),
		record.AnalyzedAt.Format("20060102_150405.000"))
	return rs.writeJSON(filepath.Join(dir, name), record)
}

func (rs *RecordStore) SaveBatch(batchID string, records []models.SiteRecord) error {
	for _, record := range records {
		if err := rs.SaveRecord(batchID, record); err != nil {
			return fmt.Errorf("save record for %s: %w", record.URL, err)
		}
	}
	return nil
}

func (rs *RecordStore) SaveSummary(summary *models.BatchSummary) error {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	dir := rs.batchDir(summary.BatchID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create batch directory: %w", err)
	}
	return rs.writeJSON(filepath.Join(dir, "summary.json"), summary)
}

// LoadBatch reads every record file of a batch, sorted by file name so the
// result order is stable.
func (rs *RecordStore) LoadBatch(batchID string) ([]models.SiteRecord, error) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	dir := rs.batchDir(batchID)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read batch %s: %w", batchID, err)
	}

	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, "record_") && (strings.HasSuffix(name, ".json") || strings.HasSuffix(name, ".json.gz")) {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	records := make([]models.SiteRecord, 0, len(names))
	for _, name := range names {
		var record models.SiteRecord
		if err := rs.readJSON(filepath.Join(dir, name), &record); err != nil {
			return nil, fmt.Errorf("read record %s: %w", name, err)
		}
		records = append(records, record)
	}
	return records, nil
}

func (rs *RecordStore) ListBatches() ([]string, error) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	entries, err := os.ReadDir(filepath.Join(rs.baseDir, "batches"))
	if err != nil {
		return nil, err
	}
	var out []string
	for _, entry := range entries {
		if entry.IsDir() {
			out = append(out, entry.Name())
		}
	}
	sort.Strings(out)
	return out, nil
}

func (rs *RecordStore) batchDir(batchID string) string {
	return filepath.Join(rs.baseDir, "batches", sanitizeName(batchID))
}

func (rs *RecordStore) writeJSON(path string, v interface{}) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".stacklynx_*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	var w io.Writer = tmp
	var gz *gzip.Writer
	if rs.compression {
		path += ".gz"
		gz = gzip.NewWriter(tmp)
		w = gz
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("encode: %w", err)
	}
	if gz != nil {
		if err := gz.Close(); err != nil {
			tmp.Close()
			_ = os.Remove(tmp.Name())
			return fmt.Errorf("compress: %w", err)
		}
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("atomic rename: %w", err)
	}
	return nil
}

func (rs *RecordStore) readJSON(path string, v interface{}) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return err
		}
		defer gz.Close()
		r = gz
	}
	return json.NewDecoder(r).Decode(v)
}

func (rs *RecordStore) sweepExpired() {
	cutoff := time.Now().Add(-rs.retention)
	root := filepath.Join(rs.baseDir, "batches")

	entries, err := os.ReadDir(root)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			path := filepath.Join(root, entry.Name())
			if err := os.RemoveAll(path); err != nil {
				rs.logger.Warnf("Failed to remove expired batch %s: %v", entry.Name(), err)
			} else {
				rs.logger.Infof("Removed expired batch %s", entry.Name())
			}
		}
	}
}

func sanitizeName(s string) string {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "https://"), "http://")
	s = strings.ToLower(fileNameSanitizer.ReplaceAllString(s, "_"))
	if s == "" {
		return "unknown"
	}
	const maxLen = 80
	if len(s) > maxLen {
		s = s[:maxLen]
	}
	return s
}
