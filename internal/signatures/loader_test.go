package signatures

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bl4ck0w1/stacklynx/pkg/models"
)

func writeSignatureFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "extra.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadAppendsExtensionSignatures(t *testing.T) {
	path := writeSignatureFile(t, `
schema_version: "1.0.0"
signatures:
  - category: cms
    technology: Wagtail
    source: body
    substrings:
      - wagtail-userbar
  - category: analytics
    technology: Umami
    pattern: 'umami\.is/script\.js'
`)

	rs, err := Load([]string{path}, nil)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	builtin := len(Builtin())
	if got := len(rs.Signatures()); got != builtin+2 {
		t.Errorf("signature count = %d, want %d", got, builtin+2)
	}

	found := false
	for _, sig := range rs.Signatures() {
		if sig.Technology == "Wagtail" {
			found = true
			if sig.Category != models.CategoryCMS {
				t.Errorf("Wagtail category = %s, want cms", sig.Category)
			}
			if sig.Source != SourceBody {
				t.Errorf("Wagtail source = %s, want body", sig.Source)
			}
			if !sig.Matches("", "<div id=\"wagtail-userbar\"></div>") {
				t.Error("Wagtail signature should match its substring")
			}
		}
	}
	if !found {
		t.Error("Wagtail extension signature not loaded")
	}
}

func TestLoadDefaultsSourceToAny(t *testing.T) {
	path := writeSignatureFile(t, `
schema_version: "1.1.0"
signatures:
  - category: hosting
    technology: Fly.io
    substrings: ["fly-request-id"]
`)

	rs, err := Load([]string{path}, nil)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	for _, sig := range rs.Signatures() {
		if sig.Technology == "Fly.io" && sig.Source != SourceAny {
			t.Errorf("source = %s, want any", sig.Source)
		}
	}
}

func TestLoadRejectsBadFiles(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			"unsupported schema version",
			"schema_version: \"2.0.0\"\nsignatures:\n  - category: cms\n    technology: X\n    substrings: [x]\n",
		},
		{
			"missing schema version",
			"signatures:\n  - category: cms\n    technology: X\n    substrings: [x]\n",
		},
		{
			"unknown category",
			"schema_version: \"1.0.0\"\nsignatures:\n  - category: databases\n    technology: X\n    substrings: [x]\n",
		},
		{
			"predicate-less signature",
			"schema_version: \"1.0.0\"\nsignatures:\n  - category: cms\n    technology: X\n",
		},
		{
			"invalid pattern",
			"schema_version: \"1.0.0\"\nsignatures:\n  - category: cms\n    technology: X\n    pattern: '['\n",
		},
		{
			"not yaml",
			"{{{{",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := writeSignatureFile(t, tc.content)
			if _, err := Load([]string{path}, nil); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load([]string{"/nonexistent/sigs.yaml"}, nil); err == nil {
		t.Error("expected error for missing file")
	}
}
