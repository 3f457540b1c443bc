package commands

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestCollectURLs(t *testing.T) {
	input := filepath.Join(t.TempDir(), "urls.txt")
	content := "# targets\nexample.com\n\nhttps://other.example\nexample.com\n"
	if err := os.WriteFile(input, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := collectURLs([]string{"first.example"}, input)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"https://first.example", "https://example.com", "https://other.example"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("collectURLs = %v, want %v", got, want)
	}
}

func TestCollectURLsRejectsInvalid(t *testing.T) {
	if _, err := collectURLs([]string{"https://"}, ""); err == nil {
		t.Error("expected error for url without host")
	}
}

func TestCollectURLsMissingInputFile(t *testing.T) {
	if _, err := collectURLs(nil, "/nonexistent/urls.txt"); err == nil {
		t.Error("expected error for missing input file")
	}
}
