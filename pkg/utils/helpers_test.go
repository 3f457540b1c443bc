package utils

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"example.com", "https://example.com"},
		{"  example.com  ", "https://example.com"},
		{"http://example.com", "http://example.com"},
		{"https://example.com/path", "https://example.com/path"},
		{"", ""},
	}
	for _, tc := range tests {
		if got := NormalizeURL(tc.in); got != tc.want {
			t.Errorf("NormalizeURL(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestIsValidURL(t *testing.T) {
	valid := []string{"https://example.com", "http://example.com:8080/path"}
	invalid := []string{"", "example.com", "ftp://example.com", "https://"}

	for _, u := range valid {
		if !IsValidURL(u) {
			t.Errorf("IsValidURL(%q) = false, want true", u)
		}
	}
	for _, u := range invalid {
		if IsValidURL(u) {
			t.Errorf("IsValidURL(%q) = true, want false", u)
		}
	}
}

func TestRemoveDuplicates(t *testing.T) {
	got := RemoveDuplicates([]string{"a", "b", "a", "c", "b"})
	want := []string{"a", "b", "c"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("RemoveDuplicates = %v, want %v", got, want)
	}
}

func TestGenerateShortID(t *testing.T) {
	a, b := GenerateShortID(), GenerateShortID()
	if a == b {
		t.Error("consecutive IDs collide")
	}
	if len(a) != 16 {
		t.Errorf("ID length = %d, want 16", len(a))
	}
}

func TestJSONFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	want := map[string]int{"a": 1, "b": 2}

	if err := WriteFileJSON(path, want, true); err != nil {
		t.Fatal(err)
	}
	var got map[string]int
	if err := ReadFileJSON(path, &got); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("round trip = %v, want %v", got, want)
	}
}

func TestSafeWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	if err := SafeWriteFile(path, []byte("first"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := SafeWriteFile(path, []byte("second"), 0o644); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "second" {
		t.Errorf("file content = %q, want %q", data, "second")
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file left behind")
	}
}
