package export

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"baac/internal/frame"
)

func TestWriteCSV(t *testing.T) {
	f := frame.New("Num_Acc", "lat", "Periode")
	_ = f.Append([]any{int64(202300000001), 48.8566, "Matin"})
	_ = f.Append([]any{int64(202300000002), nil, nil})

	path := filepath.Join(t.TempDir(), "out", "caract_2023_clean.csv")
	if err := WriteCSV(path, f); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	want := "Num_Acc,lat,Periode\n202300000001,48.8566,Matin\n202300000002,,\n"
	if string(data) != want {
		t.Fatalf("file=%q, want %q", data, want)
	}
}

func TestWriteCSV_NoTempFileLeftBehind(t *testing.T) {
	dir := t.TempDir()
	f := frame.New("a")
	_ = f.Append([]any{int64(1)})

	if err := WriteCSV(filepath.Join(dir, "x.csv"), f); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, e := range entries {
		if strings.Contains(e.Name(), ".tmp-") {
			t.Fatalf("temp file %s left behind", e.Name())
		}
	}
	if len(entries) != 1 {
		t.Fatalf("entries=%d, want 1", len(entries))
	}
}

func TestWriteCSV_FailureKeepsPreviousArtifact(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "final_2023.csv")

	first := frame.New("a")
	_ = first.Append([]any{"old"})
	if err := WriteCSV(path, first); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}

	// Make the directory non-writable so the temp file cannot be created;
	// the existing artifact must survive the failed attempt.
	if err := os.Chmod(dir, 0o555); err != nil {
		t.Fatalf("Chmod: %v", err)
	}
	defer os.Chmod(dir, 0o755)

	second := frame.New("a")
	_ = second.Append([]any{"new"})
	if err := WriteCSV(path, second); err == nil {
		t.Skip("directory still writable (running as root)")
	}

	_ = os.Chmod(dir, 0o755)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if want := "a\nold\n"; string(data) != want {
		t.Fatalf("file=%q, want previous artifact %q", data, want)
	}
}
