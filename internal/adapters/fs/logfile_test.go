package fs

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bft-labs/seriallog/internal/domain"
)

func batchOf(seq uint64, vs ...domain.Sample) domain.Batch {
	return domain.NewBatch(seq, vs, time.Time{})
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(b)
}

func TestRotatingLog_AppendsWithinBucket(t *testing.T) {
	dir := t.TempDir()
	l := NewRotatingLog(dir)
	defer l.Close()

	at := time.Date(2026, 10, 19, 13, 5, 0, 0, time.Local)
	if err := l.Append(batchOf(1, 1, 2), at); err != nil {
		t.Fatal(err)
	}
	if err := l.Append(batchOf(2, 3), at.Add(30*time.Minute)); err != nil {
		t.Fatal(err)
	}

	want := filepath.Join(dir, "serial_log_2026-10-19_13.txt")
	if l.Current() != want {
		t.Fatalf("Current() = %s, want %s", l.Current(), want)
	}
	if got := readFile(t, want); got != "1\n2\n3\n" {
		t.Fatalf("log content = %q", got)
	}
}

func TestRotatingLog_RotatesOnHourBoundary(t *testing.T) {
	dir := t.TempDir()
	l := NewRotatingLog(dir)
	defer l.Close()

	before := time.Date(2026, 10, 19, 13, 59, 59, 0, time.Local)
	after := before.Add(2 * time.Second)

	if l.Rotated(before) != true {
		t.Fatal("first append should open a file")
	}
	if err := l.Append(batchOf(1, 10, 11), before); err != nil {
		t.Fatal(err)
	}
	if !l.Rotated(after) {
		t.Fatal("expected rotation across the hour")
	}
	if err := l.Append(batchOf(2, 12, 13), after); err != nil {
		t.Fatal(err)
	}

	if got := readFile(t, filepath.Join(dir, "serial_log_2026-10-19_13.txt")); got != "10\n11\n" {
		t.Fatalf("13h content = %q", got)
	}
	if got := readFile(t, filepath.Join(dir, "serial_log_2026-10-19_14.txt")); got != "12\n13\n" {
		t.Fatalf("14h content = %q", got)
	}
	if l.Bucket() != "2026-10-19_14" {
		t.Fatalf("Bucket() = %s", l.Bucket())
	}
}

func TestRotatingLog_ReopensInAppendMode(t *testing.T) {
	dir := t.TempDir()
	at := time.Date(2026, 1, 2, 3, 0, 0, 0, time.Local)

	first := NewRotatingLog(dir)
	if err := first.Append(batchOf(1, 1), at); err != nil {
		t.Fatal(err)
	}
	first.Close()

	// simulated restart within the same bucket
	second := NewRotatingLog(dir)
	if err := second.Append(batchOf(1, 2), at); err != nil {
		t.Fatal(err)
	}
	second.Close()

	if got := readFile(t, filepath.Join(dir, "serial_log_2026-01-02_03.txt")); got != "1\n2\n" {
		t.Fatalf("content = %q", got)
	}
}

func TestRotatingLog_OpenFailureLeavesNoFile(t *testing.T) {
	base := t.TempDir()
	blocker := filepath.Join(base, "not-a-dir")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	l := NewRotatingLog(blocker)
	if err := l.Append(batchOf(1, 1), time.Now()); err == nil {
		t.Fatal("expected error when log dir is a file")
	}
	if l.Current() != "" {
		t.Fatalf("Current() = %q after failed open", l.Current())
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close() after failure: %v", err)
	}
}

func TestExportFile_LazyOpenAndReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export", DefaultExportFileName)
	e := NewExportFile(path)

	if e.IsOpen() {
		t.Fatal("export file should open lazily")
	}
	if err := e.Append(batchOf(1, 5, 6)); err != nil {
		t.Fatal(err)
	}
	if !e.IsOpen() {
		t.Fatal("export file should be open after Append")
	}
	if err := e.Close(); err != nil {
		t.Fatal(err)
	}
	if err := e.Append(batchOf(2, 7)); err != nil {
		t.Fatal(err)
	}
	e.Close()

	if got := readFile(t, path); got != "5\n6\n7\n" {
		t.Fatalf("export content = %q", got)
	}
}

func TestListLogFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"serial_log_2026-10-19_14.txt",
		"serial_log_2026-10-18_23.txt",
		"serial_log_garbage.txt",
		"export_data.txt",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("1\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	files, err := ListLogFiles(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 2 {
		t.Fatalf("got %d files, want 2: %+v", len(files), files)
	}
	if files[0].Bucket != "2026-10-18_23" || files[1].Bucket != "2026-10-19_14" {
		t.Fatalf("unexpected order: %+v", files)
	}
	if files[0].Size != 2 {
		t.Fatalf("size = %d", files[0].Size)
	}
}
