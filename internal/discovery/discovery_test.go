package discovery

import (
	"os"
	"path/filepath"
	"testing"

	rqerr "github.com/jdhalbert/requant/internal/errors"
)

func touch(t *testing.T, dir, name string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestFindVideoFilesSortsAndFilters(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "Zeta.mkv")
	touch(t, dir, "alpha.mp4")
	touch(t, dir, "notes.txt")
	touch(t, dir, ".hidden.mkv")
	if err := os.Mkdir(filepath.Join(dir, "subdir"), 0755); err != nil {
		t.Fatal(err)
	}

	files, err := FindVideoFiles(dir)
	if err != nil {
		t.Fatal(err)
	}

	if len(files) != 2 {
		t.Fatalf("found %d files, want 2: %v", len(files), files)
	}
	if filepath.Base(files[0]) != "alpha.mp4" || filepath.Base(files[1]) != "Zeta.mkv" {
		t.Errorf("files not sorted case-insensitively: %v", files)
	}
}

func TestFindVideoFilesEmptyDirectory(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "readme.md")

	_, err := FindVideoFiles(dir)
	if err == nil {
		t.Fatal("expected an error for a directory without video files")
	}
	if !rqerr.IsKind(err, rqerr.KindNoFilesFound) {
		t.Errorf("error kind = %v, want no-files-found", err)
	}
}

func TestFindVideoFilesMissingDirectory(t *testing.T) {
	_, err := FindVideoFiles(filepath.Join(t.TempDir(), "missing"))
	if err == nil {
		t.Fatal("expected an error for a missing directory")
	}
	if !rqerr.IsKind(err, rqerr.KindPath) {
		t.Errorf("error kind = %v, want path error", err)
	}
}

func TestFindVideoFilesWithLoggingCountsSkipped(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "movie.mkv")
	touch(t, dir, "cover.jpg")
	touch(t, dir, "info.nfo")

	result, err := FindVideoFilesWithLogging(dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Files) != 1 {
		t.Errorf("found %d files, want 1", len(result.Files))
	}
	if result.SkippedCount != 2 {
		t.Errorf("SkippedCount = %d, want 2", result.SkippedCount)
	}
}
