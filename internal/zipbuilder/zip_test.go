package zipbuilder

import (
	"archive/zip"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/webpscan/internal/interfaces"
)

func TestBuildWritesAllImagesToArchive(t *testing.T) {
	dir := t.TempDir()
	b := New(dir, arbor.NewLogger())

	path, size, err := b.Build(context.Background(), "scan-1", []interfaces.ZipImageInput{
		{Filename: "hero.webp", Data: []byte("fake-webp-bytes-1")},
		{Filename: "thumb.webp", Data: []byte("fake-webp-bytes-2")},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if size == 0 {
		t.Fatal("expected non-zero archive size")
	}
	if path != filepath.Join(dir, "scan-1.zip") {
		t.Fatalf("unexpected archive path: %s", path)
	}

	r, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("opening archive: %v", err)
	}
	defer r.Close()

	if len(r.File) != 2 {
		t.Fatalf("expected 2 files in archive, got %d", len(r.File))
	}

	names := map[string]bool{}
	for _, f := range r.File {
		names[f.Name] = true
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("opening archived file %s: %v", f.Name, err)
		}
		data, _ := io.ReadAll(rc)
		rc.Close()
		if len(data) == 0 {
			t.Fatalf("expected non-empty content for %s", f.Name)
		}
	}
	if !names["hero.webp"] || !names["thumb.webp"] {
		t.Fatalf("expected both filenames present, got %v", names)
	}
}

func TestDeleteRemovesArchive(t *testing.T) {
	dir := t.TempDir()
	b := New(dir, arbor.NewLogger())

	path, _, err := b.Build(context.Background(), "scan-2", []interfaces.ZipImageInput{{Filename: "a.webp", Data: []byte("x")}})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if err := b.Delete(path); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("expected archive file to be removed")
	}
}

func TestDeleteOfMissingPathIsNotAnError(t *testing.T) {
	b := New(t.TempDir(), arbor.NewLogger())
	if err := b.Delete(filepath.Join(t.TempDir(), "missing.zip")); err != nil {
		t.Fatalf("expected no error deleting a missing archive, got %v", err)
	}
}
