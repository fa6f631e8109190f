package webp

import (
	"bytes"
	"context"
	"testing"

	"github.com/ternarybob/arbor"
)

func TestTranscodeReturnsSourceUnchanged(t *testing.T) {
	tr := New(arbor.NewLogger())
	src := []byte("not-really-a-png")

	out, err := tr.Transcode(context.Background(), src, "image/png")
	if err != nil {
		t.Fatalf("Transcode: %v", err)
	}
	if !bytes.Equal(out, src) {
		t.Fatal("expected passthrough transcoder to return source bytes unchanged")
	}
}

func TestTranscodeRejectsEmptySource(t *testing.T) {
	tr := New(arbor.NewLogger())
	if _, err := tr.Transcode(context.Background(), nil, "image/png"); err == nil {
		t.Fatal("expected an error for an empty source image")
	}
}
