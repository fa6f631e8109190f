package report

import (
	"bytes"
	"testing"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/webpscan/internal/interfaces"
)

func TestRenderProducesNonEmptyPDF(t *testing.T) {
	r := New(arbor.NewLogger())
	data := interfaces.ReportData{
		ScanID:                "scan-1",
		URL:                   "https://example.com",
		PagesScanned:          10,
		PagesDiscovered:       12,
		NonWebPImages:         3,
		EstimatedSavingsBytes: 1536000,
		EstimatedSavingsPct:   62.5,
		GeneratedAt:           "2026-07-30T00:00:00Z",
		TopImages: []interfaces.ReportImageRow{
			{ImageURL: "https://example.com/hero.png", MimeType: "image/png", SizeBytes: 900000, PotentialSavingsBytes: 600000},
			{ImageURL: "https://example.com/thumb.jpg", MimeType: "image/jpeg", SizeBytes: 50000, PotentialSavingsBytes: 35000},
		},
	}

	out, err := r.Render(data)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(out) == 0 {
		t.Fatal("expected non-empty PDF bytes")
	}
	if !bytes.HasPrefix(out, []byte("%PDF")) {
		t.Fatalf("expected output to start with a PDF header, got: %q", out[:minInt(10, len(out))])
	}
}

func TestRenderHandlesNoImages(t *testing.T) {
	r := New(arbor.NewLogger())
	out, err := r.Render(interfaces.ReportData{ScanID: "scan-2", URL: "https://example.com"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(out) == 0 {
		t.Fatal("expected non-empty PDF bytes even with no image rows")
	}
}

func TestFormatBytesUsesBinaryUnits(t *testing.T) {
	cases := map[int64]string{
		500:     "500 B",
		2048:    "2.0 KiB",
		3145728: "3.0 MiB",
	}
	for input, want := range cases {
		if got := formatBytes(input); got != want {
			t.Errorf("formatBytes(%d) = %q, want %q", input, got, want)
		}
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
