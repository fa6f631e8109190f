package report

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/webpscan/internal/interfaces"
)

// Renderer builds a one-page PDF summary of a completed scan: a totals
// block followed by a table of the images with the largest potential
// savings.
type Renderer struct {
	logger arbor.ILogger
}

var _ interfaces.ReportRenderer = (*Renderer)(nil)

// New builds a Renderer.
func New(logger arbor.ILogger) *Renderer {
	return &Renderer{logger: logger}
}

const (
	fontFamily  = "Arial"
	bodySize    = 9.0
	headingSize = 14.0
)

func (r *Renderer) Render(scan interfaces.ReportData) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(12, 12, 12)
	pdf.SetAutoPageBreak(true, 12)
	pdf.AddPage()

	pdf.SetFont(fontFamily, "B", headingSize)
	pdf.CellFormat(0, 10, "WebP Scan Report", "", 1, "L", false, 0, "")

	pdf.SetFont(fontFamily, "", bodySize)
	pdf.CellFormat(0, 6, fmt.Sprintf("Scan ID: %s", scan.ScanID), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("URL: %s", scan.URL), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Generated: %s", scan.GeneratedAt), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont(fontFamily, "B", 11)
	pdf.CellFormat(0, 7, "Summary", "", 1, "L", false, 0, "")
	pdf.SetFont(fontFamily, "", bodySize)
	pdf.CellFormat(0, 6, fmt.Sprintf("Pages scanned: %d of %d discovered", scan.PagesScanned, scan.PagesDiscovered), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Non-WebP images found: %d", scan.NonWebPImages), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Estimated savings: %s (%.1f%%)", formatBytes(scan.EstimatedSavingsBytes), scan.EstimatedSavingsPct), "", 1, "L", false, 0, "")
	pdf.Ln(6)

	if len(scan.TopImages) > 0 {
		r.renderImageTable(pdf, scan.TopImages)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		r.logger.Error().Err(err).Str("scan_id", scan.ScanID).Msg("failed to render scan report")
		return nil, fmt.Errorf("rendering report pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) renderImageTable(pdf *fpdf.Fpdf, images []interfaces.ReportImageRow) {
	pdf.SetFont(fontFamily, "B", 11)
	pdf.CellFormat(0, 7, "Largest Savings Opportunities", "", 1, "L", false, 0, "")

	colWidths := []float64{95, 30, 30, 30}
	pdf.SetFont(fontFamily, "B", 8)
	pdf.CellFormat(colWidths[0], 6, "Image URL", "B", 0, "L", false, 0, "")
	pdf.CellFormat(colWidths[1], 6, "Type", "B", 0, "L", false, 0, "")
	pdf.CellFormat(colWidths[2], 6, "Size", "B", 0, "R", false, 0, "")
	pdf.CellFormat(colWidths[3], 6, "Savings", "B", 1, "R", false, 0, "")

	pdf.SetFont(fontFamily, "", 8)
	for _, img := range images {
		pdf.CellFormat(colWidths[0], 6, truncate(img.ImageURL, 70), "", 0, "L", false, 0, "")
		pdf.CellFormat(colWidths[1], 6, img.MimeType, "", 0, "L", false, 0, "")
		pdf.CellFormat(colWidths[2], 6, formatBytes(img.SizeBytes), "", 0, "R", false, 0, "")
		pdf.CellFormat(colWidths[3], 6, formatBytes(img.PotentialSavingsBytes), "", 1, "R", false, 0, "")
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for n/div >= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
