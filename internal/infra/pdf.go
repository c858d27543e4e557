package infra

// pdf.go — audit report generation using go-pdf/fpdf.
// One A4 document per confirmation attempt:
//   - Header with transfer metadata (id, date, executor, destination)
//   - Summary counters (items, successes, failures, quantities)
//   - Origin before/after table
//   - Newly created destination products
//   - Updated destination products before/after
// The caller stores the bytes base64-encoded on the history record.

import (
	"bytes"
	"fmt"
	"time"

	"stocklink/internal/model"

	"github.com/go-pdf/fpdf"
)

// TransferReportData feeds the audit report. Snapshot arrays come straight
// from the history recorder.
type TransferReportData struct {
	TransferID       string
	ExecutedBy       string
	ExecutedAt       time.Time
	DestinationName  string
	TotalItems       int
	SuccessfulItems  int
	FailedItems      int
	TotalRequested   int
	TotalTransferred int

	OriginBefore      []model.ProductSnapshot
	OriginAfter       []model.ProductSnapshot
	DestinationBefore []model.ProductSnapshot
	DestinationAfter  []model.ProductSnapshot
	NewProducts       []model.ProductSnapshot
}

// GenerateTransferReportPDF renders the audit report and returns the PDF
// bytes plus the suggested filename.
func GenerateTransferReportPDF(data TransferReportData) ([]byte, string, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 30

	// ── Header ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(contentW, 9, "INVENTORY TRANSFER REPORT", "", 1, "C", false, 0, "")
	pdf.Ln(3)

	pdf.SetFont("Helvetica", "", 10)
	meta := []string{
		fmt.Sprintf("Transfer ID: %s", orNA(data.TransferID)),
		fmt.Sprintf("Date: %s", data.ExecutedAt.Format("2006-01-02 15:04:05")),
		fmt.Sprintf("Executed by: %s", data.ExecutedBy),
		fmt.Sprintf("Destination: %s", data.DestinationName),
	}
	for _, line := range meta {
		pdf.CellFormat(contentW, 6, line, "", 1, "L", false, 0, "")
	}
	pdf.Ln(3)

	// ── Summary ──────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(contentW, 7, "SUMMARY", "B", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	summary := []string{
		fmt.Sprintf("Items: %d total, %d transferred, %d failed",
			data.TotalItems, data.SuccessfulItems, data.FailedItems),
		fmt.Sprintf("Quantity: %d requested, %d transferred",
			data.TotalRequested, data.TotalTransferred),
		fmt.Sprintf("New products created at destination: %d", len(data.NewProducts)),
	}
	for _, line := range summary {
		pdf.CellFormat(contentW, 6, line, "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	// ── Origin changes ───────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(contentW, 7, "ORIGIN - PRINCIPAL WAREHOUSE", "B", 1, "L", false, 0, "")
	writeBeforeAfterTable(pdf, contentW, data.OriginBefore, data.OriginAfter)
	pdf.Ln(4)

	// ── New destination products ─────────────────────────────────────────────
	if len(data.NewProducts) > 0 {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(contentW, 7, "DESTINATION - NEW PRODUCTS CREATED", "B", 1, "L", false, 0, "")
		writeSnapshotTable(pdf, contentW, data.NewProducts)
		pdf.Ln(4)
	}

	// ── Updated destination products ─────────────────────────────────────────
	if len(data.DestinationBefore) > 0 {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(contentW, 7, "DESTINATION - UPDATED PRODUCTS", "B", 1, "L", false, 0, "")
		writeBeforeAfterTable(pdf, contentW, data.DestinationBefore, data.DestinationAfter)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", fmt.Errorf("pdf: render transfer report: %w", err)
	}

	filename := fmt.Sprintf("transfer_report_%s.pdf", data.ExecutedAt.Format("20060102_150405"))
	return buf.Bytes(), filename, nil
}

// writeBeforeAfterTable renders a barcode/name/before/after/delta table,
// matching before and after snapshots by product id.
func writeBeforeAfterTable(pdf *fpdf.Fpdf, contentW float64, before, after []model.ProductSnapshot) {
	afterByID := make(map[int]model.ProductSnapshot, len(after))
	for _, s := range after {
		afterByID[s.ProductID] = s
	}

	col := []float64{contentW * 0.18, contentW * 0.40, contentW * 0.14, contentW * 0.14, contentW * 0.14}

	pdf.SetFont("Helvetica", "B", 9)
	headers := []string{"Barcode", "Product", "Before", "After", "Change"}
	for i, h := range headers {
		align := "L"
		if i >= 2 {
			align = "R"
		}
		pdf.CellFormat(col[i], 6, h, "B", 0, align, false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	for _, b := range before {
		a, ok := afterByID[b.ProductID]
		afterQty := b.Quantity
		if ok {
			afterQty = a.Quantity
		}
		pdf.CellFormat(col[0], 6, b.Barcode, "", 0, "L", false, 0, "")
		pdf.CellFormat(col[1], 6, truncate(b.Name, 38), "", 0, "L", false, 0, "")
		pdf.CellFormat(col[2], 6, fmt.Sprintf("%.0f", b.Quantity), "", 0, "R", false, 0, "")
		pdf.CellFormat(col[3], 6, fmt.Sprintf("%.0f", afterQty), "", 0, "R", false, 0, "")
		pdf.CellFormat(col[4], 6, fmt.Sprintf("%+.0f", afterQty-b.Quantity), "", 1, "R", false, 0, "")
	}
}

// writeSnapshotTable renders a flat snapshot list with prices.
func writeSnapshotTable(pdf *fpdf.Fpdf, contentW float64, snapshots []model.ProductSnapshot) {
	col := []float64{contentW * 0.18, contentW * 0.40, contentW * 0.14, contentW * 0.14, contentW * 0.14}

	pdf.SetFont("Helvetica", "B", 9)
	headers := []string{"Barcode", "Product", "Qty", "Cost", "Price"}
	for i, h := range headers {
		align := "L"
		if i >= 2 {
			align = "R"
		}
		pdf.CellFormat(col[i], 6, h, "B", 0, align, false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	for _, s := range snapshots {
		pdf.CellFormat(col[0], 6, s.Barcode, "", 0, "L", false, 0, "")
		pdf.CellFormat(col[1], 6, truncate(s.Name, 38), "", 0, "L", false, 0, "")
		pdf.CellFormat(col[2], 6, fmt.Sprintf("%.0f", s.Quantity), "", 0, "R", false, 0, "")
		pdf.CellFormat(col[3], 6, fmt.Sprintf("$%.2f", s.CostPrice), "", 0, "R", false, 0, "")
		pdf.CellFormat(col[4], 6, fmt.Sprintf("$%.2f", s.SalePrice), "", 1, "R", false, 0, "")
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
