package report

import (
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"
)

// Row is one aggregated product line: quantity and revenue summed over
// the report window.
type Row struct {
	Code     string  `json:"code"`
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Revenue  float64 `json:"revenue"`
}

// Sink renders a titled report from aggregated rows.
type Sink interface {
	Render(title string, rows []Row, grandTotal float64, w io.Writer) error
}

// PDFSink renders reports as PDF documents.
type PDFSink struct{}

// NewPDFSink creates a PDF report sink
func NewPDFSink() *PDFSink {
	return &PDFSink{}
}

// Render writes the report document to w.
func (s *PDFSink) Render(title string, rows []Row, grandTotal float64, w io.Writer) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 20)
	pdf.CellFormat(0, 12, title, "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 11)
	pdf.SetFillColor(230, 230, 230)
	pdf.CellFormat(35, 8, "Code", "1", 0, "L", true, 0, "")
	pdf.CellFormat(75, 8, "Product", "1", 0, "L", true, 0, "")
	pdf.CellFormat(30, 8, "Qty Sold", "1", 0, "R", true, 0, "")
	pdf.CellFormat(40, 8, "Revenue", "1", 1, "R", true, 0, "")

	pdf.SetFont("Helvetica", "", 11)
	for _, row := range rows {
		pdf.CellFormat(35, 8, row.Code, "1", 0, "L", false, 0, "")
		pdf.CellFormat(75, 8, row.Name, "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 8, fmt.Sprintf("%d", row.Quantity), "1", 0, "R", false, 0, "")
		pdf.CellFormat(40, 8, fmt.Sprintf("%.2f", row.Revenue), "1", 1, "R", false, 0, "")
	}

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 10, fmt.Sprintf("TOTAL REVENUE: %.2f", grandTotal), "", 1, "L", false, 0, "")

	return pdf.Output(w)
}
