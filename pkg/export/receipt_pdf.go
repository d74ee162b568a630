package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// Receipt describes a verified payment for PDF rendering.
type Receipt struct {
	Number      string
	Issuer      string
	StudentName string
	StudentNo   string
	Description string
	Currency    string
	Amount      string
	Paid        string
	Status      string
	IssuedAt    string
}

// ReceiptRenderer produces payment receipt PDFs.
type ReceiptRenderer struct{}

// NewReceiptRenderer constructs a receipt renderer.
func NewReceiptRenderer() *ReceiptRenderer {
	return &ReceiptRenderer{}
}

// Render creates a single-page receipt document.
func (r *ReceiptRenderer) Render(receipt Receipt) ([]byte, error) {
	if receipt.Number == "" {
		return nil, fmt.Errorf("receipt number required")
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 20, 15)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, strings.ToUpper(receipt.Issuer), "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(0, 8, "PAYMENT RECEIPT", "", 1, "C", false, 0, "")
	pdf.Ln(6)

	rows := [][2]string{
		{"Receipt No", receipt.Number},
		{"Date", receipt.IssuedAt},
		{"Student", receipt.StudentName},
		{"Student No", receipt.StudentNo},
		{"Description", receipt.Description},
		{"Invoice Amount", receipt.Currency + " " + receipt.Amount},
		{"Amount Paid", receipt.Currency + " " + receipt.Paid},
		{"Status", receipt.Status},
	}

	pdf.SetFont("Arial", "", 10)
	for _, row := range rows {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(50, 8, row[0], "1", 0, "", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(130, 8, row[1], "1", 1, "", false, 0, "")
	}

	pdf.Ln(10)
	pdf.SetFont("Arial", "I", 9)
	pdf.CellFormat(0, 6, "This receipt is generated electronically and is valid without a signature.", "", 1, "L", false, 0, "")

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render receipt pdf: %w", err)
	}
	return buf.Bytes(), nil
}
