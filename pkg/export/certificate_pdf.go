package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// CertificateData carries the fields printed on a completion certificate.
type CertificateData struct {
	MemberName       string
	SubjectTitle     string
	SubjectKind      string
	VerificationCode string
	IssuedAt         time.Time
}

// CertificateExporter renders completion certificates as PDF documents.
type CertificateExporter struct{}

// NewCertificateExporter constructs a certificate exporter.
func NewCertificateExporter() *CertificateExporter {
	return &CertificateExporter{}
}

// Render produces the certificate PDF bytes.
func (e *CertificateExporter) Render(data CertificateData) ([]byte, error) {
	if data.MemberName == "" || data.SubjectTitle == "" || data.VerificationCode == "" {
		return nil, fmt.Errorf("certificate requires member name, subject title and verification code")
	}

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(20, 25, 20)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 26)
	pdf.CellFormat(0, 16, "CERTIFICADO DE CONCLUSAO", "", 1, "C", false, 0, "")
	pdf.Ln(8)

	pdf.SetFont("Arial", "", 13)
	pdf.CellFormat(0, 8, "Certificamos que", "", 1, "C", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Arial", "B", 20)
	pdf.CellFormat(0, 12, data.MemberName, "", 1, "C", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Arial", "", 13)
	pdf.CellFormat(0, 8, fmt.Sprintf("concluiu com sucesso: %s (%s)", data.SubjectTitle, data.SubjectKind), "", 1, "C", false, 0, "")
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Emitido em %s", data.IssuedAt.Format("2006-01-02")), "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Codigo de verificacao: %s", data.VerificationCode), "", 1, "C", false, 0, "")

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render certificate pdf: %w", err)
	}
	return buf.Bytes(), nil
}
