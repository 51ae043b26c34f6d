package export

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// LetterData is the flat record printed on a village service letter.
type LetterData struct {
	VillageName    string
	DistrictName   string
	RegencyName    string
	LetterTitle    string
	DocumentNumber string

	FullName         string
	NIK              string
	FamilyCardNumber string
	BirthPlace       string
	BirthDate        string
	Gender           string
	Religion         string
	Occupation       string
	MaritalStatus    string
	Address          string
	Subdistrict      string

	Purpose     string
	ProofCode   string
	IssuedAt    time.Time
	SignerName  string
	SignerTitle string
}

// LetterRenderer produces printable A4 letters.
type LetterRenderer struct{}

// NewLetterRenderer constructs a letter renderer.
func NewLetterRenderer() *LetterRenderer {
	return &LetterRenderer{}
}

// Render lays out the letterhead, applicant identity table, purpose paragraph and signature block.
func (r *LetterRenderer) Render(data LetterData) ([]byte, error) {
	if strings.TrimSpace(data.LetterTitle) == "" {
		return nil, fmt.Errorf("letter title is required")
	}
	if strings.TrimSpace(data.FullName) == "" {
		return nil, fmt.Errorf("applicant name is required")
	}
	issuedAt := data.IssuedAt
	if issuedAt.IsZero() {
		issuedAt = time.Now()
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(20, 15, 20)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 13)
	for _, line := range []string{
		"PEMERINTAH " + strings.ToUpper(data.RegencyName),
		strings.ToUpper(data.DistrictName),
		strings.ToUpper(data.VillageName),
	} {
		if strings.TrimSpace(line) == "" || strings.TrimSpace(line) == "PEMERINTAH" {
			continue
		}
		pdf.CellFormat(0, 7, tr(line), "", 1, "C", false, 0, "")
	}
	y := pdf.GetY() + 2
	pdf.SetLineWidth(0.8)
	pdf.Line(20, y, 190, y)
	pdf.Ln(8)

	pdf.SetFont("Arial", "BU", 12)
	pdf.CellFormat(0, 7, tr(strings.ToUpper(data.LetterTitle)), "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	number := data.DocumentNumber
	if number == "" {
		number = "-"
	}
	pdf.CellFormat(0, 6, tr("Nomor: "+number), "", 1, "C", false, 0, "")
	pdf.Ln(6)

	pdf.SetFont("Arial", "", 11)
	opening := fmt.Sprintf("Yang bertanda tangan di bawah ini, %s %s, menerangkan bahwa:", data.SignerTitle, data.VillageName)
	pdf.MultiCell(0, 6, tr(strings.Join(strings.Fields(opening), " ")), "", "J", false)
	pdf.Ln(3)

	birth := strings.Trim(strings.Join([]string{data.BirthPlace, data.BirthDate}, ", "), ", ")
	rows := [][2]string{
		{"Nama Lengkap", data.FullName},
		{"NIK", data.NIK},
		{"No. KK", data.FamilyCardNumber},
		{"Tempat/Tgl. Lahir", birth},
		{"Jenis Kelamin", data.Gender},
		{"Agama", data.Religion},
		{"Pekerjaan", data.Occupation},
		{"Status Perkawinan", data.MaritalStatus},
		{"Alamat", strings.Trim(strings.Join([]string{data.Address, data.Subdistrict}, ", "), ", ")},
	}
	for _, row := range rows {
		value := row[1]
		if strings.TrimSpace(value) == "" {
			value = "-"
		}
		pdf.CellFormat(10, 6, "", "", 0, "", false, 0, "")
		pdf.CellFormat(45, 6, tr(row[0]), "", 0, "", false, 0, "")
		pdf.CellFormat(5, 6, ":", "", 0, "", false, 0, "")
		pdf.MultiCell(0, 6, tr(value), "", "L", false)
	}
	pdf.Ln(3)

	if purpose := strings.TrimSpace(data.Purpose); purpose != "" {
		pdf.MultiCell(0, 6, tr("Surat keterangan ini dibuat untuk keperluan: "+purpose+"."), "", "J", false)
		pdf.Ln(2)
	}
	pdf.MultiCell(0, 6, tr("Demikian surat keterangan ini dibuat dengan sebenarnya untuk dapat dipergunakan sebagaimana mestinya."), "", "J", false)
	pdf.Ln(10)

	place := strings.TrimSpace(strings.TrimPrefix(data.VillageName, "Desa "))
	pdf.SetX(120)
	pdf.CellFormat(70, 6, tr(fmt.Sprintf("%s, %s", place, FormatIndonesianDate(issuedAt))), "", 1, "C", false, 0, "")
	pdf.SetX(120)
	pdf.CellFormat(70, 6, tr(data.SignerTitle), "", 1, "C", false, 0, "")
	pdf.Ln(20)
	pdf.SetX(120)
	pdf.SetFont("Arial", "BU", 11)
	signer := data.SignerName
	if signer == "" {
		signer = "(....................................)"
	}
	pdf.CellFormat(70, 6, tr(signer), "", 1, "C", false, 0, "")

	if data.ProofCode != "" {
		pdf.SetY(-25)
		pdf.SetFont("Arial", "I", 8)
		pdf.CellFormat(0, 5, tr("Kode bukti pengambilan: "+data.ProofCode), "", 1, "L", false, 0, "")
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render letter pdf: %w", err)
	}
	return buf.Bytes(), nil
}

var indonesianMonths = [...]string{
	"Januari", "Februari", "Maret", "April", "Mei", "Juni",
	"Juli", "Agustus", "September", "Oktober", "November", "Desember",
}

// FormatIndonesianDate renders t as "14 Oktober 2026".
func FormatIndonesianDate(t time.Time) string {
	return fmt.Sprintf("%d %s %d", t.Day(), indonesianMonths[t.Month()-1], t.Year())
}
