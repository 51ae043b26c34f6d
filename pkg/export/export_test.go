package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter(false).Render(Dataset{
		Headers: []string{"id", "nama"},
		Rows: []map[string]string{
			{"id": "req-1", "nama": "Budi, S.Pd"},
			{"id": "req-2"},
		},
	})
	require.NoError(t, err)
	require.Equal(t, "id,nama\nreq-1,\"Budi, S.Pd\"\nreq-2,\n", string(out))
}

func TestCSVExporterBOMAndValidation(t *testing.T) {
	out, err := NewCSVExporter(true).Render(Dataset{Headers: []string{"id"}})
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(out, utf8BOM))

	_, err = NewCSVExporter(true).Render(Dataset{})
	require.Error(t, err)
}

func TestLetterRendererRender(t *testing.T) {
	pdf, err := NewLetterRenderer().Render(LetterData{
		VillageName:    "Desa Sukamaju",
		DistrictName:   "Kecamatan Sukamaju",
		RegencyName:    "Kabupaten Sukamaju",
		LetterTitle:    "Surat Keterangan Kelakuan Baik",
		DocumentNumber: "470/12/2024",
		FullName:       "Siti Aminah",
		NIK:            "1234567890123456",
		Purpose:        "Melamar pekerjaan",
		ProofCode:      "BKT-20261014-ABCDEF12",
		IssuedAt:       time.Date(2026, time.October, 14, 9, 0, 0, 0, time.UTC),
		SignerTitle:    "Kepala Desa",
	})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(pdf), "%PDF"))
}

func TestLetterRendererRequiresTitleAndName(t *testing.T) {
	_, err := NewLetterRenderer().Render(LetterData{FullName: "Siti"})
	require.Error(t, err)
	_, err = NewLetterRenderer().Render(LetterData{LetterTitle: "Surat"})
	require.Error(t, err)
}

func TestFormatIndonesianDate(t *testing.T) {
	require.Equal(t, "14 Oktober 2026", FormatIndonesianDate(time.Date(2026, time.October, 14, 0, 0, 0, 0, time.UTC)))
	require.Equal(t, "1 Januari 2025", FormatIndonesianDate(time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)))
}
