package tabular

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestRead_CSV(t *testing.T) {
	in := "\xEF\xBB\xBFsentiment_label, text\nPositif,motor bagus\n\nNegatif,\"rangka, kuning\"\nPositif\n"

	tbl, err := Read("data.CSV", strings.NewReader(in))
	require.NoError(t, err)
	require.Equal(t, []string{"sentiment_label", "text"}, tbl.Header)
	require.Equal(t, 3, tbl.Len())

	texts, ok := tbl.Column("text")
	require.True(t, ok)
	require.Equal(t, []string{"motor bagus", "rangka, kuning", ""}, texts)

	_, ok = tbl.Column("missing")
	require.False(t, ok)

	require.Equal(t, 1, tbl.Head(1).Len())
	require.Equal(t, 3, tbl.Head(0).Len())
}

func TestRead_XLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]string{"text", "sentiment_label"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]string{"honda mantap", "Positif"}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]string{"kecewa", "Negatif"}))

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	require.NoError(t, f.Close())

	tbl, err := Read("upload.xlsx", &buf)
	require.NoError(t, err)
	require.Equal(t, 2, tbl.Len())

	labels, ok := tbl.Column("sentiment_label")
	require.True(t, ok)
	require.Equal(t, []string{"Positif", "Negatif"}, labels)
}

func TestRead_Errors(t *testing.T) {
	_, err := Read("data.json", strings.NewReader("{}"))
	require.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = Read("empty.csv", strings.NewReader(""))
	require.ErrorIs(t, err, ErrNoHeader)

	_, err = Read("broken.xlsx", strings.NewReader("not a zip"))
	require.Error(t, err)
}
