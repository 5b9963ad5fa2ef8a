package categorizer

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleReport() Report {
	talents := []Talent{
		{Name: "山田花子", Age: "34", Gender: "女性", Type: "個人", AdNote: "飲料：あり A『茶』 B『水』", AgencyURL: "https://agency.example"},
		{Name: "ユニットB", Gender: "混成", Type: "グループ", NoNote: true},
	}
	return BuildRows(talents, testTable(), []string{"飲料・アルコール", "通信"})
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, sampleReport()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(ReportSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"タレント名", "年齢", "性別", "個人/グループ", "飲料・アルコール", "通信", "事務所URL"}, rows[0])
	assert.Equal(t, []string{"山田花子", "34", "女性", "個人", "A『茶』\nB『水』", "", "https://agency.example"}, rows[1])
	assert.Equal(t, "ユニットB", rows[2][0])

	width, err := f.GetColWidth(ReportSheet, "G")
	require.NoError(t, err)
	assert.InDelta(t, columnWidth(len("https://agency.example")), width, 0.01)

	styleID, err := f.GetCellStyle(ReportSheet, "E2")
	require.NoError(t, err)
	style, err := f.GetStyle(styleID)
	require.NoError(t, err)
	require.NotNil(t, style.Alignment)
	assert.True(t, style.Alignment.WrapText)
	assert.Equal(t, "top", style.Alignment.Vertical)
}

func TestColumnWidth(t *testing.T) {
	assert.InDelta(t, 14.4, columnWidth(10), 0.001)
	assert.Equal(t, float64(maxColumnWidth), columnWidth(1000))
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleReport()))
	out := buf.String()
	require.True(t, strings.HasPrefix(out, "\ufeff"))

	records, err := csv.NewReader(strings.NewReader(strings.TrimPrefix(out, "\ufeff"))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "A『茶』\nB『水』", records[1][4])
}

func TestSaveReport(t *testing.T) {
	dir := t.TempDir()
	report := sampleReport()

	xlsxPath := filepath.Join(dir, "out", "search_output.xlsx")
	require.NoError(t, SaveReport(xlsxPath, report))
	f, err := excelize.OpenFile(xlsxPath)
	require.NoError(t, err)
	f.Close()

	csvPath := filepath.Join(dir, "out", "report.csv")
	require.NoError(t, SaveReport(csvPath, report))
	data, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("\xef\xbb\xbf")))

	entries, err := os.ReadDir(filepath.Join(dir, "out"))
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}
