package pipeline

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type testSheet struct {
	name string
	rows [][]any
}

func mkXLSX(t *testing.T, sheets ...testSheet) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for i, s := range sheets {
		if i == 0 {
			require.NoError(t, f.SetSheetName(f.GetSheetName(0), s.name))
		} else {
			_, err := f.NewSheet(s.name)
			require.NoError(t, err)
		}
		for r, row := range s.rows {
			for c, v := range row {
				cell, _ := excelize.CoordinatesToCellName(c+1, r+1)
				require.NoError(t, f.SetCellValue(s.name, cell, v))
			}
		}
	}

	buf := bytes.NewBuffer(nil)
	_, err := f.WriteTo(buf)
	require.NoError(t, err)
	return buf.Bytes()
}

func writeXLSX(t *testing.T, path string, sheets ...testSheet) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, mkXLSX(t, sheets...), 0o644))
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func csvFiles(t *testing.T, dir string) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	require.NoError(t, err)
	return matches
}

func areaSheet() testSheet {
	return testSheet{name: "Area", rows: [][]any{
		{"Area Name", "TYPE"},
		{"A", "BLOCK"},
		{"B", "BLOCK"},
		{"Clubhouse", "AMENITY"},
	}}
}

func apartmentSheet() testSheet {
	return testSheet{name: "Apartment", rows: [][]any{
		{"Blok", "Floor", "Flat No", "Intercom"},
		{"A", 1, "101,102", "201,202"},
		{"B", 0, "G1", "301"},
		{"Clubhouse", 0, "1", "1,2"},
	}}
}

func ownerSheet(flats ...int) testSheet {
	rows := [][]any{{"BLOCK", "Flat", "BHK", "Owner Name"}}
	for _, flat := range flats {
		rows = append(rows, []any{"A", flat, 2, "Owner"})
	}
	return testSheet{name: "FlatOwner", rows: rows}
}
