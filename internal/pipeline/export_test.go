package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"flatsheet/internal"
)

func TestApplySentinels(t *testing.T) {
	set := internal.SheetSet{
		internal.SheetArea: {
			Identity: internal.SheetArea,
			Columns:  []string{"Area", "Type", "Cluster"},
			Rows:     [][]string{{"A", "BLOCK", "North"}, {"B", "BLOCK"}},
		},
		internal.SheetFlatOwner: {
			Identity: internal.SheetFlatOwner,
			Columns:  []string{"Block", "Flat"},
			Rows:     [][]string{{"A", "101"}},
		},
	}

	ApplySentinels(set, true)

	area := set[internal.SheetArea]
	assert.Equal(t, []string{"Area", "Type", "Cluster"}, area.Columns)
	assert.Equal(t, [][]string{{"A", "BLOCK", "NULL"}, {"B", "BLOCK", "NULL"}}, area.Rows)

	owners := set[internal.SheetFlatOwner]
	assert.Equal(t, []string{"Block", "Flat", "Accomodation Type", "BHK"}, owners.Columns)
	assert.Equal(t, [][]string{{"A", "101", "VACANT", "NA"}}, owners.Rows)
}

func TestApplySentinelsFillsDuplicateColumns(t *testing.T) {
	owners := &internal.Sheet{
		Identity: internal.SheetFlatOwner,
		Columns:  []string{"Block", "Flat", "BHK", "BHK"},
		Rows:     [][]string{{"A", "101", "2", "3"}},
	}

	ApplySentinels(internal.SheetSet{internal.SheetFlatOwner: owners}, true)

	assert.Equal(t, []string{"Block", "Flat", "BHK", "BHK", "Accomodation Type"}, owners.Columns)
	assert.Equal(t, [][]string{{"A", "101", "NA", "NA", "VACANT"}}, owners.Rows)
}

func TestExportSheetsOrderAndNames(t *testing.T) {
	dir := t.TempDir()
	set := internal.SheetSet{}
	for _, id := range internal.SheetIdentities {
		set[id] = &internal.Sheet{Identity: id, Columns: []string{"Block", "Flat"}, Rows: [][]string{{"A", "1,2"}}}
	}

	files, err := ExportSheets(set, "greenwood", dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"greenwood - Area.csv", "greenwood - Apartment.csv", "greenwood - FlatOwner.csv"}, files)

	records := readCSV(t, filepath.Join(dir, "greenwood - Apartment.csv"))
	assert.Equal(t, [][]string{{"Block", "Flat"}, {"A", "1,2"}}, records)
}

func TestExportSheetsLeavesNothingOnFailure(t *testing.T) {
	dir := t.TempDir()
	set := internal.SheetSet{}
	for _, id := range internal.SheetIdentities {
		set[id] = &internal.Sheet{Identity: id, Columns: []string{"Block"}, Rows: [][]string{{"A"}}}
	}
	// A directory in place of the last file makes its rename fail.
	require.NoError(t, os.Mkdir(filepath.Join(dir, "greenwood - FlatOwner.csv"), 0o755))

	files, err := ExportSheets(set, "greenwood", dir)
	require.Error(t, err)
	assert.Nil(t, files)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "greenwood - FlatOwner.csv", entries[0].Name())
}

func TestExportErrorsToXLSX(t *testing.T) {
	out := filepath.Join(t.TempDir(), "reports", "errors.xlsx")
	errs := []internal.ValidationError{
		{Type: internal.FlatOwnerError, Message: "Flat not found for block - A and flat - 101.", Row: 2},
	}
	require.NoError(t, ExportErrorsToXLSX(errs, out))

	f, err := excelize.OpenFile(out)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(f.GetSheetName(0))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"#", "type", "message", "row"}, rows[0])
	assert.Equal(t, []string{"1", "FlatOwnerError", "Flat not found for block - A and flat - 101.", "2"}, rows[1])
}
