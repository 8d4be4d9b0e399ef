package pipeline

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"flatsheet/internal"
	"flatsheet/internal/config"
)

func TestReadWorkbookByName(t *testing.T) {
	blob := mkXLSX(t, ownerSheet(101), areaSheet(), apartmentSheet())

	set, err := ReadWorkbook(bytes.NewReader(blob), config.ResolveAuto)
	require.NoError(t, err)

	area := set[internal.SheetArea]
	require.NotNil(t, area)
	assert.Equal(t, "Area", area.Name)
	assert.Equal(t, []string{"Area Name", "TYPE"}, area.Columns)
	assert.Len(t, area.Rows, 3)

	apartments := set[internal.SheetApartment]
	assert.Equal(t, []string{"A", "1", "101,102", "201,202"}, apartments.Rows[0])
	assert.Equal(t, "FlatOwner", set[internal.SheetFlatOwner].Name)
}

func TestReadWorkbookByPosition(t *testing.T) {
	area := areaSheet()
	area.name = "Areas 2026"
	apartments := apartmentSheet()
	apartments.name = "Flats"
	owners := ownerSheet(101)
	owners.name = "Residents"

	blob := mkXLSX(t, area, apartments, owners)

	set, err := ReadWorkbook(bytes.NewReader(blob), config.ResolveAuto)
	require.NoError(t, err)
	assert.Equal(t, "Areas 2026", set[internal.SheetArea].Name)
	assert.Equal(t, "Residents", set[internal.SheetFlatOwner].Name)

	_, err = ReadWorkbook(bytes.NewReader(blob), config.ResolveByName)
	var schemaErr *internal.SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, internal.SheetArea, schemaErr.Sheet)
}

func TestReadWorkbookForcedPositionIgnoresNames(t *testing.T) {
	blob := mkXLSX(t, ownerSheet(101), areaSheet(), apartmentSheet())

	set, err := ReadWorkbook(bytes.NewReader(blob), config.ResolvePosition)
	require.NoError(t, err)
	assert.Equal(t, "FlatOwner", set[internal.SheetArea].Name)
}

func TestReadWorkbookTooFewSheets(t *testing.T) {
	blob := mkXLSX(t, areaSheet(), apartmentSheet())

	_, err := ReadWorkbook(bytes.NewReader(blob), config.ResolveAuto)
	var schemaErr *internal.SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, internal.SheetFlatOwner, schemaErr.Sheet)
}

func TestReadWorkbookEmptySheet(t *testing.T) {
	blob := mkXLSX(t, areaSheet(), apartmentSheet(), testSheet{name: "FlatOwner"})

	_, err := ReadWorkbook(bytes.NewReader(blob), config.ResolveAuto)
	var schemaErr *internal.SchemaError
	require.True(t, errors.As(err, &schemaErr))
}

func TestReadWorkbookPadsShortRows(t *testing.T) {
	area := testSheet{name: "Area", rows: [][]any{
		{"Area", "Type", "Cluster"},
		{"A", "BLOCK"},
	}}
	blob := mkXLSX(t, area, apartmentSheet(), ownerSheet())

	set, err := ReadWorkbook(bytes.NewReader(blob), config.ResolveAuto)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "BLOCK", ""}, set[internal.SheetArea].Rows[0])
}

func TestLoadWorkbookMissingFile(t *testing.T) {
	_, err := LoadWorkbook(filepath.Join(t.TempDir(), "absent.xlsx"), config.ResolveAuto)
	require.True(t, errors.Is(err, internal.ErrSourceNotFound))
}

// thousandsWorkbook stores flat 1001 as a number with the "#,##0" format in
// both the Apartment and FlatOwner sheets.
func thousandsWorkbook(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	require.NoError(t, f.SetSheetName(f.GetSheetName(0), "Area"))
	require.NoError(t, f.SetSheetRow("Area", "A1", &[]any{"Area", "Type"}))
	require.NoError(t, f.SetSheetRow("Area", "A2", &[]any{"A", "BLOCK"}))

	_, err := f.NewSheet("Apartment")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("Apartment", "A1", &[]any{"Block", "Floor", "Flat", "Intercom"}))
	require.NoError(t, f.SetSheetRow("Apartment", "A2", &[]any{"A", 10, 1001, 5001}))

	_, err = f.NewSheet("FlatOwner")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("FlatOwner", "A1", &[]any{"Block", "Flat", "Owner Name"}))
	require.NoError(t, f.SetSheetRow("FlatOwner", "A2", &[]any{"A", 1001, "Resident"}))

	thousands, err := f.NewStyle(&excelize.Style{NumFmt: 3})
	require.NoError(t, err)
	require.NoError(t, f.SetCellStyle("Apartment", "C2", "D2", thousands))
	require.NoError(t, f.SetCellStyle("FlatOwner", "B2", "B2", thousands))

	buf := bytes.NewBuffer(nil)
	_, err = f.WriteTo(buf)
	require.NoError(t, err)
	return buf.Bytes()
}

func TestReadWorkbookIgnoresNumberFormats(t *testing.T) {
	set, err := ReadWorkbook(bytes.NewReader(thousandsWorkbook(t)), config.ResolveAuto)
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "10", "1001", "5001"}, set[internal.SheetApartment].Rows[0])
	assert.Equal(t, "1001", set[internal.SheetFlatOwner].Rows[0][1])

	report, err := Validate(set)
	require.NoError(t, err)
	assert.Empty(t, report.Errors)
}
