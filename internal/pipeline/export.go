package pipeline

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"flatsheet/internal"
)

const (
	ClusterSentinel       = "NULL"
	AccommodationSentinel = "VACANT"
	BHKSentinel           = "NA"
)

// ApplySentinels fills the placeholder columns written on export. BHK is only
// filled when fillBHK is set.
func ApplySentinels(set internal.SheetSet, fillBHK bool) {
	if area := set[internal.SheetArea]; area != nil {
		area.SetColumn("Cluster", ClusterSentinel)
	}
	if owners := set[internal.SheetFlatOwner]; owners != nil {
		owners.SetColumn("Accomodation Type", AccommodationSentinel)
		if fillBHK {
			owners.SetColumn("BHK", BHKSentinel)
		}
	}
}

func OutputFileName(identifier string, id internal.SheetIdentity) string {
	return fmt.Sprintf("%s - %s.csv", identifier, id)
}

// ExportSheets writes one CSV per sheet into dir, in workbook order, and
// returns the file names written. Either all three files appear or none: they
// are written under temporary names first and renamed at the end.
func ExportSheets(set internal.SheetSet, identifier, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(internal.SheetIdentities))
	temps := make([]string, 0, len(internal.SheetIdentities))
	for _, id := range internal.SheetIdentities {
		sheet := set[id]
		if sheet == nil {
			removeAll(temps)
			return nil, &internal.SchemaError{Sheet: id, Reason: "sheet not loaded"}
		}
		name := OutputFileName(identifier, id)
		tmp := filepath.Join(dir, "."+name+".tmp")
		temps = append(temps, tmp)
		if err := ExportSheetToCSV(sheet, tmp); err != nil {
			removeAll(temps)
			return nil, fmt.Errorf("export %s: %w", name, err)
		}
		names = append(names, name)
	}

	for i, name := range names {
		if err := os.Rename(temps[i], filepath.Join(dir, name)); err != nil {
			removeAll(temps[i:])
			for _, done := range names[:i] {
				_ = os.Remove(filepath.Join(dir, done))
			}
			return nil, fmt.Errorf("export %s: %w", name, err)
		}
	}
	return names, nil
}

func removeAll(paths []string) {
	for _, p := range paths {
		_ = os.Remove(p)
	}
}

func ExportSheetToCSV(sheet *internal.Sheet, outputPath string) error {
	f, err := os.Create(outputPath)
	if err != nil {
		return err
	}

	w := csv.NewWriter(f)
	if err := w.Write(sheet.Columns); err != nil {
		_ = f.Close()
		return err
	}
	for _, row := range sheet.Rows {
		record := make([]string, len(sheet.Columns))
		copy(record, row)
		if err := w.Write(record); err != nil {
			_ = f.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// ExportErrorsToXLSX writes validation errors as a one-sheet workbook, one
// error per row.
func ExportErrorsToXLSX(errs []internal.ValidationError, outputPath string) error {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	headers := []string{"#", "type", "message", "row"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, e := range errs {
		r := i + 2
		set := func(col int, value any) {
			cell, _ := excelize.CoordinatesToCellName(col, r)
			_ = f.SetCellValue(sheet, cell, value)
		}

		set(1, i+1)
		set(2, string(e.Type))
		set(3, e.Message)
		set(4, e.Row)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}
