package pipeline

import (
	"fmt"
	"log/slog"
	"strings"

	"flatsheet/internal"
	"flatsheet/internal/catalog"
	"flatsheet/internal/util"
)

type Report struct {
	Errors   []internal.ValidationError
	Warnings []internal.Warning
}

func (r Report) Failed() bool {
	return len(r.Errors) > 0
}

// Validate cross-checks the normalized sheets. Errors are collected in row
// order, then flat order within a row, and never short-circuit. Apartment rows
// whose block is not a BLOCK area are skipped with a warning.
func Validate(set internal.SheetSet) (Report, error) {
	for _, id := range internal.SheetIdentities {
		if set[id] == nil {
			return Report{}, &internal.SchemaError{Sheet: id, Reason: "sheet not loaded"}
		}
	}

	apartments := set[internal.SheetApartment]
	cols, err := internal.RequireColumns(apartments, "Block", "Flat", "Intercom")
	if err != nil {
		return Report{}, err
	}
	idx, err := catalog.BuildIndex(set[internal.SheetArea], set[internal.SheetFlatOwner])
	if err != nil {
		return Report{}, err
	}
	blockCol, flatCol, intercomCol := cols[0], cols[1], cols[2]

	var report Report
	for r := range apartments.Rows {
		rowNo := r + 2
		block := apartments.Value(r, blockCol)
		if !idx.IsBlock(block) {
			if strings.TrimSpace(block) != "" {
				w := internal.Warning{
					Kind:    internal.UnknownBlockWarning,
					Message: fmt.Sprintf("Block %s at row %d is not a BLOCK area, row skipped.", block, rowNo),
					Row:     rowNo,
				}
				slog.Warn(w.Message, "kind", w.Kind)
				report.Warnings = append(report.Warnings, w)
			}
			continue
		}

		flats := util.SplitList(apartments.Value(r, flatCol))
		intercoms := util.SplitList(apartments.Value(r, intercomCol))
		if len(flats) != len(intercoms) {
			report.Errors = append(report.Errors, internal.ValidationError{
				Type:    internal.ApartmentSheetError,
				Message: fmt.Sprintf("Flat - Intercom length does not match at row %d.", rowNo),
				Row:     rowNo,
			})
		}

		for _, flat := range flats {
			n, ok := util.ParseFlatNo(flat)
			if !ok {
				continue
			}
			if !idx.HasResident(block, n) {
				report.Errors = append(report.Errors, internal.ValidationError{
					Type:    internal.FlatOwnerError,
					Message: fmt.Sprintf("Flat not found for block - %s and flat - %s.", block, flat),
					Row:     rowNo,
				})
			}
		}
	}

	return report, nil
}
