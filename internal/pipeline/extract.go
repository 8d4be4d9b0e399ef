package pipeline

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/xuri/excelize/v2"

	"flatsheet/internal"
	"flatsheet/internal/config"
)

// LoadWorkbook reads the three sheets of the workbook at path. The file is
// read to completion and closed before returning.
func LoadWorkbook(path, strategy string) (internal.SheetSet, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", internal.ErrSourceNotFound, path)
		}
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	defer f.Close()

	return readSheets(f, strategy)
}

func ReadWorkbook(r io.Reader, strategy string) (internal.SheetSet, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	return readSheets(f, strategy)
}

func readSheets(f *excelize.File, strategy string) (internal.SheetSet, error) {
	names, err := resolveSheetNames(f.GetSheetList(), strategy)
	if err != nil {
		return nil, err
	}

	set := internal.SheetSet{}
	for _, id := range internal.SheetIdentities {
		rows, err := f.GetRows(names[id], excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("read rows from sheet %s: %w", names[id], err)
		}
		sheet, err := toSheet(id, names[id], rows)
		if err != nil {
			return nil, err
		}
		set[id] = sheet
	}
	return set, nil
}

// resolveSheetNames maps each identity onto a workbook sheet. With the auto
// strategy the fixed names win when all three exist (in any order), and the
// first three sheets are taken by position otherwise.
func resolveSheetNames(sheets []string, strategy string) (map[internal.SheetIdentity]string, error) {
	switch strategy {
	case config.ResolveByName:
		return resolveByName(sheets)
	case config.ResolvePosition:
		return resolveByPosition(sheets)
	case config.ResolveAuto, "":
		if byName, err := resolveByName(sheets); err == nil {
			return byName, nil
		}
		return resolveByPosition(sheets)
	default:
		return nil, fmt.Errorf("unknown sheet resolution strategy %q", strategy)
	}
}

func resolveByName(sheets []string) (map[internal.SheetIdentity]string, error) {
	out := map[internal.SheetIdentity]string{}
	for _, id := range internal.SheetIdentities {
		for _, name := range sheets {
			if strings.EqualFold(strings.TrimSpace(name), string(id)) {
				out[id] = name
				break
			}
		}
		if _, ok := out[id]; !ok {
			return nil, &internal.SchemaError{Sheet: id, Reason: "sheet not found in workbook"}
		}
	}
	return out, nil
}

func resolveByPosition(sheets []string) (map[internal.SheetIdentity]string, error) {
	out := map[internal.SheetIdentity]string{}
	for i, id := range internal.SheetIdentities {
		if i >= len(sheets) {
			return nil, &internal.SchemaError{Sheet: id, Reason: fmt.Sprintf("workbook has %d sheets, need %d", len(sheets), len(internal.SheetIdentities))}
		}
		if !strings.EqualFold(strings.TrimSpace(sheets[i]), string(id)) {
			slog.Info("sheet resolved by position", "identity", id, "sheet", sheets[i])
		}
		out[id] = sheets[i]
	}
	return out, nil
}

// toSheet turns excelize rows into a sheet. Cells hold their stored value,
// not the display text of their number format. The first row is the header; data
// rows are padded or cut to its width.
func toSheet(id internal.SheetIdentity, name string, rows [][]string) (*internal.Sheet, error) {
	if len(rows) == 0 {
		return nil, &internal.SchemaError{Sheet: id, Reason: fmt.Sprintf("sheet %q has no header row", name)}
	}

	header := make([]string, len(rows[0]))
	copy(header, rows[0])
	width := len(header)

	data := make([][]string, 0, len(rows)-1)
	for i, row := range rows[1:] {
		cells := make([]string, width)
		copy(cells, row)
		if len(row) > width && !allBlank(row[width:]) {
			slog.Warn("cells beyond the header dropped", "sheet", name, "row", i+2)
		}
		data = append(data, cells)
	}

	return &internal.Sheet{Name: name, Identity: id, Columns: header, Rows: data}, nil
}

func allBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
