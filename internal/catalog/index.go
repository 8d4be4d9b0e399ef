package catalog

import (
	"strings"

	"flatsheet/internal"
	"flatsheet/internal/util"
)

// Index is the lookup view validation runs against: the block identifiers
// taken from the Area sheet and the (block, flat) pairs of the FlatOwner sheet.
type Index struct {
	Blocks       map[string]struct{}
	FlatsByBlock map[string]map[float64]struct{}
}

const blockType = "BLOCK"

func BuildIndex(area, owners *internal.Sheet) (*Index, error) {
	areaCols, err := internal.RequireColumns(area, "Area", "Type")
	if err != nil {
		return nil, err
	}
	ownerCols, err := internal.RequireColumns(owners, "Block", "Flat")
	if err != nil {
		return nil, err
	}

	idx := &Index{
		Blocks:       map[string]struct{}{},
		FlatsByBlock: map[string]map[float64]struct{}{},
	}

	for r := range area.Rows {
		if !strings.Contains(area.Value(r, areaCols[1]), blockType) {
			continue
		}
		if block := blockKey(area.Value(r, areaCols[0])); block != "" {
			idx.Blocks[block] = struct{}{}
		}
	}

	for r := range owners.Rows {
		flat, ok := util.ParseCellNumber(owners.Value(r, ownerCols[1]))
		if !ok {
			continue
		}
		block := blockKey(owners.Value(r, ownerCols[0]))
		if _, ok := idx.FlatsByBlock[block]; !ok {
			idx.FlatsByBlock[block] = map[float64]struct{}{}
		}
		idx.FlatsByBlock[block][flat] = struct{}{}
	}

	return idx, nil
}

func (idx *Index) IsBlock(block string) bool {
	_, ok := idx.Blocks[blockKey(block)]
	return ok
}

func (idx *Index) HasResident(block string, flat int) bool {
	_, ok := idx.FlatsByBlock[blockKey(block)][float64(flat)]
	return ok
}

func blockKey(v string) string {
	return strings.TrimSpace(v)
}
