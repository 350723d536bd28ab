package engine

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// SortDirection selects ascending or descending order.
type SortDirection string

const (
	SortAscending  SortDirection = "asc"
	SortDescending SortDirection = "desc"
)

// UnassignedGroupKey buckets records whose grouping field is empty.
const UnassignedGroupKey = "Unassigned"

// Sort returns a stably sorted copy of rows ordered by the string-coerced
// value of the chosen column, compared with a locale-aware, case-insensitive,
// numeric-aware collation ("Row 2" sorts before "Row 10"). The input slice
// is not modified.
func Sort(rows []AccountRecord, column string, direction SortDirection) []AccountRecord {
	out := make([]AccountRecord, len(rows))
	copy(out, rows)

	// Collators keep internal buffers, so build one per call to stay pure.
	col := collate.New(language.English, collate.Numeric, collate.IgnoreCase)
	sort.SliceStable(out, func(i, j int) bool {
		cmp := col.CompareString(columnValue(out[i], column), columnValue(out[j], column))
		if direction == SortDescending {
			return cmp > 0
		}
		return cmp < 0
	})
	return out
}

// SortState tracks the active sort column and direction for a table view.
// Selecting the current column flips direction; selecting a new column
// resets to ascending.
type SortState struct {
	Column    string
	Direction SortDirection
}

// Toggle returns the state after the user selects a column.
func (s SortState) Toggle(column string) SortState {
	if s.Column == column {
		if s.Direction == SortAscending {
			return SortState{Column: column, Direction: SortDescending}
		}
		return SortState{Column: column, Direction: SortAscending}
	}
	return SortState{Column: column, Direction: SortAscending}
}

// Group is one bucket of a GroupBy derivation.
type Group struct {
	Key  string
	Rows []AccountRecord
}

// GroupBy partitions rows by the string-coerced value of a field, preserving
// first-seen order of group keys and of the rows within each group. Records
// with an empty value group under UnassignedGroupKey.
func GroupBy(rows []AccountRecord, field string) []Group {
	byKey := make(map[string]int)
	var out []Group

	for _, rec := range rows {
		key := columnValue(rec, field)
		if key == "" {
			key = UnassignedGroupKey
		}
		idx, ok := byKey[key]
		if !ok {
			idx = len(out)
			byKey[key] = idx
			out = append(out, Group{Key: key})
		}
		out[idx].Rows = append(out[idx].Rows, rec)
	}
	return out
}
