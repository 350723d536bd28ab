package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func namedRows(names ...string) []AccountRecord {
	out := make([]AccountRecord, len(names))
	for i, n := range names {
		out[i] = AccountRecord{ID: n, AccountName: n}
	}
	return out
}

func TestSortIsNumericAware(t *testing.T) {
	rows := namedRows("Row 2", "Row 10", "Row 1")
	sorted := Sort(rows, "accountName", SortAscending)

	got := make([]string, len(sorted))
	for i, r := range sorted {
		got[i] = r.AccountName
	}
	assert.Equal(t, []string{"Row 1", "Row 2", "Row 10"}, got)
}

func TestSortDescendingAndCaseInsensitive(t *testing.T) {
	rows := namedRows("beta", "Alpha", "gamma")
	sorted := Sort(rows, "accountName", SortDescending)
	assert.Equal(t, "gamma", sorted[0].AccountName)
	assert.Equal(t, "Alpha", sorted[2].AccountName)
}

func TestSortIsStableAndPure(t *testing.T) {
	rows := []AccountRecord{
		{ID: "1", AccountName: "same", Email: "first"},
		{ID: "2", AccountName: "same", Email: "second"},
		{ID: "3", AccountName: "aaa"},
	}
	sorted := Sort(rows, "accountName", SortAscending)

	// Equal keys keep their relative order.
	assert.Equal(t, "first", sorted[1].Email)
	assert.Equal(t, "second", sorted[2].Email)
	// The input slice is untouched.
	assert.Equal(t, "1", rows[0].ID)
}

func TestSortStateToggle(t *testing.T) {
	var s SortState

	s = s.Toggle("accountName")
	assert.Equal(t, SortState{Column: "accountName", Direction: SortAscending}, s)

	s = s.Toggle("accountName")
	assert.Equal(t, SortDescending, s.Direction)

	// Selecting a new column resets to ascending.
	s = s.Toggle("email")
	assert.Equal(t, SortState{Column: "email", Direction: SortAscending}, s)
}

func TestGroupByUnassignedBucketAndKeyOrder(t *testing.T) {
	rows := []AccountRecord{
		{ID: "1", EnterpriseName: "Acme"},
		{ID: "2"},
		{ID: "3", EnterpriseName: "Globex"},
		{ID: "4", EnterpriseName: "Acme"},
		{ID: "5"},
	}
	groups := GroupBy(rows, "enterpriseName")
	require.Len(t, groups, 3)

	// First-seen order of keys, empty values under "Unassigned".
	assert.Equal(t, "Acme", groups[0].Key)
	assert.Equal(t, UnassignedGroupKey, groups[1].Key)
	assert.Equal(t, "Globex", groups[2].Key)

	assert.Equal(t, []string{"1", "4"}, recordIDs(groups[0].Rows))
	assert.Equal(t, []string{"2", "5"}, recordIDs(groups[1].Rows))
}
