package insights

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRoot() Record {
	return Record{
		ID:        "root-1",
		Statement: "Customer satisfaction",
		Kind: Root{AvailableDimensions: []Dimension{
			{ID: "dim-geo", Name: "Geography", Values: []string{"US", "UK"}},
			{ID: "dim-seg", Name: "Segment", Values: []string{"Enterprise", "SMB"}},
		}},
	}
}

func child(id string, dims map[string]string) Record {
	return Record{ID: id, Kind: Child{ParentID: "root-1", Dimensions: dims}}
}

func testChildren() []Record {
	return []Record{
		child("us", map[string]string{"Geography": "US"}),
		child("uk", map[string]string{"Geography": "UK"}),
		child("us-ent", map[string]string{"Geography": "US", "Segment": "Enterprise"}),
		child("smb", map[string]string{"Segment": "SMB"}),
		child("none", nil),
	}
}

func ids(recs []Record) []string {
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.ID)
	}
	return out
}

func TestFilterChildrenSingleDimension(t *testing.T) {
	got := FilterChildren(testChildren()[:2], Selection{"Geography": "US"})
	assert.Equal(t, []string{"us"}, ids(got))
}

func TestFilterChildrenEmptySelectionReturnsAllInOrder(t *testing.T) {
	children := testChildren()
	assert.Equal(t, ids(children), ids(FilterChildren(children, ClearAll())))
	assert.Equal(t, ids(children), ids(FilterChildren(children, nil)))
}

func TestFilterChildrenAllIsNoConstraint(t *testing.T) {
	children := testChildren()
	assert.Equal(t,
		ids(FilterChildren(children, Selection{})),
		ids(FilterChildren(children, Selection{"Geography": AllValues})),
	)
	assert.Empty(t, ClearAll().With("Geography", "US").With("Geography", "all"))
	assert.Empty(t, ClearAll().With("Geography", ""))
}

func TestFilterChildrenMissingDimensionNeverMatches(t *testing.T) {
	got := FilterChildren(testChildren(), Selection{"Segment": "SMB"})
	assert.Equal(t, []string{"smb"}, ids(got))
}

func TestFilterChildrenUnionIsIntersection(t *testing.T) {
	children := testChildren()
	s1 := Selection{"Geography": "US"}
	s2 := Selection{"Segment": "Enterprise"}
	union := Selection{"Geography": "US", "Segment": "Enterprise"}

	left := FilterChildren(children, s1)
	right := map[string]bool{}
	for _, r := range FilterChildren(children, s2) {
		right[r.ID] = true
	}
	var intersection []string
	for _, r := range left {
		if right[r.ID] {
			intersection = append(intersection, r.ID)
		}
	}
	assert.Equal(t, intersection, ids(FilterChildren(children, union)))
	assert.Equal(t, []string{"us-ent"}, intersection)
}

func TestFilterChildrenUndeclaredValueIsEmpty(t *testing.T) {
	assert.Empty(t, FilterChildren(testChildren(), Selection{"Geography": "Canada"}))
}

func TestWithDoesNotMutateReceiver(t *testing.T) {
	base := Selection{"Geography": "US"}
	next := base.With("Segment", "SMB")
	assert.Len(t, base, 1)
	assert.Len(t, next, 2)
}

func TestValidateSelection(t *testing.T) {
	root := testRoot()
	require.NoError(t, ValidateSelection(root, Selection{"Geography": "Canada"}))
	require.NoError(t, ValidateSelection(root, Selection{"Device": AllValues}))

	err := ValidateSelection(root, Selection{"Device": "Mobile"})
	var unknown *UnknownDimensionError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "Device", unknown.Dimension)
	assert.ErrorIs(t, err, ErrInvalidInput)

	assert.ErrorIs(t, ValidateSelection(child("c", nil), Selection{}), ErrNotRoot)
}

func TestValidateChild(t *testing.T) {
	root := testRoot()
	require.NoError(t, ValidateChild(root, child("us", map[string]string{"Geography": "US"})))
	assert.ErrorIs(t, ValidateChild(root, child("x", map[string]string{"Device": "Mobile"})), ErrInvalidInput)

	orphan := Record{ID: "o", Kind: Child{ParentID: "root-2"}}
	assert.ErrorIs(t, ValidateChild(root, orphan), ErrInvalidInput)
}
