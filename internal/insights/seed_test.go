package insights

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSeedIsConsistent(t *testing.T) {
	recs, err := LoadSeed()
	require.NoError(t, err)
	require.NotEmpty(t, recs)

	byID := map[string]Record{}
	for _, r := range recs {
		byID[r.ID] = r
	}
	root, ok := byID["root-1"]
	require.True(t, ok)
	assert.True(t, root.IsRoot())

	for _, r := range recs {
		if r.IsRoot() {
			continue
		}
		parent, ok := byID[r.ParentID()]
		require.True(t, ok, "parent of %s", r.ID)
		require.NoError(t, ValidateChild(parent, r))
	}
}

func TestSeedLoadsIntoRepo(t *testing.T) {
	recs, err := LoadSeed()
	require.NoError(t, err)
	svc := NewService(NewMemoryRepo())

	n, err := svc.Seed(context.Background(), recs)
	require.NoError(t, err)
	assert.Equal(t, len(recs), n)

	got, err := svc.Children(context.Background(), "root-1", Selection{"Geography": "US"})
	require.NoError(t, err)
	assert.Equal(t, []string{"root-1-us", "root-1-us-enterprise"}, ids(got))
}

func TestParseSeedRejectsParentedRoot(t *testing.T) {
	_, err := ParseSeed([]byte("insights:\n  - id: x\n    parentInsightId: y\n    isRootInsight: true\n"))
	assert.Error(t, err)
}
