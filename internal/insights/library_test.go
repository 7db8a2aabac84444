package insights

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func libraryRecords() []Record {
	return []Record{
		{ID: "a", Statement: "Churn rose in Q4", Team: "Revenue", Domain: "Pricing", Confidence: 0.95, SourceType: SourceDocument, ApprovalStatus: ApprovalApproved, Status: StatusPublished, Tags: []string{"churn"}, Kind: Root{}},
		{ID: "b", Statement: "Onboarding faster on mobile", Team: "Growth", Domain: "Onboarding", Confidence: 0.75, SourceType: SourceAPI, ApprovalStatus: ApprovalPending, Status: StatusReview, Tags: []string{"Mobile"}, Kind: Root{}},
		{ID: "c", Statement: "US churn", Team: "Revenue", Domain: "Pricing", Confidence: 0.5, SourceType: SourceDocument, ApprovalStatus: ApprovalApproved, Status: StatusPublished, Kind: Child{ParentID: "a", Dimensions: map[string]string{"Geography": "US"}}},
	}
}

func filterIDs(recs []Record, match Matcher) []string {
	var out []string
	for _, r := range recs {
		if match(r) {
			out = append(out, r.ID)
		}
	}
	return out
}

func TestBandOf(t *testing.T) {
	assert.Equal(t, BandHigh, BandOf(0.9))
	assert.Equal(t, BandMedium, BandOf(0.89))
	assert.Equal(t, BandMedium, BandOf(0.7))
	assert.Equal(t, BandLow, BandOf(0.69))
}

func TestLibraryFilterANDsPredicates(t *testing.T) {
	recs := libraryRecords()
	assert.Equal(t, []string{"a", "b", "c"}, filterIDs(recs, LibraryFilter{}.Match))
	assert.Equal(t, []string{"a", "b", "c"}, filterIDs(recs, LibraryFilter{Team: AllValues}.Match))
	assert.Equal(t, []string{"a", "c"}, filterIDs(recs, LibraryFilter{Team: "Revenue"}.Match))
	assert.Equal(t, []string{"a"}, filterIDs(recs, LibraryFilter{Team: "Revenue", Confidence: BandHigh}.Match))
	assert.Equal(t, []string{"b"}, filterIDs(recs, LibraryFilter{Query: "mobile"}.Match))
	assert.Equal(t, []string{"a", "c"}, filterIDs(recs, LibraryFilter{Query: "CHURN"}.Match))
	assert.Empty(t, filterIDs(recs, LibraryFilter{Team: "Growth", SourceType: SourceDocument}.Match))
}

func TestSearchMatchRootsUnlessDimensionsSelected(t *testing.T) {
	recs := libraryRecords()
	assert.Equal(t, []string{"a", "b"}, filterIDs(recs, LibraryFilter{}.SearchMatch))
	f := LibraryFilter{Dimensions: Selection{"Geography": "US"}}
	assert.Equal(t, []string{"c"}, filterIDs(recs, f.SearchMatch))
	f.Team = "Growth"
	assert.Empty(t, filterIDs(recs, f.SearchMatch))
}

func TestHighlights(t *testing.T) {
	now := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	recs := []Record{
		{ID: "old-popular", Views: 500, Confidence: 0.9, CreatedAt: now.AddDate(0, -2, 0)},
		{ID: "new", Views: 10, Confidence: 0.5, CreatedAt: now.Add(-24 * time.Hour)},
		{ID: "newer", Views: 150, Confidence: 0.95, CreatedAt: now.Add(-time.Hour)},
		{ID: "stale", Views: 5, Confidence: 0.99, CreatedAt: now.AddDate(0, 0, -8)},
	}
	set := Highlights(recs, now)
	assert.Equal(t, []string{"old-popular", "newer"}, ids(set.Trending))
	assert.Equal(t, []string{"newer", "new"}, ids(set.Recent))
	assert.Equal(t, []string{"old-popular", "newer", "stale"}, ids(set.Top))
}
