package insights

import (
	"sort"
	"strings"
	"time"
)

// ConfidenceBand buckets the confidence score for library filtering.
type ConfidenceBand string

const (
	BandHigh   ConfidenceBand = "high"
	BandMedium ConfidenceBand = "medium"
	BandLow    ConfidenceBand = "low"
)

func (b ConfidenceBand) Valid() bool {
	switch b {
	case BandHigh, BandMedium, BandLow:
		return true
	}
	return false
}

// BandOf places a confidence score into its band.
func BandOf(confidence float64) ConfidenceBand {
	switch {
	case confidence >= 0.9:
		return BandHigh
	case confidence >= 0.7:
		return BandMedium
	default:
		return BandLow
	}
}

// Matcher selects records from a repository listing. A nil Matcher selects all.
type Matcher func(Record) bool

// LibraryFilter is the flat library's set of predicates. Empty fields and
// "all" do not constrain.
type LibraryFilter struct {
	Team           string
	Domain         string
	Confidence     ConfidenceBand
	SourceType     SourceType
	ApprovalStatus ApprovalStatus
	Status         PublishStatus
	Query          string
	Dimensions     Selection
}

// Constrained reports whether any predicate is active.
func (f LibraryFilter) Constrained() bool {
	return active(f.Team) || active(f.Domain) || active(string(f.Confidence)) ||
		active(string(f.SourceType)) || active(string(f.ApprovalStatus)) ||
		active(string(f.Status)) || strings.TrimSpace(f.Query) != "" || len(f.Dimensions.Active()) > 0
}

// Match reports whether r satisfies every active predicate.
func (f LibraryFilter) Match(r Record) bool {
	if active(f.Team) && r.Team != f.Team {
		return false
	}
	if active(f.Domain) && r.Domain != f.Domain {
		return false
	}
	if active(string(f.Confidence)) && BandOf(r.Confidence) != f.Confidence {
		return false
	}
	if active(string(f.SourceType)) && r.SourceType != f.SourceType {
		return false
	}
	if active(string(f.ApprovalStatus)) && r.ApprovalStatus != f.ApprovalStatus {
		return false
	}
	if active(string(f.Status)) && r.Status != f.Status {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" && !matchesQuery(r, q) {
		return false
	}
	if dims := f.Dimensions.Active(); len(dims) > 0 {
		if r.IsRoot() || !Selection(dims).Matches(r.Dimensions()) {
			return false
		}
	}
	return true
}

// SearchMatch is Match for search mode: without dimension filters only roots
// are returned, with them only matching children.
func (f LibraryFilter) SearchMatch(r Record) bool {
	if len(f.Dimensions.Active()) == 0 && !r.IsRoot() {
		return false
	}
	return f.Match(r)
}

func matchesQuery(r Record, q string) bool {
	if strings.Contains(strings.ToLower(r.Statement), q) {
		return true
	}
	for _, tag := range r.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			return true
		}
	}
	return false
}

func active(v string) bool {
	v = strings.TrimSpace(v)
	return v != "" && v != AllValues
}

const (
	highlightLimit      = 6
	trendingMinViews    = 100
	topMinConfidence    = 0.85
	recentHighlightSpan = 7 * 24 * time.Hour
)

// HighlightSet is the discovery home view.
type HighlightSet struct {
	Trending []Record `json:"trending"`
	Recent   []Record `json:"recent"`
	Top      []Record `json:"top"`
}

// Highlights computes trending, recent and top lists from records.
func Highlights(records []Record, now time.Time) HighlightSet {
	set := HighlightSet{Trending: []Record{}, Recent: []Record{}, Top: []Record{}}
	for _, r := range records {
		if r.Views > trendingMinViews {
			set.Trending = append(set.Trending, r)
		}
		if !r.CreatedAt.IsZero() && now.Sub(r.CreatedAt) <= recentHighlightSpan {
			set.Recent = append(set.Recent, r)
		}
		if r.Confidence > topMinConfidence {
			set.Top = append(set.Top, r)
		}
	}
	sort.SliceStable(set.Trending, func(i, j int) bool { return set.Trending[i].Views > set.Trending[j].Views })
	sort.SliceStable(set.Recent, func(i, j int) bool { return set.Recent[i].CreatedAt.After(set.Recent[j].CreatedAt) })
	sort.SliceStable(set.Top, func(i, j int) bool {
		return set.Top[i].Confidence*float64(set.Top[i].Views) > set.Top[j].Confidence*float64(set.Top[j].Views)
	})
	set.Trending = limit(set.Trending, highlightLimit)
	set.Top = limit(set.Top, highlightLimit)
	return set
}

func limit(in []Record, n int) []Record {
	if len(in) > n {
		return in[:n]
	}
	return in
}
