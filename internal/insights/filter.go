package insights

import (
	"fmt"
	"strings"
)

// AllValues in a selection means "no constraint on this dimension".
const AllValues = "all"

// Selection maps a dimension name to the selected value.
type Selection map[string]string

// ClearAll returns an empty selection.
func ClearAll() Selection { return Selection{} }

// With returns a copy of s with dim set to value. "all" or an empty value
// drops the dimension.
func (s Selection) With(dim, value string) Selection {
	out := make(Selection, len(s)+1)
	for k, v := range s {
		out[k] = v
	}
	dim = strings.TrimSpace(dim)
	value = strings.TrimSpace(value)
	if value == "" || value == AllValues {
		delete(out, dim)
		return out
	}
	out[dim] = value
	return out
}

// Active returns only the constraining pairs.
func (s Selection) Active() map[string]string {
	active := make(map[string]string, len(s))
	for k, v := range s {
		if v == "" || v == AllValues {
			continue
		}
		active[k] = v
	}
	return active
}

// Matches reports whether dims satisfies every active pair. A missing
// dimension never matches.
func (s Selection) Matches(dims map[string]string) bool {
	for k, v := range s.Active() {
		got, ok := dims[k]
		if !ok || got != v {
			return false
		}
	}
	return true
}

// FilterChildren returns the children matching every active pair of sel,
// keeping input order.
func FilterChildren(children []Record, sel Selection) []Record {
	active := sel.Active()
	out := make([]Record, 0, len(children))
	if len(active) == 0 {
		return append(out, children...)
	}
	for _, c := range children {
		if Selection(active).Matches(c.Dimensions()) {
			out = append(out, c)
		}
	}
	return out
}

// ValidateSelection rejects dimensions the root does not declare. Values are
// not checked: an undeclared value simply matches nothing.
func ValidateSelection(root Record, sel Selection) error {
	if !root.IsRoot() {
		return ErrNotRoot
	}
	declared := declaredDimensions(root)
	for dim := range sel.Active() {
		if _, ok := declared[dim]; !ok {
			return &UnknownDimensionError{RootID: root.ID, Dimension: dim}
		}
	}
	return nil
}

// ValidateChild checks child hangs off root and only uses declared dimensions.
func ValidateChild(root, child Record) error {
	if !root.IsRoot() {
		return ErrNotRoot
	}
	if child.ParentID() != root.ID {
		return fmt.Errorf("insight %s: parent %q is not %s: %w", child.ID, child.ParentID(), root.ID, ErrInvalidInput)
	}
	declared := declaredDimensions(root)
	for dim := range child.Dimensions() {
		if _, ok := declared[dim]; !ok {
			return &UnknownDimensionError{RootID: root.ID, Dimension: dim}
		}
	}
	return nil
}

func declaredDimensions(root Record) map[string]struct{} {
	dims := root.AvailableDimensions()
	out := make(map[string]struct{}, len(dims))
	for _, d := range dims {
		out[d.Name] = struct{}{}
	}
	return out
}
