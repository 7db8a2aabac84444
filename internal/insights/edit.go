package insights

import (
	"fmt"
	"slices"
	"time"
)

// Edit is a reviewer change to the live statement and metadata.
type Edit struct {
	Statement      string
	MetadataFields []MetadataField
	Editor         string
	Description    string
}

// ApplyEdit returns a copy of rec with one more history entry. rec and its
// existing entries are left untouched.
func ApplyEdit(rec Record, e Edit, now time.Time) Record {
	out := rec.Clone()
	next := 1
	if n := len(out.VersionHistory); n > 0 {
		next = out.VersionHistory[n-1].Version + 1
	}
	fields := cloneFields(e.MetadataFields)
	out.VersionHistory = append(out.VersionHistory, Version{
		Version:           next,
		Statement:         e.Statement,
		ModifiedBy:        e.Editor,
		ModifiedDate:      now,
		ChangeDescription: e.Description,
		MetadataFields:    fields,
	})
	out.CurrentVersion = next
	out.Statement = e.Statement
	out.MetadataFields = cloneFields(fields)
	out.UpdatedAt = now
	return out
}

// CheckHistory verifies versions step by one and the live fields match the
// latest entry.
func CheckHistory(rec Record) error {
	if len(rec.VersionHistory) == 0 {
		return nil
	}
	for i := 1; i < len(rec.VersionHistory); i++ {
		prev, cur := rec.VersionHistory[i-1].Version, rec.VersionHistory[i].Version
		if cur != prev+1 {
			return fmt.Errorf("insight %s: version %d follows %d: %w", rec.ID, cur, prev, ErrInvalidInput)
		}
	}
	last := rec.VersionHistory[len(rec.VersionHistory)-1]
	if rec.CurrentVersion != last.Version {
		return fmt.Errorf("insight %s: current version %d, latest entry %d: %w", rec.ID, rec.CurrentVersion, last.Version, ErrInvalidInput)
	}
	if rec.Statement != last.Statement {
		return fmt.Errorf("insight %s: statement differs from version %d: %w", rec.ID, last.Version, ErrInvalidInput)
	}
	if !slices.Equal(rec.MetadataFields, last.MetadataFields) {
		return fmt.Errorf("insight %s: metadata differs from version %d: %w", rec.ID, last.Version, ErrInvalidInput)
	}
	return nil
}
