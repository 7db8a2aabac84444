package insights

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"insights-backend/internal/shared/metrics"
	"insights-backend/internal/shared/telemetry"
)

const initialVersionNote = "Initial version"

// Service implements the insight library, review and filtering operations.
type Service struct {
	Repo  Repo
	Now   func() time.Time
	NewID func() string
}

// NewService constructs a Service with wall clock and uuid ids.
func NewService(repo Repo) *Service {
	return &Service{Repo: repo}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *Service) newID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return uuid.NewString()
}

// Get returns a record with its derived child ids.
func (s *Service) Get(ctx context.Context, id string) (Record, error) {
	rec, err := s.Repo.Get(ctx, id)
	if err != nil {
		return Record{}, err
	}
	if !rec.IsRoot() {
		return rec, nil
	}
	children, err := s.Repo.ListChildren(ctx, id)
	if err != nil {
		return Record{}, err
	}
	rec.ChildIDs = make([]string, 0, len(children))
	for _, c := range children {
		rec.ChildIDs = append(rec.ChildIDs, c.ID)
	}
	return rec, nil
}

// Children returns the root's children matching sel.
func (s *Service) Children(ctx context.Context, rootID string, sel Selection) ([]Record, error) {
	root, err := s.Repo.Get(ctx, rootID)
	if err != nil {
		return nil, err
	}
	if err := ValidateSelection(root, sel); err != nil {
		return nil, err
	}
	children, err := s.Repo.ListChildren(ctx, rootID)
	if err != nil {
		return nil, err
	}
	active := sel.Active()
	metrics.IncFilter("children", len(active) > 0)
	return FilterChildren(children, sel), nil
}

// Library lists every record matching f.
func (s *Service) Library(ctx context.Context, f LibraryFilter) ([]Record, error) {
	metrics.IncFilter("library", f.Constrained())
	return s.Repo.List(ctx, f.Match)
}

// Search lists roots, or matching children once dimensions are selected.
func (s *Service) Search(ctx context.Context, f LibraryFilter) ([]Record, error) {
	metrics.IncFilter("search", f.Constrained())
	return s.Repo.List(ctx, f.SearchMatch)
}

// SharedWith lists records shared with any of the given principals (team
// names, emails or user ids), compared case-insensitively.
func (s *Service) SharedWith(ctx context.Context, principals ...string) ([]Record, error) {
	want := make(map[string]bool, len(principals))
	for _, p := range principals {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			want[p] = true
		}
	}
	if len(want) == 0 {
		return []Record{}, nil
	}
	return s.Repo.List(ctx, func(r Record) bool {
		for _, who := range r.SharedWith {
			if want[strings.ToLower(who)] {
				return true
			}
		}
		return false
	})
}

// Highlights computes the discovery lists over all records.
func (s *Service) Highlights(ctx context.Context) (HighlightSet, error) {
	all, err := s.Repo.List(ctx, nil)
	if err != nil {
		return HighlightSet{}, err
	}
	return Highlights(all, s.now()), nil
}

// CreateManual stores a manually entered record as a pending draft.
func (s *Service) CreateManual(ctx context.Context, author string, in ManualInput) (Record, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return Record{}, err
	}

	now := s.now()
	rec := Record{
		ID:             s.newID(),
		Statement:      in.Statement,
		MetadataFields: cloneFields(in.MetadataFields),
		Footnote:       in.Footnote,
		Team:           in.Team,
		Domain:         in.Domain,
		Author:         author,
		Tags:           append([]string(nil), in.Tags...),
		Expiration:     in.Expiration,
		SourceType:     SourceManual,
		ApprovalStatus: ApprovalPending,
		Status:         StatusDraft,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if in.Confidence != nil {
		rec.Confidence = *in.Confidence
	}
	for i, dp := range in.DataPoints {
		rec.DataPoints = append(rec.DataPoints, DataPoint{ID: "dp-" + strconv.Itoa(i+1), Value: dp.Value, Source: dp.Source})
	}
	for i := range rec.MetadataFields {
		if rec.MetadataFields[i].ID == "" {
			rec.MetadataFields[i].ID = s.newID()
		}
		if rec.MetadataFields[i].Type == "" {
			rec.MetadataFields[i].Type = FieldText
		}
	}

	if in.ParentInsightID != "" {
		if len(in.AvailableDimensions) > 0 {
			return Record{}, fmt.Errorf("children cannot declare dimensions: %w", ErrInvalidInput)
		}
		rec.Kind = Child{ParentID: in.ParentInsightID, Dimensions: in.Dimensions}
		root, err := s.Repo.Get(ctx, in.ParentInsightID)
		if err != nil {
			return Record{}, err
		}
		if err := ValidateChild(root, rec); err != nil {
			return Record{}, err
		}
	} else {
		if len(in.Dimensions) > 0 {
			return Record{}, fmt.Errorf("dimensions require a parent insight: %w", ErrInvalidInput)
		}
		rec.Kind = Root{AvailableDimensions: in.AvailableDimensions}
	}

	rec = initialVersion(rec, author, now)
	if err := s.Repo.Save(ctx, rec); err != nil {
		return Record{}, err
	}
	telemetry.Info("insight.created", map[string]any{
		"insight_id":  rec.ID,
		"source_type": string(rec.SourceType),
		"is_root":     rec.IsRoot(),
	})
	return rec, nil
}

// Edit applies a reviewer edit as a new version.
func (s *Service) Edit(ctx context.Context, id, editor string, in EditInput) (Record, error) {
	if err := in.Validate(); err != nil {
		return Record{}, err
	}
	rec, err := s.Repo.Get(ctx, id)
	if err != nil {
		return Record{}, err
	}
	next := ApplyEdit(rec, Edit{
		Statement:      in.Statement,
		MetadataFields: in.MetadataFields,
		Editor:         editor,
		Description:    in.ChangeDescription,
	}, s.now())
	if err := s.Repo.Update(ctx, next, rec.CurrentVersion); err != nil {
		return Record{}, err
	}
	telemetry.Info("insight.edited", map[string]any{
		"insight_id": id,
		"version":    next.CurrentVersion,
	})
	return next, nil
}

// SetApproval sets the status of every id. All ids must exist before any is
// changed.
func (s *Service) SetApproval(ctx context.Context, actor string, in ApprovalInput) ([]Record, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	recs := make([]Record, 0, len(in.IDs))
	for _, id := range in.IDs {
		rec, err := s.Repo.Get(ctx, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, fmt.Errorf("insight %s: %w", id, ErrNotFound)
			}
			return nil, err
		}
		recs = append(recs, rec)
	}

	now := s.now()
	for i := range recs {
		recs[i].ApprovalStatus = in.Status
		if in.Status == ApprovalApproved {
			at := now
			recs[i].ApprovedBy = actor
			recs[i].ApprovedAt = &at
		}
		recs[i].UpdatedAt = now
		if err := s.Repo.Update(ctx, recs[i], recs[i].CurrentVersion); err != nil {
			return nil, err
		}
	}
	telemetry.Info("insight.approval", map[string]any{
		"count":  len(recs),
		"status": string(in.Status),
	})
	return recs, nil
}

// SetCompliance updates sharing level and the PR and legal gates.
func (s *Service) SetCompliance(ctx context.Context, id string, in ComplianceInput) (Record, error) {
	if err := in.Validate(); err != nil {
		return Record{}, err
	}
	rec, err := s.Repo.Get(ctx, id)
	if err != nil {
		return Record{}, err
	}
	if in.SharingLevel != "" {
		rec.SharingLevel = in.SharingLevel
	}
	if in.PRApprovalStatus != "" {
		rec.PRApprovalStatus = in.PRApprovalStatus
	}
	if in.LegalApprovalStatus != "" {
		rec.LegalApprovalStatus = in.LegalApprovalStatus
	}
	if in.ApprovalDocumentationURL != "" {
		rec.ApprovalDocumentationURL = in.ApprovalDocumentationURL
	}
	if in.SharedWith != nil {
		rec.SharedWith = in.SharedWith
	}
	rec.UpdatedAt = s.now()
	if err := s.Repo.Update(ctx, rec, rec.CurrentVersion); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Provenance identifies the upload a batch of extracted records came from.
type Provenance struct {
	SourceID string
	FileName string
	Author   string
}

// SaveExtracted stores records produced by extraction as pending review.
func (s *Service) SaveExtracted(ctx context.Context, recs []Record, from Provenance) ([]Record, error) {
	now := s.now()
	out := make([]Record, 0, len(recs))
	for _, r := range recs {
		rec := r.Clone()
		if rec.ID == "" {
			rec.ID = s.newID()
		}
		if rec.Kind == nil {
			rec.Kind = Root{}
		}
		rec.ApprovalStatus = ApprovalPending
		rec.Status = StatusReview
		if rec.SourceType == "" {
			rec.SourceType = SourceDocument
		}
		rec.SourceFile = from.FileName
		rec.SourceID = from.SourceID
		if rec.Author == "" {
			rec.Author = from.Author
		}
		rec.CreatedAt = now
		rec.UpdatedAt = now
		if len(rec.VersionHistory) == 0 {
			rec = initialVersion(rec, from.Author, now)
		}
		if err := s.Repo.Save(ctx, rec); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// Seed stores records as given, keeping their ids and history.
func (s *Service) Seed(ctx context.Context, recs []Record) (int, error) {
	now := s.now()
	for i, rec := range recs {
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = now
		}
		if rec.UpdatedAt.IsZero() {
			rec.UpdatedAt = rec.CreatedAt
		}
		if len(rec.VersionHistory) == 0 {
			rec = initialVersion(rec, rec.Author, rec.CreatedAt)
		}
		if err := CheckHistory(rec); err != nil {
			return i, err
		}
		if err := s.Repo.Save(ctx, rec); err != nil {
			return i, err
		}
	}
	return len(recs), nil
}

func initialVersion(rec Record, author string, now time.Time) Record {
	rec.VersionHistory = []Version{{
		Version:           1,
		Statement:         rec.Statement,
		ModifiedBy:        author,
		ModifiedDate:      now,
		ChangeDescription: initialVersionNote,
		MetadataFields:    cloneFields(rec.MetadataFields),
	}}
	rec.CurrentVersion = 1
	return rec
}
