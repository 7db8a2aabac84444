package insights

import "time"

// ApprovalStatus is the reviewer decision on a record.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
	ApprovalFlagged  ApprovalStatus = "flagged"
)

func (s ApprovalStatus) Valid() bool {
	switch s {
	case ApprovalPending, ApprovalApproved, ApprovalRejected, ApprovalFlagged:
		return true
	}
	return false
}

// PublishStatus tracks whether a record is visible in the library.
type PublishStatus string

const (
	StatusDraft     PublishStatus = "draft"
	StatusReview    PublishStatus = "review"
	StatusPublished PublishStatus = "published"
)

func (s PublishStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusReview, StatusPublished:
		return true
	}
	return false
}

// SharingLevel is the communication approval level.
type SharingLevel string

const (
	SharingInternal   SharingLevel = "internal"
	SharingControlled SharingLevel = "controlled"
	SharingPublic     SharingLevel = "public"
)

func (s SharingLevel) Valid() bool {
	switch s {
	case SharingInternal, SharingControlled, SharingPublic:
		return true
	}
	return false
}

// GateStatus is the state of the PR or legal approval gate.
type GateStatus string

const (
	GatePending  GateStatus = "pending"
	GateApproved GateStatus = "approved"
	GateRejected GateStatus = "rejected"
)

func (s GateStatus) Valid() bool {
	switch s {
	case GatePending, GateApproved, GateRejected:
		return true
	}
	return false
}

// SourceType names where a record came from.
type SourceType string

const (
	SourceDashboard SourceType = "dashboard"
	SourceDocument  SourceType = "document"
	SourceAPI       SourceType = "api"
	SourceManual    SourceType = "manual"
)

func (s SourceType) Valid() bool {
	switch s {
	case SourceDashboard, SourceDocument, SourceAPI, SourceManual:
		return true
	}
	return false
}

// FieldType is the input type of a metadata field.
type FieldType string

const (
	FieldText   FieldType = "text"
	FieldSelect FieldType = "select"
	FieldDate   FieldType = "date"
	FieldNumber FieldType = "number"
)

func (t FieldType) Valid() bool {
	switch t {
	case FieldText, FieldSelect, FieldDate, FieldNumber:
		return true
	}
	return false
}

type DataPoint struct {
	ID     string `json:"id" yaml:"id"`
	Value  string `json:"value" yaml:"value"`
	Source string `json:"source,omitempty" yaml:"source,omitempty"`
}

// MetadataField is one labeled value. Labels may repeat.
type MetadataField struct {
	ID         string    `json:"id" yaml:"id"`
	Label      string    `json:"label" yaml:"label"`
	Value      string    `json:"value" yaml:"value"`
	Type       FieldType `json:"type" yaml:"type"`
	IsRequired bool      `json:"isRequired,omitempty" yaml:"isRequired,omitempty"`
	IsNew      bool      `json:"isNew,omitempty" yaml:"isNew,omitempty"`
}

// Dimension declares a filterable axis of a root and its allowed values.
type Dimension struct {
	ID     string   `json:"id" yaml:"id"`
	Name   string   `json:"name" yaml:"name"`
	Values []string `json:"values" yaml:"values"`
}

// Version is one immutable entry of a record's edit history.
type Version struct {
	Version           int             `json:"version" yaml:"version"`
	Statement         string          `json:"statement" yaml:"statement"`
	ModifiedBy        string          `json:"modifiedBy" yaml:"modifiedBy"`
	ModifiedDate      time.Time       `json:"modifiedDate" yaml:"modifiedDate"`
	ChangeDescription string          `json:"changeDescription" yaml:"changeDescription"`
	MetadataFields    []MetadataField `json:"metadataFields" yaml:"metadataFields"`
}

// Kind is either Root or Child.
type Kind interface {
	isKind()
}

// Root is a top-level insight whose children are sliced by dimensions.
type Root struct {
	AvailableDimensions []Dimension
}

// Child belongs to a root and carries one value per dimension it is sliced on.
type Child struct {
	ParentID   string
	Dimensions map[string]string
}

func (Root) isKind()  {}
func (Child) isKind() {}

// Record is a structured insight.
type Record struct {
	ID             string
	Statement      string
	DataPoints     []DataPoint
	MetadataFields []MetadataField
	Footnote       string
	Team           string
	Domain         string
	Author         string
	Tags           []string
	Expiration     string

	SourceType SourceType
	SourceFile string
	SourceID   string

	Confidence     float64
	ApprovalStatus ApprovalStatus
	Status         PublishStatus
	ApprovedBy     string
	ApprovedAt     *time.Time

	SharingLevel             SharingLevel
	PRApprovalStatus         GateStatus
	LegalApprovalStatus      GateStatus
	ApprovalDocumentationURL string
	// SharedWith names the teams or people (by email or user id) the
	// insight was shared with.
	SharedWith []string

	Views int

	CurrentVersion int
	VersionHistory []Version

	Kind Kind

	// ChildIDs is filled from the repository on read and never stored.
	ChildIDs []string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsRoot reports whether r has no parent. A nil Kind counts as a root.
func (r Record) IsRoot() bool {
	_, child := r.Kind.(Child)
	return !child
}

// ParentID returns the parent id for children and "" for roots.
func (r Record) ParentID() string {
	if c, ok := r.Kind.(Child); ok {
		return c.ParentID
	}
	return ""
}

// Dimensions returns a child's dimension values, or nil for roots.
func (r Record) Dimensions() map[string]string {
	if c, ok := r.Kind.(Child); ok {
		return c.Dimensions
	}
	return nil
}

// AvailableDimensions returns a root's declared dimensions, or nil for children.
func (r Record) AvailableDimensions() []Dimension {
	if root, ok := r.Kind.(Root); ok {
		return root.AvailableDimensions
	}
	return nil
}

// Clone returns a deep copy so callers can mutate without aliasing.
func (r Record) Clone() Record {
	out := r
	if r.DataPoints != nil {
		out.DataPoints = append(make([]DataPoint, 0, len(r.DataPoints)), r.DataPoints...)
	}
	out.MetadataFields = cloneFields(r.MetadataFields)
	out.Tags = cloneStrings(r.Tags)
	out.SharedWith = cloneStrings(r.SharedWith)
	out.ChildIDs = cloneStrings(r.ChildIDs)
	if r.ApprovedAt != nil {
		t := *r.ApprovedAt
		out.ApprovedAt = &t
	}
	if r.VersionHistory != nil {
		out.VersionHistory = make([]Version, len(r.VersionHistory))
		for i, v := range r.VersionHistory {
			v.MetadataFields = cloneFields(v.MetadataFields)
			out.VersionHistory[i] = v
		}
	}
	switch k := r.Kind.(type) {
	case Root:
		var dims []Dimension
		if k.AvailableDimensions != nil {
			dims = make([]Dimension, len(k.AvailableDimensions))
			for i, d := range k.AvailableDimensions {
				d.Values = cloneStrings(d.Values)
				dims[i] = d
			}
		}
		out.Kind = Root{AvailableDimensions: dims}
	case Child:
		var dims map[string]string
		if k.Dimensions != nil {
			dims = make(map[string]string, len(k.Dimensions))
			for name, v := range k.Dimensions {
				dims[name] = v
			}
		}
		out.Kind = Child{ParentID: k.ParentID, Dimensions: dims}
	}
	return out
}

func cloneFields(in []MetadataField) []MetadataField {
	if in == nil {
		return nil
	}
	return append(make([]MetadataField, 0, len(in)), in...)
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append(make([]string, 0, len(in)), in...)
}
