package insights

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// wireRecord is the flat JSON/YAML shape shared with clients and the seed file.
type wireRecord struct {
	ID             string          `json:"id" yaml:"id"`
	Statement      string          `json:"statement" yaml:"statement"`
	DataPoints     []DataPoint     `json:"dataPoints" yaml:"dataPoints"`
	MetadataFields []MetadataField `json:"metadataFields" yaml:"metadataFields"`
	Footnote       string          `json:"footnote,omitempty" yaml:"footnote,omitempty"`
	Team           string          `json:"team" yaml:"team"`
	Domain         string          `json:"domain,omitempty" yaml:"domain,omitempty"`
	Author         string          `json:"author,omitempty" yaml:"author,omitempty"`
	Tags           []string        `json:"tags,omitempty" yaml:"tags,omitempty"`
	Expiration     string          `json:"expiration,omitempty" yaml:"expiration,omitempty"`

	SourceType SourceType `json:"sourceType,omitempty" yaml:"sourceType,omitempty"`
	SourceFile string     `json:"sourceFile,omitempty" yaml:"sourceFile,omitempty"`
	SourceID   string     `json:"sourceId,omitempty" yaml:"sourceId,omitempty"`

	Confidence     float64        `json:"confidence" yaml:"confidence"`
	ApprovalStatus ApprovalStatus `json:"approvalStatus" yaml:"approvalStatus"`
	Status         PublishStatus  `json:"status" yaml:"status"`
	ApprovedBy     string         `json:"approvedBy,omitempty" yaml:"approvedBy,omitempty"`
	ApprovedAt     *time.Time     `json:"approvedAt,omitempty" yaml:"approvedAt,omitempty"`

	SharingLevel             SharingLevel `json:"sharingLevel,omitempty" yaml:"sharingLevel,omitempty"`
	PRApprovalStatus         GateStatus   `json:"prApprovalStatus,omitempty" yaml:"prApprovalStatus,omitempty"`
	LegalApprovalStatus      GateStatus   `json:"legalApprovalStatus,omitempty" yaml:"legalApprovalStatus,omitempty"`
	ApprovalDocumentationURL string       `json:"approvalDocumentationUrl,omitempty" yaml:"approvalDocumentationUrl,omitempty"`
	SharedWith               []string     `json:"sharedWith,omitempty" yaml:"sharedWith,omitempty"`

	Views int `json:"views" yaml:"views"`

	CurrentVersion int       `json:"currentVersion" yaml:"currentVersion"`
	VersionHistory []Version `json:"versionHistory" yaml:"versionHistory"`

	IsRootInsight       *bool             `json:"isRootInsight,omitempty" yaml:"isRootInsight,omitempty"`
	ParentInsightID     string            `json:"parentInsightId,omitempty" yaml:"parentInsightId,omitempty"`
	ChildInsightIDs     []string          `json:"childInsightIds,omitempty" yaml:"-"`
	Dimensions          map[string]string `json:"dimensions,omitempty" yaml:"dimensions,omitempty"`
	AvailableDimensions []Dimension       `json:"availableDimensions,omitempty" yaml:"availableDimensions,omitempty"`

	CreatedAt time.Time `json:"createdAt" yaml:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" yaml:"updatedAt"`
}

func (r Record) toWire() wireRecord {
	isRoot := r.IsRoot()
	w := wireRecord{
		ID:                       r.ID,
		Statement:                r.Statement,
		DataPoints:               r.DataPoints,
		MetadataFields:           r.MetadataFields,
		Footnote:                 r.Footnote,
		Team:                     r.Team,
		Domain:                   r.Domain,
		Author:                   r.Author,
		Tags:                     r.Tags,
		Expiration:               r.Expiration,
		SourceType:               r.SourceType,
		SourceFile:               r.SourceFile,
		SourceID:                 r.SourceID,
		Confidence:               r.Confidence,
		ApprovalStatus:           r.ApprovalStatus,
		Status:                   r.Status,
		ApprovedBy:               r.ApprovedBy,
		ApprovedAt:               r.ApprovedAt,
		SharingLevel:             r.SharingLevel,
		PRApprovalStatus:         r.PRApprovalStatus,
		LegalApprovalStatus:      r.LegalApprovalStatus,
		ApprovalDocumentationURL: r.ApprovalDocumentationURL,
		SharedWith:               r.SharedWith,
		Views:                    r.Views,
		CurrentVersion:           r.CurrentVersion,
		VersionHistory:           r.VersionHistory,
		IsRootInsight:            &isRoot,
		ChildInsightIDs:          r.ChildIDs,
		CreatedAt:                r.CreatedAt,
		UpdatedAt:                r.UpdatedAt,
	}
	if w.DataPoints == nil {
		w.DataPoints = []DataPoint{}
	}
	if w.MetadataFields == nil {
		w.MetadataFields = []MetadataField{}
	}
	if w.VersionHistory == nil {
		w.VersionHistory = []Version{}
	}
	switch k := r.Kind.(type) {
	case Root:
		w.AvailableDimensions = k.AvailableDimensions
	case Child:
		w.ParentInsightID = k.ParentID
		w.Dimensions = k.Dimensions
	}
	return w
}

func (w wireRecord) toRecord() (Record, error) {
	parent := strings.TrimSpace(w.ParentInsightID)
	claimsRoot := w.IsRootInsight != nil && *w.IsRootInsight
	if parent != "" && claimsRoot {
		return Record{}, fmt.Errorf("insight %s: has parent %s and claims to be a root: %w", w.ID, parent, ErrInvalidInput)
	}
	if parent == "" && len(w.Dimensions) > 0 {
		return Record{}, fmt.Errorf("insight %s: dimensions require a parent: %w", w.ID, ErrInvalidInput)
	}
	if parent != "" && len(w.AvailableDimensions) > 0 {
		return Record{}, fmt.Errorf("insight %s: children cannot declare dimensions: %w", w.ID, ErrInvalidInput)
	}

	rec := Record{
		ID:                       w.ID,
		Statement:                w.Statement,
		DataPoints:               w.DataPoints,
		MetadataFields:           w.MetadataFields,
		Footnote:                 w.Footnote,
		Team:                     w.Team,
		Domain:                   w.Domain,
		Author:                   w.Author,
		Tags:                     w.Tags,
		Expiration:               w.Expiration,
		SourceType:               w.SourceType,
		SourceFile:               w.SourceFile,
		SourceID:                 w.SourceID,
		Confidence:               w.Confidence,
		ApprovalStatus:           w.ApprovalStatus,
		Status:                   w.Status,
		ApprovedBy:               w.ApprovedBy,
		ApprovedAt:               w.ApprovedAt,
		SharingLevel:             w.SharingLevel,
		PRApprovalStatus:         w.PRApprovalStatus,
		LegalApprovalStatus:      w.LegalApprovalStatus,
		ApprovalDocumentationURL: w.ApprovalDocumentationURL,
		SharedWith:               w.SharedWith,
		Views:                    w.Views,
		CurrentVersion:           w.CurrentVersion,
		VersionHistory:           w.VersionHistory,
		CreatedAt:                w.CreatedAt,
		UpdatedAt:                w.UpdatedAt,
	}
	if parent != "" {
		dims := w.Dimensions
		if dims == nil {
			dims = map[string]string{}
		}
		rec.Kind = Child{ParentID: parent, Dimensions: dims}
	} else {
		rec.Kind = Root{AvailableDimensions: w.AvailableDimensions}
	}
	return rec, nil
}

func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.toWire())
}

func (r *Record) UnmarshalJSON(data []byte) error {
	var w wireRecord
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	rec, err := w.toRecord()
	if err != nil {
		return err
	}
	*r = rec
	return nil
}

func (r Record) MarshalYAML() (interface{}, error) {
	return r.toWire(), nil
}

func (r *Record) UnmarshalYAML(node *yaml.Node) error {
	var w wireRecord
	if err := node.Decode(&w); err != nil {
		return err
	}
	rec, err := w.toRecord()
	if err != nil {
		return err
	}
	*r = rec
	return nil
}
