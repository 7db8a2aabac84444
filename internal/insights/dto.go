package insights

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// DataPointInput is a submitted data point; ids are assigned on create.
type DataPointInput struct {
	Value  string `json:"value" validate:"required"`
	Source string `json:"source"`
}

// ManualInput is the manual entry form.
type ManualInput struct {
	Statement           string            `json:"statement" validate:"required"`
	DataPoints          []DataPointInput  `json:"dataPoints" validate:"required,min=1,dive"`
	Team                string            `json:"team" validate:"required"`
	Domain              string            `json:"domain"`
	Footnote            string            `json:"footnote"`
	Tags                []string          `json:"tags"`
	Expiration          string            `json:"expiration"`
	Confidence          *float64          `json:"confidence" validate:"omitempty,gte=0,lte=1"`
	MetadataFields      []MetadataField   `json:"metadataFields" validate:"dive"`
	ParentInsightID     string            `json:"parentInsightId"`
	Dimensions          map[string]string `json:"dimensions"`
	AvailableDimensions []Dimension       `json:"availableDimensions"`
}

// Normalize trims text and drops blank data points before validation.
func (in *ManualInput) Normalize() {
	in.Statement = strings.TrimSpace(in.Statement)
	in.Team = strings.TrimSpace(in.Team)
	in.Domain = strings.TrimSpace(in.Domain)
	in.ParentInsightID = strings.TrimSpace(in.ParentInsightID)
	points := in.DataPoints[:0]
	for _, dp := range in.DataPoints {
		dp.Value = strings.TrimSpace(dp.Value)
		if dp.Value == "" {
			continue
		}
		dp.Source = strings.TrimSpace(dp.Source)
		points = append(points, dp)
	}
	in.DataPoints = points
}

func (in *ManualInput) Validate() error {
	return validate.Struct(in)
}

// EditInput is a reviewer edit producing a new version.
type EditInput struct {
	Statement         string          `json:"statement" validate:"required"`
	MetadataFields    []MetadataField `json:"metadataFields" validate:"dive"`
	ChangeDescription string          `json:"changeDescription" validate:"required,max=500"`
}

func (in *EditInput) Validate() error {
	in.Statement = strings.TrimSpace(in.Statement)
	in.ChangeDescription = strings.TrimSpace(in.ChangeDescription)
	return validate.Struct(in)
}

// ApprovalInput sets the approval status of one or more records.
type ApprovalInput struct {
	IDs    []string       `json:"ids" validate:"required,min=1,max=200,dive,required"`
	Status ApprovalStatus `json:"status" validate:"required,oneof=pending approved rejected flagged"`
}

func (in *ApprovalInput) Validate() error {
	return validate.Struct(in)
}

// ComplianceInput updates sharing level and gates; empty fields are left as is.
type ComplianceInput struct {
	SharingLevel             SharingLevel `json:"sharingLevel" validate:"omitempty,oneof=internal controlled public"`
	PRApprovalStatus         GateStatus   `json:"prApprovalStatus" validate:"omitempty,oneof=pending approved rejected"`
	LegalApprovalStatus      GateStatus   `json:"legalApprovalStatus" validate:"omitempty,oneof=pending approved rejected"`
	ApprovalDocumentationURL string       `json:"approvalDocumentationUrl" validate:"omitempty,url"`
	// SharedWith replaces the audience when present; an empty list unshares.
	SharedWith []string `json:"sharedWith" validate:"omitempty,max=50,dive,required,max=200"`
}

func (in *ComplianceInput) Validate() error {
	if in.SharedWith != nil {
		seen := make(map[string]bool, len(in.SharedWith))
		audience := make([]string, 0, len(in.SharedWith))
		for _, who := range in.SharedWith {
			who = strings.TrimSpace(who)
			if key := strings.ToLower(who); who != "" && !seen[key] {
				seen[key] = true
				audience = append(audience, who)
			}
		}
		in.SharedWith = audience
	}
	return validate.Struct(in)
}
