package workflow

import "fmt"

// Stage is a step of the ingestion workflow. Stages only move forward, except
// for EditAgain which steps back by one.
type Stage int

const (
	StageUpload Stage = iota
	StageExtraction
	StageStructuring
	StageValidation
	StagePublish
)

func (s Stage) String() string {
	switch s {
	case StageUpload:
		return "upload"
	case StageExtraction:
		return "extraction"
	case StageStructuring:
		return "structuring"
	case StageValidation:
		return "validation"
	case StagePublish:
		return "publish"
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

func (s Stage) Valid() bool {
	return s >= StageUpload && s <= StagePublish
}
