package workflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadThenExtraction(t *testing.T) {
	c, st, ex, _ := newTestController()
	s := &Session{UserID: "user-1"}
	c.Enter(s)

	require.NoError(t, c.SelectFile(s, reportFile()))
	assert.Equal(t, StageExtraction, s.Stage)
	require.NotNil(t, s.File)
	assert.Equal(t, "report.pdf", s.File.Name)
	assert.Nil(t, s.Artifact)

	require.NoError(t, c.RunExtraction(context.Background(), s))
	assert.Equal(t, StageStructuring, s.Stage)
	require.NotNil(t, s.Artifact)
	assert.Equal(t, "uploads/extraction/abc-report.pdf", s.Artifact.Path)
	assert.Len(t, st.uploads, 1)
	require.Len(t, ex.calls, 1)
	assert.Equal(t, s.Artifact.Path, ex.calls[0].Path)
	assert.Equal(t, "report.pdf", ex.calls[0].FileName)
	assert.Len(t, s.Extracted, 1)
}

func TestEnterKeepsProgress(t *testing.T) {
	c, _, _, _ := newTestController()
	s := extractedSession(c)
	c.Enter(s)
	assert.Equal(t, StageStructuring, s.Stage)
	assert.NotNil(t, s.Artifact)
}

func TestSelectFileRejections(t *testing.T) {
	c, _, _, _ := newTestController()

	s := &Session{UserID: "user-1"}
	var transition *InvalidTransitionError
	require.ErrorAs(t, c.SelectFile(s, reportFile()), &transition)
	assert.False(t, transition.InWorkflow)

	c.Enter(s)
	assert.ErrorIs(t, c.SelectFile(s, File{Name: "empty.pdf"}), ErrEmptyFile)
	assert.Equal(t, StageUpload, s.Stage)
	assert.Nil(t, s.File)
}

func TestUploadFailureLeavesSessionUnchanged(t *testing.T) {
	c, st, ex, _ := newTestController()
	st.uploadErr = errBoom
	s := &Session{UserID: "user-1"}
	c.Enter(s)
	require.NoError(t, c.SelectFile(s, reportFile()))
	before := s.Clone()

	err := c.RunExtraction(context.Background(), s)
	var writeErr *StorageWriteError
	require.ErrorAs(t, err, &writeErr)
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, "report.pdf", writeErr.FileName)
	assert.Equal(t, before, *s)
	assert.Empty(t, ex.calls)
}

func TestExtractionFailureKeepsArtifactForRetry(t *testing.T) {
	c, st, ex, _ := newTestController()
	ex.err = errBoom
	s := &Session{UserID: "user-1"}
	c.Enter(s)
	require.NoError(t, c.SelectFile(s, reportFile()))

	require.ErrorIs(t, c.RunExtraction(context.Background(), s), errBoom)
	assert.Equal(t, StageExtraction, s.Stage)
	require.NotNil(t, s.Artifact)

	ex.err = nil
	require.NoError(t, c.RunExtraction(context.Background(), s))
	assert.Equal(t, StageStructuring, s.Stage)
	assert.Len(t, st.uploads, 1, "retry reuses the stored artifact")
}

func TestStageMonotonicity(t *testing.T) {
	c, _, _, _ := newTestController()
	s := &Session{UserID: "user-1"}
	c.Enter(s)

	type step struct {
		name   string
		run    func() error
		goBack bool
	}
	steps := []step{
		{name: "select", run: func() error { return c.SelectFile(s, reportFile()) }},
		{name: "extract", run: func() error { return c.RunExtraction(context.Background(), s) }},
		{name: "advance", run: func() error { return c.Advance(s) }},
		{name: "edit again", run: func() error { return c.EditAgain(s) }, goBack: true},
		{name: "advance", run: func() error { return c.Advance(s) }},
		{name: "advance", run: func() error { return c.Advance(s) }},
		{name: "edit again", run: func() error { return c.EditAgain(s) }, goBack: true},
		{name: "advance", run: func() error { return c.Advance(s) }},
		{name: "extra advance", run: func() error { return c.Advance(s) }},
		{name: "select in publish", run: func() error { return c.SelectFile(s, reportFile()) }},
	}
	for _, st := range steps {
		before := s.Stage
		err := st.run()
		switch {
		case err != nil:
			assert.Equal(t, before, s.Stage, "%s: failed op must not move stage", st.name)
		case st.goBack:
			assert.Equal(t, before-1, s.Stage, "%s", st.name)
		default:
			assert.GreaterOrEqual(t, s.Stage, before, "%s", st.name)
		}
	}
	assert.Equal(t, StagePublish, s.Stage)
}

func TestAdvanceAndEditAgainBounds(t *testing.T) {
	c, _, _, _ := newTestController()
	s := &Session{UserID: "user-1"}
	c.Enter(s)

	var transition *InvalidTransitionError
	require.ErrorAs(t, c.Advance(s), &transition)
	assert.Equal(t, "advance", transition.Op)
	assert.Equal(t, StageUpload, transition.Stage)

	s = extractedSession(c)
	require.ErrorAs(t, c.EditAgain(s), &transition)
	assert.Equal(t, StageStructuring, s.Stage)
}

func TestEditAgainKeepsExtractedData(t *testing.T) {
	c, _, _, _ := newTestController()
	s := extractedSession(c)
	require.NoError(t, c.Advance(s))
	s.Extracted[0].Statement = "Churn fell 5%"

	require.NoError(t, c.EditAgain(s))
	assert.Equal(t, StageStructuring, s.Stage)
	assert.Equal(t, "Churn fell 5%", s.Extracted[0].Statement)
	assert.NotNil(t, s.Artifact)
}

func TestPublishResetsSession(t *testing.T) {
	c, _, _, pub := newTestController()
	s := extractedSession(c)
	require.NoError(t, c.Advance(s))
	require.NoError(t, c.Advance(s))

	require.NoError(t, c.Publish(context.Background(), s, PublishMeta{UploadedBy: "ana@example.com", RequestID: "req-1"}))
	require.Len(t, pub.pubs, 1)
	p := pub.pubs[0]
	assert.Equal(t, "user-1", p.UserID)
	assert.Equal(t, "ana@example.com", p.UploadedBy)
	assert.Equal(t, "report.pdf", p.FileName)
	assert.Equal(t, "uploads/extraction/abc-report.pdf", p.Artifact.Path)
	assert.Len(t, p.Records, 1)

	assert.False(t, s.InWorkflow)
	assert.Equal(t, StageUpload, s.Stage)
	assert.Nil(t, s.Artifact)
	assert.Equal(t, "user-1", s.UserID)
}

func TestPublishFailureKeepsSession(t *testing.T) {
	c, _, _, pub := newTestController()
	pub.err = errBoom
	s := extractedSession(c)
	require.NoError(t, c.Advance(s))
	require.NoError(t, c.Advance(s))
	before := s.Clone()

	require.ErrorIs(t, c.Publish(context.Background(), s, PublishMeta{}), errBoom)
	assert.Equal(t, before, *s)
}
