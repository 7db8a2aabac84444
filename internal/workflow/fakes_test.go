package workflow

import (
	"context"
	"errors"
	"sync"
	"time"

	"insights-backend/internal/extract"
	"insights-backend/internal/insights"
)

var errBoom = errors.New("boom")

type fakeStorage struct {
	mu         sync.Mutex
	uploads    []File
	deletes    []string
	uploadErr  error
	deleteErrs []error
}

func (f *fakeStorage) Upload(_ context.Context, file File) (Artifact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return Artifact{}, f.uploadErr
	}
	f.uploads = append(f.uploads, file)
	path := "uploads/extraction/abc-" + file.Name
	return Artifact{
		Path:        path,
		URL:         "https://cdn.example.com/" + path,
		ContentType: file.ContentType,
		Size:        int64(len(file.Data)),
	}, nil
}

// Delete fails with the queued errors in order, then succeeds.
func (f *fakeStorage) Delete(_ context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.deleteErrs) > 0 {
		err := f.deleteErrs[0]
		f.deleteErrs = f.deleteErrs[1:]
		return err
	}
	f.deletes = append(f.deletes, path)
	return nil
}

type fakeExtractor struct {
	recs  []insights.Record
	err   error
	calls []extract.Source
}

func (f *fakeExtractor) ExtractInsights(_ context.Context, src extract.Source) ([]insights.Record, error) {
	f.calls = append(f.calls, src)
	if f.err != nil {
		return nil, f.err
	}
	return f.recs, nil
}

type fakePublisher struct {
	pubs []Publication
	err  error
}

func (f *fakePublisher) Publish(_ context.Context, p Publication) error {
	if f.err != nil {
		return f.err
	}
	f.pubs = append(f.pubs, p)
	return nil
}

type recordingDispatcher struct {
	actions []ExitAction
	err     error
}

func (r *recordingDispatcher) Dispatch(_ context.Context, a ExitAction) error {
	if r.err != nil {
		return r.err
	}
	r.actions = append(r.actions, a)
	return nil
}

var testNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return testNow }

func newTestController() (*Controller, *fakeStorage, *fakeExtractor, *fakePublisher) {
	st := &fakeStorage{}
	ex := &fakeExtractor{recs: []insights.Record{{ID: "x-1", Statement: "Churn fell 4%"}}}
	pub := &fakePublisher{}
	return &Controller{Storage: st, Extractor: ex, Publisher: pub, Now: fixedNow}, st, ex, pub
}

func reportFile() File {
	return File{Name: "report.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.4 body")}
}

// extractedSession returns a session in structuring with an uploaded artifact.
func extractedSession(c *Controller) *Session {
	s := &Session{UserID: "user-1"}
	c.Enter(s)
	if err := c.SelectFile(s, reportFile()); err != nil {
		panic(err)
	}
	if err := c.RunExtraction(context.Background(), s); err != nil {
		panic(err)
	}
	return s
}
