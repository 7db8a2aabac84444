package object

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/google/uuid"

	"insights-backend/internal/shared/util"
)

// DefaultContentType is stored when neither a hint nor sniffing yields a type.
const DefaultContentType = "application/octet-stream"

// ErrNotFound is returned by Open when the key does not exist.
var ErrNotFound = errors.New("object not found")

// Object describes a stored blob.
type Object struct {
	Key         string
	Size        int64
	ContentType string
}

// ObjectStore defines the contract for saving, retrieving and removing binary objects.
type ObjectStore interface {
	// Save stores r under a fresh collision-resistant key below prefix.
	Save(ctx context.Context, prefix, fileName, contentType string, r io.Reader) (Object, error)
	// SaveWithKey stores r at exactly key, replacing any existing object.
	SaveWithKey(ctx context.Context, key, contentType string, r io.Reader) (int64, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes key. Deleting a missing key succeeds.
	Delete(ctx context.Context, key string) error
	// URL returns an addressable (possibly time-bounded) retrieval URL for key.
	URL(ctx context.Context, key string) (string, error)
}

// NewKey builds "<prefix>/<uuid>-<sanitized name>".
func NewKey(prefix, fileName string) (string, error) {
	name, err := util.SanitizeFileName(fileName)
	if err != nil {
		return "", err
	}
	base := uuid.NewString() + "-" + name
	clean := strings.Trim(strings.TrimSpace(prefix), "/")
	if clean == "" {
		return base, nil
	}
	return path.Join(clean, base), nil
}

// SniffContentType returns hint when set, otherwise the type detected from the
// first bytes of r. The returned reader replays the sniffed bytes.
func SniffContentType(hint string, r io.Reader) (string, io.Reader) {
	if ct := strings.TrimSpace(hint); ct != "" {
		return ct, r
	}
	br := bufio.NewReaderSize(r, 512)
	head, _ := br.Peek(512)
	if len(head) == 0 {
		return DefaultContentType, br
	}
	return http.DetectContentType(head), br
}
