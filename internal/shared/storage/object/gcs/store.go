package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/rotisserie/eris"
	"google.golang.org/api/option"

	"insights-backend/internal/shared/storage/object"
)

const defaultURLTTL = 15 * time.Minute

// Options configures a GCS-backed store.
type Options struct {
	Bucket          string
	Prefix          string
	CredentialsFile string
	URLTTL          time.Duration
}

// Store implements ObjectStore using Google Cloud Storage.
type Store struct {
	client *storage.Client
	bucket string
	prefix string
	urlTTL time.Duration
}

// New creates a GCS-backed object store. Without a credentials file the
// application default credentials are used.
func New(ctx context.Context, opts Options) (*Store, error) {
	if strings.TrimSpace(opts.Bucket) == "" {
		return nil, fmt.Errorf("gcs bucket is required")
	}
	var clientOpts []option.ClientOption
	if path := strings.TrimSpace(opts.CredentialsFile); path != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(path))
	}
	client, err := storage.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, eris.Wrap(err, "gcs store: create client")
	}
	ttl := opts.URLTTL
	if ttl <= 0 {
		ttl = defaultURLTTL
	}
	return &Store{
		client: client,
		bucket: opts.Bucket,
		prefix: strings.Trim(strings.TrimSpace(opts.Prefix), "/"),
		urlTTL: ttl,
	}, nil
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

// Save uploads r under prefix with a fresh unique name.
func (s *Store) Save(ctx context.Context, prefix, fileName, contentType string, r io.Reader) (object.Object, error) {
	key, err := object.NewKey(prefix, fileName)
	if err != nil {
		return object.Object{}, fmt.Errorf("sanitize file name: %w", err)
	}
	ct, body := object.SniffContentType(contentType, r)
	size, err := s.SaveWithKey(ctx, key, ct, body)
	if err != nil {
		return object.Object{}, err
	}
	return object.Object{Key: key, Size: size, ContentType: ct}, nil
}

// SaveWithKey uploads r to exactly key.
func (s *Store) SaveWithKey(ctx context.Context, key, contentType string, r io.Reader) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	name := objectName(s.prefix, key)
	w := s.client.Bucket(s.bucket).Object(name).NewWriter(ctx)
	w.ContentType = contentType
	w.CacheControl = "no-cache, no-store, must-revalidate"

	written, err := io.Copy(w, r)
	if err != nil {
		_ = w.Close()
		return 0, eris.Wrapf(err, "gcs write bucket=%s object=%s", s.bucket, name)
	}
	if err := w.Close(); err != nil {
		return 0, eris.Wrapf(err, "gcs close writer bucket=%s object=%s", s.bucket, name)
	}
	return written, nil
}

// Open streams the object.
func (s *Store) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	name := objectName(s.prefix, key)
	rc, err := s.client.Bucket(s.bucket).Object(name).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("gcs object=%s: %w", name, object.ErrNotFound)
		}
		return nil, eris.Wrapf(err, "gcs open bucket=%s object=%s", s.bucket, name)
	}
	return rc, nil
}

// Delete removes the object; a missing object counts as deleted.
func (s *Store) Delete(ctx context.Context, key string) error {
	name := objectName(s.prefix, key)
	err := s.client.Bucket(s.bucket).Object(name).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return eris.Wrapf(err, "gcs delete bucket=%s object=%s", s.bucket, name)
	}
	return nil
}

// URL returns a V4 signed GET URL.
func (s *Store) URL(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name := objectName(s.prefix, key)
	u, err := s.client.Bucket(s.bucket).SignedURL(name, &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  "GET",
		Expires: time.Now().Add(s.urlTTL),
	})
	if err != nil {
		return "", eris.Wrapf(err, "gcs sign url bucket=%s object=%s", s.bucket, name)
	}
	return u, nil
}

func objectName(prefix, key string) string {
	cleanKey := strings.TrimLeft(key, "/")
	if prefix == "" {
		return cleanKey
	}
	return prefix + "/" + cleanKey
}

var _ object.ObjectStore = (*Store)(nil)
