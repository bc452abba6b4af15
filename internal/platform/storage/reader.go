package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

const objectScheme = "gs://"

var (
	errInvalidBucket = errors.New("storage: bucket name is required")
	errInvalidObject = errors.New("storage: object name is required")
)

// ErrObjectNotFound is returned when the referenced object does not exist.
var ErrObjectNotFound = errors.New("storage: object not found")

// IsObjectURI reports whether ref uses the gs:// scheme.
func IsObjectURI(ref string) bool {
	return strings.HasPrefix(strings.TrimSpace(ref), objectScheme)
}

// ParseObjectURI splits gs://bucket/path/to/object into bucket and object.
func ParseObjectURI(ref string) (bucket, object string, err error) {
	trimmed := strings.TrimSpace(ref)
	if !strings.HasPrefix(trimmed, objectScheme) {
		return "", "", fmt.Errorf("storage: %q is not a gs:// uri", ref)
	}
	rest := strings.TrimPrefix(trimmed, objectScheme)
	bucket, object, _ = strings.Cut(rest, "/")
	bucket = strings.TrimSpace(bucket)
	object = strings.Trim(strings.TrimSpace(object), "/")
	if bucket == "" {
		return "", "", errInvalidBucket
	}
	if object == "" {
		return "", "", errInvalidObject
	}
	return bucket, object, nil
}

// Reader opens Cloud Storage objects for reading. It never writes.
type Reader struct {
	client *gcs.Client
}

// NewReader wraps an existing Cloud Storage client.
func NewReader(client *gcs.Client) (*Reader, error) {
	if client == nil {
		return nil, errors.New("storage reader: client is required")
	}
	return &Reader{client: client}, nil
}

// Dial creates a client with application default credentials, or the given credentials file.
func Dial(ctx context.Context, credentialsFile string) (*Reader, error) {
	var opts []option.ClientOption
	if path := strings.TrimSpace(credentialsFile); path != "" {
		opts = append(opts, option.WithCredentialsFile(path))
	}
	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage reader: new client: %w", err)
	}
	return NewReader(client)
}

// Open returns a reader for the object. Callers must close it.
func (r *Reader) Open(ctx context.Context, bucket, object string) (io.ReadCloser, error) {
	if r == nil || r.client == nil {
		return nil, errors.New("storage reader: client is not initialised")
	}
	bucket = strings.TrimSpace(bucket)
	object = strings.TrimSpace(object)
	if bucket == "" {
		return nil, errInvalidBucket
	}
	if object == "" {
		return nil, errInvalidObject
	}
	rc, err := r.client.Bucket(bucket).Object(object).NewReader(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) || errors.Is(err, gcs.ErrBucketNotExist) {
		return nil, fmt.Errorf("%w: gs://%s/%s", ErrObjectNotFound, bucket, object)
	}
	if err != nil {
		return nil, fmt.Errorf("storage reader: open gs://%s/%s: %w", bucket, object, err)
	}
	return rc, nil
}

// Close releases the underlying client.
func (r *Reader) Close() error {
	if r == nil || r.client == nil {
		return nil
	}
	return r.client.Close()
}
