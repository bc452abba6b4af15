package storage

import (
	"context"
	"errors"
	"testing"
)

func TestParseObjectURI(t *testing.T) {
	tests := []struct {
		name    string
		ref     string
		bucket  string
		object  string
		wantErr error
	}{
		{name: "simple", ref: "gs://brand-assets/logos/acme.png", bucket: "brand-assets", object: "logos/acme.png"},
		{name: "trims", ref: "  gs://b/o/ ", bucket: "b", object: "o"},
		{name: "missing object", ref: "gs://bucket", wantErr: errInvalidObject},
		{name: "missing bucket", ref: "gs:///object", wantErr: errInvalidBucket},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			bucket, object, err := ParseObjectURI(tc.ref)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if bucket != tc.bucket || object != tc.object {
				t.Fatalf("got %s/%s", bucket, object)
			}
		})
	}

	if _, _, err := ParseObjectURI("https://example.com/logo.png"); err == nil {
		t.Fatal("expected error for non gs:// uri")
	}
	if !IsObjectURI("gs://a/b") || IsObjectURI("/tmp/logo.png") {
		t.Fatal("IsObjectURI mismatch")
	}
}

func TestReaderRequiresClient(t *testing.T) {
	if _, err := NewReader(nil); err == nil {
		t.Fatal("expected error for nil client")
	}
	var r *Reader
	if _, err := r.Open(context.Background(), "b", "o"); err == nil {
		t.Fatal("expected error for nil reader")
	}
	if err := r.Close(); err != nil {
		t.Fatalf("nil close: %v", err)
	}
}
