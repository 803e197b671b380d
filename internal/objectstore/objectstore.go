// Package objectstore is a thin façade over Cloud Storage for opaque
// binary blobs (spec.md §1). It deliberately stops at
// Put/Get/Delete/SignedURL — the photo-thumbnail, CSV, and DEXA-scan
// pipelines built on top of the equivalent teacher handler are a
// business domain this façade does not carry.
package objectstore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"time"

	gcs "cloud.google.com/go/storage"

	"github.com/mesbahtanvir/docuchan/backend/internal/apperr"
)

// Store wraps a single bucket in a Cloud Storage client.
type Store struct {
	client     *gcs.Client
	bucketName string
}

// New builds a Store bound to bucketName.
func New(client *gcs.Client, bucketName string) *Store {
	return &Store{client: client, bucketName: bucketName}
}

// Object is the metadata returned alongside a blob's bytes.
type Object struct {
	ContentType string
	Size        int64
}

// Put uploads data at path with the given content type, overwriting any
// existing object there.
func (s *Store) Put(ctx context.Context, path string, data []byte, contentType string) error {
	obj := s.client.Bucket(s.bucketName).Object(path)
	w := obj.NewWriter(ctx)
	w.ContentType = contentType

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return apperr.Wrap(apperr.StoreWrite, "failed to write object", err)
	}
	if err := w.Close(); err != nil {
		return apperr.Wrap(apperr.StoreWrite, "failed to finalize object", err)
	}
	return nil
}

// Get reads the full contents of path. A missing object returns
// (nil, nil, nil) — not found is not an error at this façade's
// boundary, matching Store Adapter's Get convention.
func (s *Store) Get(ctx context.Context, path string) ([]byte, *Object, error) {
	obj := s.client.Bucket(s.bucketName).Object(path)

	attrs, err := obj.Attrs(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, apperr.Wrap(apperr.Internal, "failed to read object attributes", err)
	}

	r, err := obj.NewReader(ctx)
	if err != nil {
		return nil, nil, apperr.Wrap(apperr.Internal, "failed to open object reader", err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, apperr.Wrap(apperr.Internal, "failed to read object", err)
	}

	return data, &Object{ContentType: attrs.ContentType, Size: attrs.Size}, nil
}

// Delete removes path, reporting whether it existed.
func (s *Store) Delete(ctx context.Context, path string) (bool, error) {
	obj := s.client.Bucket(s.bucketName).Object(path)
	err := obj.Delete(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, apperr.Wrap(apperr.Internal, "failed to delete object", err)
	}
	return true, nil
}

// SignedURL returns a time-limited GET URL for path.
func (s *Store) SignedURL(ctx context.Context, path string, ttl time.Duration) (string, error) {
	bucket := s.client.Bucket(s.bucketName)
	url, err := bucket.SignedURL(path, &gcs.SignedURLOptions{
		Method:  "GET",
		Expires: time.Now().Add(ttl),
	})
	if err != nil {
		return "", apperr.Wrap(apperr.Internal, "failed to generate signed URL", err)
	}
	return url, nil
}
