// Package storage keeps uploaded image blobs.
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"google.golang.org/api/option"
)

var ErrDisabled = errors.New("blob storage is not configured")

// BlobStore writes and removes objects by path.
type BlobStore interface {
	// Put stores data and returns a URL the client can fetch it from.
	Put(ctx context.Context, objectPath, contentType string, data []byte) (string, error)
	// Delete removes the object. A missing object is not an error.
	Delete(ctx context.Context, objectPath string) error
}

// GCS stores objects in a Cloud Storage bucket and hands out Firebase download-token URLs.
type GCS struct {
	client *storage.Client
	bucket string
}

func NewGCS(ctx context.Context, bucket, credentialsFile string) (*GCS, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("init storage client: %w", err)
	}
	return &GCS{client: client, bucket: bucket}, nil
}

func (g *GCS) Put(ctx context.Context, objectPath, contentType string, data []byte) (string, error) {
	token := uuid.NewString()
	w := g.client.Bucket(g.bucket).Object(objectPath).NewWriter(ctx)
	w.ContentType = contentType
	w.CacheControl = "public, max-age=31536000"
	w.Metadata = map[string]string{
		"firebaseStorageDownloadTokens": token,
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}
	return DownloadURL(g.bucket, objectPath, token), nil
}

func (g *GCS) Delete(ctx context.Context, objectPath string) error {
	err := g.client.Bucket(g.bucket).Object(objectPath).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil
	}
	return err
}

func (g *GCS) Close() error {
	return g.client.Close()
}

// DownloadURL builds the Firebase Storage URL for a token-protected object.
func DownloadURL(bucket, objectPath, token string) string {
	return fmt.Sprintf("https://firebasestorage.googleapis.com/v0/b/%s/o/%s?alt=media&token=%s",
		bucket, url.PathEscape(objectPath), token)
}

// Disabled rejects writes; used when no bucket is configured.
type Disabled struct{}

func (Disabled) Put(context.Context, string, string, []byte) (string, error) {
	return "", ErrDisabled
}

func (Disabled) Delete(context.Context, string) error {
	return nil
}
