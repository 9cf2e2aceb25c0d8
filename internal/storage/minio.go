package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pranjalb21/kaviosPix/internal/models"
)

type MinioOptions struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	Bucket        string
	UseSSL        bool
	PublicBaseURL string
}

type MinioStore struct {
	client *minio.Client
	opts   MinioOptions
}

func NewMinioStore(o MinioOptions) (*MinioStore, error) {
	client, err := minio.New(o.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(o.AccessKey, o.SecretKey, ""),
		Secure: o.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	return &MinioStore{client: client, opts: o}, nil
}

func (m *MinioStore) Upload(ctx context.Context, key, contentType string, body io.Reader, size int64) (models.MediaRef, error) {
	_, err := m.client.PutObject(ctx, m.opts.Bucket, key, body, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return models.MediaRef{}, fmt.Errorf("minio put %s: %w", key, err)
	}
	return models.MediaRef{ImageURL: m.publicURL(key), PublicID: key}, nil
}

func (m *MinioStore) publicURL(key string) string {
	escaped := (&url.URL{Path: key}).EscapedPath()
	if m.opts.PublicBaseURL != "" {
		return strings.TrimRight(m.opts.PublicBaseURL, "/") + "/" + escaped
	}
	scheme := "http"
	if m.opts.UseSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, m.opts.Endpoint, m.opts.Bucket, escaped)
}

func (m *MinioStore) Delete(ctx context.Context, handle string) error {
	if err := m.client.RemoveObject(ctx, m.opts.Bucket, handle, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("minio delete %s: %w", handle, err)
	}
	return nil
}

func (m *MinioStore) PresignURL(ctx context.Context, handle string, ttl time.Duration) (string, error) {
	u, err := m.client.PresignedGetObject(ctx, m.opts.Bucket, handle, ttl, url.Values{})
	if err != nil {
		return "", fmt.Errorf("minio presign %s: %w", handle, err)
	}
	return u.String(), nil
}

func (m *MinioStore) Ping(ctx context.Context) error {
	ok, err := m.client.BucketExists(ctx, m.opts.Bucket)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("bucket %s does not exist", m.opts.Bucket)
	}
	return nil
}
