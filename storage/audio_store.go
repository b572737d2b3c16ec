package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"MeetScribe/config"

	"github.com/minio/minio-go/v7"
)

// AudioStore stores meeting audio blobs in MinIO under user-namespaced
// keys ("<userID>/<uuid>") and hands out time-limited presigned URLs.
type AudioStore struct {
	client   *minio.Client
	bucket   string
	endpoint string
	useSSL   bool
}

// NewAudioStore creates an AudioStore on top of an initialized MinIO client.
func NewAudioStore(client *minio.Client, cfg *config.Config) *AudioStore {
	return &AudioStore{
		client:   client,
		bucket:   cfg.MinioBucket,
		endpoint: cfg.MinioEndpoint,
		useSSL:   cfg.MinioUseSSL,
	}
}

// Put stores the payload under key and returns its locator URL.
func (s *AudioStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	opts := minio.PutObjectOptions{
		ContentType: contentType,
	}

	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), opts)
	if err != nil {
		return "", fmt.Errorf("failed to upload to MinIO: %w", err)
	}

	scheme := "http"
	if s.useSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, s.endpoint, s.bucket, key), nil
}

// Get fetches the object behind a locator (bare key or full URL).
func (s *AudioStore) Get(ctx context.Context, locator string) ([]byte, error) {
	key, err := s.NormalizeKey(locator)
	if err != nil {
		return nil, err
	}

	object, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object %s: %w", key, err)
	}
	defer object.Close()

	data, err := io.ReadAll(object)
	if err != nil {
		return nil, fmt.Errorf("failed to read object %s: %w", key, err)
	}
	return data, nil
}

// Remove deletes the object behind a locator. Removing an object that is
// already absent is not an error.
func (s *AudioStore) Remove(ctx context.Context, locator string) error {
	key, err := s.NormalizeKey(locator)
	if err != nil {
		return err
	}

	err = s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
	if err != nil {
		errResp := minio.ToErrorResponse(err)
		if errResp.Code == "NoSuchKey" {
			return nil
		}
		return fmt.Errorf("failed to remove object %s: %w", key, err)
	}
	return nil
}

// NormalizeKey reduces a locator to a bare object key. A locator may be a
// bare key or a full URL whose path carries the key, optionally prefixed
// with the bucket segment. Normalization happens before any ownership
// check so a crafted URL cannot bypass it.
func (s *AudioStore) NormalizeKey(locator string) (string, error) {
	key := locator
	if strings.Contains(locator, "://") {
		u, err := url.Parse(locator)
		if err != nil {
			return "", fmt.Errorf("failed to parse locator URL: %w", err)
		}
		key = strings.TrimPrefix(u.Path, "/")
		if s.bucket != "" {
			key = strings.TrimPrefix(key, s.bucket+"/")
		}
	}

	key = strings.TrimPrefix(key, "/")
	if key == "" {
		return "", fmt.Errorf("empty storage key")
	}
	return key, nil
}

// SignedURL returns a presigned GET URL for key, valid for ttl.
func (s *AudioStore) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, ttl, nil)
	if err != nil {
		return "", fmt.Errorf("failed to presign object %s: %w", key, err)
	}
	return u.String(), nil
}
