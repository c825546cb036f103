package render

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ArtifactStore persists rendered artifacts under stable keys, so
// regeneration overwrites rather than accumulates.
type ArtifactStore interface {
	Put(ctx context.Context, key string, data []byte) (string, error)
}

// FileArtifactStore writes artifacts under a base directory.
type FileArtifactStore struct {
	baseDir string
}

func NewFileArtifactStore(baseDir string) (*FileArtifactStore, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("artifact base directory is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact directory: %w", err)
	}
	return &FileArtifactStore{baseDir: baseDir}, nil
}

func (s *FileArtifactStore) Put(_ context.Context, key string, data []byte) (string, error) {
	path := filepath.Join(s.baseDir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create artifact subdirectory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write artifact %s: %w", key, err)
	}
	return path, nil
}

// S3ArtifactStore writes artifacts to an S3 bucket under a key prefix.
type S3ArtifactStore struct {
	client *s3.Client
	bucket string
	prefix string
}

func NewS3ArtifactStore(client *s3.Client, bucket, prefix string) (*S3ArtifactStore, error) {
	if bucket == "" {
		return nil, fmt.Errorf("artifact bucket is required")
	}
	return &S3ArtifactStore{client: client, bucket: bucket, prefix: prefix}, nil
}

func (s *S3ArtifactStore) Put(ctx context.Context, key string, data []byte) (string, error) {
	fullKey := key
	if s.prefix != "" {
		fullKey = s.prefix + "/" + key
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(fullKey),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentTypeFor(key)),
	})
	if err != nil {
		return "", fmt.Errorf("put artifact s3://%s/%s: %w", s.bucket, fullKey, err)
	}
	return fmt.Sprintf("s3://%s/%s", s.bucket, fullKey), nil
}

func contentTypeFor(key string) string {
	switch filepath.Ext(key) {
	case ".html":
		return "text/html; charset=utf-8"
	case ".pdf":
		return "application/pdf"
	}
	return "application/octet-stream"
}
