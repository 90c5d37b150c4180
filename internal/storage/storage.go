package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/Jashneer/HireIQ/internal/config"
)

// ErrUnsupportedFormat is returned for resume uploads in a format the
// scorer cannot read.
var ErrUnsupportedFormat = errors.New("unsupported resume format")

// Storage keeps uploaded resume documents in object storage.
type Storage struct {
	client     *minio.Client
	bucketName string
}

// New creates a new storage client and ensures the resume bucket exists.
func New(cfg config.StorageConfig) (*Storage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	ctx := context.Background()
	exists, err := client.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}

	if !exists {
		err = client.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{
			Region: cfg.Region,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return &Storage{
		client:     client,
		bucketName: cfg.BucketName,
	}, nil
}

// StoreResume uploads a resume document under the owning user and returns
// the object key.
func (s *Storage) StoreResume(ctx context.Context, userID, filename string, reader io.Reader, size int64) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	contentType, ok := resumeContentTypes[ext]
	if !ok {
		return "", ErrUnsupportedFormat
	}

	objectName := fmt.Sprintf("resumes/%s/%s%s", userID, uuid.New().String(), ext)

	_, err := s.client.PutObject(ctx, s.bucketName, objectName, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload resume: %w", err)
	}

	return objectName, nil
}

// Delete removes a stored resume document.
func (s *Storage) Delete(ctx context.Context, objectName string) error {
	err := s.client.RemoveObject(ctx, s.bucketName, objectName, minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to delete resume: %w", err)
	}

	return nil
}

// PresignedURL returns a temporary download URL for a stored resume.
func (s *Storage) PresignedURL(ctx context.Context, objectName string, expiry time.Duration) (string, error) {
	url, err := s.client.PresignedGetObject(ctx, s.bucketName, objectName, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate URL: %w", err)
	}

	return url.String(), nil
}

// ListForUser lists the object keys of a user's stored resumes.
func (s *Storage) ListForUser(ctx context.Context, userID string) ([]string, error) {
	var objects []string

	prefix := fmt.Sprintf("resumes/%s/", userID)
	for object := range s.client.ListObjects(ctx, s.bucketName, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if object.Err != nil {
			return nil, fmt.Errorf("failed to list resumes: %w", object.Err)
		}
		objects = append(objects, object.Key)
	}

	return objects, nil
}

// resumeContentTypes maps accepted resume extensions to content types.
var resumeContentTypes = map[string]string{
	".pdf":  "application/pdf",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".txt":  "text/plain",
}
