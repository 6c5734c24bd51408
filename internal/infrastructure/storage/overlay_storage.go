package storage

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// OverlayStorage keeps computed communication-zone images in MinIO so flight
// history can show what the operator saw at decision time.
type OverlayStorage struct {
	minioClient *minio.Client
	bucketName  string
}

// NewOverlayStorage creates an OverlayStorage, making the bucket if needed.
func NewOverlayStorage(endpoint, accessKey, secretKey, bucket string, useSSL bool) (*OverlayStorage, error) {
	minioClient, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MinIO client: %w", err)
	}

	exists, err := minioClient.BucketExists(context.Background(), bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check if bucket exists: %w", err)
	}

	if !exists {
		err = minioClient.MakeBucket(context.Background(), bucket, minio.MakeBucketOptions{})
		if err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return &OverlayStorage{
		minioClient: minioClient,
		bucketName:  bucket,
	}, nil
}

// SaveOverlayImage decodes a data-URI image and stores it under the flight id.
func (s *OverlayStorage) SaveOverlayImage(ctx context.Context, flightID uuid.UUID, dataURI string) (string, error) {
	contentType, payload, err := decodeDataURI(dataURI)
	if err != nil {
		return "", err
	}

	objectKey := fmt.Sprintf("overlays/%s%s", flightID, extensionFor(contentType))

	_, err = s.minioClient.PutObject(
		ctx,
		s.bucketName,
		objectKey,
		bytes.NewReader(payload),
		int64(len(payload)),
		minio.PutObjectOptions{ContentType: contentType},
	)
	if err != nil {
		return "", fmt.Errorf("failed to store overlay image: %w", err)
	}

	return objectKey, nil
}

// GetOverlayImage streams a stored overlay image and its content type.
func (s *OverlayStorage) GetOverlayImage(ctx context.Context, objectKey string) (io.ReadCloser, string, error) {
	object, err := s.minioClient.GetObject(ctx, s.bucketName, objectKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, "", fmt.Errorf("failed to get overlay image: %w", err)
	}

	info, err := object.Stat()
	if err != nil {
		object.Close()
		return nil, "", fmt.Errorf("failed to stat overlay image: %w", err)
	}

	return object, info.ContentType, nil
}

// decodeDataURI splits "data:<type>;base64,<payload>" into its parts.
func decodeDataURI(dataURI string) (contentType string, payload []byte, err error) {
	if !strings.HasPrefix(dataURI, "data:") {
		return "", nil, fmt.Errorf("overlay image is not a data URI")
	}

	meta, encoded, found := strings.Cut(dataURI[len("data:"):], ",")
	if !found {
		return "", nil, fmt.Errorf("malformed data URI")
	}

	contentType = strings.TrimSuffix(meta, ";base64")
	if contentType == meta {
		// Not base64-encoded; keep the raw bytes.
		return contentType, []byte(encoded), nil
	}

	payload, err = base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", nil, fmt.Errorf("decoding data URI payload: %w", err)
	}
	return contentType, payload, nil
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/svg+xml":
		return ".svg"
	default:
		return ""
	}
}
