package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"datingluck-server/internal/config"

	"github.com/aws/aws-sdk-go/aws"
	awscreds "github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	miniocreds "github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/sirupsen/logrus"
)

// BlobStore is the photo byte store. The reference deployment uses local
// disk; MinIO and S3 are drop-in object-storage replacements.
type BlobStore interface {
	Upload(ctx context.Context, file io.Reader, size int64, objectName, contentType string) (string, error)
	Delete(ctx context.Context, url string) error
}

type StorageService struct {
	cfg         *config.Config
	backend     string
	minioClient *minio.Client
	s3Client    *s3.S3
}

func NewStorageService(cfg *config.Config) (*StorageService, error) {
	service := &StorageService{cfg: cfg, backend: cfg.StorageBackend}

	switch cfg.StorageBackend {
	case "minio":
		minioClient, err := minio.New(cfg.MinIOEndpoint, &minio.Options{
			Creds:  miniocreds.NewStaticV4(cfg.MinIOAccessKey, cfg.MinIOSecretKey, ""),
			Secure: cfg.MinIOUseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create MinIO client: %w", err)
		}
		service.minioClient = minioClient
		if err := service.ensureMinIOBucket(); err != nil {
			return nil, err
		}
	case "s3":
		sess, err := session.NewSession(&aws.Config{
			Region: aws.String(cfg.AWSRegion),
			Credentials: awscreds.NewStaticCredentials(
				cfg.AWSAccessKeyID,
				cfg.AWSSecretKey,
				"",
			),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create AWS session: %w", err)
		}
		service.s3Client = s3.New(sess)
	case "local":
		if err := os.MkdirAll(cfg.LocalUploadDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create upload directory: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}

	logrus.WithField("backend", cfg.StorageBackend).Info("Blob storage ready")
	return service, nil
}

func (s *StorageService) ensureMinIOBucket() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	exists, err := s.minioClient.BucketExists(ctx, s.cfg.S3Bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		if err := s.minioClient.MakeBucket(ctx, s.cfg.S3Bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create MinIO bucket: %w", err)
		}
	}
	return nil
}

func (s *StorageService) Upload(ctx context.Context, file io.Reader, size int64, objectName, contentType string) (string, error) {
	switch s.backend {
	case "minio":
		return s.uploadToMinIO(ctx, file, size, objectName, contentType)
	case "s3":
		return s.uploadToS3(file, objectName, contentType)
	default:
		return s.uploadToDisk(file, objectName)
	}
}

func (s *StorageService) Delete(ctx context.Context, url string) error {
	key := s.extractKeyFromURL(url)
	if key == "" {
		return fmt.Errorf("invalid file URL")
	}

	switch s.backend {
	case "minio":
		return s.minioClient.RemoveObject(ctx, s.cfg.S3Bucket, key, minio.RemoveObjectOptions{})
	case "s3":
		_, err := s.s3Client.DeleteObject(&s3.DeleteObjectInput{
			Bucket: aws.String(s.cfg.S3Bucket),
			Key:    aws.String(key),
		})
		return err
	default:
		return os.Remove(filepath.Join(s.cfg.LocalUploadDir, filepath.Base(key)))
	}
}

func (s *StorageService) uploadToMinIO(ctx context.Context, file io.Reader, size int64, objectName, contentType string) (string, error) {
	_, err := s.minioClient.PutObject(ctx, s.cfg.S3Bucket, objectName, file, size,
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("failed to upload to MinIO: %w", err)
	}

	protocol := "http"
	if s.cfg.MinIOUseSSL {
		protocol = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", protocol, s.cfg.MinIOEndpoint, s.cfg.S3Bucket, objectName), nil
}

func (s *StorageService) uploadToS3(file io.Reader, objectName, contentType string) (string, error) {
	fileBytes, err := io.ReadAll(file)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	_, err = s.s3Client.PutObject(&s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.S3Bucket),
		Key:         aws.String(objectName),
		Body:        bytes.NewReader(fileBytes),
		ContentType: aws.String(contentType),
		ACL:         aws.String("public-read"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}

	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.cfg.S3Bucket, s.cfg.AWSRegion, objectName), nil
}

func (s *StorageService) uploadToDisk(file io.Reader, objectName string) (string, error) {
	path := filepath.Join(s.cfg.LocalUploadDir, filepath.Base(objectName))
	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create upload file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, file); err != nil {
		return "", fmt.Errorf("failed to write upload file: %w", err)
	}
	return fmt.Sprintf("%s/uploads/%s", s.cfg.PublicBaseURL, filepath.Base(objectName)), nil
}

func (s *StorageService) extractKeyFromURL(url string) string {
	if idx := strings.Index(url, "/uploads/"); idx >= 0 {
		return url[idx+len("/uploads/"):]
	}

	if idx := strings.Index(url, ".amazonaws.com/"); idx >= 0 {
		return url[idx+len(".amazonaws.com/"):]
	}

	if strings.Contains(url, s.cfg.MinIOEndpoint) {
		parts := strings.SplitN(url, s.cfg.S3Bucket+"/", 2)
		if len(parts) == 2 {
			return parts[1]
		}
	}
	return ""
}

// GenerateObjectName builds a unique blob name preserving the original
// extension.
func GenerateObjectName(originalName string) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	return fmt.Sprintf("%d-%s%s", time.Now().UnixNano(), uuid.New().String()[:8], ext)
}
