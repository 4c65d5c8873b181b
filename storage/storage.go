package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no object exists at a storage path
var ErrNotFound = errors.New("stored document not found")

// Storage stores uploaded contract files
type Storage interface {
	// Upload stores a document and returns its storage path
	Upload(ctx context.Context, docID uuid.UUID, filename, contentType string, data io.Reader) (string, error)

	// Download opens a stored document
	Download(ctx context.Context, storagePath string) (io.ReadCloser, error)

	// Delete removes a stored document. Missing objects are not an error.
	Delete(ctx context.Context, storagePath string) error
}

// Type represents the storage backend type
type Type string

const (
	TypeLocal Type = "local"
	TypeS3    Type = "s3"
)

// Config holds configuration for storage
type Config struct {
	Type         Type   `yaml:"type"`
	LocalPath    string `yaml:"local_path"`
	S3Bucket     string `yaml:"s3_bucket"`
	S3Region     string `yaml:"s3_region"`
	S3Endpoint   string `yaml:"s3_endpoint"`
	AWSAccessKey string `yaml:"-"`
	AWSSecretKey string `yaml:"-"`
}

// New creates a storage backend from configuration
func New(ctx context.Context, cfg Config) (Storage, error) {
	switch cfg.Type {
	case TypeLocal, "":
		path := cfg.LocalPath
		if path == "" {
			path = "./storage/files"
		}
		return NewLocalStorage(path)
	case TypeS3:
		if cfg.S3Bucket == "" {
			return nil, errors.New("s3 storage requires a bucket (AWS_S3_BUCKET)")
		}
		return NewS3Storage(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}

// ReadAll downloads a document fully, refusing anything larger than limit bytes.
func ReadAll(ctx context.Context, s Storage, storagePath string, limit int64) ([]byte, error) {
	rc, err := s.Download(ctx, storagePath)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read stored document: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("stored document exceeds %d bytes", limit)
	}
	return data, nil
}

// objectKey builds contracts/<2-char shard>/<id>_<sanitized name><ext>
func objectKey(docID uuid.UUID, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '.':
			return r
		default:
			return '_'
		}
	}, base)
	if len(base) > 64 {
		base = base[:64]
	}
	id := docID.String()
	return fmt.Sprintf("contracts/%s/%s_%s%s", id[:2], id, base, ext)
}
