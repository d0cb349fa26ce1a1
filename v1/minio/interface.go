package minio

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrFileNotFound is returned when the local file does not exist.
	ErrFileNotFound = errors.New("[MINIO] file not found")

	// ErrNotRegularFile is returned for directories and special files.
	ErrNotRegularFile = errors.New("[MINIO] not a regular file")

	// ErrUnsupportedFile is returned when the file is not markdown.
	ErrUnsupportedFile = errors.New("[MINIO] only markdown files can be uploaded")

	// ErrEmptyFile is returned for zero-byte files.
	ErrEmptyFile = errors.New("[MINIO] empty file denied")

	// ErrFileTooLarge is returned when the file exceeds the upload condition.
	ErrFileTooLarge = errors.New("[MINIO] file exceeds max content length")

	// ErrMissingCredentials is returned when the target carries no credentials.
	ErrMissingCredentials = errors.New("[MINIO] upload credentials missing")

	// ErrInvalidEndpoint is returned when bucket and region cannot be derived.
	ErrInvalidEndpoint = errors.New("[MINIO] invalid upload endpoint")

	// ErrInvalidMetadata is returned for metadata keys starting with "_".
	ErrInvalidMetadata = errors.New("[MINIO] invalid metadata")
)

// Credentials are temporary object-store credentials scoped to one upload.
type Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string

	// Expiration is zero when the server did not report it.
	Expiration time.Time
}

func (c Credentials) empty() bool {
	return c.AccessKeyID == "" || c.SecretAccessKey == ""
}

// Target is the destination handed out by the database for one document set.
type Target struct {
	// Endpoint is the bucket URL, https://<bucket>.<service>.<region>.<domain>.
	Endpoint string

	// ObjectKey is the upload path inside the bucket.
	ObjectKey string

	// DocumentSetID is stored in the object's "id" metadata.
	DocumentSetID string

	// MaxContentLength bounds the file size in bytes. Zero rejects every file.
	MaxContentLength int64

	Credentials Credentials
}

// File is the local file to upload.
type File struct {
	Path string

	// Metadata is stored JSON-encoded in the object's "data" metadata.
	// Keys must not start with "_".
	Metadata map[string]any
}

// UploadInfo describes a completed upload.
type UploadInfo struct {
	Bucket string
	Region string
	Key    string
	ETag   string
	Size   int64
}

// Logger is the logging interface used by the uploader.
// *logger.Logger satisfies it.
type Logger interface {
	DebugWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
	InfoWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
	WarnWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
	ErrorWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
}

// Uploader writes a local file to a document-set target.
//
// This interface is implemented by *DocumentUploader.
type Uploader interface {
	Upload(ctx context.Context, target Target, file File) (*UploadInfo, error)
}
