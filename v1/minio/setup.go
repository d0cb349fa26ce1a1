package minio

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/Aleph-Alpha/vdbclient/v1/observability"
)

const markdownContentType = "text/markdown"

// objectPutter is the part of *minio.Client used for uploads.
type objectPutter interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

type clientFactory func(endpoint string, opts *minio.Options) (objectPutter, error)

func newMinioClient(endpoint string, opts *minio.Options) (objectPutter, error) {
	return minio.New(endpoint, opts)
}

// DocumentUploader uploads document-set files with per-upload credentials.
// It holds no connection between uploads and is safe for concurrent use.
type DocumentUploader struct {
	cfg Config

	// observer provides optional observability hooks for tracking uploads
	observer observability.Observer

	// logger provides optional context-aware logging
	logger Logger

	newClient clientFactory
}

// NewUploader creates an uploader. Invalid bucket lookup values fall back to
// DNS lookup; call Config.Validate to reject them instead.
func NewUploader(cfg Config) *DocumentUploader {
	if cfg.Source == "" {
		cfg.Source = defaultSource
	}
	return &DocumentUploader{cfg: cfg, newClient: newMinioClient}
}

// WithObserver attaches an observer notified after every upload.
// It returns the uploader for method chaining.
func (u *DocumentUploader) WithObserver(observer observability.Observer) *DocumentUploader {
	u.observer = observer
	return u
}

// WithLogger attaches a logger for upload events.
// It returns the uploader for method chaining.
func (u *DocumentUploader) WithLogger(logger Logger) *DocumentUploader {
	u.logger = logger
	return u
}

// Upload checks file against the target's upload condition and writes it to
// the target's bucket under the target's object key.
func (u *DocumentUploader) Upload(ctx context.Context, target Target, file File) (*UploadInfo, error) {
	start := time.Now()

	info, err := u.upload(ctx, target, file)

	var bucket, key string
	var size int64
	if info != nil {
		bucket, key, size = info.Bucket, info.Key, info.Size
	} else {
		key = target.ObjectKey
	}
	u.observeOperation("upload_document_set", bucket, key, time.Since(start), err, size, map[string]interface{}{
		"document_set_id": target.DocumentSetID,
	})
	return info, err
}

func (u *DocumentUploader) upload(ctx context.Context, target Target, file File) (*UploadInfo, error) {
	if target.Credentials.empty() {
		return nil, ErrMissingCredentials
	}
	st, err := CheckFile(file.Path)
	if err != nil {
		return nil, err
	}
	if err := CheckSize(file.Path, st.Size(), target.MaxContentLength); err != nil {
		return nil, err
	}
	userMeta, err := u.userMetadata(target.DocumentSetID, file.Metadata)
	if err != nil {
		return nil, err
	}

	loc, err := parseEndpoint(target.Endpoint, u.cfg.Secure)
	if err != nil {
		return nil, err
	}
	if u.cfg.EndpointOverride != "" {
		loc.host = u.cfg.EndpointOverride
	}

	client, err := u.newClient(loc.host, &minio.Options{
		Creds: credentials.NewStaticV4(
			target.Credentials.AccessKeyID,
			target.Credentials.SecretAccessKey,
			target.Credentials.SessionToken,
		),
		Secure:       loc.secure,
		Region:       loc.region,
		BucketLookup: u.cfg.bucketLookup(),
	})
	if err != nil {
		return nil, fmt.Errorf("[MINIO] create client for %s: %w", loc.host, err)
	}

	f, err := os.Open(file.Path)
	if err != nil {
		return nil, fmt.Errorf("[MINIO] open %s: %w", file.Path, err)
	}
	defer f.Close()

	key := strings.TrimPrefix(target.ObjectKey, "/")
	u.logDebug(ctx, "Uploading document set", map[string]interface{}{
		"bucket":          loc.bucket,
		"region":          loc.region,
		"key":             key,
		"size":            st.Size(),
		"document_set_id": target.DocumentSetID,
	})

	res, err := client.PutObject(ctx, loc.bucket, key, f, st.Size(), minio.PutObjectOptions{
		ContentType:  markdownContentType,
		UserMetadata: userMeta,
		PartSize:     u.cfg.PartSize,
	})
	if err != nil {
		u.logError(ctx, "Document set upload failed", err, map[string]interface{}{
			"bucket": loc.bucket,
			"key":    key,
		})
		return nil, fmt.Errorf("[MINIO] upload %s to %s/%s: %w", file.Path, loc.bucket, key, err)
	}

	u.logInfo(ctx, "Document set uploaded", map[string]interface{}{
		"bucket":          loc.bucket,
		"key":             key,
		"etag":            res.ETag,
		"document_set_id": target.DocumentSetID,
	})
	return &UploadInfo{
		Bucket: loc.bucket,
		Region: loc.region,
		Key:    key,
		ETag:   res.ETag,
		Size:   st.Size(),
	}, nil
}

// CheckFile verifies that path names an existing regular markdown file.
func CheckFile(path string) (fs.FileInfo, error) {
	st, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("[MINIO] stat %s: %w", path, err)
	}
	if !st.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s", ErrNotRegularFile, path)
	}
	if !IsMarkdown(path) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, path)
	}
	return st, nil
}

// CheckSize rejects empty files and files larger than maxLength bytes.
func CheckSize(path string, size, maxLength int64) error {
	if size == 0 {
		return fmt.Errorf("%w: %s", ErrEmptyFile, path)
	}
	if size > maxLength {
		return fmt.Errorf("%w: %s is %d bytes, max %d", ErrFileTooLarge, path, size, maxLength)
	}
	return nil
}

// IsMarkdown reports whether path has a markdown extension or none.
func IsMarkdown(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case "", ".md", ".markdown":
		return true
	default:
		return false
	}
}

// ValidateMetadata rejects keys starting with "_", which the server reserves.
func ValidateMetadata(metadata map[string]any) error {
	for k := range metadata {
		if strings.HasPrefix(k, "_") {
			return fmt.Errorf("%w: field %q can not start with \"_\"", ErrInvalidMetadata, k)
		}
	}
	return nil
}

// userMetadata encodes caller metadata as URL-escaped base64 JSON next to the
// document-set id and the upload source.
func (u *DocumentUploader) userMetadata(documentSetID string, metadata map[string]any) (map[string]string, error) {
	if err := ValidateMetadata(metadata); err != nil {
		return nil, err
	}
	if metadata == nil {
		metadata = map[string]any{}
	}
	raw, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
	}
	return map[string]string{
		"data":   url.QueryEscape(base64.StdEncoding.EncodeToString(raw)),
		"id":     documentSetID,
		"source": u.cfg.Source,
	}, nil
}

// location is an upload endpoint split into what minio-go needs.
type location struct {
	host   string
	bucket string
	region string
	secure bool
}

// parseEndpoint splits https://<bucket>.<service>.<region>.<domain>[:port].
// The returned host drops the bucket label, which DNS lookup prepends again.
func parseEndpoint(endpoint string, defaultSecure bool) (location, error) {
	loc := location{secure: defaultSecure}
	hostport := endpoint
	if strings.Contains(endpoint, "://") {
		u, err := url.Parse(endpoint)
		if err != nil {
			return location{}, fmt.Errorf("%w: %v", ErrInvalidEndpoint, err)
		}
		switch u.Scheme {
		case "https":
			loc.secure = true
		case "http":
			loc.secure = false
		default:
			return location{}, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidEndpoint, u.Scheme)
		}
		hostport = u.Host
	}
	hostport = strings.TrimRight(hostport, "/")

	hostname, port := hostport, ""
	if h, p, err := net.SplitHostPort(hostport); err == nil {
		hostname, port = h, p
	}
	labels := strings.Split(hostname, ".")
	if len(labels) < 3 || labels[0] == "" || labels[2] == "" {
		return location{}, fmt.Errorf("%w: %q", ErrInvalidEndpoint, endpoint)
	}

	loc.bucket = labels[0]
	loc.region = labels[2]
	loc.host = strings.Join(labels[1:], ".")
	if port != "" {
		loc.host = net.JoinHostPort(loc.host, port)
	}
	return loc, nil
}

func (u *DocumentUploader) logDebug(ctx context.Context, msg string, fields map[string]interface{}) {
	if u.logger != nil {
		u.logger.DebugWithContext(ctx, msg, nil, fields)
	}
}

func (u *DocumentUploader) logInfo(ctx context.Context, msg string, fields map[string]interface{}) {
	if u.logger != nil {
		u.logger.InfoWithContext(ctx, msg, nil, fields)
	}
}

func (u *DocumentUploader) logError(ctx context.Context, msg string, err error, fields map[string]interface{}) {
	if u.logger != nil {
		u.logger.ErrorWithContext(ctx, msg, err, fields)
	}
}
