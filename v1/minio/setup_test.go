package minio

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/Aleph-Alpha/vdbclient/v1/observability"
)

// fakeStore captures what the uploader hands to minio-go.
type fakeStore struct {
	endpoint string
	opts     *minio.Options

	bucket string
	key    string
	body   []byte
	put    minio.PutObjectOptions
	err    error
}

func (s *fakeStore) factory(endpoint string, opts *minio.Options) (objectPutter, error) {
	s.endpoint, s.opts = endpoint, opts
	return s, nil
}

func (s *fakeStore) PutObject(_ context.Context, bucket, key string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	if s.err != nil {
		return minio.UploadInfo{}, s.err
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	s.bucket, s.key, s.body, s.put = bucket, key, body, opts
	return minio.UploadInfo{Bucket: bucket, Key: key, ETag: "etag-1", Size: size}, nil
}

func newFakeUploader(cfg Config) (*DocumentUploader, *fakeStore) {
	store := &fakeStore{}
	u := NewUploader(cfg)
	u.newClient = store.factory
	return u, store
}

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func testTarget() Target {
	return Target{
		Endpoint:         "https://docs-1250000000.cos.ap-guangzhou.myqcloud.com",
		ObjectKey:        "/ai/db/view/ds-1/guide.md",
		DocumentSetID:    "ds-1",
		MaxContentLength: 1024,
		Credentials: Credentials{
			AccessKeyID:     "AK",
			SecretAccessKey: "SK",
			SessionToken:    "TOKEN",
		},
	}
}

func TestParseEndpoint(t *testing.T) {
	tests := []struct {
		name     string
		endpoint string
		secure   bool
		want     location
		wantErr  bool
	}{
		{
			name:     "https url",
			endpoint: "https://docs-125.cos.ap-guangzhou.myqcloud.com",
			want:     location{host: "cos.ap-guangzhou.myqcloud.com", bucket: "docs-125", region: "ap-guangzhou", secure: true},
		},
		{
			name:     "http url with port",
			endpoint: "http://docs.cos.us-east-1.example.com:9000/",
			secure:   true,
			want:     location{host: "cos.us-east-1.example.com:9000", bucket: "docs", region: "us-east-1", secure: false},
		},
		{
			name:     "bare host keeps default",
			endpoint: "docs.cos.eu-west.example.com",
			secure:   true,
			want:     location{host: "cos.eu-west.example.com", bucket: "docs", region: "eu-west", secure: true},
		},
		{name: "too few labels", endpoint: "https://example.com", wantErr: true},
		{name: "bad scheme", endpoint: "ftp://docs.cos.r.example.com", wantErr: true},
		{name: "empty", endpoint: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseEndpoint(tt.endpoint, tt.secure)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidEndpoint)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsMarkdown(t *testing.T) {
	assert.True(t, IsMarkdown("guide.md"))
	assert.True(t, IsMarkdown("GUIDE.MD"))
	assert.True(t, IsMarkdown("notes.markdown"))
	assert.True(t, IsMarkdown("README"))
	assert.False(t, IsMarkdown("guide.pdf"))
	assert.False(t, IsMarkdown("guide.md.txt"))
}

func TestCheckFileAndSize(t *testing.T) {
	md := writeTemp(t, "guide.md", "# hi")
	st, err := CheckFile(md)
	require.NoError(t, err)
	assert.EqualValues(t, 4, st.Size())

	_, err = CheckFile(filepath.Join(t.TempDir(), "nope.md"))
	assert.ErrorIs(t, err, ErrFileNotFound)

	_, err = CheckFile(t.TempDir())
	assert.ErrorIs(t, err, ErrNotRegularFile)

	_, err = CheckFile(writeTemp(t, "a.docx", "x"))
	assert.ErrorIs(t, err, ErrUnsupportedFile)

	assert.NoError(t, CheckSize(md, 4, 4))
	assert.ErrorIs(t, CheckSize(md, 0, 4), ErrEmptyFile)
	assert.ErrorIs(t, CheckSize(md, 5, 4), ErrFileTooLarge)
}

func TestValidateMetadata(t *testing.T) {
	assert.NoError(t, ValidateMetadata(nil))
	assert.NoError(t, ValidateMetadata(map[string]any{"author": "x", "a_b": 1}))
	assert.ErrorIs(t, ValidateMetadata(map[string]any{"_id": "x"}), ErrInvalidMetadata)
}

func TestUserMetadata(t *testing.T) {
	u := NewUploader(Config{})

	meta, err := u.userMetadata("ds-1", map[string]any{"author": "jane", "pages": 3})
	require.NoError(t, err)
	assert.Equal(t, "ds-1", meta["id"])
	assert.Equal(t, "GoSDK", meta["source"])

	unescaped, err := url.QueryUnescape(meta["data"])
	require.NoError(t, err)
	raw, err := base64.StdEncoding.DecodeString(unescaped)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "jane", decoded["author"])
	assert.EqualValues(t, 3, decoded["pages"])

	empty, err := u.userMetadata("ds-2", nil)
	require.NoError(t, err)
	assert.Equal(t, url.QueryEscape(base64.StdEncoding.EncodeToString([]byte("{}"))), empty["data"])
}

func TestUpload(t *testing.T) {
	var ops []observability.OperationContext
	u, store := newFakeUploader(DefaultConfig())
	u.WithObserver(observability.ObserverFunc(func(op observability.OperationContext) { ops = append(ops, op) }))

	path := writeTemp(t, "guide.md", "# Guide\n")
	info, err := u.Upload(context.Background(), testTarget(), File{Path: path, Metadata: map[string]any{"k": "v"}})
	require.NoError(t, err)

	assert.Equal(t, "cos.ap-guangzhou.myqcloud.com", store.endpoint)
	assert.True(t, store.opts.Secure)
	assert.Equal(t, "ap-guangzhou", store.opts.Region)
	assert.Equal(t, minio.BucketLookupDNS, store.opts.BucketLookup)

	creds, err := store.opts.Creds.Get()
	require.NoError(t, err)
	assert.Equal(t, "AK", creds.AccessKeyID)
	assert.Equal(t, "TOKEN", creds.SessionToken)

	assert.Equal(t, "docs-1250000000", store.bucket)
	assert.Equal(t, "ai/db/view/ds-1/guide.md", store.key)
	assert.Equal(t, "# Guide\n", string(store.body))
	assert.Equal(t, "text/markdown", store.put.ContentType)
	assert.Equal(t, "ds-1", store.put.UserMetadata["id"])

	assert.Equal(t, &UploadInfo{
		Bucket: "docs-1250000000",
		Region: "ap-guangzhou",
		Key:    "ai/db/view/ds-1/guide.md",
		ETag:   "etag-1",
		Size:   8,
	}, info)

	require.Len(t, ops, 1)
	assert.Equal(t, "minio", ops[0].Component)
	assert.Equal(t, "upload_document_set", ops[0].Operation)
	assert.Equal(t, "docs-1250000000", ops[0].Resource)
	assert.EqualValues(t, 8, ops[0].Size)
	assert.Equal(t, "ds-1", ops[0].Metadata["document_set_id"])
}

func TestUpload_EndpointOverrideAndPathLookup(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EndpointOverride = "127.0.0.1:9000"
	cfg.BucketLookup = BucketLookupPath
	u, store := newFakeUploader(cfg)

	target := testTarget()
	target.Endpoint = "http://docs.cos.us-east-1.example.com"
	_, err := u.Upload(context.Background(), target, File{Path: writeTemp(t, "g.md", "x")})
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", store.endpoint)
	assert.False(t, store.opts.Secure)
	assert.Equal(t, minio.BucketLookupPath, store.opts.BucketLookup)
	assert.Equal(t, "docs", store.bucket)
}

func TestUpload_Rejections(t *testing.T) {
	path := writeTemp(t, "guide.md", "0123456789")

	tests := []struct {
		name   string
		mutate func(*Target, *File)
		want   error
	}{
		{"no credentials", func(tg *Target, _ *File) { tg.Credentials = Credentials{} }, ErrMissingCredentials},
		{"too large", func(tg *Target, _ *File) { tg.MaxContentLength = 5 }, ErrFileTooLarge},
		{"empty file", func(_ *Target, f *File) { f.Path = writeTemp(t, "empty.md", "") }, ErrEmptyFile},
		{"reserved metadata", func(_ *Target, f *File) { f.Metadata = map[string]any{"_x": 1} }, ErrInvalidMetadata},
		{"bad endpoint", func(tg *Target, _ *File) { tg.Endpoint = "https://localhost" }, ErrInvalidEndpoint},
		{"not markdown", func(_ *Target, f *File) { f.Path = writeTemp(t, "x.pdf", "x") }, ErrUnsupportedFile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, store := newFakeUploader(DefaultConfig())
			target, file := testTarget(), File{Path: path}
			tt.mutate(&target, &file)

			_, err := u.Upload(context.Background(), target, file)
			assert.ErrorIs(t, err, tt.want)
			assert.Nil(t, store.body)
		})
	}
}

func TestUpload_StoreFailure(t *testing.T) {
	u, store := newFakeUploader(DefaultConfig())
	store.err = errors.New("AccessDenied")

	var observed error
	u.WithObserver(observability.ObserverFunc(func(op observability.OperationContext) { observed = op.Error }))

	_, err := u.Upload(context.Background(), testTarget(), File{Path: writeTemp(t, "g.md", "x")})
	require.Error(t, err)
	assert.ErrorContains(t, err, "AccessDenied")
	assert.Equal(t, err, observed)
}

func TestConfig(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
	assert.NoError(t, Config{BucketLookup: "PATH"}.Validate())
	assert.Error(t, Config{BucketLookup: "virtual"}.Validate())

	assert.Equal(t, minio.BucketLookupAuto, Config{BucketLookup: BucketLookupAuto}.bucketLookup())
	assert.Equal(t, minio.BucketLookupDNS, Config{}.bucketLookup())
}

func TestFXModule(t *testing.T) {
	var up Uploader
	app := fxtest.New(t, FXModule, fx.Populate(&up))
	app.RequireStart()
	defer app.RequireStop()

	du, ok := up.(*DocumentUploader)
	require.True(t, ok)
	assert.Equal(t, DefaultConfig(), du.cfg)
}

func TestFXModule_RejectsInvalidConfig(t *testing.T) {
	app := fx.New(FXModule, fx.Supply(Config{BucketLookup: "virtual"}), fx.Invoke(func(Uploader) {}), fx.NopLogger)
	assert.Error(t, app.Err())
}
