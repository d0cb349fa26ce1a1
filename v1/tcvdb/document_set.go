package tcvdb

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/Aleph-Alpha/vdbclient/v1/minio"
	"github.com/Aleph-Alpha/vdbclient/v1/tcvdb/wire"
)

// IndexedStatusNew is the indexing status of a freshly uploaded document set.
const IndexedStatusNew = "New"

// DocumentSet is a file handed to the AI backend for parsing and indexing.
type DocumentSet struct {
	ID   string
	Name string

	// IndexedProgress is a percentage; IndexedStatus is reported by the
	// server, e.g. "New", "Loading", "Success" or "Failure".
	IndexedProgress int
	IndexedStatus   string

	// Upload describes the stored object.
	Upload *minio.UploadInfo
}

// UploadDocumentSetOptions tunes UploadDocumentSet.
type UploadDocumentSetOptions struct {
	// Name is the document-set name. It defaults to the file name.
	Name string

	// Metadata is stored with the object. Keys must not start with "_".
	Metadata map[string]any
}

// UploadDocumentSet uploads a local markdown file into a collection view.
//
// The file is checked locally, then the database is asked for a temporary
// upload target, and the file is written there with the configured
// uploader. The server parses and indexes it asynchronously.
func (c *Client) UploadDocumentSet(ctx context.Context, database, collectionView, path string, opts UploadDocumentSetOptions) (*DocumentSet, error) {
	if _, err := minio.CheckFile(path); err != nil {
		return nil, err
	}
	if err := minio.ValidateMetadata(opts.Metadata); err != nil {
		return nil, err
	}
	name := opts.Name
	if name == "" {
		name = filepath.Base(path)
	}

	env, err := Invoke[wire.UploadURLResponse](ctx, c.dispatcher, Call{
		Method:     MethodUploadURL,
		Backend:    BackendAI,
		Database:   database,
		Collection: collectionView,
	}, wire.UploadURLRequest{
		Database:        database,
		CollectionView:  collectionView,
		DocumentSetName: name,
	})
	if err != nil {
		return nil, err
	}

	target, err := uploadTarget(env.Payload)
	if err != nil {
		return nil, fmt.Errorf("[TCVDB] upload url for %q: %w", name, err)
	}

	info, err := c.uploader.Upload(ctx, target, minio.File{Path: path, Metadata: opts.Metadata})
	if err != nil {
		return nil, err
	}

	c.logInfo(ctx, "[TCVDB] document set uploaded", map[string]interface{}{
		"database":        database,
		"collection_view": collectionView,
		"document_set":    name,
		"document_set_id": target.DocumentSetID,
	})
	return &DocumentSet{
		ID:              target.DocumentSetID,
		Name:            name,
		IndexedProgress: 0,
		IndexedStatus:   IndexedStatusNew,
		Upload:          info,
	}, nil
}

func uploadTarget(resp wire.UploadURLResponse) (minio.Target, error) {
	if resp.Credentials == nil || resp.UploadCondition == nil {
		return minio.Target{}, minio.ErrMissingCredentials
	}
	target := minio.Target{
		Endpoint:         resp.CosEndpoint,
		ObjectKey:        resp.UploadPath,
		DocumentSetID:    resp.DocumentSetID,
		MaxContentLength: resp.UploadCondition.MaxSupportContentLength,
		Credentials: minio.Credentials{
			AccessKeyID:     resp.Credentials.TmpSecretID,
			SecretAccessKey: resp.Credentials.TmpSecretKey,
			SessionToken:    resp.Credentials.Token,
		},
	}
	if resp.Credentials.ExpiredTime > 0 {
		target.Credentials.Expiration = time.Unix(resp.Credentials.ExpiredTime, 0)
	}
	return target, nil
}
