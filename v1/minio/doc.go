// Package minio uploads document-set files to the S3-compatible object store
// that backs the vector database's AI collections.
//
// Uploads use short-lived credentials handed out by the database for a single
// object key, so a client is built per upload rather than kept connected.
//
// Basic usage:
//
//	up := minio.NewUploader(minio.DefaultConfig()).WithLogger(log)
//
//	info, err := up.Upload(ctx, minio.Target{
//	    Endpoint:         "https://docs-1250.cos.ap-guangzhou.myqcloud.com",
//	    ObjectKey:        "/db/view/readme.md",
//	    DocumentSetID:    "1180",
//	    MaxContentLength: 10 << 20,
//	    Credentials:      minio.Credentials{AccessKeyID: id, SecretAccessKey: key, SessionToken: token},
//	}, minio.File{Path: "./readme.md"})
//
// Only markdown files are accepted. Files without an extension are treated as
// markdown.
//
// FX integration:
//
//	app := fx.New(
//	    logger.FXModule,
//	    minio.FXModule,
//	    tcvdb.FXModule,
//	)
package minio
