package minio

import (
	"fmt"
	"strings"

	"github.com/minio/minio-go/v7"
)

const (
	// BucketLookupDNS addresses buckets as a host prefix (bucket.host).
	BucketLookupDNS = "dns"
	// BucketLookupPath addresses buckets as the first path segment.
	BucketLookupPath = "path"
	// BucketLookupAuto lets minio-go decide from the endpoint.
	BucketLookupAuto = "auto"

	defaultSource = "GoSDK"
)

// Config controls how document sets are written to object storage.
type Config struct {
	// Secure selects https when the upload endpoint carries no scheme.
	Secure bool `yaml:"secure" envconfig:"TCVDB_UPLOAD_SECURE" default:"true"`

	// BucketLookup is "dns", "path" or "auto".
	BucketLookup string `yaml:"bucket_lookup" envconfig:"TCVDB_UPLOAD_BUCKET_LOOKUP" default:"dns"`

	// EndpointOverride replaces the host derived from the upload endpoint,
	// e.g. a private gateway. Bucket and region are still derived from it.
	EndpointOverride string `yaml:"endpoint_override" envconfig:"TCVDB_UPLOAD_ENDPOINT_OVERRIDE"`

	// Source is written to the object's "source" metadata.
	Source string `yaml:"source" envconfig:"TCVDB_UPLOAD_SOURCE" default:"GoSDK"`

	// PartSize is the multipart part size in bytes; 0 lets minio-go choose.
	PartSize uint64 `yaml:"part_size" envconfig:"TCVDB_UPLOAD_PART_SIZE"`
}

// DefaultConfig returns a configuration for the hosted object store.
func DefaultConfig() Config {
	return Config{
		Secure:       true,
		BucketLookup: BucketLookupDNS,
		Source:       defaultSource,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	switch strings.ToLower(c.BucketLookup) {
	case "", BucketLookupDNS, BucketLookupPath, BucketLookupAuto:
	default:
		return fmt.Errorf("[MINIO] invalid bucket lookup %q", c.BucketLookup)
	}
	return nil
}

func (c Config) bucketLookup() minio.BucketLookupType {
	switch strings.ToLower(c.BucketLookup) {
	case BucketLookupPath:
		return minio.BucketLookupPath
	case BucketLookupAuto:
		return minio.BucketLookupAuto
	default:
		return minio.BucketLookupDNS
	}
}
