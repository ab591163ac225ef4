package lake

import (
	"context"
	"fmt"
	"os"

	"gocloud.dev/blob"
	"gocloud.dev/blob/fileblob"
	"gocloud.dev/blob/memblob"

	// Registered for blob.OpenBucket URL dispatch.
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/s3blob"
)

// BucketConfig selects and configures the object storage backend.
type BucketConfig struct {
	// Backend is one of: local, gcs, s3, mem
	Backend string
	// Bucket is the bucket name for gcs and s3 backends.
	Bucket string
	// LocalDir is the root directory for the local backend.
	LocalDir string
	// Prefix is an optional key prefix applied to all objects.
	Prefix string
}

// OpenBucket opens the configured blob bucket. The caller owns the
// returned bucket and must Close it.
func OpenBucket(ctx context.Context, cfg BucketConfig) (*blob.Bucket, error) {
	var (
		bucket *blob.Bucket
		err    error
	)
	switch cfg.Backend {
	case "local", "":
		dir := cfg.LocalDir
		if dir == "" {
			dir = "./lake-data"
		}
		if mkErr := os.MkdirAll(dir, 0o755); mkErr != nil {
			return nil, fmt.Errorf("creating local storage dir: %w", mkErr)
		}
		bucket, err = fileblob.OpenBucket(dir, &fileblob.Options{
			CreateDir: true,
		})
	case "gcs":
		bucket, err = blob.OpenBucket(ctx, "gs://"+cfg.Bucket)
	case "s3":
		bucket, err = blob.OpenBucket(ctx, "s3://"+cfg.Bucket)
	case "mem":
		bucket = memblob.OpenBucket(nil)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s bucket: %w", cfg.Backend, err)
	}

	if cfg.Prefix != "" {
		bucket = blob.PrefixedBucket(bucket, cfg.Prefix)
	}
	return bucket, nil
}
