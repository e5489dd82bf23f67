// Package s3 implements the blob store on Amazon S3 or S3-compatible
// storage (MinIO, Localstack, Cubbit DS3).
//
// Object keys are the allocated storage paths, optionally under a
// configured key prefix, so the bucket layout mirrors the local filesystem
// layout (drive/<year>/<month>/<digest><ext>) and remains human-inspectable.
//
// S3 PutObject is already atomic — readers see either the whole object or
// nothing — so the staging dance the filesystem store performs is not
// needed here. Write-once semantics are preserved by a HeadObject check
// before the upload; a lost race means both writers upload identical
// content-addressed bytes, which is harmless.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/drivevault/drivevault/pkg/blob"
)

// S3BlobStore implements blob.WritableStore and blob.SweepableStore on an
// S3 bucket. Safe for concurrent use.
type S3BlobStore struct {
	client    *awss3.Client
	bucket    string
	keyPrefix string
}

// S3BlobStoreConfig contains configuration for the S3 blob store.
type S3BlobStoreConfig struct {
	// Client is the configured S3 client (endpoint, credentials, retryer
	// are assembled by the config factory).
	Client *awss3.Client

	// Bucket is the bucket name. Must already exist.
	Bucket string

	// KeyPrefix is an optional prefix for all object keys, e.g.
	// "drivevault/" produces keys like "drivevault/drive/2026/08/<digest>".
	KeyPrefix string
}

// NewS3BlobStore creates an S3-backed blob store and verifies bucket
// access with a HeadBucket call.
func NewS3BlobStore(ctx context.Context, cfg S3BlobStoreConfig) (*S3BlobStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if cfg.Client == nil {
		return nil, fmt.Errorf("S3 client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}

	store := &S3BlobStore{
		client:    cfg.Client,
		bucket:    cfg.Bucket,
		keyPrefix: cfg.KeyPrefix,
	}

	if _, err := cfg.Client.HeadBucket(ctx, &awss3.HeadBucketInput{
		Bucket: aws.String(cfg.Bucket),
	}); err != nil {
		return nil, fmt.Errorf("failed to access bucket %s: %w", cfg.Bucket, err)
	}

	return store, nil
}

// objectKey maps a storage path to its S3 object key.
func (s *S3BlobStore) objectKey(path string) string {
	return s.keyPrefix + path
}

// Open returns a reader streaming the object body.
func (s *S3BlobStore) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result, err := s.client.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(path)),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, fmt.Errorf("blob %s: %w", path, blob.ErrBlobNotFound)
		}
		return nil, fmt.Errorf("failed to get object: %w", err)
	}

	return result.Body, nil
}

// Size returns the object's content length from a HeadObject call.
func (s *S3BlobStore) Size(ctx context.Context, path string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	head, err := s.client.HeadObject(ctx, &awss3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(path)),
	})
	if err != nil {
		if isNotFound(err) {
			return 0, fmt.Errorf("blob %s: %w", path, blob.ErrBlobNotFound)
		}
		return 0, fmt.Errorf("failed to head object: %w", err)
	}

	if head.ContentLength == nil {
		return 0, nil
	}
	return *head.ContentLength, nil
}

// Exists reports whether the object is present.
func (s *S3BlobStore) Exists(ctx context.Context, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	_, err := s.client.HeadObject(ctx, &awss3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(path)),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to head object: %w", err)
	}

	return true, nil
}

// Write uploads the bytes from r unless the object already exists.
func (s *S3BlobStore) Write(ctx context.Context, path string, r io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if !blob.ValidPath(path) {
		return fmt.Errorf("path %q: %w", path, blob.ErrInvalidPath)
	}

	exists, err := s.Exists(ctx, path)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	if _, err := s.client.PutObject(ctx, &awss3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(path)),
		Body:   r,
	}); err != nil {
		return fmt.Errorf("failed to put object: %w", err)
	}

	return nil
}

// Remove deletes the object. S3 DeleteObject succeeds for absent keys, so
// the operation is naturally idempotent.
func (s *S3BlobStore) Remove(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := s.client.DeleteObject(ctx, &awss3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(path)),
	}); err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}

	return nil
}

// ListPaths pages through the bucket (under the key prefix) and returns
// every stored path.
func (s *S3BlobStore) ListPaths(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var paths []string

	paginator := awss3.NewListObjectsV2Paginator(s.client, &awss3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.keyPrefix),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}
		for _, obj := range page.Contents {
			if obj.Key == nil {
				continue
			}
			paths = append(paths, strings.TrimPrefix(*obj.Key, s.keyPrefix))
		}
	}

	return paths, nil
}

// RemoveBatch deletes up to 1000 objects per DeleteObjects call, returning
// per-path failures.
func (s *S3BlobStore) RemoveBatch(ctx context.Context, paths []string) (map[string]error, error) {
	failures := make(map[string]error)

	const maxPerRequest = 1000 // S3 DeleteObjects limit

	for start := 0; start < len(paths); start += maxPerRequest {
		if err := ctx.Err(); err != nil {
			for _, remaining := range paths[start:] {
				failures[remaining] = err
			}
			return failures, err
		}

		end := min(start+maxPerRequest, len(paths))
		batch := paths[start:end]

		objects := make([]types.ObjectIdentifier, 0, len(batch))
		for _, p := range batch {
			objects = append(objects, types.ObjectIdentifier{
				Key: aws.String(s.objectKey(p)),
			})
		}

		result, err := s.client.DeleteObjects(ctx, &awss3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &types.Delete{
				Objects: objects,
				Quiet:   aws.Bool(true),
			},
		})
		if err != nil {
			for _, p := range batch {
				failures[p] = err
			}
			continue
		}

		for _, deleteErr := range result.Errors {
			if deleteErr.Key == nil {
				continue
			}
			key := strings.TrimPrefix(*deleteErr.Key, s.keyPrefix)
			msg := "delete failed"
			if deleteErr.Message != nil {
				msg = *deleteErr.Message
			}
			failures[key] = fmt.Errorf("%s", msg)
		}
	}

	return failures, nil
}

// isNotFound reports whether an S3 error indicates a missing object.
// HeadObject reports misses as NotFound rather than NoSuchKey.
func isNotFound(err error) bool {
	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	return errors.As(err, &notFound) || errors.As(err, &noSuchKey)
}
