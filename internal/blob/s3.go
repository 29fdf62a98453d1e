package blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"golang.org/x/sync/errgroup"

	"github.com/prepdeck/backend/internal/apperr"
	"github.com/prepdeck/backend/internal/model"
)

const (
	s3OpTimeout     = 30 * time.Second
	getManyParallel = 8
	listMaxKeys     = 10000
)

// S3Config holds connection parameters for the question bucket.
type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// S3Store persists questions as one JSON object per question in an
// S3-compatible bucket.
type S3Store struct {
	client *minio.Client
	bucket string
}

// NewS3Store connects to the bucket and verifies it exists.
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create S3 client: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s3OpTimeout)
	defer cancel()
	ok, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %q: %w", cfg.Bucket, err)
	}
	if !ok {
		return nil, fmt.Errorf("bucket %q does not exist", cfg.Bucket)
	}

	return &S3Store{client: client, bucket: cfg.Bucket}, nil
}

// Put writes the question as a flat JSON record under its stable key.
func (s *S3Store) Put(ctx context.Context, id string, q model.Question) error {
	data, err := json.Marshal(q)
	if err != nil {
		return &apperr.StorageError{Op: "put", Key: id, Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, s3OpTimeout)
	defer cancel()

	_, err = s.client.PutObject(ctx, s.bucket, objectKey(id),
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return &apperr.StorageError{Op: "put", Key: id, Err: err}
	}
	return nil
}

// Get retrieves a question by exact ID.
func (s *S3Store) Get(ctx context.Context, id string) (model.Question, error) {
	ctx, cancel := context.WithTimeout(ctx, s3OpTimeout)
	defer cancel()

	obj, err := s.client.GetObject(ctx, s.bucket, objectKey(id), minio.GetObjectOptions{})
	if err != nil {
		return model.Question{}, &apperr.StorageError{Op: "get", Key: id, Err: err}
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return model.Question{}, &apperr.NotFoundError{Kind: "question", ID: id}
		}
		return model.Question{}, &apperr.StorageError{Op: "get", Key: id, Err: err}
	}

	var q model.Question
	if err := json.Unmarshal(data, &q); err != nil {
		return model.Question{}, &apperr.StorageError{Op: "get", Key: id, Err: err}
	}
	return q, nil
}

// GetMany fetches questions concurrently, omitting any that fail.
func (s *S3Store) GetMany(ctx context.Context, ids []string) ([]model.Question, error) {
	results := make([]*model.Question, len(ids))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(getManyParallel)
	for i, id := range ids {
		g.Go(func() error {
			q, err := s.Get(ctx, id)
			if err != nil {
				slog.Warn("batch fetch skipping question", "id", id, "error", err)
				return nil
			}
			results[i] = &q
			return nil
		})
	}
	// Workers never return errors; Wait only fails on context teardown.
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]model.Question, 0, len(ids))
	for _, q := range results {
		if q != nil {
			out = append(out, *q)
		}
	}
	return out, nil
}

// List enumerates question IDs under the given ID prefix.
func (s *S3Store) List(ctx context.Context, prefix string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, s3OpTimeout)
	defer cancel()

	var ids []string
	for info := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    keyPrefix + prefix,
		Recursive: true,
		MaxKeys:   listMaxKeys,
	}) {
		if info.Err != nil {
			return nil, &apperr.StorageError{Op: "list", Key: prefix, Err: info.Err}
		}
		if id := idFromKey(info.Key); id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
