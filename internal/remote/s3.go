package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/klauern/snapsync/internal/logging"
	"github.com/klauern/snapsync/internal/model"
	"github.com/klauern/snapsync/internal/status"
)

// S3API is the subset of the S3 client used by S3Transport.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// S3Config describes where snapshots live in object storage.
type S3Config struct {
	Bucket   string
	Prefix   string
	Region   string
	Endpoint string

	// PathStyle forces path-style addressing, needed by most S3-compatible
	// servers.
	PathStyle bool
}

// S3Transport stores one JSON object per project under Prefix.
type S3Transport struct {
	api    S3API
	bucket string
	prefix string
}

// NewS3Transport builds a transport from the default AWS credential chain.
func NewS3Transport(ctx context.Context, cfg S3Config) (*S3Transport, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 transport requires a bucket")
	}

	var loadOpts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(cfg.Region))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	if awsCfg.Region == "" {
		awsCfg.Region = "us-east-1"
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.PathStyle
	})
	return NewS3TransportWithClient(client, cfg.Bucket, cfg.Prefix), nil
}

// NewS3TransportWithClient wraps an existing client.
func NewS3TransportWithClient(api S3API, bucket, prefix string) *S3Transport {
	return &S3Transport{api: api, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

func (t *S3Transport) key(projectID string) string {
	if t.prefix == "" {
		return projectID + ".json"
	}
	return path.Join(t.prefix, projectID+".json")
}

// Fetch implements Transport.
func (t *S3Transport) Fetch(ctx context.Context, projectID string) (model.Snapshot, error) {
	out, err := t.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(t.bucket),
		Key:    aws.String(t.key(projectID)),
	})
	if err != nil {
		return model.Snapshot{}, t.wrap("fetch", projectID, err)
	}
	defer func() { _ = out.Body.Close() }()

	var snap model.Snapshot
	if err := json.NewDecoder(out.Body).Decode(&snap); err != nil {
		return model.Snapshot{}, newError("fetch", projectID, fmt.Errorf("decode snapshot: %w", err))
	}
	return snap, nil
}

// Push implements Transport.
func (t *S3Transport) Push(ctx context.Context, projectID string, snap model.Snapshot) error {
	body, err := json.Marshal(snap)
	if err != nil {
		return newError("push", projectID, fmt.Errorf("encode snapshot: %w", err))
	}
	_, err = t.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(t.bucket),
		Key:         aws.String(t.key(projectID)),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return t.wrap("push", projectID, err)
	}
	logging.Debug("snapshot uploaded", logging.Project(projectID), logging.Path(t.key(projectID)))
	return nil
}

// QueryStatus implements Transport. An object that exists reports Synced.
func (t *S3Transport) QueryStatus(ctx context.Context, projectID string) (status.Status, error) {
	_, err := t.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(t.bucket),
		Key:    aws.String(t.key(projectID)),
	})
	if err != nil {
		wrapped := t.wrap("status", projectID, err)
		if errors.Is(wrapped, ErrNotFound) {
			return status.Unknown, nil
		}
		return status.Unknown, wrapped
	}
	return status.Synced, nil
}

// Ping implements Transport.
func (t *S3Transport) Ping(ctx context.Context) error {
	if _, err := t.api.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(t.bucket)}); err != nil {
		return t.wrap("ping", "", err)
	}
	return nil
}

func (t *S3Transport) wrap(op, projectID string, err error) error {
	if isS3NotFound(err) {
		return newError(op, projectID, fmt.Errorf("%w: s3://%s/%s", ErrNotFound, t.bucket, t.key(projectID)))
	}
	return newError(op, projectID, err)
}

func isS3NotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}
