package repository

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/samber/mo"

	"github.com/omarluq/authgate/internal/session"
)

// s3API is the subset of *s3.Client the repository uses.
type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, opts ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, opts ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	s3.ListObjectsV2APIClient
}

// S3Config locates the bucket. Credentials come from AWS_ACCESS_KEY_ID and
// AWS_SECRET_ACCESS_KEY.
type S3Config struct {
	Bucket       string `yaml:"bucket" toml:"bucket"`
	Prefix       string `yaml:"prefix" toml:"prefix"`
	Region       string `yaml:"region" toml:"region"`
	Endpoint     string `yaml:"endpoint" toml:"endpoint"`
	UsePathStyle bool   `yaml:"use_path_style" toml:"use_path_style"`
}

// S3Repository stores each session as one JSON object "<prefix><token>.json".
type S3Repository struct {
	client s3API
	bucket string
	prefix string
}

var (
	_ Repository     = (*S3Repository)(nil)
	_ session.Lister = (*S3Repository)(nil)
)

// NewS3Client builds an S3 client from cfg and the environment.
func NewS3Client(cfg S3Config) *s3.Client {
	return s3.New(s3.Options{
		Region:       cfg.Region,
		UsePathStyle: cfg.UsePathStyle,
		BaseEndpoint: optionalString(cfg.Endpoint),
		Credentials: aws.NewCredentialsCache(aws.CredentialsProviderFunc(
			func(context.Context) (aws.Credentials, error) {
				id, secret := os.Getenv("AWS_ACCESS_KEY_ID"), os.Getenv("AWS_SECRET_ACCESS_KEY")
				if id == "" || secret == "" {
					return aws.Credentials{}, errors.New("s3: AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY must be set")
				}
				return aws.Credentials{
					AccessKeyID:     id,
					SecretAccessKey: secret,
					SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
					Source:          "environment",
				}, nil
			})),
	})
}

// NewS3Repository wraps client.
func NewS3Repository(client s3API, bucket, prefix string) *S3Repository {
	if prefix == "" {
		prefix = "sessions/"
	}
	return &S3Repository{client: client, bucket: bucket, prefix: prefix}
}

// Save puts rec as a JSON object.
func (r *S3Repository) Save(ctx context.Context, rec session.Record) error {
	data, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	_, err = r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.bucket),
		Key:         aws.String(r.key(rec.Token)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("s3 put: %w", err)
	}
	return nil
}

// FindByToken fetches the object for token.
func (r *S3Repository) FindByToken(ctx context.Context, token string) (mo.Option[session.Record], error) {
	out, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(r.key(token)),
	})
	if isS3NotFound(err) {
		return mo.None[session.Record](), nil
	}
	if err != nil {
		return mo.None[session.Record](), fmt.Errorf("s3 get: %w", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return mo.None[session.Record](), fmt.Errorf("s3 get: %w", err)
	}
	rec, err := decodeRecord(data)
	if err != nil {
		return mo.None[session.Record](), err
	}
	return mo.Some(rec), nil
}

// DeleteByToken removes the object. S3 deletes are idempotent, so a HEAD
// first decides whether anything existed.
func (r *S3Repository) DeleteByToken(ctx context.Context, token string) (bool, error) {
	key := aws.String(r.key(token))
	_, err := r.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: aws.String(r.bucket), Key: key})
	if isS3NotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("s3 head: %w", err)
	}
	if _, err := r.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(r.bucket), Key: key}); err != nil {
		return false, fmt.Errorf("s3 delete: %w", err)
	}
	return true, nil
}

// All lists and fetches every session object under the prefix.
func (r *S3Repository) All(ctx context.Context) ([]session.Record, error) {
	paginator := s3.NewListObjectsV2Paginator(r.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(r.bucket),
		Prefix: aws.String(r.prefix),
	})

	var records []session.Record
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("s3 list: %w", err)
		}
		for _, obj := range page.Contents {
			token, ok := r.tokenOf(aws.ToString(obj.Key))
			if !ok {
				continue
			}
			found, err := r.FindByToken(ctx, token)
			if err != nil {
				if errors.Is(err, ErrCorruptRecord) {
					continue
				}
				return nil, err
			}
			if rec, ok := found.Get(); ok {
				records = append(records, rec)
			}
		}
	}
	return records, nil
}

// Ping checks the bucket is reachable.
func (r *S3Repository) Ping(ctx context.Context) error {
	_, err := r.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(r.bucket)})
	return err
}

// Close is a no-op.
func (r *S3Repository) Close() error { return nil }

func (r *S3Repository) key(token string) string {
	return r.prefix + token + ".json"
}

func (r *S3Repository) tokenOf(key string) (string, bool) {
	rest, ok := strings.CutPrefix(key, r.prefix)
	if !ok {
		return "", false
	}
	return strings.CutSuffix(rest, ".json")
}

func isS3NotFound(err error) bool {
	if err == nil {
		return false
	}
	var noKey *types.NoSuchKey
	var notFound *types.NotFound
	return errors.As(err, &noKey) || errors.As(err, &notFound)
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return aws.String(s)
}
