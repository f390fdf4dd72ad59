package repositories

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/cockroachdb/errors"

	"pipeline-workers/domain"
)

type S3API interface {
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

type S3Repository struct {
	client  S3API
	bucket  string
	prefix  string
	maxSize int64
}

// NewS3Repository builds a path-style client. A custom endpoint and static
// keys are used when configured, the default AWS chain otherwise.
func NewS3Repository(awsCfg aws.Config, cfg S3Config) *S3Repository {
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = true
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		if cfg.AccessKey != "" && cfg.SecretKey != "" {
			o.Credentials = credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")
		}
	})
	return NewS3RepositoryWithClient(client, cfg)
}

func NewS3RepositoryWithClient(client S3API, cfg S3Config) *S3Repository {
	return &S3Repository{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix, maxSize: cfg.MaxSize}
}

func (r *S3Repository) Backend() string { return "s3" }

// List returns every object under the prefix. Any failure is transient: the
// caller aborts the tick.
func (r *S3Repository) List(ctx context.Context) ([]domain.ObjectInfo, error) {
	input := &s3.ListObjectsV2Input{Bucket: aws.String(r.bucket)}
	if r.prefix != "" {
		input.Prefix = aws.String(r.prefix)
	}
	var out []domain.ObjectInfo
	paginator := s3.NewListObjectsV2Paginator(r.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, domain.MarkTransient(classifyS3Error(errors.Wrapf(err, "list s3://%s/%s", r.bucket, r.prefix)))
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if isDirectoryMarker(key) {
				continue
			}
			out = append(out, domain.ObjectInfo{
				Name:         key,
				Size:         aws.ToInt64(obj.Size),
				LastModified: aws.ToTime(obj.LastModified).UTC(),
				ETag:         trimETag(aws.ToString(obj.ETag)),
			})
		}
	}
	return out, nil
}

func (r *S3Repository) Get(ctx context.Context, name string) ([]byte, domain.ObjectInfo, error) {
	obj, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(name),
	})
	if err != nil {
		return nil, domain.ObjectInfo{}, domain.MarkPerObject(classifyS3Error(errors.Wrapf(err, "get s3://%s/%s", r.bucket, name)))
	}
	defer obj.Body.Close()

	info := domain.ObjectInfo{
		Name:         name,
		Size:         aws.ToInt64(obj.ContentLength),
		LastModified: aws.ToTime(obj.LastModified).UTC(),
		ETag:         trimETag(aws.ToString(obj.ETag)),
		ContentType:  aws.ToString(obj.ContentType),
	}
	if err := checkSize(name, info.Size, r.maxSize); err != nil {
		return nil, info, err
	}
	data, err := readLimited(name, obj.Body, r.maxSize)
	if err != nil {
		return nil, info, domain.MarkPerObject(errors.Wrapf(err, "read s3://%s/%s", r.bucket, name))
	}
	return data, info, nil
}

// classifyS3Error marks not-found and credential failures so callers can tell
// them apart from network trouble.
func classifyS3Error(err error) error {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return err
	}
	switch apiErr.ErrorCode() {
	case "NoSuchKey", "NoSuchBucket", "NotFound":
		return errors.Mark(err, domain.ErrNotFound)
	case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch", "Forbidden":
		return errors.Mark(err, domain.ErrUnauthorized)
	}
	return err
}

