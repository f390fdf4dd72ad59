package repositories

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"pipeline-workers/domain"
)

// MinioRepository reads from any S3 compatible service without the AWS
// credential chain: MinIO, Ceph, CSC Allas.
type MinioRepository struct {
	client  *minio.Client
	bucket  string
	prefix  string
	maxSize int64
}

func NewMinioRepository(cfg S3Config) (*MinioRepository, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, domain.ConfigError("s3 endpoint is required for the minio backend")
	}
	endpoint = strings.TrimPrefix(strings.TrimPrefix(endpoint, "https://"), "http://")
	access := strings.TrimSpace(cfg.AccessKey)
	secret := strings.TrimSpace(cfg.SecretKey)
	if access == "" || secret == "" {
		return nil, domain.ConfigError("s3 access key and secret key are required for the minio backend")
	}
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, domain.ConfigError("bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, errors.Wrap(err, "init minio client")
	}
	return &MinioRepository{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix, maxSize: cfg.MaxSize}, nil
}

func (r *MinioRepository) Backend() string { return "minio" }

func (r *MinioRepository) List(ctx context.Context) ([]domain.ObjectInfo, error) {
	var out []domain.ObjectInfo
	for obj := range r.client.ListObjects(ctx, r.bucket, minio.ListObjectsOptions{
		Prefix:    r.prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, domain.MarkTransient(classifyMinioError(errors.Wrapf(obj.Err, "list %s/%s", r.bucket, r.prefix)))
		}
		if isDirectoryMarker(obj.Key) {
			continue
		}
		out = append(out, domain.ObjectInfo{
			Name:         obj.Key,
			Size:         obj.Size,
			LastModified: obj.LastModified.UTC(),
			ETag:         trimETag(obj.ETag),
			ContentType:  obj.ContentType,
		})
	}
	return out, nil
}

func (r *MinioRepository) Get(ctx context.Context, name string) ([]byte, domain.ObjectInfo, error) {
	obj, err := r.client.GetObject(ctx, r.bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, domain.ObjectInfo{}, domain.MarkPerObject(classifyMinioError(errors.Wrapf(err, "get %s/%s", r.bucket, name)))
	}
	defer obj.Close()

	stat, err := obj.Stat()
	if err != nil {
		return nil, domain.ObjectInfo{}, domain.MarkPerObject(classifyMinioError(errors.Wrapf(err, "stat %s/%s", r.bucket, name)))
	}
	info := domain.ObjectInfo{
		Name:         name,
		Size:         stat.Size,
		LastModified: stat.LastModified.UTC(),
		ETag:         trimETag(stat.ETag),
		ContentType:  stat.ContentType,
	}
	if err := checkSize(name, info.Size, r.maxSize); err != nil {
		return nil, info, err
	}
	data, err := readLimited(name, obj, r.maxSize)
	if err != nil {
		return nil, info, domain.MarkPerObject(classifyMinioError(errors.Wrapf(err, "read %s/%s", r.bucket, name)))
	}
	return data, info, nil
}

func classifyMinioError(err error) error {
	switch minio.ToErrorResponse(errors.UnwrapAll(err)).Code {
	case "NoSuchKey", "NoSuchBucket":
		return errors.Mark(err, domain.ErrNotFound)
	case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch":
		return errors.Mark(err, domain.ErrUnauthorized)
	}
	return err
}
