package repositories

import (
	"context"
	"io"
	"strings"

	"github.com/cockroachdb/errors"

	"pipeline-workers/domain"
)

// ObjectStore is the read-only view of the remote bucket the ingest stage
// mirrors.
type ObjectStore interface {
	List(ctx context.Context) ([]domain.ObjectInfo, error)
	Get(ctx context.Context, name string) ([]byte, domain.ObjectInfo, error)
	// Backend names the store in ingest metadata.
	Backend() string
}

type S3Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	UseSSL    bool
	// MaxSize rejects larger objects before download. 0 disables the check.
	MaxSize int64
}

// ErrTooLarge marks objects above the configured size limit.
var ErrTooLarge = errors.New("object exceeds size limit")

func checkSize(name string, size, max int64) error {
	if max > 0 && size > max {
		return domain.MarkPerObject(errors.Wrapf(ErrTooLarge, "%s is %d bytes, limit %d", name, size, max))
	}
	return nil
}

// readLimited reads r and fails when it holds more than max bytes, for
// objects whose listed size was wrong.
func readLimited(name string, r io.Reader, max int64) ([]byte, error) {
	if max <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, max+1))
	if err != nil {
		return nil, err
	}
	if err := checkSize(name, int64(len(data)), max); err != nil {
		return nil, err
	}
	return data, nil
}

func trimETag(etag string) string {
	return strings.Trim(etag, `"`)
}

// isDirectoryMarker skips the zero byte "folder/" keys some consoles create.
func isDirectoryMarker(key string) bool {
	return key == "" || strings.HasSuffix(key, "/")
}
