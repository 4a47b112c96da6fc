package objectstore

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const workbookContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func NewMinIOClient(cfg Config) (*minio.Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:    cfg.UseSSL,
		Region:    cfg.Region,
		Transport: newTransport(),
	}
	return minio.New(cfg.Endpoint, opts)
}

func EnsureBuckets(ctx context.Context, client *minio.Client, cfg Config) error {
	if err := ensureBucket(ctx, client, cfg.BucketWorkbooks, cfg.Region); err != nil {
		return fmt.Errorf("ensure workbooks bucket: %w", err)
	}
	return nil
}

func CheckBuckets(ctx context.Context, client *minio.Client, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	exists, err := client.BucketExists(ctx, cfg.BucketWorkbooks)
	if err != nil {
		return fmt.Errorf("workbooks bucket exists: %w", err)
	}
	if !exists {
		return fmt.Errorf("workbooks bucket missing: %s", cfg.BucketWorkbooks)
	}
	return nil
}

// PutWorkbook uploads a master workbook under the given object key and
// returns the stored size.
func PutWorkbook(ctx context.Context, client *minio.Client, cfg Config, key string, body io.Reader, size int64) (int64, error) {
	info, err := client.PutObject(ctx, cfg.BucketWorkbooks, key, body, size, minio.PutObjectOptions{
		ContentType: workbookContentType,
	})
	if err != nil {
		return 0, fmt.Errorf("put workbook %s: %w", key, err)
	}
	return info.Size, nil
}

// GetWorkbook opens a stored workbook for reading. The caller owns the
// returned reader and must close it.
func GetWorkbook(ctx context.Context, client *minio.Client, cfg Config, key string) (io.ReadCloser, error) {
	obj, err := client.GetObject(ctx, cfg.BucketWorkbooks, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get workbook %s: %w", key, err)
	}
	return obj, nil
}

func ensureBucket(ctx context.Context, client *minio.Client, bucket string, region string) error {
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region})
}

func newTransport() *http.Transport {
	dialer := &net.Dialer{
		Timeout:   5 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}
