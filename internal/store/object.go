package store

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"sync/atomic"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ObjectStoreConfig describes an S3-compatible bucket.
type ObjectStoreConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	// Prefix is prepended to every object name.
	Prefix string
	UseSSL bool
}

// ObjectStore keeps one object per key in an S3-compatible bucket.
type ObjectStore struct {
	client *minio.Client
	bucket string
	prefix string
	closed atomic.Bool
}

// NewObjectStore connects and creates the bucket when it is missing.
func NewObjectStore(ctx context.Context, cfg ObjectStoreConfig) (*ObjectStore, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("store: object store requires endpoint and bucket")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("store: create object client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("store: check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("store: create bucket %s: %w", cfg.Bucket, err)
		}
	}

	prefix := strings.Trim(cfg.Prefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	return &ObjectStore{client: client, bucket: cfg.Bucket, prefix: prefix}, nil
}

func (o *ObjectStore) objectName(key string) string {
	return o.prefix + path.Clean(url.PathEscape(key))
}

func (o *ObjectStore) Read(ctx context.Context, key string) (string, bool, error) {
	if o.closed.Load() {
		return "", false, ErrClosed
	}
	obj, err := o.client.GetObject(ctx, o.bucket, o.objectName(key), minio.GetObjectOptions{})
	if err != nil {
		return "", false, objectErr("read", key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if isNoSuchKey(err) {
			return "", false, nil
		}
		return "", false, objectErr("read", key, err)
	}
	return string(data), true, nil
}

func (o *ObjectStore) Write(ctx context.Context, key, value string) error {
	if o.closed.Load() {
		return ErrClosed
	}
	_, err := o.client.PutObject(ctx, o.bucket, o.objectName(key),
		strings.NewReader(value), int64(len(value)),
		minio.PutObjectOptions{ContentType: "text/plain; charset=utf-8"})
	return objectErr("write", key, err)
}

func (o *ObjectStore) Remove(ctx context.Context, key string) error {
	if o.closed.Load() {
		return ErrClosed
	}
	err := o.client.RemoveObject(ctx, o.bucket, o.objectName(key), minio.RemoveObjectOptions{})
	if err != nil && isNoSuchKey(err) {
		return nil
	}
	return objectErr("remove", key, err)
}

func (o *ObjectStore) Usage(ctx context.Context) (int64, error) {
	if o.closed.Load() {
		return 0, ErrClosed
	}
	var total int64
	for info := range o.client.ListObjects(ctx, o.bucket, minio.ListObjectsOptions{Prefix: o.prefix, Recursive: true}) {
		if info.Err != nil {
			return 0, objectErr("usage", "", info.Err)
		}
		total += info.Size
	}
	return total, nil
}

func (o *ObjectStore) Close() error {
	o.closed.Store(true)
	return nil
}

func isNoSuchKey(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}

func objectErr(op, key string, err error) error {
	if err == nil {
		return nil
	}
	if key == "" {
		return fmt.Errorf("store: object %s: %w", op, err)
	}
	return fmt.Errorf("store: object %s %s: %w", op, key, err)
}
