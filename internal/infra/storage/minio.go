package storage

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	domain "github.com/bryanwahyu/fileguard/internal/domain/analysis"
)

// Store reads samples from a single bucket. It never writes.
type Store struct {
	client     *minio.Client
	bucketName string
}

// New builds the MinIO client. No request is made until Ping or Fetch.
func New(endpoint, region, bucket, accessKey, secretKey string, useSSL bool) (*Store, error) {
	cli, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
		Region: region,
	})
	if err != nil {
		return nil, err
	}
	return &Store{client: cli, bucketName: bucket}, nil
}

// Ping checks that the bucket exists and is reachable.
func (s *Store) Ping(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucketName)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("bucket %q does not exist", s.bucketName)
	}
	return nil
}

// Fetch implements analysis.ObjectSource.
func (s *Store) Fetch(ctx context.Context, key string, maxBytes int64) (domain.UploadedFile, error) {
	obj, err := s.client.GetObject(ctx, s.bucketName, key, minio.GetObjectOptions{})
	if err != nil {
		return domain.UploadedFile{}, wrapNotFound(key, err)
	}
	defer obj.Close()

	info, err := obj.Stat()
	if err != nil {
		return domain.UploadedFile{}, wrapNotFound(key, err)
	}
	if maxBytes > 0 && info.Size > maxBytes {
		return domain.UploadedFile{}, domain.ErrTooLarge
	}

	var r io.Reader = obj
	if maxBytes > 0 {
		r = io.LimitReader(obj, maxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return domain.UploadedFile{}, fmt.Errorf("read object %s: %w", key, err)
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return domain.UploadedFile{}, domain.ErrTooLarge
	}

	return domain.UploadedFile{
		Filename:  path.Base(key),
		MediaType: mediaTypeFor(key, info.ContentType),
		Content:   data,
	}, nil
}

func wrapNotFound(key string, err error) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket":
		return fmt.Errorf("%s: %w", key, domain.ErrObjectNotFound)
	}
	return fmt.Errorf("get object %s: %w", key, err)
}

// mediaTypeFor prefers the stored content type, then the key's extension.
// Empty means the caller falls back to octet-stream.
func mediaTypeFor(key, stored string) string {
	if stored != "" && stored != "binary/octet-stream" && stored != domain.DefaultMediaType {
		if mt, _, err := mime.ParseMediaType(stored); err == nil {
			return mt
		}
	}
	if byExt := mime.TypeByExtension(strings.ToLower(path.Ext(key))); byExt != "" {
		if mt, _, err := mime.ParseMediaType(byExt); err == nil {
			return mt
		}
	}
	return ""
}
