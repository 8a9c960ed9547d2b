package blobstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/alimgiray/storyhub/internal/storage"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// containerMarker is written when a container is created so empty
// containers still exist
const containerMarker = ".container"

type S3Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// S3Store maps containers to key prefixes inside a single bucket of any
// S3-compatible service
type S3Store struct {
	client *minio.Client
	bucket string
	region string

	mu    sync.Mutex
	ready bool
}

func NewS3Store(cfg S3Config) (*S3Store, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint is required")
	}
	access := strings.TrimSpace(cfg.AccessKey)
	secret := strings.TrimSpace(cfg.SecretKey)
	if access == "" || secret == "" {
		return nil, fmt.Errorf("s3 access key and secret key are required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
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
		return nil, fmt.Errorf("init s3 client: %w", err)
	}

	return &S3Store{
		client: client,
		bucket: bucket,
		region: region,
	}, nil
}

func (s *S3Store) ensureBucket(ctx context.Context) error {
	if s == nil || s.client == nil {
		return storage.ErrUnavailable
	}
	// ready is only set on success, so a failed check is retried
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready {
		return nil
	}

	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
	}
	if !exists {
		err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region})
		if err != nil && !bucketOwned(err) {
			return fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
		}
	}
	s.ready = true
	return nil
}

func bucketOwned(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "BucketAlreadyOwnedByYou" || code == "BucketAlreadyExists"
}

func containerPrefix(id string) string {
	return id + "/"
}

func objectKey(container, p string) string {
	return containerPrefix(container) + p
}

func isNoSuchKey(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NoSuchBucket"
}

func (s *S3Store) statObject(ctx context.Context, key string) (bool, error) {
	_, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *S3Store) CreateContainer(ctx context.Context, id string) error {
	if err := storage.ValidateName(id); err != nil {
		return err
	}
	if err := s.ensureBucket(ctx); err != nil {
		return err
	}
	marker := objectKey(id, containerMarker)
	ok, err := s.statObject(ctx, marker)
	if err != nil {
		return err
	}
	if ok {
		return fmt.Errorf("container %q: %w", id, storage.ErrAlreadyExists)
	}
	_, err = s.client.PutObject(ctx, s.bucket, marker, bytes.NewReader(nil), 0, minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	return err
}

func (s *S3Store) DeleteContainer(ctx context.Context, id string) error {
	ok, err := s.HasContainer(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("container %q: %w", id, storage.ErrNotFound)
	}
	return s.removePrefix(ctx, containerPrefix(id))
}

func (s *S3Store) HasContainer(ctx context.Context, id string) (bool, error) {
	if err := storage.ValidateName(id); err != nil {
		return false, err
	}
	if err := s.ensureBucket(ctx); err != nil {
		return false, err
	}
	return s.statObject(ctx, objectKey(id, containerMarker))
}

func (s *S3Store) ListContainers(ctx context.Context) ([]string, error) {
	if err := s.ensureBucket(ctx); err != nil {
		return nil, err
	}
	ids := []string{}
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Recursive: false}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		if strings.HasSuffix(obj.Key, "/") {
			ids = append(ids, strings.TrimSuffix(obj.Key, "/"))
		}
	}
	return ids, nil
}

func (s *S3Store) UploadFiles(ctx context.Context, container string, files []storage.File) []storage.FileResult {
	results := make([]storage.FileResult, 0, len(files))
	containerErr := s.ensureBucket(ctx)
	for _, f := range files {
		result := storage.FileResult{Path: f.Path}
		if containerErr != nil {
			result.Err = containerErr
			results = append(results, result)
			continue
		}
		p, err := storage.CleanPath(f.Path)
		if err != nil {
			result.Err = err
			results = append(results, result)
			continue
		}
		mimeType := f.MimeType
		if mimeType == "" {
			mimeType = storage.DetectMimeType(p, f.Content)
		}
		_, result.Err = s.client.PutObject(ctx, s.bucket, objectKey(container, p),
			bytes.NewReader(f.Content), int64(len(f.Content)), minio.PutObjectOptions{ContentType: mimeType})
		results = append(results, result)
	}
	return results
}

func (s *S3Store) DeleteFiles(ctx context.Context, container, prefix string) error {
	prefix = strings.TrimLeft(prefix, "/")
	if prefix == "" {
		return fmt.Errorf("%w: empty prefix", storage.ErrInvalidName)
	}
	if err := s.ensureBucket(ctx); err != nil {
		return err
	}
	return s.removePrefix(ctx, objectKey(container, prefix))
}

func (s *S3Store) removePrefix(ctx context.Context, prefix string) error {
	objectsCh := make(chan minio.ObjectInfo)
	var listErr error
	go func() {
		defer close(objectsCh)
		listErr = forwardObjects(ctx, s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
			Prefix:    prefix,
			Recursive: true,
		}), objectsCh)
	}()

	var errs []error
	for errDel := range s.client.RemoveObjects(ctx, s.bucket, objectsCh, minio.RemoveObjectsOptions{}) {
		if errDel.Err != nil && !isNoSuchKey(errDel.Err) {
			errs = append(errs, fmt.Errorf("delete %s: %w", errDel.ObjectName, errDel.Err))
		}
	}
	if listErr != nil {
		errs = append(errs, fmt.Errorf("list %s: %w", prefix, listErr))
	}
	return errors.Join(errs...)
}

// forwardObjects copies listed objects to out until the listing ends, fails,
// or ctx is cancelled
func forwardObjects(ctx context.Context, in <-chan minio.ObjectInfo, out chan<- minio.ObjectInfo) error {
	for obj := range in {
		if obj.Err != nil {
			return obj.Err
		}
		select {
		case out <- obj:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (s *S3Store) HasFile(ctx context.Context, container, filePath string) (bool, error) {
	p, err := storage.CleanPath(filePath)
	if err != nil {
		return false, err
	}
	if err := s.ensureBucket(ctx); err != nil {
		return false, err
	}
	return s.statObject(ctx, objectKey(container, p))
}

func (s *S3Store) DownloadFile(ctx context.Context, container, filePath string) (*storage.FileContent, error) {
	p, err := storage.CleanPath(filePath)
	if err != nil {
		return nil, err
	}
	if err := s.ensureBucket(ctx); err != nil {
		return nil, err
	}
	obj, err := s.client.GetObject(ctx, s.bucket, objectKey(container, p), minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	info, err := obj.Stat()
	if err != nil {
		obj.Close()
		if isNoSuchKey(err) {
			return nil, fmt.Errorf("file %q in %q: %w", p, container, storage.ErrNotFound)
		}
		return nil, err
	}
	mimeType := info.ContentType
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = storage.DetectMimeType(p, nil)
	}
	return &storage.FileContent{
		Path:     p,
		MimeType: mimeType,
		Size:     info.Size,
		Content:  obj,
	}, nil
}
