// Package s3store implements [storage.Storage] on an S3 bucket. Each key is
// one object at "{prefix}/{key}.json"; the prefix is the namespace and Clear
// deletes the objects directly under it. Nested prefixes belong to other
// stores and are left alone.
package s3store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/jnorthrup/redline/internal/utils"
	"github.com/jnorthrup/redline/providers/storage"
)

const (
	objectExt   = ".json"
	contentType = "application/json"
	listPage    = 1000
)

// API is the subset of *s3.Client the store calls.
type API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Store keeps values as objects in one bucket.
type Store struct {
	api    API
	bucket string
	prefix string
}

var _ storage.Storage = (*Store)(nil)

// New returns a Store on bucket. An empty prefix places objects at the
// bucket root, and Clear then empties the whole bucket.
func New(api API, bucket, prefix string) *Store {
	return &Store{
		api:    api,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}
}

// ObjectKey returns the object key that holds key.
func (s *Store) ObjectKey(key string) string {
	return s.listPrefix() + key + objectExt
}

func (s *Store) listPrefix() string {
	if s.prefix == "" {
		return ""
	}
	return s.prefix + "/"
}

// Save uploads the encoded value, replacing any existing object.
func (s *Store) Save(ctx context.Context, key string, value any) error {
	if err := storage.ValidateKey(key); err != nil {
		return &storage.WriteError{Key: key, Err: err}
	}
	data, err := storage.Encode(key, value)
	if err != nil {
		return err
	}

	_, err = s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.ObjectKey(key)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return &storage.WriteError{Key: key, Err: fmt.Errorf("s3store: put object: %w", err)}
	}
	return nil
}

// Load downloads the object for key. A missing object is absent.
func (s *Store) Load(ctx context.Context, key string) (storage.Result, error) {
	if err := storage.ValidateKey(key); err != nil {
		return storage.Result{}, fmt.Errorf("s3store: load: %w", err)
	}

	out, err := s.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.ObjectKey(key)),
	})
	if err != nil {
		if isNotFound(err) {
			return storage.Absent(key), nil
		}
		return storage.Result{}, &storage.ReadError{Key: key, Err: fmt.Errorf("s3store: get object: %w", err)}
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return storage.Result{}, &storage.ReadError{Key: key, Err: fmt.Errorf("s3store: read body: %w", err)}
	}
	return storage.Decode(key, data, false), nil
}

// Clear deletes every object directly under the prefix.
func (s *Store) Clear(ctx context.Context) error {
	paginator := s3.NewListObjectsV2Paginator(s.api, &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.bucket),
		Prefix:    aws.String(s.listPrefix()),
		Delimiter: aws.String("/"),
		MaxKeys:   utils.Ptr[int32](listPage),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return &storage.ClearError{Namespace: s.namespace(), Err: fmt.Errorf("s3store: list objects: %w", err)}
		}
		for _, object := range page.Contents {
			_, err := s.api.DeleteObject(ctx, &s3.DeleteObjectInput{
				Bucket: aws.String(s.bucket),
				Key:    object.Key,
			})
			if err != nil && !isNotFound(err) {
				return &storage.ClearError{Namespace: s.namespace(), Err: fmt.Errorf("s3store: delete %s: %w", aws.ToString(object.Key), err)}
			}
		}
	}
	return nil
}

func (s *Store) namespace() string {
	return "s3://" + s.bucket + "/" + s.prefix
}

// isNotFound matches the typed NoSuchKey error and the bare codes some
// S3-compatible servers return instead.
func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
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
