package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"upscale-bot/internal/shared/storage/object"
)

// maxObjectBytes caps a single staged object. Telegram bot uploads are
// limited to 50 MB.
const maxObjectBytes = 50 << 20

// scratchTag marks objects for a bucket lifecycle rule that expires anything
// a crashed run failed to release.
const scratchTag = "lifecycle=scratch"

// ErrTooLarge is returned by Put when the body exceeds maxObjectBytes.
var ErrTooLarge = errors.New("scratch object too large")

// api is the subset of the S3 client used by Store.
type api interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Store keeps scratch objects in an S3 bucket under an optional prefix.
type Store struct {
	client api
	bucket string
	prefix string
}

// New loads the default AWS config and returns a bucket-backed store.
func New(ctx context.Context, region, bucket, prefix string) (*Store, error) {
	if strings.TrimSpace(bucket) == "" {
		return nil, errors.New("S3_BUCKET is required for the s3 scratch store")
	}
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return newWithClient(s3.NewFromConfig(cfg), bucket, prefix), nil
}

func newWithClient(client api, bucket, prefix string) *Store {
	return &Store{client: client, bucket: bucket, prefix: strings.Trim(strings.TrimSpace(prefix), "/")}
}

// Put buffers r and uploads it with a known length. Scratch objects are
// images, so holding one in memory is bounded by maxObjectBytes.
func (s *Store) Put(ctx context.Context, owner, fileName string, r io.Reader) (object.Object, error) {
	key, err := object.NewKey(owner, fileName)
	if err != nil {
		return object.Object{}, err
	}
	data, err := io.ReadAll(io.LimitReader(r, maxObjectBytes+1))
	if err != nil {
		return object.Object{}, fmt.Errorf("read body: %w", err)
	}
	if len(data) > maxObjectBytes {
		return object.Object{}, ErrTooLarge
	}
	mimeType := object.DetectType(data)

	objectKey := s.objectKey(key)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:               aws.String(s.bucket),
		Key:                  aws.String(objectKey),
		Body:                 bytes.NewReader(data),
		ContentLength:        aws.Int64(int64(len(data))),
		ContentType:          aws.String(mimeType),
		ServerSideEncryption: s3types.ServerSideEncryptionAes256,
		Tagging:              aws.String(scratchTag),
	})
	if err != nil {
		return object.Object{}, fmt.Errorf("s3 put %s/%s: %w", s.bucket, objectKey, err)
	}
	return object.Object{Key: key, Size: int64(len(data)), MimeType: mimeType}, nil
}

// Open streams a stored object.
func (s *Store) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	objectKey := s.objectKey(key)
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 get %s/%s: %w", s.bucket, objectKey, err)
	}
	return out.Body, nil
}

// Delete removes a stored object. S3 treats missing keys as success.
func (s *Store) Delete(ctx context.Context, key string) error {
	objectKey := s.objectKey(key)
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		return fmt.Errorf("s3 delete %s/%s: %w", s.bucket, objectKey, err)
	}
	return nil
}

func (s *Store) objectKey(key string) string {
	key = strings.TrimLeft(key, "/")
	switch {
	case s.prefix == "":
		return key
	case key == "":
		return s.prefix
	}
	return s.prefix + "/" + key
}

var _ object.ScratchStore = (*Store)(nil)
