package identity

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

var ErrTemplateNotFound = errors.New("biometric template not found")

// TemplateStore persists enrolled biometric templates keyed by an opaque
// reference.
type TemplateStore interface {
	Put(ctx context.Context, ref string, template []byte) error
	Get(ctx context.Context, ref string) ([]byte, error)
}

// InMemoryTemplateStore is a thread-safe in-memory template store.
type InMemoryTemplateStore struct {
	mu        sync.RWMutex
	templates map[string][]byte
}

func NewInMemoryTemplateStore() *InMemoryTemplateStore {
	return &InMemoryTemplateStore{templates: make(map[string][]byte)}
}

func (s *InMemoryTemplateStore) Put(_ context.Context, ref string, template []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := make([]byte, len(template))
	copy(copied, template)
	s.templates[ref] = copied
	return nil
}

func (s *InMemoryTemplateStore) Get(_ context.Context, ref string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	template, exists := s.templates[ref]
	if !exists {
		return nil, ErrTemplateNotFound
	}
	copied := make([]byte, len(template))
	copy(copied, template)
	return copied, nil
}

// S3TemplateStore keeps templates in an S3-compatible bucket so they
// survive restarts and are shared across instances.
type S3TemplateStore struct {
	client     *s3.Client
	bucketName string
}

// S3Config holds the credentials for an S3-compatible endpoint.
type S3Config struct {
	BucketName      string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
}

func NewS3TemplateStore(cfg S3Config) (*S3TemplateStore, error) {
	if cfg.BucketName == "" {
		return nil, errors.New("bucket name is required")
	}
	if cfg.AccessKeyID == "" {
		return nil, errors.New("access key ID is required")
	}
	if cfg.SecretAccessKey == "" {
		return nil, errors.New("secret access key is required")
	}
	if cfg.Endpoint == "" {
		return nil, errors.New("endpoint is required")
	}

	client := s3.New(s3.Options{
		Region: "auto",
		Credentials: aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
		BaseEndpoint: aws.String(cfg.Endpoint),
		UsePathStyle: true,
	})

	return &S3TemplateStore{client: client, bucketName: cfg.BucketName}, nil
}

func (s *S3TemplateStore) Put(ctx context.Context, ref string, template []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucketName),
		Key:         aws.String(ref),
		Body:        bytes.NewReader(template),
		ContentType: aws.String("application/cbor"),
	})
	if err != nil {
		return fmt.Errorf("putting template %s: %w", ref, err)
	}
	return nil
}

func (s *S3TemplateStore) Get(ctx context.Context, ref string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(ref),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, ErrTemplateNotFound
		}
		return nil, fmt.Errorf("getting template %s: %w", ref, err)
	}
	defer out.Body.Close()

	return io.ReadAll(out.Body)
}
