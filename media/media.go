// Package media stores menu item photos.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

const MaxImageSize = 5 << 20

var (
	ErrNotImage    = errors.New("uploaded file is not an image")
	ErrImageTooBig = errors.New("image must be 5MB or smaller")
)

// Image is an uploaded file waiting to be stored.
type Image struct {
	RestaurantID string
	Filename     string
	ContentType  string
	Body         io.Reader
}

// Store saves an image and returns the public URL it is served from.
type Store interface {
	Put(ctx context.Context, img Image) (string, error)
}

func objectKey(img Image) string {
	ext := strings.ToLower(path.Ext(img.Filename))
	return fmt.Sprintf("menu/%s/%s%s", img.RestaurantID, uuid.NewString(), ext)
}

// readImage checks the content type and reads at most MaxImageSize bytes.
func readImage(img Image) ([]byte, error) {
	if !strings.HasPrefix(img.ContentType, "image/") {
		return nil, ErrNotImage
	}
	data, err := io.ReadAll(io.LimitReader(img.Body, MaxImageSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > MaxImageSize {
		return nil, ErrImageTooBig
	}
	return data, nil
}

type putObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type S3Store struct {
	client putObjectAPI
	bucket string
	region string
}

func NewS3Store(ctx context.Context, region, bucket string) (*S3Store, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %v", err)
	}
	return &S3Store{client: s3.NewFromConfig(cfg), bucket: bucket, region: region}, nil
}

func (s *S3Store) Put(ctx context.Context, img Image) (string, error) {
	data, err := readImage(img)
	if err != nil {
		return "", err
	}
	key := objectKey(img)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(img.ContentType),
	})
	if err != nil {
		return "", fmt.Errorf("unable to upload image to S3: %w", err)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key), nil
}

// MemoryStore keeps images in process, served from BaseURL.
type MemoryStore struct {
	BaseURL string

	mu      sync.Mutex
	objects map[string][]byte
}

func NewMemoryStore(baseURL string) *MemoryStore {
	return &MemoryStore{BaseURL: strings.TrimRight(baseURL, "/"), objects: make(map[string][]byte)}
}

func (s *MemoryStore) Put(_ context.Context, img Image) (string, error) {
	data, err := readImage(img)
	if err != nil {
		return "", err
	}
	key := objectKey(img)
	s.mu.Lock()
	s.objects[key] = data
	s.mu.Unlock()
	return s.BaseURL + "/" + key, nil
}

func (s *MemoryStore) Get(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	return data, ok
}
