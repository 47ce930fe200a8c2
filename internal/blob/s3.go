package blob

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Options configures the two buckets: covers and avatars are public, book
// files stay private and are reached through presigned URLs.
type Options struct {
	Region        string
	PublicBucket  string
	PrivateBucket string
	// PublicHost overrides the virtual-hosted S3 URL for public objects, e.g. a CDN.
	PublicHost string
	URLTTL     time.Duration
}

type Store struct {
	client    *s3.Client
	presigner *s3.PresignClient
	opts      Options
	logger    *log.Logger
}

// NewClient loads the default AWS credential chain. A non-empty endpoint
// switches to path-style addressing for S3-compatible stores.
func NewClient(ctx context.Context, region, endpoint string) (*s3.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

func New(client *s3.Client, opts Options, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if opts.URLTTL <= 0 {
		opts.URLTTL = 15 * time.Minute
	}
	return &Store{
		client:    client,
		presigner: s3.NewPresignClient(client),
		opts:      opts,
		logger:    logger,
	}
}

// UploadPublic stores body in the public bucket and returns its URL.
func (s *Store) UploadPublic(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.opts.PublicBucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
		Body:        body,
	})
	if err != nil {
		s.logger.Printf("blob: put bucket=%s key=%s error=%v", s.opts.PublicBucket, key, err)
		return "", fmt.Errorf("put object: %w", err)
	}
	return s.PublicURL(key), nil
}

func (s *Store) DeletePublic(ctx context.Context, key string) error {
	return s.delete(ctx, s.opts.PublicBucket, key)
}

func (s *Store) DeletePrivate(ctx context.Context, key string) error {
	return s.delete(ctx, s.opts.PrivateBucket, key)
}

// UploadURL presigns a PUT of a private object.
func (s *Store) UploadURL(ctx context.Context, key, contentType string) (string, error) {
	req, err := s.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.opts.PrivateBucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(s.opts.URLTTL))
	if err != nil {
		return "", fmt.Errorf("presign put: %w", err)
	}
	return req.URL, nil
}

// DownloadURL presigns a GET of a private object.
func (s *Store) DownloadURL(ctx context.Context, key string) (string, error) {
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.opts.PrivateBucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.opts.URLTTL))
	if err != nil {
		return "", fmt.Errorf("presign get: %w", err)
	}
	return req.URL, nil
}

func (s *Store) PublicURL(key string) string {
	escaped := (&url.URL{Path: key}).EscapedPath()
	if s.opts.PublicHost != "" {
		return strings.TrimRight(s.opts.PublicHost, "/") + "/" + escaped
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.opts.PublicBucket, s.opts.Region, escaped)
}

func (s *Store) delete(ctx context.Context, bucket, key string) error {
	if key == "" {
		return nil
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		s.logger.Printf("blob: delete bucket=%s key=%s error=%v", bucket, key, err)
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}
