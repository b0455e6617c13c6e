// Package storage puts uploaded images into an S3-compatible bucket
// (AWS S3 in production, MinIO locally via S3_BASE_ENDPOINT).
package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

type Config struct {
	Region       string
	Bucket       string
	BaseEndpoint string
	AccessKey    string
	SecretKey    string

	// PublicBaseURL is prepended to the object key to build the URL handed
	// back to clients (CDN or bucket website endpoint).
	PublicBaseURL string
}

type Uploader struct {
	client *s3.Client
	cfg    Config
}

func NewUploader(ctx context.Context, cfg Config) (*Uploader, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}

	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)

	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	return &Uploader{client: client, cfg: cfg}, nil
}

// randomKey spreads objects across date prefixes so listing a day's uploads
// stays cheap.
func randomKey(ext string) string {
	d := time.Now().UTC()
	return fmt.Sprintf("uploads/%d/%02d/%02d/%s%s", d.Year(), d.Month(), d.Day(), uuid.NewString(), ext)
}

// Put stores the object and returns its public URL.
func (u *Uploader) Put(ctx context.Context, ext, contentType string, body io.Reader) (string, error) {
	key := randomKey(ext)

	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.cfg.Bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})

	if err != nil {
		return "", err
	}

	return u.publicURL(key), nil
}

func (u *Uploader) publicURL(key string) string {
	base := u.cfg.PublicBaseURL

	if base == "" {
		if u.cfg.BaseEndpoint != "" {
			base = strings.TrimSuffix(u.cfg.BaseEndpoint, "/") + "/" + u.cfg.Bucket
		} else {
			base = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", u.cfg.Bucket, u.cfg.Region)
		}
	}

	return strings.TrimSuffix(base, "/") + "/" + key
}
