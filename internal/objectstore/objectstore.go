package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type Options struct {
	Bucket            string
	Region            string
	AccessKey         string
	SecretKey         string
	Endpoint          string
	ForcePathStyle    bool
	PublicURLTemplate string
	Timeout           time.Duration
}

// Client uploads attachment payloads to an S3-compatible bucket and shapes
// the public download URL for each object.
type Client struct {
	s3       *minio.Client
	bucket   string
	template string
	timeout  time.Duration
}

func New(opts Options) (*Client, error) {
	endpoint := opts.Endpoint
	secure := true
	switch {
	case endpoint == "":
		endpoint = "s3." + opts.Region + ".amazonaws.com"
	case strings.HasPrefix(endpoint, "http://"):
		endpoint = strings.TrimPrefix(endpoint, "http://")
		secure = false
	case strings.HasPrefix(endpoint, "https://"):
		endpoint = strings.TrimPrefix(endpoint, "https://")
	}

	lookup := minio.BucketLookupAuto
	if opts.ForcePathStyle {
		lookup = minio.BucketLookupPath
	}
	s3, err := minio.New(endpoint, &minio.Options{
		Creds:        credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure:       secure,
		Region:       opts.Region,
		BucketLookup: lookup,
	})
	if err != nil {
		return nil, fmt.Errorf("init object storage client: %w", err)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{s3: s3, bucket: opts.Bucket, template: opts.PublicURLTemplate, timeout: timeout}, nil
}

// Upload stores data under key with the given content type and returns the
// public URL. The call is bounded by the configured timeout.
func (c *Client) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	_, err := c.s3.PutObject(ctx, c.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("upload object: %w", err)
	}
	return c.publicURL(key), nil
}

func (c *Client) publicURL(key string) string {
	escaped := url.QueryEscape(key)
	if c.template != "" {
		return strings.ReplaceAll(c.template, "{key}", escaped)
	}
	return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", c.bucket, escaped)
}
