package objectstorage

import (
	"context"
	"fmt"
	"os"
	"strings"

	"repair-ops/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Config holds the S3-compatible object storage settings. Merged videos are
// written there by the merge worker; this client verifies, serves and
// deletes them.
type Config struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	EndpointURL     string
	Bucket          string
	PublicBaseURL   string
}

// ConfigFromEnv reads the object storage settings from the environment.
func ConfigFromEnv() *Config {
	return &Config{
		Region:          os.Getenv("OBJECT_STORAGE_REGION"),
		AccessKeyID:     os.Getenv("OBJECT_STORAGE_ACCESS_KEY"),
		SecretAccessKey: os.Getenv("OBJECT_STORAGE_SECRET_KEY"),
		EndpointURL:     os.Getenv("OBJECT_STORAGE_ENDPOINT"),
		Bucket:          os.Getenv("OBJECT_STORAGE_BUCKET"),
		PublicBaseURL:   os.Getenv("OBJECT_STORAGE_PUBLIC_URL"),
	}
}

// IsEnabled reports whether enough settings are present to build a client.
func (c *Config) IsEnabled() bool {
	return c.Bucket != "" && c.AccessKeyID != "" && c.SecretAccessKey != ""
}

// Client wraps the S3 client for merged-video objects.
type Client struct {
	s3Client *s3.Client
	config   *Config
}

// NewClient creates an object storage client.
func NewClient(cfg *Config) (*Client, error) {
	if !cfg.IsEnabled() {
		return nil, fmt.Errorf("object storage is not configured")
	}

	awsConfig, err := config.LoadDefaultConfig(context.TODO(),
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
			// S3-compatible providers want path-style URLs
			o.UsePathStyle = true
			o.UseAccelerate = false
		}
	})

	logger.Infof("Object storage client initialized for bucket: %s", cfg.Bucket)
	return &Client{
		s3Client: s3Client,
		config:   cfg,
	}, nil
}

// Head checks that an object exists and returns its size.
func (c *Client) Head(objectKey string) (int64, error) {
	out, err := c.s3Client.HeadObject(context.TODO(), &s3.HeadObjectInput{
		Bucket: aws.String(c.config.Bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		return 0, fmt.Errorf("object %s not accessible: %w", objectKey, err)
	}
	return aws.ToInt64(out.ContentLength), nil
}

// Delete removes an object. Missing objects are not an error.
func (c *Client) Delete(objectKey string) error {
	_, err := c.s3Client.DeleteObject(context.TODO(), &s3.DeleteObjectInput{
		Bucket: aws.String(c.config.Bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object %s: %w", objectKey, err)
	}
	return nil
}

// PublicURL derives an object's public URL by convention.
func (c *Client) PublicURL(objectKey string) string {
	base := strings.TrimRight(c.config.PublicBaseURL, "/")
	if base == "" {
		base = strings.TrimRight(c.config.EndpointURL, "/") + "/" + c.config.Bucket
	}
	return base + "/" + objectKey
}
