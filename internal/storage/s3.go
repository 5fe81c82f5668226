package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
)

// Options locate a MinIO or S3 bucket.
type Options struct {
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
}

type Client struct {
	s3     *s3.Client
	bucket string
}

func New(ctx context.Context, o Options) (*Client, error) {
	endpoint := o.Endpoint
	if !strings.Contains(endpoint, "://") {
		endpoint = "http://" + endpoint
	}
	cfg, err := config.LoadDefaultConfig(
		ctx,
		config.WithRegion("us-east-1"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(o.AccessKey, o.SecretKey, "")),
		config.WithRequestChecksumCalculation(aws.RequestChecksumCalculationWhenRequired),
		config.WithResponseChecksumValidation(aws.ResponseChecksumValidationWhenRequired),
	)
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(cfg, func(so *s3.Options) {
		so.BaseEndpoint = aws.String(endpoint)
		so.UsePathStyle = true
	})
	return &Client{s3: client, bucket: o.Bucket}, nil
}

// Bucket is the bucket new objects are written to.
func (c *Client) Bucket() string { return c.bucket }

// Put uploads body under key and returns its s3:// reference.
func (c *Client) Put(ctx context.Context, key string, body []byte, contentType string) (string, error) {
	_, err := c.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &c.bucket,
		Key:         &key,
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("put %s: %w", key, err)
	}
	return Ref(c.bucket, key), nil
}

func (c *Client) PutJSON(ctx context.Context, key string, v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return c.Put(ctx, key, b, "application/json")
}

// PutFile uploads a local file under key.
func (c *Client) PutFile(ctx context.Context, key, file string) (string, error) {
	b, err := os.ReadFile(file)
	if err != nil {
		return "", err
	}
	return c.Put(ctx, key, b, contentType(file))
}

// UploadDir uploads the named files of dir under prefix and returns the
// prefix reference.
func (c *Client) UploadDir(ctx context.Context, prefix, dir string, names ...string) (string, error) {
	prefix = strings.TrimSuffix(prefix, "/")
	for _, name := range names {
		ref, err := c.PutFile(ctx, path.Join(prefix, name), filepath.Join(dir, name))
		if err != nil {
			return "", err
		}
		log.Debug().Str("ref", ref).Msg("uploaded artifact")
	}
	return Ref(c.bucket, prefix+"/"), nil
}

// Get opens the object behind ref. The caller closes the reader.
func (c *Client) Get(ctx context.Context, ref string) (io.ReadCloser, error) {
	bucket, key, err := parseS3Ref(ref)
	if err != nil {
		return nil, err
	}
	out, err := c.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	})
	if err != nil {
		log.Error().Err(err).Str("ref", ref).Msg("failed to get s3 object")
		return nil, fmt.Errorf("get %s: %w", ref, err)
	}
	return out.Body, nil
}

// Download copies the object behind ref to a local file.
func (c *Client) Download(ctx context.Context, ref, file string) error {
	body, err := c.Get(ctx, ref)
	if err != nil {
		return err
	}
	defer body.Close()
	f, err := os.Create(file)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		return err
	}
	log.Debug().Str("ref", ref).Str("file", file).Msg("fetched s3 object")
	return f.Close()
}

// IsRef reports whether s looks like an s3:// reference.
func IsRef(s string) bool { return strings.HasPrefix(s, "s3://") }

func Ref(bucket, key string) string { return fmt.Sprintf("s3://%s/%s", bucket, key) }

func parseS3Ref(ref string) (string, string, error) {
	const p = "s3://"
	if !strings.HasPrefix(ref, p) {
		return "", "", fmt.Errorf("bad s3 ref (missing s3://): %q", ref)
	}
	s := strings.TrimPrefix(ref, p)
	slash := strings.IndexByte(s, '/')
	if slash <= 0 || slash == len(s)-1 {
		return "", "", fmt.Errorf("bad s3 ref (need bucket/key): %q", ref)
	}
	return s[:slash], s[slash+1:], nil
}

func contentType(name string) string {
	switch filepath.Ext(name) {
	case ".json":
		return "application/json"
	case ".csv":
		return "text/csv"
	default:
		return "text/plain"
	}
}
