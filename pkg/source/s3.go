package source

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config holds settings for reading the input from S3-compatible storage.
type S3Config struct {
	AccessKeyID     string
	SecretAccessKey string
	// Endpoint is empty for AWS, host:port or a URL for MinIO.
	Endpoint string
	Region   string
	UseSSL   bool
	URLStyle string
}

// IsMinIO reports whether the endpoint points somewhere other than AWS.
func (c *S3Config) IsMinIO() bool {
	return c.Endpoint != "" && !strings.Contains(c.Endpoint, "amazonaws.com")
}

// LoadS3ConfigFromEnv reads S3_* variables, falling back to AWS_*. With no
// keys set the default AWS credential chain is used.
func LoadS3ConfigFromEnv() (*S3Config, error) {
	accessKeyID := firstEnv("S3_ACCESS_KEY_ID", "AWS_ACCESS_KEY_ID")
	secretAccessKey := firstEnv("S3_SECRET_ACCESS_KEY", "AWS_SECRET_ACCESS_KEY")
	if accessKeyID == "" && secretAccessKey != "" {
		return nil, fmt.Errorf("S3_SECRET_ACCESS_KEY or AWS_SECRET_ACCESS_KEY is set but S3_ACCESS_KEY_ID or AWS_ACCESS_KEY_ID is missing")
	}
	if accessKeyID != "" && secretAccessKey == "" {
		return nil, fmt.Errorf("S3_ACCESS_KEY_ID or AWS_ACCESS_KEY_ID is set but S3_SECRET_ACCESS_KEY or AWS_SECRET_ACCESS_KEY is missing (for the default credential chain, leave both unset)")
	}

	cfg := &S3Config{
		AccessKeyID:     accessKeyID,
		SecretAccessKey: secretAccessKey,
		Endpoint:        firstEnv("S3_ENDPOINT", "AWS_ENDPOINT_URL"),
		Region:          firstEnv("S3_REGION", "AWS_REGION"),
		URLStyle:        "path",
		UseSSL:          true,
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	if cfg.IsMinIO() {
		cfg.UseSSL = strings.HasPrefix(cfg.Endpoint, "https://")
		if cfg.AccessKeyID == "" {
			return nil, fmt.Errorf("MinIO requires both S3_ACCESS_KEY_ID and S3_SECRET_ACCESS_KEY to be set (endpoint: %s)", cfg.Endpoint)
		}
	}
	if v := os.Getenv("S3_USE_SSL"); v != "" {
		cfg.UseSSL = v == "true" || v == "1"
	}
	if v := os.Getenv("S3_URL_STYLE"); v != "" {
		cfg.URLStyle = v
	}
	return cfg, nil
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

// IsS3URI reports whether the input location is an s3:// object.
func IsS3URI(uri string) bool {
	return strings.HasPrefix(uri, "s3://")
}

// SplitS3URI returns the bucket and key of an s3:// URI.
func SplitS3URI(uri string) (bucket, key string, err error) {
	if !IsS3URI(uri) {
		return "", "", fmt.Errorf("not an s3:// URI: %q", uri)
	}
	parsed, err := url.Parse(uri)
	if err != nil {
		return "", "", fmt.Errorf("invalid s3:// URI: %w", err)
	}
	bucket = parsed.Host
	key = strings.TrimPrefix(parsed.Path, "/")
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("s3:// URI must name a bucket and an object key (got %q)", uri)
	}
	return bucket, key, nil
}

// secretSQL builds the DuckDB CREATE SECRET statement for cfg.
func secretSQL(cfg *S3Config) string {
	var b strings.Builder
	b.WriteString("CREATE SECRET IF NOT EXISTS seed_input_s3 (TYPE s3")
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		fmt.Fprintf(&b, ", KEY_ID %s", quoteLiteral(cfg.AccessKeyID))
		fmt.Fprintf(&b, ", SECRET %s", quoteLiteral(cfg.SecretAccessKey))
	} else {
		b.WriteString(", PROVIDER credential_chain")
	}
	if cfg.Endpoint != "" {
		// DuckDB wants host:port here, not a URL.
		endpoint := strings.TrimPrefix(strings.TrimPrefix(cfg.Endpoint, "http://"), "https://")
		fmt.Fprintf(&b, ", ENDPOINT %s", quoteLiteral(endpoint))
	}
	if cfg.Region != "" {
		fmt.Fprintf(&b, ", REGION %s", quoteLiteral(cfg.Region))
	}
	urlStyle := cfg.URLStyle
	if urlStyle == "" {
		urlStyle = "path"
	}
	fmt.Fprintf(&b, ", URL_STYLE %s", quoteLiteral(urlStyle))
	fmt.Fprintf(&b, ", USE_SSL %t)", cfg.UseSSL)
	return b.String()
}

// HeadObjectAPI is the subset of the S3 client used for the preflight check.
type HeadObjectAPI interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// NewS3Client builds an S3 client for cfg.
func NewS3Client(ctx context.Context, cfg *S3Config) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			endpoint := cfg.Endpoint
			if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
				if cfg.UseSSL {
					endpoint = "https://" + endpoint
				} else {
					endpoint = "http://" + endpoint
				}
			}
			o.BaseEndpoint = &endpoint
		}
		o.UsePathStyle = cfg.URLStyle != "vhost" && cfg.URLStyle != "virtual"
	}), nil
}

// ErrObjectNotFound is returned by CheckObject when the input does not exist.
var ErrObjectNotFound = errors.New("input object not found")

// CheckObject verifies the input object exists and returns its size.
func CheckObject(ctx context.Context, client HeadObjectAPI, uri string) (int64, error) {
	bucket, key, err := SplitS3URI(uri)
	if err != nil {
		return 0, err
	}
	out, err := client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: &bucket, Key: &key})
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrObjectNotFound, uri, err)
	}
	if out.ContentLength == nil {
		return 0, nil
	}
	return *out.ContentLength, nil
}
