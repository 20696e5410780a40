package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// DefaultRegion is used when a ClientConfig carries no region.
const DefaultRegion = "us-east-1"

// ObjectAPI is the subset of the S3 API used for uploads and batch deletes.
type ObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
}

// PresignAPI is the subset of the S3 presign client used to sign GET requests.
type PresignAPI interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

var (
	_ ObjectAPI  = (*s3.Client)(nil)
	_ PresignAPI = (*s3.PresignClient)(nil)
)

// Client is a handle on one storage endpoint and credential pair.
type Client struct {
	objects ObjectAPI
	presign PresignAPI
}

// NewClient builds a Client from explicit API implementations.
// Tests use it to plug in mocks.
func NewClient(objects ObjectAPI, presign PresignAPI) *Client {
	return &Client{objects: objects, presign: presign}
}

// ClientFactory creates the Client for a bucket registration.
type ClientFactory func(cfg ClientConfig) (*Client, error)

// NewS3Client creates an S3 client bound to cfg.Endpoint with static credentials.
// Nothing is sent over the network here; bad endpoints or credentials surface on
// the first real operation.
func NewS3Client(cfg ClientConfig) (*Client, error) {
	region := cfg.Region
	if region == "" {
		region = DefaultRegion
	}

	awsCfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion(region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	endpointURL := baseEndpoint(cfg.Endpoint, cfg.UseSSL)
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpointURL != "" {
			o.BaseEndpoint = aws.String(endpointURL)
		}
		o.UsePathStyle = true
	})

	return NewClient(client, s3.NewPresignClient(client)), nil
}

// baseEndpoint turns a registered endpoint into the SDK base URL.
// An explicit scheme is kept; otherwise useSSL picks https or http.
func baseEndpoint(endpoint string, useSSL bool) string {
	endpoint = strings.TrimSuffix(strings.TrimSpace(endpoint), "/")
	if endpoint == "" {
		return ""
	}
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	scheme := "http"
	if useSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s", scheme, endpoint)
}
