package storage

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	smithyhttp "github.com/aws/smithy-go/transport/http"
)

// PresignExpiry is how long a presigned link stays valid: 48000 hours.
const PresignExpiry = 48000 * 60 * 60 * time.Second

// sseAlgorithmKMS is the x-amz-server-side-encryption value for KMS keys.
const sseAlgorithmKMS = "aws:kms"

// PresignedURL is a signed GET link for one object.
type PresignedURL struct {
	URL          string      `json:"url"`
	Method       string      `json:"method"`
	ExpiresAt    time.Time   `json:"expires_at"`
	SignedHeader http.Header `json:"signed_headers,omitempty"`
}

// Presign signs a GET URL for bucket/key with the given client. The request
// signs Content-Type image/jpeg and, when kmsKeyID is set, the SSE-KMS headers,
// so the link is only valid when fetched with those headers. Signing is local.
func (r *Registry) Presign(ctx context.Context, client *Client, bucket, key, kmsKeyID string) (*PresignedURL, error) {
	if client == nil || client.presign == nil {
		return nil, fmt.Errorf("%w: no presign client", ErrConfiguration)
	}

	now := r.now()
	req, err := client.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, presignOptions(kmsKeyID))
	if err != nil {
		opErr := &OperationError{Op: "presign", Bucket: bucket, Key: key, Err: err}
		logFailure(ctx, opErr)
		return nil, opErr
	}

	return &PresignedURL{
		URL:          req.URL,
		Method:       req.Method,
		ExpiresAt:    now.Add(PresignExpiry),
		SignedHeader: req.SignedHeader,
	}, nil
}

func presignOptions(kmsKeyID string) func(*s3.PresignOptions) {
	return func(po *s3.PresignOptions) {
		po.Expires = PresignExpiry
		po.ClientOptions = append(po.ClientOptions, func(o *s3.Options) {
			o.APIOptions = append(o.APIOptions, smithyhttp.AddHeaderValue("Content-Type", ImageContentType))
			if kmsKeyID != "" {
				o.APIOptions = append(o.APIOptions,
					smithyhttp.AddHeaderValue(HeaderSSE, sseAlgorithmKMS),
					smithyhttp.AddHeaderValue(HeaderSSEKMSKeyID, kmsKeyID),
				)
			}
		})
	}
}
