package storage

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/timmy/bucketgate/internal/logger"
)

// Wire names of the SSE headers. The SDK emits them from the typed
// PutObjectInput fields; presigning adds them by name.
const (
	HeaderSSE         = "x-amz-server-side-encryption"
	HeaderSSEKMSKeyID = "x-amz-server-side-encryption-aws-kms-key-id"
)

// Fixed metadata for encrypted uploads and presigned links.
const (
	ImageContentType       = "image/jpeg"
	EncodedContentEncoding = "base64"
)

// ClientConfig is the connection data for one bucket.
type ClientConfig struct {
	Bucket          string
	Endpoint        string
	AccessKey       string
	SecretKey       string
	EncryptionKeyID string // optional KMS key id, empty means no encryption

	Region string // defaults to DefaultRegion
	UseSSL bool   // scheme for endpoints given without one
}

// BucketClient is the registered client for a bucket together with the
// endpoint and KMS key id it was created with. It never changes after
// creation; Reconfigure swaps in a new value.
type BucketClient struct {
	Bucket          string
	Endpoint        string
	EncryptionKeyID string
	Client          *Client
}

// DeletedObject is a key the store confirmed as deleted.
type DeletedObject struct {
	Key       string `json:"key"`
	VersionID string `json:"version_id,omitempty"`
}

// DeleteError is a key the store failed to delete.
type DeleteError struct {
	Key     string `json:"key"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// DeletionResult is the per-key outcome of a batch delete.
type DeletionResult struct {
	Deleted []DeletedObject `json:"deleted"`
	Errors  []DeleteError   `json:"errors"`
}

// Registry maps bucket names to their clients. A process builds one Registry at
// startup and hands it to every component that needs storage access.
//
// The first registration of a bucket wins: GetOrCreate with different
// parameters for an already registered bucket returns the existing entry and
// only logs a warning. Use Reconfigure to replace an entry on purpose.
type Registry struct {
	mu        sync.RWMutex
	entries   map[string]*BucketClient
	newClient ClientFactory
	now       func() time.Time
}

// Option configures a Registry.
type Option func(*Registry)

// WithClientFactory overrides how clients are built (default NewS3Client).
func WithClientFactory(f ClientFactory) Option {
	return func(r *Registry) {
		r.newClient = f
	}
}

// WithClock overrides the time source used for presign expiry.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

// NewRegistry creates an empty Registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		entries:   make(map[string]*BucketClient),
		newClient: NewS3Client,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// GetOrCreate returns the entry for cfg.Bucket, creating the client on first use.
// Concurrent first calls for one bucket build exactly one client.
func (r *Registry) GetOrCreate(ctx context.Context, cfg ClientConfig) (*BucketClient, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("%w: bucket name is empty", ErrConfiguration)
	}

	if entry, ok := r.Lookup(cfg.Bucket); ok {
		warnIgnored(ctx, entry, cfg)
		return entry, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, ok := r.entries[cfg.Bucket]; ok {
		warnIgnored(ctx, entry, cfg)
		return entry, nil
	}

	entry, err := r.build(cfg)
	if err != nil {
		return nil, err
	}
	r.entries[cfg.Bucket] = entry

	logger.FromContext(ctx).WithFields(logger.Fields{
		logger.FieldBucket: cfg.Bucket,
		"endpoint":         cfg.Endpoint,
		"encrypted":        cfg.EncryptionKeyID != "",
	}).Info("Registered storage client")

	return entry, nil
}

// Reconfigure replaces the entry for cfg.Bucket with a freshly built client.
func (r *Registry) Reconfigure(ctx context.Context, cfg ClientConfig) (*BucketClient, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("%w: bucket name is empty", ErrConfiguration)
	}

	entry, err := r.build(cfg)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	_, replaced := r.entries[cfg.Bucket]
	r.entries[cfg.Bucket] = entry
	r.mu.Unlock()

	logger.FromContext(ctx).WithFields(logger.Fields{
		logger.FieldBucket: cfg.Bucket,
		"endpoint":         cfg.Endpoint,
		"replaced":         replaced,
	}).Info("Reconfigured storage client")

	return entry, nil
}

func (r *Registry) build(cfg ClientConfig) (*BucketClient, error) {
	client, err := r.newClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: bucket %s: %w", ErrConfiguration, cfg.Bucket, err)
	}
	return &BucketClient{
		Bucket:          cfg.Bucket,
		Endpoint:        cfg.Endpoint,
		EncryptionKeyID: cfg.EncryptionKeyID,
		Client:          client,
	}, nil
}

func warnIgnored(ctx context.Context, entry *BucketClient, cfg ClientConfig) {
	if entry.Endpoint == cfg.Endpoint && entry.EncryptionKeyID == cfg.EncryptionKeyID {
		return
	}
	logger.FromContext(ctx).WithFields(logger.Fields{
		logger.FieldBucket: cfg.Bucket,
		"endpoint":         entry.Endpoint,
		"ignored_endpoint": cfg.Endpoint,
	}).Warn("Bucket already registered, new parameters ignored")
}

// Lookup returns the entry registered for bucket.
func (r *Registry) Lookup(bucket string) (*BucketClient, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[bucket]
	return entry, ok
}

// Buckets returns the registered bucket names in sorted order.
func (r *Registry) Buckets() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	r.mu.RUnlock()

	sort.Strings(names)
	return names
}

// DecodePayload decodes standard base64 upload data.
func DecodePayload(payload string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncoding, err)
	}
	return data, nil
}

// ObjectURL is the URL reported for an uploaded object.
func ObjectURL(endpoint, bucket, key string) string {
	return fmt.Sprintf("http://%s/%s/%s", endpoint, bucket, key)
}

// StoredObject describes an object the store confirmed.
type StoredObject struct {
	URL       string
	Size      int
	Encrypted bool // stored with SSE-KMS
	Entry     *BucketClient
}

// Upload decodes the base64 payload and stores it under key.
//
// With encrypt set and a KMS key id registered for the bucket, the object is
// stored with SSE-KMS, content type image/jpeg and content encoding base64.
//
// Returns "" and no error when the bucket is not registered (nothing is sent)
// or when the store returns no confirmation.
func (r *Registry) Upload(ctx context.Context, bucket, key, payload string, encrypt bool) (string, error) {
	data, err := DecodePayload(payload)
	if err != nil {
		return "", err
	}

	stored, err := r.Store(ctx, bucket, key, data, encrypt)
	if err != nil || stored == nil {
		return "", err
	}
	return stored.URL, nil
}

// Store writes already decoded data under key with the bucket's registered
// client. The returned StoredObject reports the entry that was used and
// whether encryption was applied.
//
// Returns nil and no error when the bucket is not registered or when the
// store returns no confirmation.
func (r *Registry) Store(ctx context.Context, bucket, key string, data []byte, encrypt bool) (*StoredObject, error) {
	entry, ok := r.Lookup(bucket)
	if !ok {
		logger.CtxDebug(ctx, "No storage client registered for bucket %s, upload skipped", bucket)
		return nil, nil
	}

	input := &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	}
	encrypted := encrypt && entry.EncryptionKeyID != ""
	if encrypted {
		input.ServerSideEncryption = types.ServerSideEncryptionAwsKms
		input.SSEKMSKeyId = aws.String(entry.EncryptionKeyID)
		input.ContentType = aws.String(ImageContentType)
		input.ContentEncoding = aws.String(EncodedContentEncoding)
	}

	start := time.Now()
	out, err := entry.Client.objects.PutObject(ctx, input)
	if err != nil {
		opErr := &OperationError{Op: "put", Bucket: bucket, Key: key, Err: err}
		logFailure(ctx, opErr)
		return nil, opErr
	}
	if out == nil {
		return nil, nil
	}

	logger.With(logger.Fields{
		logger.FieldBucket:    bucket,
		logger.FieldObjectKey: key,
	}).WithSize(len(data)).WithDuration(time.Since(start).Milliseconds()).
		Debug(ctx, "Object stored")

	return &StoredObject{
		URL:       ObjectURL(entry.Endpoint, bucket, key),
		Size:      len(data),
		Encrypted: encrypted,
		Entry:     entry,
	}, nil
}

// Delete removes keys from bucket with a single batch request.
//
// Returns ErrNoKeys for an empty key list, and a nil result with no error when
// the bucket is not registered. The per-key outcome is reported as the store
// returned it.
func (r *Registry) Delete(ctx context.Context, bucket string, keys ...string) (*DeletionResult, error) {
	if len(keys) == 0 {
		return nil, ErrNoKeys
	}

	entry, ok := r.Lookup(bucket)
	if !ok {
		logger.CtxDebug(ctx, "No storage client registered for bucket %s, delete skipped", bucket)
		return nil, nil
	}

	objects := make([]types.ObjectIdentifier, 0, len(keys))
	for _, key := range keys {
		objects = append(objects, types.ObjectIdentifier{Key: aws.String(key)})
	}

	out, err := entry.Client.objects.DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(bucket),
		Delete: &types.Delete{Objects: objects},
	})
	if err != nil {
		opErr := &OperationError{Op: "delete", Bucket: bucket, Err: err}
		logFailure(ctx, opErr)
		return nil, opErr
	}

	result := &DeletionResult{
		Deleted: []DeletedObject{},
		Errors:  []DeleteError{},
	}
	if out == nil {
		return result, nil
	}
	for _, d := range out.Deleted {
		result.Deleted = append(result.Deleted, DeletedObject{
			Key:       aws.ToString(d.Key),
			VersionID: aws.ToString(d.VersionId),
		})
	}
	for _, e := range out.Errors {
		result.Errors = append(result.Errors, DeleteError{
			Key:     aws.ToString(e.Key),
			Code:    aws.ToString(e.Code),
			Message: aws.ToString(e.Message),
		})
	}

	logger.With(logger.Fields{logger.FieldBucket: bucket}).
		WithCount(len(result.Deleted)).
		Debug(ctx, "Batch delete finished with %d errors", len(result.Errors))

	return result, nil
}

func logFailure(ctx context.Context, err *OperationError) {
	logger.FromContext(ctx).WithFields(logger.Fields{
		logger.FieldOperation: err.Op,
		logger.FieldBucket:    err.Bucket,
		logger.FieldObjectKey: err.Key,
	}).WithError(err.Err).Warn("Storage operation failed")
}
