package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/timmy/bucketgate/internal/domain"
	"github.com/timmy/bucketgate/internal/imageinfo"
	"github.com/timmy/bucketgate/internal/logger"
	"github.com/timmy/bucketgate/internal/storage"
)

var (
	// ErrBucketNotRegistered is returned when an operation names an unknown bucket.
	ErrBucketNotRegistered = errors.New("bucket not registered")

	// ErrPayloadTooLarge is returned when the base64 payload exceeds the configured cap.
	ErrPayloadTooLarge = errors.New("payload too large")

	// ErrNotStored is returned when the store accepted an upload without confirming it.
	ErrNotStored = errors.New("store did not confirm the upload")
)

// Catalog records what has been uploaded and deleted.
type Catalog interface {
	Upsert(ctx context.Context, record *domain.ObjectRecord) error
	MarkDeleted(ctx context.Context, bucket string, keys []string, at time.Time) (int64, error)
	Get(ctx context.Context, bucket, key string) (*domain.ObjectRecord, error)
	ListByBucket(ctx context.Context, bucket string, status domain.ObjectStatus, limit, offset int) ([]domain.ObjectRecord, error)
	CountByStatus(ctx context.Context, bucket string, status domain.ObjectStatus) (int64, error)
}

// ObjectConfig holds ObjectService settings.
type ObjectConfig struct {
	MaxPayloadBytes int64 // 0 disables the cap
}

// ObjectService runs storage operations and keeps the catalog in step.
type ObjectService struct {
	registry        *storage.Registry
	catalog         Catalog
	maxPayloadBytes int64
	now             func() time.Time
}

// UploadResult is the outcome of a successful upload.
type UploadResult struct {
	URL    string               `json:"url"`
	Record *domain.ObjectRecord `json:"record"`
}

// BucketInfo describes a registered bucket without its credentials.
type BucketInfo struct {
	Name      string `json:"name"`
	Endpoint  string `json:"endpoint"`
	Encrypted bool   `json:"encrypted"`
}

// NewObjectService creates a new ObjectService.
// Parameters:
//   - registry: bucket client registry shared by the process.
//   - catalog: object catalog; nil disables catalog bookkeeping.
//   - cfg: service settings; nil uses defaults.
//
// Returns:
//   - *ObjectService: initialized service.
func NewObjectService(registry *storage.Registry, catalog Catalog, cfg *ObjectConfig) *ObjectService {
	if cfg == nil {
		cfg = &ObjectConfig{}
	}
	return &ObjectService{
		registry:        registry,
		catalog:         catalog,
		maxPayloadBytes: cfg.MaxPayloadBytes,
		now:             time.Now,
	}
}

// Register registers a bucket. An existing registration is kept as is.
func (s *ObjectService) Register(ctx context.Context, cfg storage.ClientConfig) (BucketInfo, error) {
	entry, err := s.registry.GetOrCreate(ctx, cfg)
	if err != nil {
		return BucketInfo{}, err
	}
	return bucketInfo(entry), nil
}

// Reconfigure replaces the registration of a bucket.
func (s *ObjectService) Reconfigure(ctx context.Context, cfg storage.ClientConfig) (BucketInfo, error) {
	entry, err := s.registry.Reconfigure(ctx, cfg)
	if err != nil {
		return BucketInfo{}, err
	}
	return bucketInfo(entry), nil
}

// Buckets lists registered buckets.
func (s *ObjectService) Buckets() []BucketInfo {
	names := s.registry.Buckets()
	infos := make([]BucketInfo, 0, len(names))
	for _, name := range names {
		if entry, ok := s.registry.Lookup(name); ok {
			infos = append(infos, bucketInfo(entry))
		}
	}
	return infos
}

func bucketInfo(entry *storage.BucketClient) BucketInfo {
	return BucketInfo{
		Name:      entry.Bucket,
		Endpoint:  entry.Endpoint,
		Encrypted: entry.EncryptionKeyID != "",
	}
}

// MaxPayloadBytes returns the cap on base64 payload size; 0 means no cap.
func (s *ObjectService) MaxPayloadBytes() int64 {
	return s.maxPayloadBytes
}

// Upload stores a base64 payload and records it in the catalog.
// A catalog failure is logged but does not fail the upload; the object is stored.
// The returned record is the catalog row as persisted, so a re-upload keeps
// the ID and creation time of the first upload.
func (s *ObjectService) Upload(ctx context.Context, bucket, key, payload string, encrypt bool) (*UploadResult, error) {
	ctx = logger.WithFields(ctx, logger.Fields{
		logger.FieldBucket:    bucket,
		logger.FieldObjectKey: key,
	})

	if s.maxPayloadBytes > 0 && int64(len(payload)) > s.maxPayloadBytes {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d", ErrPayloadTooLarge, len(payload), s.maxPayloadBytes)
	}

	if _, ok := s.registry.Lookup(bucket); !ok {
		return nil, fmt.Errorf("%w: %s", ErrBucketNotRegistered, bucket)
	}

	data, err := storage.DecodePayload(payload)
	if err != nil {
		return nil, err
	}

	stored, err := s.registry.Store(ctx, bucket, key, data, encrypt)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotStored, bucket, key)
	}

	info := imageinfo.Inspect(data)
	record := &domain.ObjectRecord{
		ID:          uuid.NewString(),
		Bucket:      bucket,
		Key:         key,
		URL:         stored.URL,
		Size:        int64(stored.Size),
		Encrypted:   stored.Encrypted,
		ContentType: info.ContentType,
		Format:      info.Format,
		Width:       info.Width,
		Height:      info.Height,
		Status:      domain.ObjectStatusActive,
	}
	if record.Encrypted {
		record.ContentType = storage.ImageContentType
	}

	if s.catalog != nil {
		record = s.recordUpload(ctx, record)
	}

	fields := logger.Fields{logger.FieldStatus: "stored"}
	if info.IsImage() {
		fields["width"] = info.Width
		fields["height"] = info.Height
	}
	logger.With(fields).
		WithSize(stored.Size).
		Info(ctx, "Object uploaded: format=%s encrypted=%t", info.Format, record.Encrypted)

	return &UploadResult{URL: stored.URL, Record: record}, nil
}

// recordUpload upserts record and returns the persisted row. On failure the
// unsaved record is returned.
func (s *ObjectService) recordUpload(ctx context.Context, record *domain.ObjectRecord) *domain.ObjectRecord {
	if err := s.catalog.Upsert(ctx, record); err != nil {
		logger.FromContext(ctx).WithError(err).Warn("Failed to record uploaded object")
		return record
	}
	persisted, err := s.catalog.Get(ctx, record.Bucket, record.Key)
	if err != nil {
		logger.FromContext(ctx).WithError(err).Warn("Failed to reload uploaded object")
		return record
	}
	return persisted
}

// Delete removes keys from a bucket and marks the confirmed ones deleted in the catalog.
func (s *ObjectService) Delete(ctx context.Context, bucket string, keys []string) (*storage.DeletionResult, error) {
	ctx = logger.WithField(ctx, logger.FieldBucket, bucket)

	if len(keys) == 0 {
		return nil, storage.ErrNoKeys
	}
	if _, ok := s.registry.Lookup(bucket); !ok {
		return nil, fmt.Errorf("%w: %s", ErrBucketNotRegistered, bucket)
	}

	result, err := s.registry.Delete(ctx, bucket, keys...)
	if err != nil {
		return nil, err
	}
	if result == nil {
		result = &storage.DeletionResult{Deleted: []storage.DeletedObject{}, Errors: []storage.DeleteError{}}
	}

	if s.catalog != nil && len(result.Deleted) > 0 {
		deleted := make([]string, 0, len(result.Deleted))
		for _, d := range result.Deleted {
			deleted = append(deleted, d.Key)
		}
		if _, err := s.catalog.MarkDeleted(ctx, bucket, deleted, s.now()); err != nil {
			logger.FromContext(ctx).WithError(err).Warn("Failed to mark deleted objects")
		}
	}

	logger.With(logger.Fields{"failed": len(result.Errors)}).
		WithCount(len(result.Deleted)).
		Info(ctx, "Objects deleted")

	return result, nil
}

// Presign signs a GET link for bucket/key with the bucket's registered client.
// An empty kmsKeyID falls back to the bucket's registered key when useBucketKey is set.
func (s *ObjectService) Presign(ctx context.Context, bucket, key, kmsKeyID string, useBucketKey bool) (*storage.PresignedURL, error) {
	entry, ok := s.registry.Lookup(bucket)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBucketNotRegistered, bucket)
	}
	if kmsKeyID == "" && useBucketKey {
		kmsKeyID = entry.EncryptionKeyID
	}
	return s.registry.Presign(ctx, entry.Client, bucket, key, kmsKeyID)
}

// ListObjects lists catalog records for a bucket.
func (s *ObjectService) ListObjects(ctx context.Context, bucket string, status domain.ObjectStatus, limit, offset int) ([]domain.ObjectRecord, error) {
	if s.catalog == nil {
		return []domain.ObjectRecord{}, nil
	}
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return s.catalog.ListByBucket(ctx, bucket, status, limit, offset)
}

// CountObjects counts catalog records for a bucket; an empty status counts all.
func (s *ObjectService) CountObjects(ctx context.Context, bucket string, status domain.ObjectStatus) (int64, error) {
	if s.catalog == nil {
		return 0, nil
	}
	return s.catalog.CountByStatus(ctx, bucket, status)
}
