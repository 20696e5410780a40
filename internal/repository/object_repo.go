package repository

import (
	"context"
	"time"

	"github.com/timmy/bucketgate/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ObjectRepository persists the object catalog.
type ObjectRepository struct {
	db *gorm.DB
}

// NewObjectRepository creates a new ObjectRepository.
func NewObjectRepository(db *gorm.DB) *ObjectRepository {
	return &ObjectRepository{db: db}
}

// Upsert creates or refreshes the record keyed by bucket and object key.
// A re-upload of a deleted key makes it active again.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - record: record to create or update.
//
// Returns:
//   - error: non-nil if the upsert fails.
func (r *ObjectRepository) Upsert(ctx context.Context, record *domain.ObjectRecord) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "bucket"}, {Name: "object_key"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"url", "size", "encrypted", "content_type", "format",
			"width", "height", "status", "deleted_at", "updated_at",
		}),
	}).Create(record).Error
}

// Get retrieves the record for bucket/key.
func (r *ObjectRepository) Get(ctx context.Context, bucket, key string) (*domain.ObjectRecord, error) {
	var record domain.ObjectRecord
	if err := r.db.WithContext(ctx).
		First(&record, "bucket = ? AND object_key = ?", bucket, key).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// ListByBucket returns records of a bucket, newest first.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - bucket: bucket name.
//   - status: status filter; empty means all.
//   - limit: maximum number of records to return.
//   - offset: number of records to skip.
//
// Returns:
//   - []domain.ObjectRecord: matching records.
//   - error: non-nil if the query fails.
func (r *ObjectRepository) ListByBucket(ctx context.Context, bucket string, status domain.ObjectStatus, limit, offset int) ([]domain.ObjectRecord, error) {
	var records []domain.ObjectRecord
	query := r.db.WithContext(ctx).Where("bucket = ?", bucket)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.
		Order("created_at DESC").
		Order("object_key").
		Limit(limit).
		Offset(offset).
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// MarkDeleted flags the given keys of bucket as deleted.
// Returns the number of records changed.
func (r *ObjectRepository) MarkDeleted(ctx context.Context, bucket string, keys []string, at time.Time) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Model(&domain.ObjectRecord{}).
		Where("bucket = ? AND object_key IN ?", bucket, keys).
		Updates(map[string]interface{}{
			"status":     domain.ObjectStatusDeleted,
			"deleted_at": at,
			"updated_at": at,
		})
	return res.RowsAffected, res.Error
}

// CountByStatus counts records of bucket in the given status; empty means all.
func (r *ObjectRepository) CountByStatus(ctx context.Context, bucket string, status domain.ObjectStatus) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&domain.ObjectRecord{}).Where("bucket = ?", bucket)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
