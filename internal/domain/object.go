package domain

import "time"

// ObjectStatus represents the lifecycle state of a stored object.
// Values include ObjectStatusActive and ObjectStatusDeleted.
type ObjectStatus string

const (
	ObjectStatusActive  ObjectStatus = "active"
	ObjectStatusDeleted ObjectStatus = "deleted"
)

// ObjectRecord is the catalog entry for an object uploaded through bucketgate.
type ObjectRecord struct {
	ID          string       `gorm:"type:text;primaryKey" json:"id"`
	Bucket      string       `gorm:"type:text;not null;uniqueIndex:idx_bucket_key" json:"bucket"`
	Key         string       `gorm:"column:object_key;type:text;not null;uniqueIndex:idx_bucket_key" json:"key"`
	URL         string       `gorm:"type:text" json:"url"`
	Size        int64        `json:"size"`
	Encrypted   bool         `gorm:"default:false" json:"encrypted"`
	ContentType string       `gorm:"type:text" json:"content_type"`
	Format      string       `gorm:"type:text" json:"format,omitempty"`
	Width       int          `json:"width,omitempty"`
	Height      int          `json:"height,omitempty"`
	Status      ObjectStatus `gorm:"type:text;default:active;index" json:"status"`
	DeletedAt   *time.Time   `json:"deleted_at,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// TableName returns the database table name for ObjectRecord.
func (ObjectRecord) TableName() string {
	return "objects"
}
