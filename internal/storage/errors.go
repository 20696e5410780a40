package storage

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration reports registration parameters that cannot produce a client.
	ErrConfiguration = errors.New("invalid storage configuration")

	// ErrEncoding reports an upload payload that is not valid base64.
	ErrEncoding = errors.New("payload is not valid base64")

	// ErrNoKeys reports a delete call without any object keys.
	ErrNoKeys = errors.New("at least one object key is required")
)

// OperationError wraps a failure returned by the storage backend.
type OperationError struct {
	Op     string // put, delete or presign
	Bucket string
	Key    string // empty for batch operations
	Err    error
}

func (e *OperationError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("storage %s %s: %v", e.Op, e.Bucket, e.Err)
	}
	return fmt.Sprintf("storage %s %s/%s: %v", e.Op, e.Bucket, e.Key, e.Err)
}

func (e *OperationError) Unwrap() error {
	return e.Err
}
