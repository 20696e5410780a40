package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// Tracing fields, propagated through the call chain via context.
const (
	// FieldService tags every line with the service name.
	FieldService = "service"

	// FieldRequestID is the HTTP request ID (UUID)
	FieldRequestID = "request_id"

	// FieldComponent is the component/module name
	FieldComponent = "component"

	// FieldBucket is the storage bucket an operation targets
	FieldBucket = "bucket"

	// FieldObjectKey is the object key an operation targets
	FieldObjectKey = "object_key"

	// FieldOperation is the storage operation name (put, delete, presign)
	FieldOperation = "operation"
)

// Metric fields, attached per entry for aggregation.
const (
	// FieldDurationMs is the execution duration in milliseconds
	FieldDurationMs = "duration_ms"

	// FieldCount is a generic count field
	FieldCount = "count"

	// FieldSize is the data size in bytes
	FieldSize = "size"

	// FieldStatus is the operation status
	FieldStatus = "status"
)
