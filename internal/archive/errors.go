package archive

import "codeberg.org/mutker/powermon/internal/errors"

const (
	// Configuration Errors
	ErrInvalidConfig = errors.ErrInvalidConfig
	ErrInvalidDBPath = errors.ErrorCode("archive_invalid_db_path")

	// Schema Errors
	ErrSchemaInitFailed       = errors.ErrorCode("archive_schema_init_failed")
	ErrSchemaValidationFailed = errors.ErrorCode("archive_schema_validation_failed")

	// Storage Errors
	ErrStorageAccess = errors.ErrorCode("archive_storage_access_failed")
	ErrStorageInit   = errors.ErrInitFailed
	ErrStorageClose  = errors.ErrShutdownFailed

	// Collection Errors
	ErrRecordFailed = errors.ErrorCode("archive_record_failed")
	ErrInvalidEvent = errors.ErrorCode("archive_invalid_event")

	// Operation Errors
	ErrOperationTimeout = errors.ErrTimeout
)
