package errors

// Common error codes
const (
	// System errors
	ErrInternal        ErrorCode = "internal_error"
	ErrInvalidArgument ErrorCode = "invalid_argument"
	ErrUnavailable     ErrorCode = "service_unavailable"
	ErrAlreadyRunning  ErrorCode = "already_running"

	// Configuration errors
	ErrInvalidConfig   ErrorCode = "invalid_configuration"
	ErrBindFlags       ErrorCode = "bind_flags_failed"
	ErrReadConfig      ErrorCode = "read_config_failed"
	ErrInvalidInterval ErrorCode = "invalid_interval"

	// Logging errors
	ErrInvalidLogLevel ErrorCode = "invalid_log_level"

	// Initialization errors
	ErrInitFailed     ErrorCode = "initialization_failed"
	ErrShutdownFailed ErrorCode = "shutdown_failed"

	// Time recovery errors
	ErrTimeSyncFailed    ErrorCode = "time_sync_failed"
	ErrTimeImplausible   ErrorCode = "time_implausible"
	ErrTimeFeedExhausted ErrorCode = "time_feed_exhausted"

	// State persistence errors
	ErrStateLoad    ErrorCode = "state_load_failed"
	ErrStateDecode  ErrorCode = "state_decode_failed"
	ErrStateSave    ErrorCode = "state_save_failed"
	ErrBlobNotFound ErrorCode = "blob_not_found"

	// Application errors
	ErrInitApp  ErrorCode = "init_app_failed"
	ErrMainLoop ErrorCode = "main_loop_failed"

	// Operation errors
	ErrOperationFailed ErrorCode = "operation_failed"
	ErrTimeout         ErrorCode = "operation_timeout"
)

// Common error messages
var errorMessages = map[ErrorCode]string{
	ErrInternal:          "Internal error occurred",
	ErrInvalidArgument:   "Invalid argument provided",
	ErrUnavailable:       "Service unavailable",
	ErrAlreadyRunning:    "Another instance is already running",
	ErrInvalidConfig:     "Invalid configuration",
	ErrBindFlags:         "Failed to bind flags",
	ErrReadConfig:        "Failed to read config file",
	ErrInvalidInterval:   "Invalid interval value",
	ErrInvalidLogLevel:   "Invalid log level",
	ErrInitFailed:        "Initialization failed",
	ErrShutdownFailed:    "Shutdown failed",
	ErrTimeSyncFailed:    "Failed to sync wall-clock time",
	ErrTimeImplausible:   "Wall-clock time below sanity floor",
	ErrTimeFeedExhausted: "Time feed retries exhausted",
	ErrStateLoad:         "Failed to load persisted state",
	ErrStateDecode:       "Failed to decode persisted state",
	ErrStateSave:         "Failed to save persisted state",
	ErrBlobNotFound:      "Blob not found",
	ErrInitApp:           "Failed to initialize application",
	ErrMainLoop:          "Error in main loop",
	ErrOperationFailed:   "Operation failed",
	ErrTimeout:           "Operation timed out",
}

// GetErrorMessage returns the message for a given error code
func GetErrorMessage(code ErrorCode) string {
	if msg, ok := errorMessages[code]; ok {
		return msg
	}

	return string(code)
}
