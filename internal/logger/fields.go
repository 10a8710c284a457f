package logger

import (
	"log/slog"
)

// Standard field keys for structured logging.
// Use these keys consistently across all log statements for log aggregation and querying.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID = "trace_id" // OpenTelemetry trace ID for request correlation
	KeySpanID  = "span_id"  // OpenTelemetry span ID for operation tracking

	// ========================================================================
	// Endpoint & Account
	// ========================================================================
	KeyEndpoint = "endpoint"  // wire-protocol endpoint name (§6.1), e.g. "Upsert"
	KeyOwner    = "owner"     // base58 public key the request is scoped to
	KeyFileID   = "file_id"   // file-tree node UUID
	KeyHMAC     = "hmac"      // sibling-name HMAC, hex-encoded

	// ========================================================================
	// Client Identification
	// ========================================================================
	KeyClientIP   = "client_ip"   // client IP address
	KeyClientPort = "client_port" // client source port

	// ========================================================================
	// Sync
	// ========================================================================
	KeyDiffCount     = "diff_count"     // number of diffs in a push/pull batch
	KeySyncPhase     = "sync_phase"     // merge, pull, push
	KeySyncDirection = "sync_direction" // upload, download

	// ========================================================================
	// Operation Metadata
	// ========================================================================
	KeyDurationMs = "duration_ms" // operation duration in milliseconds
	KeyError      = "error"       // error message
	KeyErrorCode  = "error_code"  // numeric/symbolic error code
	KeySource     = "source"      // originating subsystem
	KeyOperation  = "operation"   // sub-operation type for complex operations

	// ========================================================================
	// Document Store Backend
	// ========================================================================
	KeyDocSize    = "doc_size"    // document body size in bytes
	KeyDocBackend = "doc_backend" // memory, fs, s3
	KeyBucket     = "bucket"      // S3 bucket name
	KeyObjectKey  = "object_key"  // object key within the bucket
	KeyRegion     = "region"      // S3 region
	KeyAttempt    = "attempt"     // retry attempt number
	KeyMaxRetries = "max_retries" // maximum retry attempts
)

// ============================================================================
// Field constructors for type safety
// ============================================================================

// TraceID returns a slog.Attr for OpenTelemetry trace ID
func TraceID(id string) slog.Attr {
	return slog.String(KeyTraceID, id)
}

// SpanID returns a slog.Attr for OpenTelemetry span ID
func SpanID(id string) slog.Attr {
	return slog.String(KeySpanID, id)
}

// Endpoint returns a slog.Attr for the wire-protocol endpoint name
func Endpoint(name string) slog.Attr {
	return slog.String(KeyEndpoint, name)
}

// Owner returns a slog.Attr for the account a log line concerns
func Owner(owner string) slog.Attr {
	return slog.String(KeyOwner, owner)
}

// FileID returns a slog.Attr for a file-tree node's UUID
func FileID(id string) slog.Attr {
	return slog.String(KeyFileID, id)
}

// HMACHex returns a slog.Attr for a content HMAC already in hex form
func HMACHex(hex string) slog.Attr {
	return slog.String(KeyHMAC, hex)
}

// ClientIP returns a slog.Attr for client IP address
func ClientIP(addr string) slog.Attr {
	return slog.String(KeyClientIP, addr)
}

// ClientPort returns a slog.Attr for client source port
func ClientPort(port int) slog.Attr {
	return slog.Int(KeyClientPort, port)
}

// DiffCount returns a slog.Attr for the number of diffs in a push/pull batch
func DiffCount(n int) slog.Attr {
	return slog.Int(KeyDiffCount, n)
}

// SyncPhase returns a slog.Attr for which reconcile phase a log line covers
func SyncPhase(phase string) slog.Attr {
	return slog.String(KeySyncPhase, phase)
}

// SyncDirection returns a slog.Attr for document transfer direction
func SyncDirection(direction string) slog.Attr {
	return slog.String(KeySyncDirection, direction)
}

// DurationMs returns a slog.Attr for duration in milliseconds
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns a slog.Attr for an error
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// ErrorCode returns a slog.Attr for a symbolic error code
func ErrorCode(code string) slog.Attr {
	return slog.String(KeyErrorCode, code)
}

// Source returns a slog.Attr for the originating subsystem
func Source(src string) slog.Attr {
	return slog.String(KeySource, src)
}

// Operation returns a slog.Attr for sub-operation type
func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

// DocSize returns a slog.Attr for a document body's byte length
func DocSize(size int) slog.Attr {
	return slog.Int(KeyDocSize, size)
}

// DocBackend returns a slog.Attr for the docstore backend name
func DocBackend(backend string) slog.Attr {
	return slog.String(KeyDocBackend, backend)
}

// Bucket returns a slog.Attr for S3 bucket name
func Bucket(name string) slog.Attr {
	return slog.String(KeyBucket, name)
}

// ObjectKey returns a slog.Attr for an S3 object key
func ObjectKey(key string) slog.Attr {
	return slog.String(KeyObjectKey, key)
}

// Region returns a slog.Attr for S3 region
func Region(r string) slog.Attr {
	return slog.String(KeyRegion, r)
}

// Attempt returns a slog.Attr for retry attempt number
func Attempt(n int) slog.Attr {
	return slog.Int(KeyAttempt, n)
}

// MaxRetries returns a slog.Attr for maximum retry attempts
func MaxRetries(n int) slog.Attr {
	return slog.Int(KeyMaxRetries, n)
}
