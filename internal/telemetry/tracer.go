package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Common attribute keys for Lockbook operations.
// These follow OpenTelemetry semantic conventions where applicable.
const (
	// ========================================================================
	// Client attributes
	// ========================================================================
	AttrClientIP   = "client.ip"
	AttrClientAddr = "client.address"

	// ========================================================================
	// Account attributes
	// ========================================================================
	AttrOwner    = "lockbook.owner"    // base58 public key identifying an account
	AttrEndpoint = "lockbook.endpoint" // wire-protocol endpoint name (§6.1)

	// ========================================================================
	// File-tree attributes
	// ========================================================================
	AttrFileID    = "lockbook.file_id"
	AttrDiffCount = "lockbook.diff_count"
	AttrHMAC      = "lockbook.hmac"

	// ========================================================================
	// Document store attributes
	// ========================================================================
	AttrDocSize    = "docstore.size"
	AttrDocBackend = "docstore.backend"

	// ========================================================================
	// Sync attributes
	// ========================================================================
	AttrSyncPhase     = "sync.phase"
	AttrSyncDirection = "sync.direction"
)

// Span names for operations.
// Format: <component>.<operation>.
const (
	SpanNetclientRequest = "netclient.request"
	SpanServerUpsert     = "server.api.Upsert"
	SpanServerGetDoc     = "server.api.GetDoc"
	SpanServerChangeDoc  = "server.api.ChangeDoc"
	SpanSyncReconcile    = "syncer.Reconcile"
	SpanSyncPull         = "syncer.pull"
	SpanSyncPush         = "syncer.push"
	SpanDocStoreRead     = "docstore.read"
	SpanDocStoreWrite    = "docstore.write"
)

// ClientIP returns an attribute for client IP address.
func ClientIP(ip string) attribute.KeyValue {
	return attribute.String(AttrClientIP, ip)
}

// ClientAddr returns an attribute for full client address.
func ClientAddr(addr string) attribute.KeyValue {
	return attribute.String(AttrClientAddr, addr)
}

// Owner returns an attribute identifying the account a span operates on.
func Owner(owner string) attribute.KeyValue {
	return attribute.String(AttrOwner, owner)
}

// Endpoint returns an attribute for the wire-protocol endpoint a request
// targets (§6.1's RPC names, e.g. "Upsert", "GetUpdates").
func Endpoint(endpoint string) attribute.KeyValue {
	return attribute.String(AttrEndpoint, endpoint)
}

// FileID returns an attribute for a file-tree node's UUID.
func FileID(id fmt.Stringer) attribute.KeyValue {
	return attribute.String(AttrFileID, id.String())
}

// DiffCount returns an attribute for the number of diffs a push batch carries.
func DiffCount(count int) attribute.KeyValue {
	return attribute.Int(AttrDiffCount, count)
}

// HMACHex returns an attribute for a content HMAC already in hex form.
func HMACHex(hex string) attribute.KeyValue {
	return attribute.String(AttrHMAC, hex)
}

// DocSize returns an attribute for a document body's byte length.
func DocSize(size int) attribute.KeyValue {
	return attribute.Int(AttrDocSize, size)
}

// DocBackend returns an attribute for the docstore backend name
// ("memory", "fs", "s3").
func DocBackend(backend string) attribute.KeyValue {
	return attribute.String(AttrDocBackend, backend)
}

// SyncPhase returns an attribute for which reconcile phase a span covers
// ("merge", "pull", "push").
func SyncPhase(phase string) attribute.KeyValue {
	return attribute.String(AttrSyncPhase, phase)
}

// SyncDirection returns an attribute for document transfer direction
// ("upload", "download").
func SyncDirection(direction string) attribute.KeyValue {
	return attribute.String(AttrSyncDirection, direction)
}

// StartOwnerSpan starts a span scoped to a single account, carrying the
// owner attribute followed by any extra attrs.
func StartOwnerSpan(ctx context.Context, name, owner string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := append([]attribute.KeyValue{Owner(owner)}, attrs...)
	return StartSpan(ctx, name, trace.WithAttributes(allAttrs...))
}

// StartDocStoreSpan starts a span for a docstore.Store operation.
func StartDocStoreSpan(ctx context.Context, name, backend string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := append([]attribute.KeyValue{DocBackend(backend)}, attrs...)
	return StartSpan(ctx, name, trace.WithAttributes(allAttrs...))
}
