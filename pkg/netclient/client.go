// Package netclient implements the wire-protocol client (§6.1): it signs
// every request as a crypto.SignedEnvelope, sends it over HTTPS, and
// decodes either a typed result or the server's tagged error. It is the
// only package that opens a socket on the client side.
package netclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/lockbookapp/lockbook-core/internal/logger"
	"github.com/lockbookapp/lockbook-core/internal/telemetry"
	"github.com/lockbookapp/lockbook-core/pkg/crypto"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Version is the client version advertised on every request (§6.1), so the
// server can reject a client too old to understand the wire format. Set via
// -ldflags at build time; "dev" otherwise.
var Version = "dev"

// retryBackoff is the exponential backoff schedule for transport failures
// (§5): up to 3 retries at 100ms, 200ms, 400ms. Semantic errors never
// retry at this layer.
var retryBackoff = []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond}

// Client is the Lockbook server API client. A zero-value http.Client is
// never used directly; Client wraps one configured with a sane timeout,
// which is safe for concurrent reuse across however many goroutines a
// pkg/lockbook.Core instance drives (§5).
type Client struct {
	baseURL    string
	httpClient *http.Client
	account    crypto.KeyPair
}

// New creates a client for the account's server, signing every request
// with the account's keypair.
func New(baseURL string, account crypto.KeyPair) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		account: account,
	}
}

// doRequest signs req, posts it to path, and decodes the response into a
// Resp. It retries transport failures per retryBackoff, and re-signs and
// retries once on ExpiredAuth (§7: "Auth expired: re-sign with current
// time; retry once").
func doRequest[Req, Resp any](ctx context.Context, c *Client, endpoint, path string, req Req) (Resp, error) {
	var zero Resp

	ctx, span := telemetry.StartSpan(ctx, "netclient."+endpoint,
		trace.WithAttributes(attribute.String("lockbook.endpoint", endpoint)))
	defer span.End()

	reAuthed := false
	attempt := 0
	for {
		resp, err := c.roundTrip(ctx, path, req)
		if err == nil {
			var out Resp
			if len(resp.Result) > 0 {
				if err := json.Unmarshal(resp.Result, &out); err != nil {
					telemetry.RecordError(ctx, err)
					return zero, fmt.Errorf("netclient: %s: decode result: %w", endpoint, err)
				}
			}
			return out, nil
		}

		if netErr, ok := err.(*Error); ok {
			if netErr.Kind == KindExpiredAuth && !reAuthed {
				reAuthed = true
				logger.Warn("netclient: auth expired, re-signing and retrying once", "endpoint", endpoint)
				continue
			}
			telemetry.RecordError(ctx, netErr)
			return zero, netErr
		}

		if attempt >= len(retryBackoff) {
			telemetry.RecordError(ctx, err)
			return zero, fmt.Errorf("netclient: %s: %w", endpoint, err)
		}
		logger.Warn("netclient: transport error, retrying", "endpoint", endpoint, "attempt", attempt+1, "error", err)
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(retryBackoff[attempt]):
		}
		attempt++
	}
}

// rawResponse is the partially-decoded response: Result is left as raw
// JSON so doRequest can unmarshal it into the caller's concrete type once
// it knows no error was signaled.
type rawResponse struct {
	Result json.RawMessage `json:"result,omitempty"`
	Err    *wireError      `json:"error,omitempty"`
}

// roundTrip performs exactly one HTTP exchange: sign, send, and classify
// the result. A non-nil *Error return is a semantic server response (never
// retried here); any other non-nil error is a transport failure.
func (c *Client) roundTrip(ctx context.Context, path string, req any) (rawResponse, error) {
	env, err := crypto.Sign(c.account, req, time.Now())
	if err != nil {
		return rawResponse{}, fmt.Errorf("sign request: %w", err)
	}

	body, err := json.Marshal(struct {
		SignedRequest any    `json:"signed_request"`
		ClientVersion string `json:"client_version"`
	}{SignedRequest: env, ClientVersion: Version})
	if err != nil {
		return rawResponse{}, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return rawResponse{}, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return rawResponse{}, fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return rawResponse{}, fmt.Errorf("read response: %w", err)
	}

	var raw rawResponse
	if err := json.Unmarshal(respBody, &raw); err != nil {
		return rawResponse{}, fmt.Errorf("decode response (status %d): %w", httpResp.StatusCode, err)
	}
	if raw.Err != nil {
		return rawResponse{}, raw.Err.toError()
	}
	return raw, nil
}
