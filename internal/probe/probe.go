package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ewego/fleet/internal/urls"
)

const (
	// DefaultTimeout is the probe deadline used by the health poller.
	DefaultTimeout = 3 * time.Second

	// ScanTimeout is the tighter deadline used during bulk subnet
	// scanning, where most addresses will not answer.
	ScanTimeout = 1 * time.Second

	// maxBodySize caps how much of a health response is read. Device
	// health bodies are small JSON documents; anything larger is not
	// an EweGo device.
	maxBodySize = 64 * 1024
)

// Client issues single bounded-timeout status requests to device
// addresses. It holds no per-device state and is safe for concurrent
// use; retry policy belongs to callers.
type Client struct {
	// Timeout is the hard deadline applied to each probe.
	Timeout time.Duration

	// HTTPClient is the underlying HTTP client. Connection reuse is
	// disabled-friendly by default: probes hit many one-off addresses.
	HTTPClient *http.Client
}

// NewClient creates a probe client with the given per-probe timeout.
// A zero timeout falls back to DefaultTimeout.
func NewClient(timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		Timeout:    timeout,
		HTTPClient: &http.Client{},
	}
}

// Probe issues one GET to the device health endpoint at ip:port and
// returns the decoded body. It succeeds only on HTTP 200 with a
// parseable JSON object; every failure is a *Error classified as
// Timeout, Unreachable, BadStatus, or Malformed. The context may carry
// an earlier deadline than the client's timeout.
func (c *Client) Probe(ctx context.Context, ip string, port int) (map[string]any, error) {
	addr := fmt.Sprintf("%s:%d", ip, port)

	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urls.Health(urls.DeviceBase(ip, port)), nil)
	if err != nil {
		return nil, &Error{Kind: KindUnreachable, Addr: addr, Err: err}
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, classifyTransport(err, addr)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))
		return nil, &Error{Kind: KindBadStatus, Addr: addr, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		// Partial data counts as not having answered: the deadline
		// may fire mid-body.
		return nil, classifyTransport(err, addr)
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &Error{Kind: KindMalformed, Addr: addr, Err: err}
	}

	return payload, nil
}
