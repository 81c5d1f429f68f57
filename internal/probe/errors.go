package probe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"syscall"
)

// ErrorKind categorizes a failed probe.
type ErrorKind int

const (
	// KindTimeout indicates the probe exceeded its deadline.
	KindTimeout ErrorKind = iota
	// KindUnreachable indicates a transport failure before any HTTP
	// response (connection refused, no route, DNS failure).
	KindUnreachable
	// KindBadStatus indicates the device answered with a non-200 status.
	KindBadStatus
	// KindMalformed indicates a 200 response whose body failed to parse.
	KindMalformed
)

// String returns a human-readable name for the error kind.
func (k ErrorKind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindUnreachable:
		return "unreachable"
	case KindBadStatus:
		return "bad status"
	case KindMalformed:
		return "malformed"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// Error is a failed probe of one device address. Probes are expected to
// fail routinely (that is how offline devices are detected), so Error
// carries classification rather than being treated as exceptional.
type Error struct {
	Kind       ErrorKind // Category of failure
	Addr       string    // Probed address, "ip:port"
	StatusCode int       // HTTP status code (BadStatus only)
	Err        error     // Underlying error (if any)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("probe %s: %s (caused by: %v)", e.Addr, e.Kind, e.Err)
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("probe %s: %s %d", e.Addr, e.Kind, e.StatusCode)
	}
	return fmt.Sprintf("probe %s: %s", e.Addr, e.Kind)
}

// Unwrap returns the underlying error for error chain inspection.
func (e *Error) Unwrap() error {
	return e.Err
}

// HostReached reports whether the device answered at the transport
// level. Callers use this to distinguish an unhealthy device (error)
// from an absent one (offline).
func (e *Error) HostReached() bool {
	return e.Kind == KindBadStatus || e.Kind == KindMalformed
}

// KindOf returns the probe error kind of err, or (0, false) if err is
// not a probe error.
func KindOf(err error) (ErrorKind, bool) {
	var probeErr *Error
	if errors.As(err, &probeErr) {
		return probeErr.Kind, true
	}
	return 0, false
}

// classifyTransport maps a transport-level failure onto Timeout or
// Unreachable. Anything that prevented an HTTP response is one of the
// two; the distinction matters because both end up as status "offline"
// but operators read the logs.
func classifyTransport(err error, addr string) *Error {
	if errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err) {
		return &Error{Kind: KindTimeout, Addr: addr, Err: err}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return &Error{Kind: KindTimeout, Addr: addr, Err: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{Kind: KindTimeout, Addr: addr, Err: err}
	}

	// Connection refused, host/network unreachable, and DNS failures
	// all mean the same thing to the fleet: nobody answered.
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &Error{Kind: KindUnreachable, Addr: addr, Err: err}
	}
	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EHOSTUNREACH) ||
		errors.Is(err, syscall.ENETUNREACH) {
		return &Error{Kind: KindUnreachable, Addr: addr, Err: err}
	}

	return &Error{Kind: KindUnreachable, Addr: addr, Err: err}
}
