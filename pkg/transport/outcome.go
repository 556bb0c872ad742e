package transport

import (
	"context"
	stderrors "errors"
	"io"
	"net"
	"net/url"
	"syscall"

	"github.com/grovetools/lumin/errors"
)

// Outcome is the classified result of one remote attempt.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeNetworkUnavailable
	OutcomeRemoteError
	// OutcomeCanceled means the caller gave up before an answer arrived.
	OutcomeCanceled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeNetworkUnavailable:
		return "network_unavailable"
	case OutcomeRemoteError:
		return "remote_error"
	case OutcomeCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// OutcomeOf maps an error returned by the Gateway to its Outcome.
func OutcomeOf(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.IsNetworkUnavailable(err):
		return OutcomeNetworkUnavailable
	case errors.IsRemote(err):
		return OutcomeRemoteError
	case stderrors.Is(err, context.Canceled):
		return OutcomeCanceled
	default:
		return OutcomeRemoteError
	}
}

// isNetworkError reports whether err means no server answered: refused or
// reset connections, unreachable hosts, DNS failures and timeouts.
func isNetworkError(err error) bool {
	if err == nil {
		return false
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if stderrors.Is(err, syscall.ECONNREFUSED) ||
		stderrors.Is(err, syscall.ECONNRESET) ||
		stderrors.Is(err, syscall.EHOSTUNREACH) ||
		stderrors.Is(err, syscall.ENETUNREACH) ||
		stderrors.Is(err, syscall.EPIPE) {
		return true
	}
	if stderrors.Is(err, io.EOF) || stderrors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	var dnsErr *net.DNSError
	if stderrors.As(err, &dnsErr) {
		return true
	}
	var opErr *net.OpError
	if stderrors.As(err, &opErr) {
		return true
	}
	var netErr net.Error
	if stderrors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var urlErr *url.Error
	if stderrors.As(err, &urlErr) {
		return isNetworkError(urlErr.Err)
	}
	return false
}

// classify turns a failed round trip into a taxonomy error. parent is the
// caller's context: when it was cancelled the error is passed through
// unclassified so it never counts as a transport failure.
func classify(parent context.Context, op string, err error) error {
	if parent.Err() == context.Canceled {
		return parent.Err()
	}
	if isNetworkError(err) {
		return errors.NetworkUnavailable(op, err)
	}
	return errors.Wrap(err, errors.ErrCodeRemoteError, op+": request failed").WithDetail("op", op)
}
