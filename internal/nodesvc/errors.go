package nodesvc

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrInvalidArgument wraps msg as the invalid-argument status used for
// malformed options, wrong payload type, missing required option, or
// selector/regex parse failure.
func ErrInvalidArgument(format string, args ...any) error {
	return status.Errorf(codes.InvalidArgument, format, args...)
}

// ErrNotFoundf wraps msg as the not-found status used for x-node
// mismatch, unknown flow name, or unknown subscription uuid.
func ErrNotFoundf(format string, args ...any) error {
	return status.Errorf(codes.NotFound, format, args...)
}

// ErrUnavailablef wraps msg as the unavailable status used for
// transient outbound failures (HTTP 5xx, DNS, connect, RPC dial, hub
// POST non-2xx).
func ErrUnavailablef(format string, args ...any) error {
	return status.Errorf(codes.Unavailable, format, args...)
}

// ErrInternalf wraps msg as the internal status used for
// serialisation/parse failures on trusted data or database errors.
func ErrInternalf(format string, args ...any) error {
	return status.Errorf(codes.Internal, format, args...)
}

// NodeNotFound is the message shape used for an x-node mismatch.
func NodeNotFound(name string) error {
	return status.Errorf(codes.NotFound, "node %s not found", name)
}
