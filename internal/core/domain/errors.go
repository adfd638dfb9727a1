package domain

import "errors"

// Error taxonomy shared by every component. Callers wrap these with
// fmt.Errorf("...: %w", err) and branch with errors.Is.
var (
	// ErrNotFound signals an absent key, record, or cursor. Recoverable:
	// callers substitute a documented default.
	ErrNotFound = errors.New("not found")

	// ErrInvalidArgument signals a malformed write request (empty batch,
	// non-increasing indices). Indicates a programming error upstream.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrStorage signals a backend I/O failure.
	ErrStorage = errors.New("storage error")

	// ErrRPC signals an endpoint transport, timeout, or bad-response failure.
	ErrRPC = errors.New("rpc error")

	// ErrDecode signals a malformed block or transaction payload.
	ErrDecode = errors.New("decode error")

	// ErrConfiguration signals invalid startup parameters.
	ErrConfiguration = errors.New("configuration error")
)
