package balsa

import "errors"

// The error kinds surfaced by the engine. Errors returned from exported
// operations wrap exactly one of these sentinels, so callers can sort
// failures with errors.Is.
var (
	// ErrClient marks a contract violation by the caller: mismatched
	// point and label counts, a NaN feature value, an out-of-range
	// parameter, and the like.
	ErrClient = errors.New("client error")

	// ErrSupplier marks an I/O failure on an underlying file or sink.
	ErrSupplier = errors.New("supplier error")

	// ErrStreamClosed is returned by writes to an already closed
	// classifier output stream.
	ErrStreamClosed = errors.New("classifier stream is closed")

	// ErrMalformedInput marks structurally invalid input: a persisted
	// model that fails its checks, or a point block whose length is not
	// a multiple of the feature count.
	ErrMalformedInput = errors.New("malformed input")
)
