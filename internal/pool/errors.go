package pool

import "errors"

// Sentinel errors a caller can match with errors.Is, per spec §7.
var (
	// ErrClosed is returned by Acquire when the pool has already been shut
	// down via Close.
	ErrClosed = errors.New("pool: closed")

	// ErrAcquireTimeout is returned by Acquire when no session became
	// available before the configured acquire timeout (or the caller's
	// context deadline) elapsed.
	ErrAcquireTimeout = errors.New("pool: acquire timeout")

	// ErrInitialOpenFailed is returned by New when it cannot establish the
	// configured number of initial sessions.
	ErrInitialOpenFailed = errors.New("pool: initial session open failed")

	// ErrConfigLoadFailed is returned by Instance when the backing config
	// file cannot be loaded or parsed.
	ErrConfigLoadFailed = errors.New("pool: config load failed")
)
