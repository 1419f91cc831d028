// Copyright 2024-2026 Aiku AI

package wecache

import "errors"

var (
	// ErrNotFound is returned when a cached entity does not exist. Callers
	// that can re-fetch from the backend should treat it as a cache miss.
	ErrNotFound = errors.New("wecache: not found")

	// ErrAlreadyOpen is returned by Open when the manager is already bound
	// to an account.
	ErrAlreadyOpen = errors.New("wecache: already open")

	// ErrClosed is returned when an operation is attempted before Open or
	// after Close.
	ErrClosed = errors.New("wecache: not open")
)
