package services

import "errors"

var (
	// ErrNoSnapshot means no run has succeeded and no artifacts exist on disk.
	ErrNoSnapshot = errors.New("no snapshot available")

	// ErrRefreshDisabled means manual runs are not allowed.
	ErrRefreshDisabled = errors.New("manual refresh is disabled")
)
