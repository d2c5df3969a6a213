package analytics

import "errors"

// Sentinel errors for the analytics service layer.
var (
	ErrModelNotFound = errors.New("sentiment model not found")
	ErrBusy          = errors.New("an identical run is already in progress")
	ErrNoMailer      = errors.New("report delivery is not configured")
	ErrEmptyTable    = errors.New("input table has no rows")
)
