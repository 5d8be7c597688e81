package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrNoStore               = errors.New("no store configured")
	ErrNotStarted            = errors.New("service not started")
	ErrBatchInProgress       = errors.New("auto-link batch already running")
	ErrDuplicateSubmission   = errors.New("submission already received")
	ErrWrongChampionshipKind = errors.New("operation not valid for championship kind")
	ErrInvalidInput          = errors.New("invalid input")
)
