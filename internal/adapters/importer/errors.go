package importer

import "errors"

// Sentinel kinds for import errors.
var (
	ErrNoResultsTable = errors.New("no results table found")
	ErrBadTime        = errors.New("unrecognized time format")
)
