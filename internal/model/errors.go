package model

import "errors"

var (
	// ErrInvalidDuration is returned for manual entries of zero or negative length.
	ErrInvalidDuration = errors.New("duration must be greater than zero")

	// ErrNoDataset is returned by a persister that has nothing stored yet.
	ErrNoDataset = errors.New("no stored dataset")
)
