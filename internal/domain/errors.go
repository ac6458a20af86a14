package domain

import "errors"

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrEntryNotFound signals a missing entry.
	ErrEntryNotFound = errors.New("entry not found")
	// ErrNoFilmlist signals that no film list has been imported yet.
	ErrNoFilmlist = errors.New("no film list imported")
	// ErrLockHeld signals a distributed lock owned by another instance.
	ErrLockHeld = errors.New("lock held by another instance")
)
