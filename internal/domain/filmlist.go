package domain

import "time"

// Filmlist describes one imported film list snapshot.
type Filmlist struct {
	// ID identifies a list version, derived from its creation time.
	ID string
	// CreatedAt is when the broadcasters generated the list.
	CreatedAt time.Time
	// EntryCount is the number of entries the list carried.
	EntryCount int64
	// ImportedAt is when this instance finished importing the list.
	ImportedAt time.Time
}
