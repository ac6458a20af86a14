package health

import "context"

// DBPinger checks entry store availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// IndexChecker checks that the full-text index answers queries.
type IndexChecker interface {
	Count(ctx context.Context) (uint64, error)
}
