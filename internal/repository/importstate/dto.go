package importstate

import (
	"strconv"
	"time"

	"github.com/Frischifrisch/mediathekviewweb/internal/domain"
)

// buildMetaFields converts a Filmlist into a flat map[string]string for HSET.
func buildMetaFields(fl domain.Filmlist) map[string]string {
	return map[string]string{
		"id":          fl.ID,
		"created_at":  strconv.FormatInt(fl.CreatedAt.Unix(), 10),
		"entry_count": strconv.FormatInt(fl.EntryCount, 10),
		"imported_at": strconv.FormatInt(fl.ImportedAt.Unix(), 10),
	}
}

// parseMetaFields converts a flat hash map back into a Filmlist.
func parseMetaFields(m map[string]string) domain.Filmlist {
	return domain.Filmlist{
		ID:         m["id"],
		CreatedAt:  parseEpoch(m["created_at"]),
		EntryCount: parseInt(m["entry_count"]),
		ImportedAt: parseEpoch(m["imported_at"]),
	}
}

func parseEpoch(s string) time.Time {
	return time.Unix(parseInt(s), 0).UTC()
}

func parseInt(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
