package entry

import (
	"strconv"

	domentry "github.com/Frischifrisch/mediathekviewweb/internal/domain/entry"
)

// buildHashFields converts a domain Entry into a flat map[string]string for HSET.
func buildHashFields(e domentry.Entry) map[string]string {
	m := map[string]string{
		"channel":   e.Channel(),
		"topic":     e.Topic(),
		"title":     e.Title(),
		"video_url": e.VideoURL(),
		"timestamp": strconv.FormatInt(e.Timestamp(), 10),
		"duration":  strconv.FormatInt(e.Duration(), 10),
		"size":      strconv.FormatInt(e.Size(), 10),
	}
	// Optional fields are only stored when present.
	if v := e.Description(); v != "" {
		m["description"] = v
	}
	if v := e.Website(); v != "" {
		m["website"] = v
	}
	if v := e.VideoLowURL(); v != "" {
		m["video_low_url"] = v
	}
	if v := e.VideoHDURL(); v != "" {
		m["video_hd_url"] = v
	}
	if v := e.SubtitleURL(); v != "" {
		m["subtitle_url"] = v
	}
	return m
}

// parseHashFields converts a flat hash map back into a domain Entry.
func parseHashFields(id string, m map[string]string) domentry.Entry {
	return domentry.Reconstruct(id, domentry.Attributes{
		Channel:     m["channel"],
		Topic:       m["topic"],
		Title:       m["title"],
		Description: m["description"],
		Website:     m["website"],
		VideoURL:    m["video_url"],
		VideoLowURL: m["video_low_url"],
		VideoHDURL:  m["video_hd_url"],
		SubtitleURL: m["subtitle_url"],
		Timestamp:   parseInt(m["timestamp"]),
		Duration:    parseInt(m["duration"]),
		Size:        parseInt(m["size"]),
	})
}

func parseInt(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
