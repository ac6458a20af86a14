package entry

import (
	"fmt"
	"net/url"

	"github.com/google/uuid"
)

// Attributes carries the raw fields of one film list record.
type Attributes struct {
	Channel     string
	Topic       string
	Title       string
	Description string
	Website     string
	VideoURL    string
	VideoLowURL string
	VideoHDURL  string
	SubtitleURL string
	// Timestamp is the broadcast time in epoch seconds.
	Timestamp int64
	// Duration is the entry length in seconds.
	Duration int64
	// Size is the media size in bytes, 0 when unknown.
	Size int64
}

// Entry is one film list entry (immutable value object).
//
// The ID is derived from the standard-quality video URL, so re-importing
// the same record always yields the same entry.
type Entry struct {
	id    string
	attrs Attributes
}

// New validates attrs and creates an Entry.
func New(attrs Attributes) (Entry, error) {
	if attrs.Channel == "" {
		return Entry{}, fmt.Errorf("channel is required")
	}
	if attrs.Topic == "" {
		return Entry{}, fmt.Errorf("topic is required")
	}
	if attrs.Title == "" {
		return Entry{}, fmt.Errorf("title is required")
	}
	if attrs.VideoURL == "" {
		return Entry{}, fmt.Errorf("video URL is required")
	}
	u, err := url.Parse(attrs.VideoURL)
	if err != nil || !u.IsAbs() {
		return Entry{}, fmt.Errorf("invalid video URL %q", attrs.VideoURL)
	}
	if attrs.Timestamp < 0 {
		return Entry{}, fmt.Errorf("negative timestamp %d", attrs.Timestamp)
	}
	if attrs.Duration < 0 {
		return Entry{}, fmt.Errorf("negative duration %d", attrs.Duration)
	}
	if attrs.Size < 0 {
		return Entry{}, fmt.Errorf("negative size %d", attrs.Size)
	}
	id := uuid.NewSHA1(uuid.NameSpaceURL, []byte(attrs.VideoURL)).String()
	return Entry{id: id, attrs: attrs}, nil
}

// Reconstruct creates an Entry without validation (storage hydration).
func Reconstruct(id string, attrs Attributes) Entry {
	return Entry{id: id, attrs: attrs}
}

// ID returns the stable entry identifier.
func (e Entry) ID() string { return e.id }

// Channel returns the broadcaster name.
func (e Entry) Channel() string { return e.attrs.Channel }

// Topic returns the show or series name.
func (e Entry) Topic() string { return e.attrs.Topic }

// Title returns the episode title.
func (e Entry) Title() string { return e.attrs.Title }

// Description returns the episode description, possibly empty.
func (e Entry) Description() string { return e.attrs.Description }

// Website returns the broadcaster page URL.
func (e Entry) Website() string { return e.attrs.Website }

// VideoURL returns the standard-quality media URL.
func (e Entry) VideoURL() string { return e.attrs.VideoURL }

// VideoLowURL returns the low-quality media URL, possibly empty.
func (e Entry) VideoLowURL() string { return e.attrs.VideoLowURL }

// VideoHDURL returns the high-quality media URL, possibly empty.
func (e Entry) VideoHDURL() string { return e.attrs.VideoHDURL }

// SubtitleURL returns the subtitle file URL, possibly empty.
func (e Entry) SubtitleURL() string { return e.attrs.SubtitleURL }

// Timestamp returns the broadcast time in epoch seconds.
func (e Entry) Timestamp() int64 { return e.attrs.Timestamp }

// Duration returns the length in seconds.
func (e Entry) Duration() int64 { return e.attrs.Duration }

// Size returns the media size in bytes, 0 when unknown.
func (e Entry) Size() int64 { return e.attrs.Size }

// Attributes returns a copy of the raw attributes.
func (e Entry) Attributes() Attributes { return e.attrs }
