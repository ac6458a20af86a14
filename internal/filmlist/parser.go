// Package filmlist downloads and parses MediathekView film lists.
//
// A film list is one large JSON object with repeated keys: a "Filmliste"
// head, a second "Filmliste" carrying the column names, and one "X" array
// per entry. Records abbreviate themselves: empty channel and topic
// columns repeat the previous record's values, and the low/HD URL columns
// hold an offset into the standard URL plus a suffix.
package filmlist

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/valyala/fastjson"

	"github.com/Frischifrisch/mediathekviewweb/internal/domain/entry"
)

// recordFields is the column count of an "X" record.
const recordFields = 20

const (
	colChannel     = 0
	colTopic       = 1
	colTitle       = 2
	colDate        = 3
	colTime        = 4
	colDuration    = 5
	colSize        = 6
	colDescription = 7
	colVideoURL    = 8
	colWebsite     = 9
	colSubtitleURL = 10
	colVideoLowURL = 12
	colVideoHDURL  = 14
	colTimestamp   = 16
)

// headTimeLayout is the creation time format of the list head.
const headTimeLayout = "02.01.2006, 15:04"

// Meta identifies a film list version.
type Meta struct {
	ID        string
	CreatedAt time.Time
}

// List provides a record-by-record view of a parsed film list.
type List struct {
	meta    Meta
	records []*fastjson.Value

	cursor  int
	skipped int
	current entry.Entry

	prevChannel string
	prevTopic   string
}

// Parse parses raw film list JSON.
func Parse(data []byte) (*List, error) {
	var p fastjson.Parser
	v, err := p.ParseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("parse film list: %w", err)
	}
	obj, err := v.Object()
	if err != nil {
		return nil, fmt.Errorf("film list is not an object: %w", err)
	}

	l := &List{}
	var headSeen bool
	var headErr error
	obj.Visit(func(key []byte, val *fastjson.Value) {
		switch string(key) {
		case "Filmliste":
			// The first occurrence is the head, the second the column names.
			if !headSeen {
				headSeen = true
				l.meta, headErr = parseHead(val)
			}
		case "X":
			l.records = append(l.records, val)
		}
	})
	if headErr != nil {
		return nil, headErr
	}
	if !headSeen {
		return nil, errors.New("film list head missing")
	}
	return l, nil
}

// Meta returns the list version metadata.
func (l *List) Meta() Meta { return l.meta }

// Len returns the number of records in the list.
func (l *List) Len() int { return len(l.records) }

// Skipped returns how many records were dropped as malformed so far.
func (l *List) Skipped() int { return l.skipped }

// Next advances to the next valid entry. Malformed records are skipped.
func (l *List) Next() bool {
	for l.cursor < len(l.records) {
		rec := l.records[l.cursor]
		l.cursor++
		e, err := l.toEntry(rec)
		if err != nil {
			l.skipped++
			continue
		}
		l.current = e
		return true
	}
	return false
}

// Entry returns the entry at the current position.
func (l *List) Entry() entry.Entry { return l.current }

// parseHead reads the list head: [local time, UTC time, version, producer, id].
func parseHead(v *fastjson.Value) (Meta, error) {
	arr, err := v.Array()
	if err != nil {
		return Meta{}, fmt.Errorf("film list head is not an array: %w", err)
	}
	if len(arr) < 2 {
		return Meta{}, fmt.Errorf("film list head has %d fields", len(arr))
	}
	created, err := time.Parse(headTimeLayout, string(arr[1].GetStringBytes()))
	if err != nil {
		return Meta{}, fmt.Errorf("film list creation time: %w", err)
	}

	m := Meta{CreatedAt: created}
	if len(arr) >= 5 {
		m.ID = string(arr[4].GetStringBytes())
	}
	if m.ID == "" {
		m.ID = strconv.FormatInt(created.Unix(), 10)
	}
	return m, nil
}

func (l *List) toEntry(v *fastjson.Value) (entry.Entry, error) {
	arr, err := v.Array()
	if err != nil {
		return entry.Entry{}, fmt.Errorf("record is not an array: %w", err)
	}
	if len(arr) < recordFields {
		return entry.Entry{}, fmt.Errorf("record has %d fields", len(arr))
	}
	col := func(i int) string { return string(arr[i].GetStringBytes()) }

	// Channel and topic carry over from the previous record when empty,
	// even if this record turns out to be invalid.
	channel := col(colChannel)
	if channel == "" {
		channel = l.prevChannel
	} else {
		l.prevChannel = channel
	}
	topic := col(colTopic)
	if topic == "" {
		topic = l.prevTopic
	} else {
		l.prevTopic = topic
	}

	videoURL := col(colVideoURL)
	return entry.New(entry.Attributes{
		Channel:     channel,
		Topic:       topic,
		Title:       col(colTitle),
		Description: col(colDescription),
		Website:     col(colWebsite),
		VideoURL:    videoURL,
		VideoLowURL: expandURL(videoURL, col(colVideoLowURL)),
		VideoHDURL:  expandURL(videoURL, col(colVideoHDURL)),
		SubtitleURL: col(colSubtitleURL),
		Timestamp:   parseEpoch(col(colTimestamp), col(colDate), col(colTime)),
		Duration:    parseClock(col(colDuration)),
		Size:        parseSizeMB(col(colSize)),
	})
}

// expandURL resolves the compressed URL notation: "13|rest" takes the
// first 13 characters of base and appends "rest".
func expandURL(base, v string) string {
	if v == "" {
		return ""
	}
	idx := strings.IndexByte(v, '|')
	if idx < 0 {
		return v
	}
	n, err := strconv.Atoi(v[:idx])
	if err != nil || n < 0 || n > len(base) {
		return ""
	}
	return base[:n] + v[idx+1:]
}

// parseEpoch prefers the epoch column and falls back to the dotted
// date plus clock time columns, read as UTC.
func parseEpoch(epoch, date, clock string) int64 {
	if n, err := strconv.ParseInt(epoch, 10, 64); err == nil && n > 0 {
		return n
	}
	if date == "" {
		return 0
	}
	if clock == "" {
		clock = "00:00:00"
	}
	t, err := time.Parse("02.01.2006 15:04:05", date+" "+clock)
	if err != nil {
		return 0
	}
	return t.Unix()
}

// parseClock converts "HH:MM:SS" to seconds.
func parseClock(s string) int64 {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0
	}
	h, err1 := strconv.ParseInt(parts[0], 10, 64)
	m, err2 := strconv.ParseInt(parts[1], 10, 64)
	sec, err3 := strconv.ParseInt(parts[2], 10, 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return 0
	}
	return h*3600 + m*60 + sec
}

// parseSizeMB converts the megabyte column to bytes.
func parseSizeMB(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n * 1_000_000
}
