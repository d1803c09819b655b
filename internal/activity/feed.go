package activity

import (
	"bytes"
	"encoding/json"
	"errors"
	"sort"
	"strconv"
	"time"

	"github.com/stanstork/tipboard-api/internal/models"
)

var (
	ErrInvalidRange      = errors.New("range start must be before end")
	ErrMalformedObjectID = errors.New("malformed object id")
)

// Range bounds a feed query. Start is inclusive, End exclusive, and either
// may be nil.
type Range struct {
	Start *time.Time
	End   *time.Time
}

func (r Range) Validate() error {
	if r.Start != nil && r.End != nil && !r.Start.Before(*r.End) {
		return ErrInvalidRange
	}
	return nil
}

func (r Range) Contains(t time.Time) bool {
	if r.Start != nil && t.Before(*r.Start) {
		return false
	}
	if r.End != nil && !t.Before(*r.End) {
		return false
	}
	return true
}

// Entry is the most recent event a user has about one entity.
type Entry struct {
	EntityID  int64
	Timestamp time.Time
}

// MarshalJSON renders an entry as {"<id>": "<timestamp>"}.
func (e Entry) MarshalJSON() ([]byte, error) {
	ts, err := json.Marshal(e.Timestamp)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.WriteString(`{"`)
	buf.WriteString(strconv.FormatInt(e.EntityID, 10))
	buf.WriteString(`":`)
	buf.Write(ts)
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (e *Entry) UnmarshalJSON(data []byte) error {
	var raw map[string]time.Time
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 1 {
		return errors.New("activity entry must have exactly one key")
	}
	for k, ts := range raw {
		id, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			return ErrMalformedObjectID
		}
		e.EntityID = id
		e.Timestamp = ts
	}
	return nil
}

// Feed groups a user's entries by entity kind, most recent first.
type Feed map[models.EntityKind][]Entry

// UsersFeed nests feeds under user id.
type UsersFeed map[string]Feed

// feedBuilder accumulates one user's feed, indexing entries by kind and id
// so every row is merged in constant time.
type feedBuilder struct {
	feed  Feed
	index map[models.EntityKind]map[int64]int
}

func newFeedBuilder() *feedBuilder {
	return &feedBuilder{
		feed:  Feed{},
		index: make(map[models.EntityKind]map[int64]int),
	}
}

// add records an event, keeping only the latest timestamp per entity.
func (b *feedBuilder) add(kind models.EntityKind, id int64, at time.Time) {
	ids, ok := b.index[kind]
	if !ok {
		ids = make(map[int64]int)
		b.index[kind] = ids
	}
	if pos, seen := ids[id]; seen {
		entry := &b.feed[kind][pos]
		if at.After(entry.Timestamp) {
			entry.Timestamp = at
		}
		return
	}
	ids[id] = len(b.feed[kind])
	b.feed[kind] = append(b.feed[kind], Entry{EntityID: id, Timestamp: at})
}

// build sorts every kind most recent first and returns the feed.
func (b *feedBuilder) build() Feed {
	b.feed.sort()
	return b.feed
}

func (f Feed) sort() {
	for _, entries := range f {
		sort.SliceStable(entries, func(i, j int) bool {
			if entries[i].Timestamp.Equal(entries[j].Timestamp) {
				return entries[i].EntityID > entries[j].EntityID
			}
			return entries[i].Timestamp.After(entries[j].Timestamp)
		})
	}
}
