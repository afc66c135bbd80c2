package postgres

import (
	"fmt"
	"time"

	"github.com/and161185/vidgraph/internal/model"
	"github.com/gofrs/uuid/v5"
)

type kind int

const (
	kText kind = iota
	kUUID
	kUUIDs
	kInt
	kFloat
	kBool
	kTime
)

type column struct {
	name string
	kind kind
}

type table struct {
	name string
	cols []column
}

var timestamps = []column{{"created_at", kTime}, {"updated_at", kTime}}

func newTable(name string, cols ...column) *table {
	all := append([]column{{"id", kUUID}}, cols...)
	return &table{name: name, cols: append(all, timestamps...)}
}

var tables = map[string]*table{
	model.Users: newTable(model.Users,
		column{"handle", kText}, column{"email", kText}, column{"full_name", kText},
		column{"password_hash", kText}, column{"avatar_url", kText}, column{"cover_url", kText},
		column{"watch_history", kUUIDs}, column{"refresh_token", kText}),
	model.Videos: newTable(model.Videos,
		column{"title", kText}, column{"description", kText}, column{"media_url", kText},
		column{"thumbnail_url", kText}, column{"duration", kFloat}, column{"views", kInt},
		column{"published", kBool}, column{"owner_id", kUUID}),
	model.Comments: newTable(model.Comments,
		column{"content", kText}, column{"owner_id", kUUID}, column{"video_id", kUUID}),
	model.Tweets: newTable(model.Tweets,
		column{"content", kText}, column{"owner_id", kUUID}),
	model.Likes: newTable(model.Likes,
		column{"liker_id", kUUID}, column{"target_kind", kText}, column{"target_id", kUUID}),
	model.Subscriptions: newTable(model.Subscriptions,
		column{"subscriber_id", kUUID}, column{"channel_id", kUUID}),
	model.Playlists: newTable(model.Playlists,
		column{"name", kText}, column{"description", kText}, column{"owner_id", kUUID},
		column{"video_ids", kUUIDs}),
}

func lookup(collection string) (*table, error) {
	t, ok := tables[collection]
	if !ok {
		return nil, fmt.Errorf("postgres: unknown collection %q", collection)
	}
	return t, nil
}

func (t *table) column(name string) (column, error) {
	for _, c := range t.cols {
		if c.name == name {
			return c, nil
		}
	}
	return column{}, fmt.Errorf("postgres: unknown column %s.%s", t.name, name)
}

func (t *table) columnList() string {
	s := ""
	for i, c := range t.cols {
		if i > 0 {
			s += ", "
		}
		s += c.name
	}
	return s
}

// arg converts a record value to a driver argument for column c.
func (c column) arg(v any) any {
	if c.kind == kUUIDs {
		ids, _ := v.([]uuid.UUID)
		out := make([][16]byte, len(ids))
		for i, id := range ids {
			out[i] = id
		}
		return out
	}
	if k, ok := v.(model.TargetKind); ok && c.kind == kText {
		return string(k)
	}
	return v
}

// value converts a scanned driver value to its record representation.
func (c column) value(v any) any {
	switch c.kind {
	case kUUID:
		switch x := v.(type) {
		case [16]byte:
			return uuid.UUID(x)
		case nil:
			return uuid.Nil
		}
	case kUUIDs:
		switch x := v.(type) {
		case []any:
			out := make([]uuid.UUID, 0, len(x))
			for _, e := range x {
				if b, ok := e.([16]byte); ok {
					out = append(out, uuid.UUID(b))
				} else if id, ok := e.(uuid.UUID); ok {
					out = append(out, id)
				}
			}
			return out
		case nil:
			return []uuid.UUID{}
		}
	case kInt:
		switch x := v.(type) {
		case int32:
			return int64(x)
		case int:
			return int64(x)
		}
	case kFloat:
		if x, ok := v.(float32); ok {
			return float64(x)
		}
	case kText:
		if v == nil {
			return ""
		}
	case kTime:
		if v == nil {
			return time.Time{}
		}
	}
	return v
}

func (t *table) decode(raw map[string]any) Record {
	r := make(Record, len(raw))
	for _, c := range t.cols {
		if v, ok := raw[c.name]; ok {
			r[c.name] = c.value(v)
		}
	}
	return r
}

func isZeroTime(v any) bool {
	t, ok := v.(time.Time)
	return v == nil || (ok && t.IsZero())
}
