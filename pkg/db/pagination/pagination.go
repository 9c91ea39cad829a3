package pagination

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 250
)

var ErrInvalidCursor = errors.New("invalid page token")

type Pagination struct {
	PageToken string `form:"page_token"`
	PageSize  int    `form:"page_size,default=50"`
}

// Size clamps the requested page size into [1, MaxPageSize].
func (p Pagination) Size() int {
	switch {
	case p.PageSize <= 0:
		return DefaultPageSize
	case p.PageSize > MaxPageSize:
		return MaxPageSize
	default:
		return p.PageSize
	}
}

// Cursor is the keyset position of the last row on a page. Rows are ordered
// by (created_at desc, id desc).
type Cursor struct {
	ID        snowflake.ID
	CreatedAt time.Time
}

type cursorToken struct {
	ID        string `json:"id"`
	CreatedAt string `json:"created_at"`
}

type PageInfo struct {
	NextPageToken string `json:"next_page_token"`
	HasMore       bool   `json:"has_more"`
}

func EncodeCursor(c Cursor) string {
	b, err := json.Marshal(cursorToken{
		ID:        c.ID.String(),
		CreatedAt: c.CreatedAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(b)
}

func DecodeCursor(token string) (Cursor, error) {
	b, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(token))
	if err != nil {
		return Cursor{}, ErrInvalidCursor
	}
	var raw cursorToken
	if err := json.Unmarshal(b, &raw); err != nil {
		return Cursor{}, ErrInvalidCursor
	}
	createdAt, err := time.Parse(time.RFC3339Nano, raw.CreatedAt)
	if err != nil {
		return Cursor{}, ErrInvalidCursor
	}
	id, err := snowflake.ParseString(raw.ID)
	if err != nil || id == 0 {
		return Cursor{}, ErrInvalidCursor
	}
	return Cursor{ID: id, CreatedAt: createdAt}, nil
}

// Trim drops the lookahead row a keyset query fetched past size and builds
// the page info from the last row kept. Nil rows are skipped.
func Trim[T any](rows []*T, size int, cursorOf func(*T) Cursor) ([]T, PageInfo) {
	var info PageInfo
	if len(rows) > size {
		info.HasMore = true
		rows = rows[:size]
	}
	out := make([]T, 0, len(rows))
	for _, row := range rows {
		if row != nil {
			out = append(out, *row)
		}
	}
	if info.HasMore && len(out) > 0 {
		info.NextPageToken = EncodeCursor(cursorOf(&out[len(out)-1]))
	}
	return out, info
}
