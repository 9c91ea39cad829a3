package pagination

import (
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSizeClamps(t *testing.T) {
	assert.Equal(t, DefaultPageSize, Pagination{}.Size())
	assert.Equal(t, DefaultPageSize, Pagination{PageSize: -3}.Size())
	assert.Equal(t, 10, Pagination{PageSize: 10}.Size())
	assert.Equal(t, MaxPageSize, Pagination{PageSize: 5000}.Size())
}

func TestDecodeCursorRejectsGarbage(t *testing.T) {
	for _, token := range []string{"%%%", "bm90LWpzb24", EncodeCursor(Cursor{})} {
		_, err := DecodeCursor(token)
		assert.ErrorIs(t, err, ErrInvalidCursor, token)
	}

	at := time.Date(2024, 5, 1, 12, 0, 0, 1500, time.UTC)
	got, err := DecodeCursor(EncodeCursor(Cursor{ID: 42, CreatedAt: at}))
	require.NoError(t, err)
	assert.Equal(t, snowflake.ID(42), got.ID)
	assert.True(t, at.Equal(got.CreatedAt))
}

type row struct {
	id snowflake.ID
	at time.Time
}

func TestTrimDropsLookaheadRow(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := []*row{{1, base}, nil, {2, base.Add(time.Second)}, {3, base.Add(2 * time.Second)}}
	cursorOf := func(r *row) Cursor { return Cursor{ID: r.id, CreatedAt: r.at} }

	page, info := Trim(rows, 3, cursorOf)
	require.Len(t, page, 2)
	assert.True(t, info.HasMore)
	next, err := DecodeCursor(info.NextPageToken)
	require.NoError(t, err)
	assert.Equal(t, snowflake.ID(2), next.ID)

	page, info = Trim(rows[:2], 3, cursorOf)
	assert.Len(t, page, 1)
	assert.False(t, info.HasMore)
	assert.Empty(t, info.NextPageToken)
}
