package importer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielolaszy/monday-import/internal/importcfg"
	"github.com/danielolaszy/monday-import/pkg/models"
)

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestParseUpdates(t *testing.T) {
	s := updatesSheet(
		[]string{"Alpha", "first", "Jane Doe", "2024-03-05"},
		[]string{"", "orphan", "", ""},
		[]string{"Beta", "  ", "", ""},
		[]string{"Beta", "undated", "", "tbd"},
	)
	cols := importcfg.UpdateColumns{Link: "Item", Content: "Update", Author: "Author", Date: "Date"}

	updates, dropped := ParseUpdates(s, cols, fixedNow)

	assert.Equal(t, 2, dropped)
	require.Len(t, updates, 2)
	assert.Equal(t, "Alpha", updates[0].ItemRef)
	assert.Equal(t, "Jane Doe", updates[0].Author)
	assert.Equal(t, 2, updates[0].Row)
	require.NotNil(t, updates[0].Date)
	assert.Equal(t, "2024-03-05", updates[0].Date.Format("2006-01-02"))
	assert.Nil(t, updates[1].Date)
	assert.Equal(t, 5, updates[1].Row)

	none, dropped := ParseUpdates(nil, cols, fixedNow)
	assert.Nil(t, none)
	assert.Zero(t, dropped)
}

func TestSortUpdates(t *testing.T) {
	input := func() []models.Update {
		return []models.Update{
			{Content: "b", Date: date(2024, 3, 5)},
			{Content: "nodate-1"},
			{Content: "a", Date: date(2024, 3, 1)},
			{Content: "nodate-2"},
			{Content: "c", Date: date(2024, 3, 5)},
		}
	}
	contents := func(us []models.Update) []string {
		out := make([]string, len(us))
		for i, u := range us {
			out[i] = u.Content
		}
		return out
	}

	tests := []struct {
		name  string
		order importcfg.SortOrder
		want  []string
	}{
		{"ascending puts undated last", importcfg.OrderAsc, []string{"a", "b", "c", "nodate-1", "nodate-2"}},
		{"empty order is ascending", "", []string{"a", "b", "c", "nodate-1", "nodate-2"}},
		{"descending puts undated first", importcfg.OrderDesc, []string{"nodate-1", "nodate-2", "b", "c", "a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			us := input()
			SortUpdates(us, tt.order)
			assert.Equal(t, tt.want, contents(us))
		})
	}
}

func TestComposeBody(t *testing.T) {
	tests := []struct {
		name     string
		update   models.Update
		resolved bool
		mode     importcfg.AuthorMode
		want     string
	}{
		{
			name:   "unresolved author prepended with date",
			update: models.Update{Content: "Shipped", Author: "Old Timer", Date: date(2024, 3, 5)},
			mode:   importcfg.AuthorPrepend,
			want:   "**March 5, 2024**\n\n[Originally by Old Timer]\n\nShipped",
		},
		{
			name:   "default mode prepends",
			update: models.Update{Content: "Shipped", Author: "Old Timer"},
			want:   "[Originally by Old Timer]\n\nShipped",
		},
		{
			name:   "append",
			update: models.Update{Content: "Shipped", Author: "Old Timer"},
			mode:   importcfg.AuthorAppend,
			want:   "Shipped\n\n[Originally by Old Timer]",
		},
		{
			name:   "skip",
			update: models.Update{Content: "Shipped", Author: "Old Timer"},
			mode:   importcfg.AuthorSkip,
			want:   "Shipped",
		},
		{
			name:     "resolved author gets no marker",
			update:   models.Update{Content: "Shipped", Author: "Jane Doe", Date: date(2024, 12, 31)},
			resolved: true,
			want:     "**December 31, 2024**\n\nShipped",
		},
		{
			name:   "no author",
			update: models.Update{Content: "Shipped"},
			want:   "Shipped",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComposeBody(tt.update, tt.resolved, tt.mode))
		})
	}
}
