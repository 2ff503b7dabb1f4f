package transform

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var runDate = time.Date(2025, time.January, 15, 10, 0, 0, 0, time.UTC)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		want   string
		wantOK bool
	}{
		{name: "ISO", in: "2024-03-05", want: "2024-03-05", wantOK: true},
		{name: "RFC3339", in: "2024-03-05T14:30:00Z", want: "2024-03-05", wantOK: true},
		{name: "Monday timestamp", in: "2024-03-05 14:30:00", want: "2024-03-05", wantOK: true},
		{name: "US numeric", in: "3/5/2024", want: "2024-03-05", wantOK: true},
		{name: "Month name", in: "Mar 5, 2024", want: "2024-03-05", wantOK: true},
		{name: "Long month name", in: "March 5, 2024", want: "2024-03-05", wantOK: true},
		{name: "Day first", in: "5 Mar 2024", want: "2024-03-05", wantOK: true},
		{name: "Compact", in: "20240305", want: "2024-03-05", wantOK: true},
		{name: "Two-digit year", in: "3/5/24", want: "2024-03-05", wantOK: true},
		{name: "Two-digit year past pivot", in: "3/5/99", want: "1999-03-05", wantOK: true},
		{name: "Excel serial", in: "45356", want: "2024-03-05", wantOK: true},
		{name: "Natural language", in: "tomorrow", want: "2025-01-16", wantOK: true},
		{name: "Garbage", in: "sometime soon-ish", wantOK: false},
		{name: "Empty", in: "  ", wantOK: false},
		{name: "Small number is not a serial", in: "42", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseDate(tt.in, runDate)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseTimeline(t *testing.T) {
	tests := []struct {
		name      string
		in        string
		wantStart string
		wantEnd   string
	}{
		{name: "Hyphen", in: "2024-01-15 - 2024-02-01", wantStart: "2024-01-15", wantEnd: "2024-02-01"},
		{name: "En dash", in: "2024-01-15–2024-02-01", wantStart: "2024-01-15", wantEnd: "2024-02-01"},
		{name: "To", in: "Jan 15, 2024 to Feb 1, 2024", wantStart: "2024-01-15", wantEnd: "2024-02-01"},
		{name: "Single date", in: "2024-01-15", wantStart: "2024-01-15", wantEnd: "2024-01-15"},
		{name: "Bad end", in: "2024-01-15 - later", wantStart: "2024-01-15", wantEnd: ""},
		{name: "Empty", in: "", wantStart: "", wantEnd: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := ParseTimeline(tt.in, runDate)
			assert.Equal(t, tt.wantStart, start)
			assert.Equal(t, tt.wantEnd, end)
		})
	}
}

func TestParseTimeKeepsTime(t *testing.T) {
	got, ok := ParseTime("2024-03-05 14:30:00", runDate)
	assert.True(t, ok)
	assert.Equal(t, 14, got.Hour())
	assert.Equal(t, 30, got.Minute())
}
