package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestItemMappingLookup(t *testing.T) {
	m := &ItemMapping{}
	m.Add(MappedItem{SourceID: "1001", Names: []string{"Checkout bug fix"}, TargetID: "a"})
	m.Add(MappedItem{SourceID: "1002", Names: []string{"Search", "search (legacy)"}, TargetID: "b"})
	m.Add(MappedItem{Names: []string{"Checkout"}, TargetID: "c"})
	m.Add(MappedItem{Names: []string{""}, TargetID: "empty"})

	tests := []struct {
		ref    string
		want   string
		wantOK bool
	}{
		{ref: "1002", want: "b", wantOK: true},
		{ref: "  SEARCH ", want: "b", wantOK: true},
		{ref: "search (legacy)", want: "b", wantOK: true},
		{ref: "checkout", want: "c", wantOK: true},
		{ref: "Checkout Bug", want: "a", wantOK: true},
		{ref: "Checkout bug fix for mobile", want: "a", wantOK: true},
		{ref: "Billing"},
		{ref: ""},
	}
	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			got, ok := m.Lookup(tt.ref)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got.TargetID)
		})
	}

	assert.Equal(t, 4, m.Len())
	entries := m.Entries()
	entries[0].TargetID = "changed"
	got, _ := m.Lookup("1001")
	assert.Equal(t, "a", got.TargetID, "Entries returns a copy")
}
