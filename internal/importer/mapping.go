package importer

import (
	"strings"

	"github.com/danielolaszy/monday-import/pkg/models"
)

// MappedItem links a source item to the entity created for it.
type MappedItem struct {
	SourceID string
	// Names are the item's title and, when different, its raw name cell
	Names    []string
	TargetID string
	Kind     models.ItemKind
	Row      int
}

// ItemMapping is the ordered source-to-target table updates are matched against.
type ItemMapping struct {
	entries []MappedItem
}

// Add appends an entry. Order matters for substring matching.
func (m *ItemMapping) Add(item MappedItem) {
	m.entries = append(m.entries, item)
}

// Len returns the number of entries.
func (m *ItemMapping) Len() int { return len(m.entries) }

// Entries returns a copy of the table.
func (m *ItemMapping) Entries() []MappedItem {
	return append([]MappedItem(nil), m.entries...)
}

// Lookup finds the item an update refers to: exact source id first, then a
// case-insensitive name, then a name containing or contained in ref. The
// first match in table order wins.
func (m *ItemMapping) Lookup(ref string) (MappedItem, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return MappedItem{}, false
	}

	for _, e := range m.entries {
		if e.SourceID != "" && e.SourceID == ref {
			return e, true
		}
	}

	folded := strings.ToLower(ref)
	for _, e := range m.entries {
		for _, n := range e.Names {
			if strings.ToLower(strings.TrimSpace(n)) == folded {
				return e, true
			}
		}
	}

	for _, e := range m.entries {
		for _, n := range e.Names {
			name := strings.ToLower(strings.TrimSpace(n))
			if name == "" {
				continue
			}
			if strings.Contains(name, folded) || strings.Contains(folded, name) {
				return e, true
			}
		}
	}
	return MappedItem{}, false
}
