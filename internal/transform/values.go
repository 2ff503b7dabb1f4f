package transform

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/danielolaszy/monday-import/internal/importcfg"
	"github.com/danielolaszy/monday-import/pkg/models"
)

const (
	// MaxTitleLength is Linear's limit for project names and issue titles.
	MaxTitleLength = 255

	// Untitled replaces an empty name or title.
	Untitled = "Untitled"

	ellipsis = "..."
)

// lookup finds key in a value table, first exactly and then ignoring case
// and surrounding whitespace.
func lookup(table importcfg.ValueMap, key string) (string, bool) {
	if v, ok := table[key]; ok {
		return v, true
	}
	folded := strings.ToLower(strings.TrimSpace(key))
	for k, v := range table {
		if k == importcfg.DefaultKey {
			continue
		}
		if strings.ToLower(strings.TrimSpace(k)) == folded {
			return v, true
		}
	}
	return "", false
}

// ApplyStatusMap maps a status cell through the status table. Unknown values
// fall back to the table's "_default" entry and then to the raw value. An
// empty cell has no status.
func ApplyStatusMap(value string, table importcfg.ValueMap) (string, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}
	if mapped, ok := lookup(table, value); ok {
		return mapped, mapped != ""
	}
	if def, ok := table[importcfg.DefaultKey]; ok && def != "" {
		return def, true
	}
	return value, true
}

// ApplyPriorityMap maps a priority cell through the priority table. Unknown
// values fall back to the table's "_default" entry and otherwise yield no
// priority.
func ApplyPriorityMap(value string, table importcfg.ValueMap) (string, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}
	if mapped, ok := lookup(table, value); ok {
		return mapped, mapped != ""
	}
	if def, ok := table[importcfg.DefaultKey]; ok && def != "" {
		return def, true
	}
	return "", false
}

var priorityNames = map[string]int{
	"none":        0,
	"no priority": 0,
	"urgent":      1,
	"high":        2,
	"medium":      3,
	"normal":      3,
	"low":         4,
}

// ParsePriority converts a Linear priority name or number (0-4) to its
// numeric value.
func ParsePriority(value string) (int, bool) {
	s := strings.ToLower(strings.TrimSpace(value))
	if p, ok := priorityNames[s]; ok {
		return p, true
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 0 && n <= 4 {
		return n, true
	}
	return 0, false
}

// Truncate caps s at max characters, replacing the tail with "...".
func Truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= len(ellipsis) {
		return string(runes[:max])
	}
	return string(runes[:max-len(ellipsis)]) + ellipsis
}

// Title returns a usable title: trimmed, never empty and at most
// MaxTitleLength characters.
func Title(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return Untitled
	}
	return Truncate(s, MaxTitleLength)
}

// SplitList splits a delimited cell into trimmed, non-empty, de-duplicated
// entries, keeping their first-seen order.
func SplitList(value, delimiter string) []string {
	if delimiter == "" {
		delimiter = ","
	}
	var out []string
	seen := make(map[string]bool)
	for _, part := range strings.Split(value, delimiter) {
		part = strings.TrimSpace(part)
		if part == "" || seen[part] {
			continue
		}
		seen[part] = true
		out = append(out, part)
	}
	return out
}

// numericRegex matches integers, decimals and scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// ParseNumber parses a numeric cell. Currency symbols, thousands separators
// and the accounting format for negatives "(12.5)" are accepted.
func ParseNumber(value string) (float64, bool) {
	s := strings.TrimSpace(value)
	if s == "" {
		return 0, false
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	for _, sym := range []string{"$", "€", "£", ",", " ", "_"} {
		s = strings.ReplaceAll(s, sym, "")
	}
	if negative {
		s = "-" + s
	}

	if !numericRegex.MatchString(s) {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

var urlRegex = regexp.MustCompile(`https?://[^\s,]+`)

// ExtractLinks finds hyperlinks in a link cell. Monday exports link columns
// as "Label - https://..." or as a bare URL; several links may share one cell
// on separate lines. fallbackLabel names links without a label.
func ExtractLinks(cell, fallbackLabel string) []models.Link {
	var links []models.Link
	for _, line := range strings.Split(cell, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		locs := urlRegex.FindAllStringIndex(line, -1)
		for i, loc := range locs {
			url := strings.TrimRight(line[loc[0]:loc[1]], ").;")
			label := ""
			if i == 0 {
				label = strings.TrimSpace(strings.TrimRight(strings.TrimSpace(line[:loc[0]]), "-:|"))
			}
			if label == "" {
				label = fallbackLabel
			}
			if label == "" {
				label = url
			}
			links = append(links, models.Link{Label: label, URL: url})
		}
	}
	return links
}
