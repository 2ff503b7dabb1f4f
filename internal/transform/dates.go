package transform

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

// ISODate is the layout of normalized calendar dates.
const ISODate = "2006-01-02"

// TwoDigitYearPivot defines how 2-digit years are interpreted. Years that
// would land more than this many years after the run date are moved to the
// previous century.
var TwoDigitYearPivot = 20

var (
	timestampLayouts = []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
		"Jan 2, 2006 3:04 PM",
		"Jan 2, 2006 15:04",
		"2006-01-02 15:04:05 MST",
	}
	fourDigitYearLayouts = []string{
		"2006-01-02", "2006/01/02", "2006.01.02",
		"1/2/2006", "01/02/2006", "1-2-2006", "01-02-2006", "1.2.2006", "01.02.2006",
		"Jan 2, 2006", "January 2, 2006", "Jan 02, 2006",
		"2 Jan 2006", "02 Jan 2006", "2 January 2006",
		"20060102",
	}
	twoDigitYearLayouts = []string{
		"1/2/06", "01/02/06", "1-2-06", "1.2.06", "01.02.06",
	}
)

// Excel stores dates as days since 1899-12-30. Only serials between
// roughly 1954 and 2119 are treated as dates.
var (
	excelEpoch     = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)
	excelSerialMin = 20000.0
	excelSerialMax = 80000.0
	excelSerialRe  = regexp.MustCompile(`^\d{5}(\.\d+)?$`)
)

var naturalParser = newNaturalParser()

func newNaturalParser() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}

// ParseTime parses a date or timestamp cell. Layouts are tried from the most
// to the least specific, then Excel serial numbers, then English expressions
// such as "next friday" relative to base.
func ParseTime(value string, base time.Time) (time.Time, bool) {
	s := strings.TrimSpace(value)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	for _, layout := range fourDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	pivotYear := base.Year() + TwoDigitYearPivot
	for _, layout := range twoDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			if t.Year() > pivotYear {
				t = t.AddDate(-100, 0, 0)
			}
			return t, true
		}
	}

	if excelSerialRe.MatchString(s) {
		if serial, err := strconv.ParseFloat(s, 64); err == nil && serial >= excelSerialMin && serial <= excelSerialMax {
			days := math.Floor(serial)
			t := excelEpoch.AddDate(0, 0, int(days))
			t = t.Add(time.Duration((serial - days) * float64(24*time.Hour)))
			return t, true
		}
	}

	r, err := naturalParser.Parse(s, base)
	if err == nil && r != nil && strings.EqualFold(strings.TrimSpace(r.Text), s) {
		return r.Time, true
	}

	return time.Time{}, false
}

// ParseDate normalizes a date cell to an ISO calendar date. Unparseable input
// yields false, never an error.
func ParseDate(value string, base time.Time) (string, bool) {
	t, ok := ParseTime(value, base)
	if !ok {
		return "", false
	}
	return t.Format(ISODate), true
}

var timelineSeparators = []string{" - ", " – ", " — ", "–", "—", " to "}

// ParseTimeline splits a "start - end" timeline cell into two ISO dates.
// A cell holding a single date is both start and end. Either side may be
// empty when it does not parse.
func ParseTimeline(value string, base time.Time) (start, end string) {
	s := strings.TrimSpace(value)
	if s == "" {
		return "", ""
	}

	for _, sep := range timelineSeparators {
		if i := strings.Index(s, sep); i >= 0 {
			start, _ = ParseDate(s[:i], base)
			end, _ = ParseDate(s[i+len(sep):], base)
			return start, end
		}
	}

	if d, ok := ParseDate(s, base); ok {
		return d, d
	}
	return "", ""
}
