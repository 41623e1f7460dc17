// Package timeparse converts source-supplied timestamps of unknown shape
// into one canonical wall-clock time.
//
// Upstream services encode broadcast times inconsistently: compact digit
// runs ("20221127010000", "2211270100"), partial dates ("11/27 01:00"),
// bare times ("01:00") and named tokens ("now", "today"). The resolution
// order below is relied on by the source adapters and must not change.
package timeparse

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrUnrecognizedFormat means the digit-count/separator pattern of the
	// input matches no known layout.
	ErrUnrecognizedFormat = errors.New("unrecognized datetime format")

	// ErrUnparsableValue means every candidate layout for a recognized
	// pattern failed to parse the input.
	ErrUnparsableValue = errors.New("unparsable datetime value")
)

// Layout is the canonical string form of a normalized timestamp.
const Layout = "2006-01-02 15:04"

// compactLayouts maps a digit count to the candidate layouts tried in order.
// The order matters: "2211270100" must resolve as yymmddHHMM, not mmddHHMMSS.
var compactLayouts = map[int][]string{
	14: {"20060102150405"},
	12: {"200601021504", "060102150405"},
	10: {"0601021504", "0102150405"},
	8:  {"20060102", "01021504"},
	6:  {"060102"},
	4:  {"0102"},
}

// Normalize converts raw to a canonical timestamp using the system clock
// for "now" resolution. raw may be nil, a time.Time, an integer or a string.
func Normalize(raw any) (time.Time, error) {
	return NormalizeAt(raw, time.Now())
}

// NormalizeAt is Normalize with an injected clock.
func NormalizeAt(raw any, now time.Time) (time.Time, error) {
	switch v := raw.(type) {
	case nil:
		return now, nil
	case time.Time:
		return v, nil
	case int:
		return parseString(strconv.Itoa(v), now)
	case int64:
		return parseString(strconv.FormatInt(v, 10), now)
	case float64:
		return parseString(strconv.FormatInt(int64(v), 10), now)
	case string:
		return parseString(v, now)
	default:
		return time.Time{}, fmt.Errorf("%w: %T", ErrUnrecognizedFormat, raw)
	}
}

func parseString(s string, now time.Time) (time.Time, error) {
	switch s {
	case "now":
		return now, nil
	case "today", "weekly":
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()), nil
	}
	s = strings.ReplaceAll(s, "/", "-")
	if !isDecimal(s) {
		return parseCalendar(s, now)
	}
	return parseCompact(digitsOf(s), now)
}

// parseCalendar handles partial or full "date[ time]" strings. The colon
// count selects the time layout, the dash count selects the date layout;
// missing date parts are filled in from the current time.
func parseCalendar(s string, now time.Time) (time.Time, error) {
	var hms string
	switch strings.Count(s, ":") {
	case 2:
		hms = "15:04:05"
	case 1:
		hms = "15:04"
	}

	ymd := "06-01-02"
	switch dashes := strings.Count(s, "-"); {
	case dashes == 2 && len(strings.SplitN(s, "-", 2)[0]) == 4:
		ymd = "2006-01-02"
	case dashes == 1:
		s = now.Format("06-") + s
	case dashes == 0:
		s = now.Format("06-01-02 ") + s
	}

	layout := strings.TrimSuffix(ymd+" "+hms, " ")
	t, err := time.Parse(layout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrUnparsableValue, s)
	}
	return t, nil
}

// parseCompact handles pure digit runs, trying each candidate layout for
// the digit count until one parses. Layouts without a year component leave
// the parsed year at zero, which is replaced with the current year.
func parseCompact(s string, now time.Time) (time.Time, error) {
	layouts, ok := compactLayouts[len(s)]
	if !ok {
		return time.Time{}, fmt.Errorf("%w: %d digits in %q", ErrUnrecognizedFormat, len(s), s)
	}
	for _, layout := range layouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		if t.Year() == 0 {
			t = time.Date(now.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, t.Location())
		}
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrUnparsableValue, s)
}

func isDecimal(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func digitsOf(s string) string {
	var b strings.Builder
	for _, c := range s {
		if c >= '0' && c <= '9' {
			b.WriteRune(c)
		}
	}
	return b.String()
}
