package engine

import (
	"strings"
	"time"
)

// ParsePDFDate parses a PDF date string such as "D:20240131120000+01'00'" or
// an ISO-like variant such as "2024-01-31T12:00:00+01:00". Parsing is
// strictly positional and stops at the first missing or invalid component,
// keeping whatever prefix parsed successfully: the year is mandatory, month
// and day default to 1, clock components default to 0. The UTC offset, when
// present, is a fixed number of minutes; no timezone database is consulted.
func ParsePDFDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "D:")
	if len(s) < 4 || !allDigits(s[:4]) {
		return time.Time{}, false
	}
	year := atoi(s[:4])
	pos := 4

	// Old Distiller versions wrote the year as 1900 plus the full year count
	// ("19100" for 2000), which reads as an implausible 191x year followed by
	// one extra digit. Reparse the three digits after the century as 19YY.
	if year >= 1909 && year <= 1913 && len(s) > 14 && allDigits(s[2:5]) {
		year = 1900 + atoi(s[2:5])
		pos = 5
	}

	month, day := 1, 1
	hour, minute, sec := 0, 0, 0
	loc := time.UTC

	parsed := false
	month, pos, parsed = nextComponent(s, pos, 1, 12)
	if parsed {
		day, pos, parsed = nextComponent(s, pos, 1, 31)
	}
	if parsed {
		hour, pos, parsed = nextComponent(s, pos, 0, 23)
	}
	if parsed {
		minute, pos, parsed = nextComponent(s, pos, 0, 59)
	}
	if parsed {
		sec, pos, parsed = nextComponent(s, pos, 0, 59)
	}
	if parsed {
		loc = parseOffset(s[pos:])
	}

	return time.Date(year, time.Month(month), day, hour, minute, sec, 0, loc), true
}

// nextComponent reads a two-digit component at pos, skipping at most one
// separator character first. A missing or out-of-range component reports
// ok=false with the default untouched by the caller.
func nextComponent(s string, pos, lo, hi int) (v, next int, ok bool) {
	if pos < len(s) && isSeparator(s[pos]) {
		pos++
	}
	if pos+2 > len(s) || !allDigits(s[pos:pos+2]) {
		return lo, pos, false
	}
	v = atoi(s[pos : pos+2])
	if v < lo || v > hi {
		return lo, pos, false
	}
	return v, pos + 2, true
}

// parseOffset reads the trailing UTC offset: Z, or a sign followed by hours
// and optionally minutes, with "'" or ":" accepted as separator.
func parseOffset(s string) *time.Location {
	if len(s) > 0 && s[0] == ' ' {
		s = s[1:]
	}
	if len(s) == 0 {
		return time.UTC
	}
	switch s[0] {
	case 'Z', 'z':
		return time.UTC
	case '+', '-':
	default:
		return time.UTC
	}
	sign := 1
	if s[0] == '-' {
		sign = -1
	}
	s = s[1:]
	if len(s) < 2 || !allDigits(s[:2]) {
		return time.UTC
	}
	minutes := atoi(s[:2]) * 60
	s = s[2:]
	if len(s) > 0 && (s[0] == '\'' || s[0] == ':') {
		s = s[1:]
	}
	if len(s) >= 2 && allDigits(s[:2]) {
		minutes += atoi(s[:2])
	}
	if minutes == 0 {
		return time.UTC
	}
	return time.FixedZone("", sign*minutes*60)
}

func isSeparator(c byte) bool {
	return c == '-' || c == ':' || c == 'T' || c == ' ' || c == '.' || c == '/'
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return len(s) > 0
}

func atoi(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		n = n*10 + int(s[i]-'0')
	}
	return n
}
