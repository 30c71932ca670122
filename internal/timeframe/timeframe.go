// Package timeframe computes research windows and extracts publication
// dates from URLs, titles, and free text.
package timeframe

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Confidence labels how much we trust an item's date relative to the
// requested window.
type Confidence string

const (
	ConfidenceSolid   Confidence = "SOLID"
	ConfidenceSoft    Confidence = "SOFT"
	ConfidenceWeak    Confidence = "WEAK"
	ConfidenceUnknown Confidence = "UNKNOWN"
)

const (
	// ISODate is the canonical date layout used across the pipeline.
	ISODate = "2006-01-02"

	// graceDays is the tolerance band outside the window that still
	// earns a SOFT label.
	graceDays = 3

	minURLYear = 2019
	maxURLYear = 2033
)

// Span returns the (start, end) ISO dates for a window reaching daysBack
// days before UTC today.
func Span(daysBack int) (string, string) {
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -daysBack)
	return start.Format(ISODate), end.Format(ISODate)
}

var monthDayYear = regexp.MustCompile(`(?i)^([A-Za-z]+)\s+(\d{1,2}),?\s+(\d{4})$`)
var dayMonthYear = regexp.MustCompile(`(?i)^(\d{1,2})\s+([A-Za-z]+)\s+(\d{4})$`)

// ParseMoment parses s as an ISO date, an ISO datetime (with or without
// Z), a unix timestamp, "Month D, Y", or "D Month Y". Returns nil when
// nothing matches.
func ParseMoment(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	layouts := []string{
		ISODate,
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			u := t.UTC()
			return &u
		}
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return unixMoment(unix)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return unixMoment(int64(f))
	}
	if m := monthDayYear.FindStringSubmatch(s); m != nil {
		return monthDate(m[1], m[2], m[3])
	}
	if m := dayMonthYear.FindStringSubmatch(s); m != nil {
		return monthDate(m[2], m[1], m[3])
	}
	return nil
}

func unixMoment(unix int64) *time.Time {
	// Reject values that cannot be epoch seconds of a plausible date.
	if unix < 1e8 || unix > 1e11 {
		return nil
	}
	t := time.Unix(unix, 0).UTC()
	return &t
}

func monthDate(month, day, year string) *time.Time {
	mon := parseMonth(month)
	if mon == 0 {
		return nil
	}
	d, err := strconv.Atoi(day)
	if err != nil || d < 1 || d > 31 {
		return nil
	}
	y, err := strconv.Atoi(year)
	if err != nil {
		return nil
	}
	t := time.Date(y, mon, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func parseMonth(name string) time.Month {
	name = strings.ToLower(name)
	months := map[string]time.Month{
		"january": time.January, "jan": time.January,
		"february": time.February, "feb": time.February,
		"march": time.March, "mar": time.March,
		"april": time.April, "apr": time.April,
		"may":  time.May,
		"june": time.June, "jun": time.June,
		"july": time.July, "jul": time.July,
		"august": time.August, "aug": time.August,
		"september": time.September, "sep": time.September, "sept": time.September,
		"october": time.October, "oct": time.October,
		"november": time.November, "nov": time.November,
		"december": time.December, "dec": time.December,
	}
	return months[name]
}

// ToISODate converts a unix timestamp to a YYYY-MM-DD string.
func ToISODate(unix int64) (string, bool) {
	t := unixMoment(unix)
	if t == nil {
		return "", false
	}
	return t.Format(ISODate), true
}

// DateConfidence labels date against the [start, end] window. Dates
// within graceDays outside the window are SOFT; further out is WEAK.
func DateConfidence(date, start, end string) Confidence {
	d := parseISO(date)
	if d == nil {
		return ConfidenceUnknown
	}
	s, e := parseISO(start), parseISO(end)
	if s == nil || e == nil {
		return ConfidenceUnknown
	}
	if !d.Before(*s) && !d.After(*e) {
		return ConfidenceSolid
	}
	lo := s.AddDate(0, 0, -graceDays)
	hi := e.AddDate(0, 0, graceDays)
	if !d.Before(lo) && !d.After(hi) {
		return ConfidenceSoft
	}
	return ConfidenceWeak
}

func parseISO(s string) *time.Time {
	t, err := time.Parse(ISODate, s)
	if err != nil {
		return nil
	}
	return &t
}

// DaysSince returns the number of whole days between date and UTC today,
// clamped at zero for future dates.
func DaysSince(date string) (int, bool) {
	d := parseISO(date)
	if d == nil {
		return 0, false
	}
	today := time.Now().UTC().Truncate(24 * time.Hour)
	days := int(today.Sub(*d).Hours() / 24)
	if days < 0 {
		days = 0
	}
	return days, true
}

// RecencyScore maps a date to 0..100: today scores 100, maxDays ago (or
// older) scores 0. Missing or unparseable dates score 0.
func RecencyScore(date string, maxDays int) float64 {
	days, ok := DaysSince(date)
	if !ok {
		return 0
	}
	if maxDays <= 0 {
		maxDays = 30
	}
	if days >= maxDays {
		return 0
	}
	frac := 1.0 - float64(days)/float64(maxDays)
	return math.Round(frac*1000) / 10
}

var (
	urlSlashDate = regexp.MustCompile(`/((?:20)\d{2})/(\d{1,2})/(\d{1,2})(?:/|$)`)
	urlDashDate  = regexp.MustCompile(`/((?:20)\d{2})-(\d{2})-(\d{2})(?:/|$)`)
	urlCompact   = regexp.MustCompile(`/((?:20)\d{2})(\d{2})(\d{2})(?:/|$)`)
)

// ScanURLDate extracts a date embedded in a URL path. Recognizes
// /YYYY/MM/DD/, /YYYY-MM-DD/ and /YYYYMMDD/ with a plausible year range.
func ScanURLDate(url string) (string, bool) {
	for _, re := range []*regexp.Regexp{urlSlashDate, urlDashDate, urlCompact} {
		m := re.FindStringSubmatch(url)
		if m == nil {
			continue
		}
		if d, ok := buildDate(m[1], m[2], m[3]); ok {
			return d, true
		}
	}
	return "", false
}

func buildDate(year, month, day string) (string, bool) {
	y, _ := strconv.Atoi(year)
	mo, _ := strconv.Atoi(month)
	d, _ := strconv.Atoi(day)
	if y < minURLYear || y > maxURLYear || mo < 1 || mo > 12 || d < 1 || d > 31 {
		return "", false
	}
	t := time.Date(y, time.Month(mo), d, 0, 0, 0, 0, time.UTC)
	// Reject rollovers like Feb 30.
	if int(t.Month()) != mo || t.Day() != d {
		return "", false
	}
	return t.Format(ISODate), true
}

var (
	textISO        = regexp.MustCompile(`\b(20\d{2}-\d{2}-\d{2})\b`)
	textMonthDay   = regexp.MustCompile(`(?i)\b([A-Za-z]{3,9})\.?\s+(\d{1,2})(?:st|nd|rd|th)?(?:,\s*(\d{4}))?\b`)
	textDayMonth   = regexp.MustCompile(`(?i)\b(\d{1,2})\s+([A-Za-z]{3,9})\.?\s+(\d{4})\b`)
	textDaysAgo    = regexp.MustCompile(`(?i)\b(\d{1,2})\s+days?\s+ago\b`)
	textHoursAgo   = regexp.MustCompile(`(?i)\b(\d{1,3})\s+hours?\s+ago\b`)
	textRelatives  = []struct {
		pattern string
		offset  int
	}{
		{"today", 0},
		{"yesterday", -1},
		{"last week", -7},
		{"this week", -3},
		{"last month", -30},
	}
)

// ScanTextDate extracts a date from free text: explicit forms first,
// relative forms after.
func ScanTextDate(text string) (string, bool) {
	if strings.TrimSpace(text) == "" {
		return "", false
	}
	if m := textISO.FindStringSubmatch(text); m != nil {
		if parseISO(m[1]) != nil {
			return m[1], true
		}
	}
	if m := textDayMonth.FindStringSubmatch(text); m != nil {
		if t := monthDate(m[2], m[1], m[3]); t != nil {
			return t.Format(ISODate), true
		}
	}
	if m := textMonthDay.FindStringSubmatch(text); m != nil {
		year := m[3]
		if year == "" {
			year = fmt.Sprintf("%d", time.Now().UTC().Year())
		}
		if t := monthDate(m[1], m[2], year); t != nil {
			return t.Format(ISODate), true
		}
	}
	now := time.Now().UTC()
	if m := textDaysAgo.FindStringSubmatch(text); m != nil {
		n, _ := strconv.Atoi(m[1])
		if n <= 90 {
			return now.AddDate(0, 0, -n).Format(ISODate), true
		}
	}
	if textHoursAgo.MatchString(text) {
		return now.Format(ISODate), true
	}
	lower := strings.ToLower(text)
	for _, rel := range textRelatives {
		if strings.Contains(lower, rel.pattern) {
			return now.AddDate(0, 0, rel.offset).Format(ISODate), true
		}
	}
	return "", false
}

// DetectDate resolves an item's date from its URL, title, and snippet in
// priority order. URL hits are SOLID; title and snippet hits are SOFT.
func DetectDate(url, snippet, title string) (string, Confidence) {
	if d, ok := ScanURLDate(url); ok {
		return d, ConfidenceSolid
	}
	if d, ok := ScanTextDate(title); ok {
		return d, ConfidenceSoft
	}
	if d, ok := ScanTextDate(snippet); ok {
		return d, ConfidenceSoft
	}
	return "", ConfidenceWeak
}
