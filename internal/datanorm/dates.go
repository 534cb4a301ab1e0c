package datanorm

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Sentinel marks an empty spreadsheet cell after sanitization.
const Sentinel = "-"

// MonthNames maps month numbers to the English names used in API output.
var MonthNames = [...]string{"", "January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December"}

// monthAliases covers Indonesian and English spellings and abbreviations.
var monthAliases = map[string]time.Month{
	"jan": time.January, "januari": time.January, "january": time.January,
	"feb": time.February, "februari": time.February, "february": time.February,
	"mar": time.March, "maret": time.March, "march": time.March,
	"apr": time.April, "april": time.April,
	"mei": time.May, "may": time.May,
	"jun": time.June, "juni": time.June, "june": time.June,
	"jul": time.July, "juli": time.July, "july": time.July,
	"agu": time.August, "agustus": time.August, "august": time.August, "aug": time.August,
	"sep": time.September, "september": time.September,
	"okt": time.October, "oktober": time.October, "october": time.October, "oct": time.October,
	"nov": time.November, "november": time.November,
	"des": time.December, "desember": time.December, "december": time.December, "dec": time.December,
}

var (
	reIndoTimestamp = regexp.MustCompile(`(?i)(\d{1,2})\s+([A-Za-z]+)\s+(\d{4})\s+(\d{1,2}):(\d{2})\s+(WIB|WITA|WIT)`)
	reISODate       = regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})`)
	reSlashDate     = regexp.MustCompile(`(\d{2})/(\d{2})/(\d{4})`)
)

type dateMatcher func(s string) (time.Time, bool)

// matchers are tried in order; the first hit wins.
var matchers = []dateMatcher{
	matchIndoTimestamp,
	matchISODate,
	matchSlashDate,
	matchLayouts,
}

// ParseDate parses a roster registration date. Supported shapes, in order:
// "5 Januari 2024 10:30 WIB", "2024-01-05", "05/01/2024", then RFC 3339 and
// a few common layouts. The result is a calendar date in UTC. It never
// panics; ok is false when nothing matches.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" || s == Sentinel {
		return time.Time{}, false
	}
	for _, m := range matchers {
		if t, ok := m(s); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

func matchIndoTimestamp(s string) (time.Time, bool) {
	m := reIndoTimestamp.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, false
	}
	month, ok := monthAliases[strings.ToLower(m[2])]
	if !ok {
		return time.Time{}, false
	}
	day, _ := strconv.Atoi(m[1])
	year, _ := strconv.Atoi(m[3])
	return civilDate(year, month, day)
}

func matchISODate(s string) (time.Time, bool) {
	m := reISODate.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, false
	}
	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])
	return civilDate(year, time.Month(month), day)
}

func matchSlashDate(s string) (time.Time, bool) {
	m := reSlashDate.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, false
	}
	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])
	return civilDate(year, time.Month(month), day)
}

var fallbackLayouts = []string{
	time.RFC3339,
	time.RFC1123,
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"2 January 2006",
}

func matchLayouts(s string) (time.Time, bool) {
	for _, layout := range fallbackLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

// ParseDeliveryDate parses the DD/MM/YYYY delivery date carried by shipment
// rows. Anything after the four year digits (a time of day) is ignored.
// Impossible calendar dates such as 31/02/2024 are rejected.
func ParseDeliveryDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" || s == Sentinel {
		return time.Time{}, false
	}
	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return time.Time{}, false
	}
	yearPart := parts[2]
	if len(yearPart) > 4 {
		yearPart = yearPart[:4]
	}
	day, err1 := strconv.Atoi(parts[0])
	month, err2 := strconv.Atoi(parts[1])
	year, err3 := strconv.Atoi(yearPart)
	if err1 != nil || err2 != nil || err3 != nil || len(yearPart) != 4 {
		return time.Time{}, false
	}
	return civilDate(year, time.Month(month), day)
}

func civilDate(year int, month time.Month, day int) (time.Time, bool) {
	if month < time.January || month > time.December || day < 1 || day > 31 {
		return time.Time{}, false
	}
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || t.Month() != month {
		return time.Time{}, false
	}
	return t, true
}

// ParseMonth accepts an English month name (any case) or a number 1-12.
func ParseMonth(s string) (time.Month, bool) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		if n >= 1 && n <= 12 {
			return time.Month(n), true
		}
		return 0, false
	}
	for i := 1; i < len(MonthNames); i++ {
		if strings.EqualFold(MonthNames[i], s) {
			return time.Month(i), true
		}
	}
	return 0, false
}

var reDigits = regexp.MustCompile(`\D`)

// WeekNumber joins every digit of a week label into one number ("Week 3"
// → 3, "W1-2" → 12), 0 if none. Numbers too large for an int saturate at
// math.MaxInt so that they sort last.
func WeekNumber(label string) int {
	n, err := strconv.Atoi(reDigits.ReplaceAllString(label, ""))
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0
	}
	return n
}
