package transform

import (
	"math"
	"time"
)

// TwoDigitYearPivot bounds how far into the future a two-digit year may land
// before it is read as the previous century.
var TwoDigitYearPivot = 20

var (
	// dateTimeLayouts are tried first, most specific to least.
	dateTimeLayouts = []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05.999999999",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
		"2006/01/02 15:04:05",
		"01/02/2006 15:04:05",
		"1/2/2006 15:04:05",
		"1/2/2006 3:04:05 PM",
		"1/2/2006 3:04 PM",
		"1/2/2006 15:04",
		"02.01.2006 15:04:05",
		"2.1.2006 15:04",
		time.RFC1123Z,
		time.RFC1123,
	}
	fourDigitYearLayouts = []string{
		"2006-01-02", "2006/01/02", "2006.01.02",
		"1/2/2006", "01/02/2006", "1-2-2006", "01-02-2006",
		"2.1.2006", "2. 1. 2006",
		"Jan 2, 2006", "January 2, 2006", "2 Jan 2006", "02-Jan-2006", "2-Jan-2006",
	}
	twoDigitYearLayouts = []string{
		"1/2/06", "01/02/06", "1-2-06", "1.2.06", "01.02.06", "02-Jan-06",
	}
)

// ParseTime parses s against the general date and date-time layouts. It does
// not accept compact "yyyyMMdd" or spreadsheet serial numbers; those are
// fallbacks of the date conversions only.
func ParseTime(s string) (time.Time, bool) {
	if t, ok := parseCZDate(s); ok {
		return t, true
	}
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	for _, layout := range fourDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	pivot := time.Now().Year() + TwoDigitYearPivot
	for _, layout := range twoDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			if t.Year() > pivot {
				t = t.AddDate(-100, 0, 0)
			}
			return t, true
		}
	}
	return time.Time{}, false
}

// serialEpoch is day zero of spreadsheet date serials: serial 1 is
// 1899-12-31.
var serialEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// maxSerial is 9999-12-31.
const maxSerial = 2958465

// FromSerial converts a spreadsheet date serial; the fractional part is the
// time of day.
func FromSerial(f float64) (time.Time, bool) {
	if math.IsNaN(f) || f <= 0 || f > maxSerial+1 {
		return time.Time{}, false
	}
	days := math.Floor(f)
	t := serialEpoch.AddDate(0, 0, int(days))
	if frac := f - days; frac > 0 {
		t = t.Add(time.Duration(math.Round(frac * float64(24*time.Hour/time.Millisecond))) * time.Millisecond)
	}
	return t, true
}

// parseCZDate is a zero-allocation parser for "02.01.2006" (DD.MM.YYYY), the
// most common layout in the registry exports this tool was first built for.
func parseCZDate(s string) (time.Time, bool) {
	if len(s) != 10 || s[2] != '.' || s[5] != '.' {
		return time.Time{}, false
	}
	d1, d0 := s[0]-'0', s[1]-'0'
	m1, m0 := s[3]-'0', s[4]-'0'
	y3, y2, y1, y0 := s[6]-'0', s[7]-'0', s[8]-'0', s[9]-'0'
	if d1 > 9 || d0 > 9 || m1 > 9 || m0 > 9 || y3 > 9 || y2 > 9 || y1 > 9 || y0 > 9 {
		return time.Time{}, false
	}
	day := int(d1)*10 + int(d0)
	mon := int(m1)*10 + int(m0)
	year := int(y3)*1000 + int(y2)*100 + int(y1)*10 + int(y0)
	if mon < 1 || mon > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(mon), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}
