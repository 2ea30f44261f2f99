package bookingform

import (
	"strconv"
	"strings"
	"time"
)

// DateLayout is the wire layout for dates of birth and appointment dates.
const DateLayout = "2006-01-02"

// MobileDigits is the length of a stored mobile number (no country code).
const MobileDigits = 10

// DigitsOnly strips every non-digit character.
func DigitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// SanitizeMobile keeps digits only and truncates to MobileDigits.
func SanitizeMobile(s string) string {
	d := DigitsOnly(s)
	if len(d) > MobileDigits {
		d = d[:MobileDigits]
	}
	return d
}

// SanitizeDecimal keeps digits and the first decimal point, which yields a
// non-negative decimal string ("2.5", "3.", "").
func SanitizeDecimal(s string) string {
	var b strings.Builder
	seenDot := false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' && !seenDot:
			seenDot = true
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ComputeAge derives whole years from a YYYY-MM-DD date of birth. It returns ""
// for unparsable or future dates.
func ComputeAge(dob string, now time.Time) string {
	born, err := time.Parse(DateLayout, strings.TrimSpace(dob))
	if err != nil {
		return ""
	}
	if born.After(now) {
		return ""
	}
	years := now.Year() - born.Year()
	if now.Month() < born.Month() || (now.Month() == born.Month() && now.Day() < born.Day()) {
		years--
	}
	return strconv.Itoa(years)
}

// ParseNumber converts a sanitized numeric string to float64; blank is zero.
func ParseNumber(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}
