package validation

import (
	"errors"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/wolfman30/clinicbook/internal/bookingform"
)

// Format checks the shape of a non-empty value. Blank values always pass;
// presence is the step gate's concern.
type Format func(value string) error

var (
	ErrMobileFormat  = errors.New("mobile number must be exactly 10 digits")
	ErrEmailFormat   = errors.New("enter a valid email address")
	ErrDateFormat    = errors.New("enter a valid date (YYYY-MM-DD)")
	ErrIntegerFormat = errors.New("enter a whole number")
	ErrDecimalFormat = errors.New("enter a non-negative number")
	ErrClockFormat   = errors.New("enter a time as HH:MM")
)

var (
	tenDigits = regexp.MustCompile(`^[0-9]{10}$`)
	digits    = regexp.MustCompile(`^[0-9]+$`)
	decimal   = regexp.MustCompile(`^[0-9]+(\.[0-9]*)?$`)
	clock     = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)
)

func MobileFormat(v string) error {
	if !tenDigits.MatchString(v) {
		return ErrMobileFormat
	}
	return nil
}

func EmailFormat(v string) error {
	addr, err := mail.ParseAddress(v)
	if err != nil || addr.Address != v || !strings.Contains(v[strings.Index(v, "@"):], ".") {
		return ErrEmailFormat
	}
	return nil
}

func DateFormat(v string) error {
	if _, err := time.Parse(bookingform.DateLayout, v); err != nil {
		return ErrDateFormat
	}
	return nil
}

func IntegerFormat(v string) error {
	if !digits.MatchString(v) {
		return ErrIntegerFormat
	}
	return nil
}

func DecimalFormat(v string) error {
	if !decimal.MatchString(v) {
		return ErrDecimalFormat
	}
	return nil
}

func ClockFormat(v string) error {
	if !clock.MatchString(v) {
		return ErrClockFormat
	}
	return nil
}

// CheckFormat applies the field's format predicate, if any.
func CheckFormat(field bookingform.Field, value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	r, ok := RuleFor(field)
	if !ok || r.Format == nil {
		return nil
	}
	return r.Format(value)
}
