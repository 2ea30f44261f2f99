// Package steps implements the five wizard step components. Each one owns a
// slice of the BookingForm, sanitizes raw input for its own fields and turns
// it into a partial update.
package steps

import (
	"fmt"
	"strings"

	"github.com/wolfman30/clinicbook/internal/bookingform"
	"github.com/wolfman30/clinicbook/internal/enums"
	"github.com/wolfman30/clinicbook/internal/validation"
)

// Input is raw user input keyed by field name.
type Input map[string]string

// FieldErrors are inline format messages. They never block the write.
type FieldErrors map[bookingform.Field]string

// Step is one wizard page.
type Step interface {
	ID() validation.Step
	Title() string
	Fields() []bookingform.Field
	Apply(in Input) (bookingform.Patch, FieldErrors, error)
}

// UnknownFieldError is returned when input names a field the step does not own.
type UnknownFieldError struct {
	Step  validation.Step
	Field string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("steps: field %q is not part of the %s step", e.Field, e.Step)
}

type sanitizer func(string) string

type fieldStep struct {
	id        validation.Step
	title     string
	fields    []bookingform.Field
	sanitize  map[bookingform.Field]sanitizer
	enumField map[bookingform.Field]*enums.Table
}

func (s *fieldStep) ID() validation.Step { return s.id }

func (s *fieldStep) Title() string { return s.title }

func (s *fieldStep) Fields() []bookingform.Field {
	return append([]bookingform.Field(nil), s.fields...)
}

func (s *fieldStep) owns(field bookingform.Field) bool {
	for _, f := range s.fields {
		if f == field {
			return true
		}
	}
	return false
}

// Apply sanitizes every input value and builds the patch. Format problems are
// reported per field; the sanitized value is written regardless.
func (s *fieldStep) Apply(in Input) (bookingform.Patch, FieldErrors, error) {
	var patch bookingform.Patch
	errs := FieldErrors{}
	for name, raw := range in {
		field := bookingform.Field(name)
		if !s.owns(field) {
			return bookingform.Patch{}, nil, &UnknownFieldError{Step: s.id, Field: name}
		}
		value := raw
		if fn, ok := s.sanitize[field]; ok {
			value = fn(raw)
		}
		patch.Set(field, value)

		if err := validation.CheckFormat(field, value); err != nil {
			errs[field] = err.Error()
			continue
		}
		if table, ok := s.enumField[field]; ok && strings.TrimSpace(value) != "" && !table.Known(value) {
			errs[field] = fmt.Sprintf("select a valid %s", strings.ToLower(validation.Label(field)))
		}
	}
	if len(errs) == 0 {
		errs = nil
	}
	return patch, errs, nil
}

var (
	// Personal collects identity and contact details.
	Personal Step = &fieldStep{
		id:    validation.StepPersonal,
		title: "Personal Details",
		fields: []bookingform.Field{
			bookingform.FullName, bookingform.Mobile, bookingform.Email,
			bookingform.DateOfBirth, bookingform.Age, bookingform.Gender, bookingform.Address,
		},
		sanitize: map[bookingform.Field]sanitizer{
			bookingform.Mobile:      bookingform.SanitizeMobile,
			bookingform.Email:       strings.TrimSpace,
			bookingform.DateOfBirth: strings.TrimSpace,
			bookingform.Age:         bookingform.DigitsOnly,
		},
		enumField: map[bookingform.Field]*enums.Table{
			bookingform.Gender: enums.Gender,
		},
	}

	// Measurements collects body measurements as digit-only strings.
	Measurements Step = &fieldStep{
		id:    validation.StepMeasurements,
		title: "Body Measurements",
		fields: []bookingform.Field{
			bookingform.Weight, bookingform.Height, bookingform.Neck, bookingform.Waist, bookingform.Hip,
		},
		sanitize: map[bookingform.Field]sanitizer{
			bookingform.Weight: bookingform.DigitsOnly,
			bookingform.Height: bookingform.DigitsOnly,
			bookingform.Neck:   bookingform.DigitsOnly,
			bookingform.Waist:  bookingform.DigitsOnly,
			bookingform.Hip:    bookingform.DigitsOnly,
		},
	}

	// Medical collects history and concerns. Report uploads go through the
	// reports package and never touch the patch.
	Medical Step = &fieldStep{
		id:     validation.StepMedical,
		title:  "Medical History",
		fields: []bookingform.Field{bookingform.MedicalHistory, bookingform.Concerns},
	}

	// Lifestyle collects habits, sleep and diet.
	Lifestyle Step = &fieldStep{
		id:    validation.StepLifestyle,
		title: "Lifestyle",
		fields: []bookingform.Field{
			bookingform.BowelMovement, bookingform.DailyFood, bookingform.WaterIntake,
			bookingform.WakeUpTime, bookingform.SleepTime, bookingform.SleepQuality,
			bookingform.FoodPreference, bookingform.Allergies,
		},
		sanitize: map[bookingform.Field]sanitizer{
			bookingform.WaterIntake: bookingform.SanitizeDecimal,
			bookingform.WakeUpTime:  strings.TrimSpace,
			bookingform.SleepTime:   strings.TrimSpace,
		},
		enumField: map[bookingform.Field]*enums.Table{
			bookingform.BowelMovement:  enums.BowelMovement,
			bookingform.SleepQuality:   enums.SleepQuality,
			bookingform.FoodPreference: enums.FoodPreference,
		},
	}
)

// All returns the steps in wizard order.
func All() []Step {
	return []Step{Personal, Measurements, Medical, Lifestyle, Review}
}

// For returns the component of a step.
func For(id validation.Step) (Step, bool) {
	for _, s := range All() {
		if s.ID() == id {
			return s, true
		}
	}
	return nil, false
}
