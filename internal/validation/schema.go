// Package validation declares, once, which BookingForm fields each wizard step
// requires and which format they must have. Both the per-step gate and the
// final pre-submission check read the same schema.
package validation

import (
	"github.com/wolfman30/clinicbook/internal/bookingform"
)

// Step identifies a wizard step.
type Step int

const (
	StepPersonal     Step = 1
	StepMeasurements Step = 2
	StepMedical      Step = 3
	StepLifestyle    Step = 4
	StepReview       Step = 5
)

// FirstStep and LastStep bound the wizard.
const (
	FirstStep = StepPersonal
	LastStep  = StepReview
)

func (s Step) String() string {
	switch s {
	case StepPersonal:
		return "personal"
	case StepMeasurements:
		return "measurements"
	case StepMedical:
		return "medical"
	case StepLifestyle:
		return "lifestyle"
	case StepReview:
		return "review"
	default:
		return "unknown"
	}
}

// ParseStep maps a step name back to its identifier.
func ParseStep(name string) (Step, bool) {
	for s := FirstStep; s <= LastStep; s++ {
		if s.String() == name {
			return s, true
		}
	}
	return 0, false
}

// Rule describes one field of the form.
type Rule struct {
	Field bookingform.Field
	Label string
	Step  Step
	// RequiredAtStep gates leaving Step.
	RequiredAtStep bool
	// RequiredAtSubmit gates patient creation from the review step.
	RequiredAtSubmit bool
	Format           Format
}

// schema is in display order; "first missing" follows this order.
var schema = []Rule{
	{Field: bookingform.FullName, Label: "Full Name", Step: StepPersonal, RequiredAtStep: true, RequiredAtSubmit: true},
	{Field: bookingform.Mobile, Label: "Mobile Number", Step: StepPersonal, RequiredAtStep: true, RequiredAtSubmit: true, Format: MobileFormat},
	{Field: bookingform.Email, Label: "Email", Step: StepPersonal, RequiredAtStep: true, RequiredAtSubmit: true, Format: EmailFormat},
	{Field: bookingform.DateOfBirth, Label: "Date of Birth", Step: StepPersonal, RequiredAtStep: true, RequiredAtSubmit: true, Format: DateFormat},
	{Field: bookingform.Age, Label: "Age", Step: StepPersonal, RequiredAtSubmit: true, Format: IntegerFormat},
	{Field: bookingform.Gender, Label: "Gender", Step: StepPersonal, RequiredAtStep: true, RequiredAtSubmit: true},
	{Field: bookingform.Address, Label: "Address", Step: StepPersonal, RequiredAtStep: true, RequiredAtSubmit: true},

	{Field: bookingform.Weight, Label: "Weight", Step: StepMeasurements, RequiredAtStep: true, RequiredAtSubmit: true, Format: IntegerFormat},
	{Field: bookingform.Height, Label: "Height", Step: StepMeasurements, RequiredAtStep: true, RequiredAtSubmit: true, Format: IntegerFormat},
	{Field: bookingform.Neck, Label: "Neck", Step: StepMeasurements, RequiredAtSubmit: true, Format: IntegerFormat},
	{Field: bookingform.Waist, Label: "Waist", Step: StepMeasurements, RequiredAtSubmit: true, Format: IntegerFormat},
	{Field: bookingform.Hip, Label: "Hip", Step: StepMeasurements, RequiredAtSubmit: true, Format: IntegerFormat},

	{Field: bookingform.MedicalHistory, Label: "Medical History", Step: StepMedical, RequiredAtStep: true, RequiredAtSubmit: true},
	{Field: bookingform.Concerns, Label: "Appointment Concerns", Step: StepMedical},

	{Field: bookingform.BowelMovement, Label: "Bowel Movement", Step: StepLifestyle, RequiredAtStep: true, RequiredAtSubmit: true},
	{Field: bookingform.DailyFood, Label: "Daily Food Intake", Step: StepLifestyle},
	{Field: bookingform.WaterIntake, Label: "Water Intake", Step: StepLifestyle, RequiredAtStep: true, RequiredAtSubmit: true, Format: DecimalFormat},
	{Field: bookingform.WakeUpTime, Label: "Wake Up Time", Step: StepLifestyle, RequiredAtStep: true, RequiredAtSubmit: true, Format: ClockFormat},
	{Field: bookingform.SleepTime, Label: "Sleep Time", Step: StepLifestyle, RequiredAtStep: true, RequiredAtSubmit: true, Format: ClockFormat},
	{Field: bookingform.SleepQuality, Label: "Sleep Quality", Step: StepLifestyle, RequiredAtStep: true, RequiredAtSubmit: true},
	{Field: bookingform.FoodPreference, Label: "Food Preference", Step: StepLifestyle, RequiredAtStep: true, RequiredAtSubmit: true},
	{Field: bookingform.Allergies, Label: "Allergies / Intolerances", Step: StepLifestyle},
}

// Rules returns the schema rules of one step in display order.
func Rules(step Step) []Rule {
	var out []Rule
	for _, r := range schema {
		if r.Step == step {
			out = append(out, r)
		}
	}
	return out
}

// RuleFor looks up the rule of a field.
func RuleFor(field bookingform.Field) (Rule, bool) {
	for _, r := range schema {
		if r.Field == field {
			return r, true
		}
	}
	return Rule{}, false
}

// Label returns the human label of a field, or the field name.
func Label(field bookingform.Field) string {
	if r, ok := RuleFor(field); ok {
		return r.Label
	}
	return string(field)
}
