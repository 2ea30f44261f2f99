package validation

import (
	"fmt"
	"strings"

	"github.com/wolfman30/clinicbook/internal/bookingform"
)

// GenericMessage is shown when no specific field can be named.
const GenericMessage = "please fill all required fields"

// Required returns the fields gating a step. The review step has none.
func Required(step Step) []Rule {
	var out []Rule
	for _, r := range schema {
		if r.Step == step && r.RequiredAtStep {
			out = append(out, r)
		}
	}
	return out
}

// Validate reports whether every field the step requires is filled.
func Validate(step Step, form bookingform.Form) bool {
	_, missing := FirstMissingField(step, form)
	return !missing
}

// FirstMissingField returns the first required field, in schema order, that is
// still empty.
func FirstMissingField(step Step, form bookingform.Form) (Rule, bool) {
	for _, r := range Required(step) {
		if !form.Has(r.Field) {
			return r, true
		}
	}
	return Rule{}, false
}

// StepMessage builds the inline error for a failed step gate.
func StepMessage(step Step, form bookingform.Form) string {
	r, missing := FirstMissingField(step, form)
	if !missing {
		return ""
	}
	if r.Label == "" {
		return GenericMessage
	}
	return fmt.Sprintf("please fill required field: %s", r.Label)
}

// MissingForSubmission runs the full pre-submission check over every field
// required before a patient can be created.
func MissingForSubmission(form bookingform.Form) []Rule {
	var missing []Rule
	for _, r := range schema {
		if r.RequiredAtSubmit && !form.Has(r.Field) {
			missing = append(missing, r)
		}
	}
	return missing
}

// SubmissionMessage combines every missing label into one message.
func SubmissionMessage(missing []Rule) string {
	if len(missing) == 0 {
		return ""
	}
	labels := make([]string, 0, len(missing))
	for _, r := range missing {
		labels = append(labels, r.Label)
	}
	return "please fill the following required fields: " + strings.Join(labels, ", ")
}
