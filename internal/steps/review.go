package steps

import (
	"fmt"

	"github.com/wolfman30/clinicbook/internal/bookingform"
	"github.com/wolfman30/clinicbook/internal/enums"
	"github.com/wolfman30/clinicbook/internal/validation"
)

// Item is one labelled value on the review page.
type Item struct {
	Field bookingform.Field `json:"field,omitempty"`
	Label string            `json:"label"`
	Value string            `json:"value"`
}

// Section groups the items of one earlier step.
type Section struct {
	Step  string `json:"step"`
	Title string `json:"title"`
	Items []Item `json:"items"`
}

type reviewStep struct{}

// Review is the terminal, read-only step. It owns no fields.
var Review Step = reviewStep{}

func (reviewStep) ID() validation.Step { return validation.StepReview }

func (reviewStep) Title() string { return "Review & Confirm" }

func (reviewStep) Fields() []bookingform.Field { return nil }

func (reviewStep) Apply(in Input) (bookingform.Patch, FieldErrors, error) {
	for name := range in {
		return bookingform.Patch{}, nil, &UnknownFieldError{Step: validation.StepReview, Field: name}
	}
	return bookingform.Patch{}, nil, nil
}

var displayTables = map[bookingform.Field]*enums.Table{
	bookingform.Gender:         enums.Gender,
	bookingform.BowelMovement:  enums.BowelMovement,
	bookingform.SleepQuality:   enums.SleepQuality,
	bookingform.FoodPreference: enums.FoodPreference,
}

// Summary renders every earlier step's fields for the review page. Enum values
// entered as tokens are shown by their label.
func Summary(form bookingform.Form) []Section {
	var sections []Section
	for _, s := range All() {
		if s.ID() == validation.StepReview {
			continue
		}
		section := Section{Step: s.ID().String(), Title: s.Title()}
		for _, field := range s.Fields() {
			value := form.Value(field)
			if table, ok := displayTables[field]; ok && value != "" {
				if label, known := table.Label(table.Token(value)); known {
					value = label
				}
			}
			section.Items = append(section.Items, Item{Field: field, Label: validation.Label(field), Value: value})
		}
		if s.ID() == validation.StepMedical {
			section.Items = append(section.Items, Item{Label: "Reports", Value: reportSummary(form.Reports)})
		}
		sections = append(sections, section)
	}
	return sections
}

func reportSummary(reports []bookingform.Report) string {
	switch len(reports) {
	case 0:
		return "None uploaded"
	case 1:
		return reports[0].Name
	default:
		return fmt.Sprintf("%d files", len(reports))
	}
}
