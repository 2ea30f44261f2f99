package wizard

import (
	"strconv"
	"strings"

	"github.com/wolfman30/clinicbook/internal/backend"
	"github.com/wolfman30/clinicbook/internal/bookingform"
	"github.com/wolfman30/clinicbook/internal/enums"
)

// PatientRequestFrom maps the form to the backend's patient shape, translating
// category labels to backend tokens. Uploaded reports are linked later, on
// recall submit, so the file list is always empty here.
func PatientRequestFrom(form bookingform.Form) backend.PatientRequest {
	age, _ := strconv.Atoi(strings.TrimSpace(form.Age))
	return backend.PatientRequest{
		Name:                strings.TrimSpace(form.FullName),
		Phone:               bookingform.DigitsOnly(form.Mobile),
		Gender:              enums.Gender.Token(form.Gender),
		Email:               strings.TrimSpace(form.Email),
		DOB:                 strings.TrimSpace(form.DateOfBirth),
		Age:                 age,
		Address:             strings.TrimSpace(form.Address),
		Weight:              bookingform.ParseNumber(form.Weight),
		Height:              bookingform.ParseNumber(form.Height),
		Neck:                bookingform.ParseNumber(form.Neck),
		Waist:               bookingform.ParseNumber(form.Waist),
		Hip:                 bookingform.ParseNumber(form.Hip),
		MedicalHistory:      strings.TrimSpace(form.MedicalHistory),
		AppointmentConcerns: strings.TrimSpace(form.Concerns),
		BowelMovement:       enums.BowelMovement.Token(form.BowelMovement),
		FoodPreference:      enums.FoodPreference.Token(form.FoodPreference),
		Allergies:           strings.TrimSpace(form.Allergies),
		DailyFoodIntake:     strings.TrimSpace(form.DailyFood),
		WaterIntake:         bookingform.ParseNumber(form.WaterIntake),
		WakeUpTime:          strings.TrimSpace(form.WakeUpTime),
		SleepTime:           strings.TrimSpace(form.SleepTime),
		SleepQuality:        enums.SleepQuality.Token(form.SleepQuality),
		FileIDs:             []string{},
	}
}
