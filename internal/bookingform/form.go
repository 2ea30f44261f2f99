// Package bookingform defines the BookingForm aggregate: every field collected
// across the booking wizard and the recall, slot and payment pages.
package bookingform

import (
	"strconv"
	"strings"
)

// StorageKey is the fixed name the form is persisted under.
const StorageKey = "bookingForm"

// Field names a single BookingForm attribute by its JSON name.
type Field string

const (
	FullName    Field = "fullName"
	Mobile      Field = "mobile"
	Email       Field = "email"
	DateOfBirth Field = "dateOfBirth"
	Age         Field = "age"
	Gender      Field = "gender"
	Address     Field = "address"

	Weight Field = "weight"
	Height Field = "height"
	Neck   Field = "neck"
	Waist  Field = "waist"
	Hip    Field = "hip"

	MedicalHistory Field = "medicalHistory"
	Concerns       Field = "concerns"

	BowelMovement  Field = "bowelMovement"
	DailyFood      Field = "dailyFood"
	WaterIntake    Field = "waterIntake"
	WakeUpTime     Field = "wakeUpTime"
	SleepTime      Field = "sleepTime"
	SleepQuality   Field = "sleepQuality"
	FoodPreference Field = "foodPreference"
	Allergies      Field = "allergies"

	PlanSlug        Field = "planSlug"
	PlanName        Field = "planName"
	PlanPrice       Field = "planPrice"
	PlanRawPrice    Field = "planRawPrice"
	PackageName     Field = "packageName"
	PackageDuration Field = "packageDuration"

	AppointmentMode Field = "appointmentMode"
	AppointmentDate Field = "appointmentDate"
	AppointmentTime Field = "appointmentTime"
	SlotID          Field = "slotId"

	PatientID     Field = "patientId"
	AppointmentID Field = "appointmentId"
	RecallNotes   Field = "recallNotes"
)

// Form is the booking-in-progress record. Empty strings and nil pointers mean
// "not filled"; requiredness is decided by the validation package, never here.
type Form struct {
	FullName    string `json:"fullName"`
	Mobile      string `json:"mobile"`
	Email       string `json:"email"`
	DateOfBirth string `json:"dateOfBirth"`
	Age         string `json:"age"`
	Gender      string `json:"gender"`
	Address     string `json:"address"`

	Weight string `json:"weight"`
	Height string `json:"height"`
	Neck   string `json:"neck"`
	Waist  string `json:"waist"`
	Hip    string `json:"hip"`

	MedicalHistory string `json:"medicalHistory"`
	Concerns       string `json:"concerns"`
	// Reports only live in memory; file handles do not survive serialization.
	Reports []Report `json:"-"`

	BowelMovement  string `json:"bowelMovement"`
	DailyFood      string `json:"dailyFood"`
	WaterIntake    string `json:"waterIntake"`
	WakeUpTime     string `json:"wakeUpTime"`
	SleepTime      string `json:"sleepTime"`
	SleepQuality   string `json:"sleepQuality"`
	FoodPreference string `json:"foodPreference"`
	Allergies      string `json:"allergies"`

	PlanSlug        string   `json:"planSlug"`
	PlanName        string   `json:"planName"`
	PlanPrice       string   `json:"planPrice"`
	PlanRawPrice    *float64 `json:"planRawPrice"`
	PackageName     string   `json:"packageName"`
	PackageDuration string   `json:"packageDuration"`

	AppointmentMode string `json:"appointmentMode"`
	AppointmentDate string `json:"appointmentDate"`
	AppointmentTime string `json:"appointmentTime"`
	SlotID          string `json:"slotId"`

	PatientID     string        `json:"patientId"`
	AppointmentID string        `json:"appointmentId"`
	RecallEntries []RecallEntry `json:"recallEntries"`
	RecallNotes   string        `json:"recallNotes"`
}

// Report sources.
const (
	ReportSourceBackend = "backend"
	ReportSourceS3      = "s3"
)

// Report is an uploaded medical report. Backend reports are referenced by
// their backend file id; S3 reports by object key.
type Report struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ContentType string `json:"contentType,omitempty"`
	Size        int64  `json:"size"`
	Source      string `json:"source,omitempty"`
}

// Default returns an all-empty form.
func Default() Form {
	return Form{}
}

// Clone returns a deep copy so callers cannot mutate shared slices.
func (f Form) Clone() Form {
	out := f
	if f.PlanRawPrice != nil {
		price := *f.PlanRawPrice
		out.PlanRawPrice = &price
	}
	if f.Reports != nil {
		out.Reports = append([]Report(nil), f.Reports...)
	}
	if f.RecallEntries != nil {
		out.RecallEntries = append([]RecallEntry(nil), f.RecallEntries...)
	}
	return out
}

// Value returns the trimmed string value of a scalar field.
func (f Form) Value(field Field) string {
	var v string
	switch field {
	case FullName:
		v = f.FullName
	case Mobile:
		v = f.Mobile
	case Email:
		v = f.Email
	case DateOfBirth:
		v = f.DateOfBirth
	case Age:
		v = f.Age
	case Gender:
		v = f.Gender
	case Address:
		v = f.Address
	case Weight:
		v = f.Weight
	case Height:
		v = f.Height
	case Neck:
		v = f.Neck
	case Waist:
		v = f.Waist
	case Hip:
		v = f.Hip
	case MedicalHistory:
		v = f.MedicalHistory
	case Concerns:
		v = f.Concerns
	case BowelMovement:
		v = f.BowelMovement
	case DailyFood:
		v = f.DailyFood
	case WaterIntake:
		v = f.WaterIntake
	case WakeUpTime:
		v = f.WakeUpTime
	case SleepTime:
		v = f.SleepTime
	case SleepQuality:
		v = f.SleepQuality
	case FoodPreference:
		v = f.FoodPreference
	case Allergies:
		v = f.Allergies
	case PlanSlug:
		v = f.PlanSlug
	case PlanName:
		v = f.PlanName
	case PlanPrice:
		v = f.PlanPrice
	case PlanRawPrice:
		if f.PlanRawPrice != nil {
			v = strconv.FormatFloat(*f.PlanRawPrice, 'f', -1, 64)
		}
	case PackageName:
		v = f.PackageName
	case PackageDuration:
		v = f.PackageDuration
	case AppointmentMode:
		v = f.AppointmentMode
	case AppointmentDate:
		v = f.AppointmentDate
	case AppointmentTime:
		v = f.AppointmentTime
	case SlotID:
		v = f.SlotID
	case PatientID:
		v = f.PatientID
	case AppointmentID:
		v = f.AppointmentID
	case RecallNotes:
		v = f.RecallNotes
	}
	return strings.TrimSpace(v)
}

// Has reports whether a field holds a non-empty value.
func (f Form) Has(field Field) bool {
	return f.Value(field) != ""
}

// HasPlan reports whether the plan selection made on the services page is present.
func (f Form) HasPlan() bool {
	return f.Has(PlanSlug) && f.Has(PlanName) && f.Has(PlanPrice)
}

// ReportIDs returns the backend file ids of the in-memory reports. S3 reports
// have no backend file and are left out.
func (f Form) ReportIDs() []string {
	ids := make([]string, 0, len(f.Reports))
	for _, r := range f.Reports {
		if r.ID != "" && r.Source != ReportSourceS3 {
			ids = append(ids, r.ID)
		}
	}
	return ids
}
