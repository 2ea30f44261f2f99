package bookingform

import "time"

// Patch is a partial update. Nil fields are left untouched; a pointer to ""
// clears the field. It decodes naturally from a partial JSON object.
type Patch struct {
	FullName    *string `json:"fullName,omitempty"`
	Mobile      *string `json:"mobile,omitempty"`
	Email       *string `json:"email,omitempty"`
	DateOfBirth *string `json:"dateOfBirth,omitempty"`
	Age         *string `json:"age,omitempty"`
	Gender      *string `json:"gender,omitempty"`
	Address     *string `json:"address,omitempty"`

	Weight *string `json:"weight,omitempty"`
	Height *string `json:"height,omitempty"`
	Neck   *string `json:"neck,omitempty"`
	Waist  *string `json:"waist,omitempty"`
	Hip    *string `json:"hip,omitempty"`

	MedicalHistory *string `json:"medicalHistory,omitempty"`
	Concerns       *string `json:"concerns,omitempty"`

	BowelMovement  *string `json:"bowelMovement,omitempty"`
	DailyFood      *string `json:"dailyFood,omitempty"`
	WaterIntake    *string `json:"waterIntake,omitempty"`
	WakeUpTime     *string `json:"wakeUpTime,omitempty"`
	SleepTime      *string `json:"sleepTime,omitempty"`
	SleepQuality   *string `json:"sleepQuality,omitempty"`
	FoodPreference *string `json:"foodPreference,omitempty"`
	Allergies      *string `json:"allergies,omitempty"`

	PlanSlug        *string  `json:"planSlug,omitempty"`
	PlanName        *string  `json:"planName,omitempty"`
	PlanPrice       *string  `json:"planPrice,omitempty"`
	PlanRawPrice    *float64 `json:"planRawPrice,omitempty"`
	PackageName     *string  `json:"packageName,omitempty"`
	PackageDuration *string  `json:"packageDuration,omitempty"`

	AppointmentMode *string `json:"appointmentMode,omitempty"`
	AppointmentDate *string `json:"appointmentDate,omitempty"`
	AppointmentTime *string `json:"appointmentTime,omitempty"`
	SlotID          *string `json:"slotId,omitempty"`

	PatientID     *string        `json:"patientId,omitempty"`
	AppointmentID *string        `json:"appointmentId,omitempty"`
	RecallEntries *[]RecallEntry `json:"recallEntries,omitempty"`
	RecallNotes   *string        `json:"recallNotes,omitempty"`
}

// String returns a pointer to s, for building patches.
func String(s string) *string {
	return &s
}

// Float returns a pointer to v, for building patches.
func Float(v float64) *float64 {
	return &v
}

// Apply shallow-merges p into f using the current time for age derivation.
func (f *Form) Apply(p Patch) {
	f.ApplyAt(p, time.Now())
}

// ApplyAt shallow-merges p into f. A changed date of birth recomputes age in
// the same merge; an age carried along with it only wins when it differs from
// the stored age, so whole-step payloads echoing a stale age still derive it.
// Age edits alone never touch the date of birth.
func (f *Form) ApplyAt(p Patch, now time.Time) {
	dobChanged := p.DateOfBirth != nil && *p.DateOfBirth != f.DateOfBirth
	ageEdited := p.Age != nil && *p.Age != f.Age

	set(&f.FullName, p.FullName)
	set(&f.Mobile, p.Mobile)
	set(&f.Email, p.Email)
	set(&f.DateOfBirth, p.DateOfBirth)
	set(&f.Age, p.Age)
	set(&f.Gender, p.Gender)
	set(&f.Address, p.Address)

	set(&f.Weight, p.Weight)
	set(&f.Height, p.Height)
	set(&f.Neck, p.Neck)
	set(&f.Waist, p.Waist)
	set(&f.Hip, p.Hip)

	set(&f.MedicalHistory, p.MedicalHistory)
	set(&f.Concerns, p.Concerns)

	set(&f.BowelMovement, p.BowelMovement)
	set(&f.DailyFood, p.DailyFood)
	set(&f.WaterIntake, p.WaterIntake)
	set(&f.WakeUpTime, p.WakeUpTime)
	set(&f.SleepTime, p.SleepTime)
	set(&f.SleepQuality, p.SleepQuality)
	set(&f.FoodPreference, p.FoodPreference)
	set(&f.Allergies, p.Allergies)

	set(&f.PlanSlug, p.PlanSlug)
	set(&f.PlanName, p.PlanName)
	set(&f.PlanPrice, p.PlanPrice)
	if p.PlanRawPrice != nil {
		price := *p.PlanRawPrice
		f.PlanRawPrice = &price
	}
	set(&f.PackageName, p.PackageName)
	set(&f.PackageDuration, p.PackageDuration)

	set(&f.AppointmentMode, p.AppointmentMode)
	set(&f.AppointmentDate, p.AppointmentDate)
	set(&f.AppointmentTime, p.AppointmentTime)
	set(&f.SlotID, p.SlotID)

	set(&f.PatientID, p.PatientID)
	set(&f.AppointmentID, p.AppointmentID)
	if p.RecallEntries != nil {
		f.RecallEntries = append([]RecallEntry(nil), (*p.RecallEntries)...)
	}
	set(&f.RecallNotes, p.RecallNotes)

	if dobChanged && !ageEdited {
		f.Age = ComputeAge(f.DateOfBirth, now)
	}
}

// IsEmpty reports whether the patch carries no field at all.
func (p Patch) IsEmpty() bool {
	return p == Patch{}
}

func set(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

// Set assigns a raw string value to the patch field named by field. It
// reports false for fields that are not plain strings.
func (p *Patch) Set(field Field, value string) bool {
	v := &value
	switch field {
	case FullName:
		p.FullName = v
	case Mobile:
		p.Mobile = v
	case Email:
		p.Email = v
	case DateOfBirth:
		p.DateOfBirth = v
	case Age:
		p.Age = v
	case Gender:
		p.Gender = v
	case Address:
		p.Address = v
	case Weight:
		p.Weight = v
	case Height:
		p.Height = v
	case Neck:
		p.Neck = v
	case Waist:
		p.Waist = v
	case Hip:
		p.Hip = v
	case MedicalHistory:
		p.MedicalHistory = v
	case Concerns:
		p.Concerns = v
	case BowelMovement:
		p.BowelMovement = v
	case DailyFood:
		p.DailyFood = v
	case WaterIntake:
		p.WaterIntake = v
	case WakeUpTime:
		p.WakeUpTime = v
	case SleepTime:
		p.SleepTime = v
	case SleepQuality:
		p.SleepQuality = v
	case FoodPreference:
		p.FoodPreference = v
	case Allergies:
		p.Allergies = v
	case PlanSlug:
		p.PlanSlug = v
	case PlanName:
		p.PlanName = v
	case PlanPrice:
		p.PlanPrice = v
	case PackageName:
		p.PackageName = v
	case PackageDuration:
		p.PackageDuration = v
	case AppointmentMode:
		p.AppointmentMode = v
	case AppointmentDate:
		p.AppointmentDate = v
	case AppointmentTime:
		p.AppointmentTime = v
	case SlotID:
		p.SlotID = v
	case PatientID:
		p.PatientID = v
	case AppointmentID:
		p.AppointmentID = v
	case RecallNotes:
		p.RecallNotes = v
	default:
		return false
	}
	return true
}
