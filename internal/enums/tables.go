package enums

// Gender as collected on the personal step.
var Gender = NewTable("gender", "",
	Option{Label: "Male", Token: "MALE", Aliases: []string{"m"}},
	Option{Label: "Female", Token: "FEMALE", Aliases: []string{"f"}},
	Option{Label: "Other", Token: "OTHER"},
)

// BowelMovement as collected on the lifestyle step.
var BowelMovement = NewTable("bowelMovement", "",
	Option{Label: "Regular", Token: "REGULAR", Aliases: []string{"normal"}},
	Option{Label: "Constipation", Token: "CONSTIPATION", Aliases: []string{"constipated"}},
	Option{Label: "Loose", Token: "LOOSE", Aliases: []string{"loose motion", "loose motions"}},
	Option{Label: "Irregular", Token: "IRREGULAR"},
)

// FoodPreference uses abbreviated backend tokens.
var FoodPreference = NewTable("foodPreference", "",
	Option{Label: "Vegetarian", Token: "VEG", Aliases: []string{"veg"}},
	Option{Label: "Non-Vegetarian", Token: "NON_VEG", Aliases: []string{"non veg", "non-veg", "nonveg", "non vegetarian"}},
	Option{Label: "Eggetarian", Token: "EGGETARIAN"},
	Option{Label: "Vegan", Token: "VEGAN"},
)

// SleepQuality as collected on the lifestyle step.
var SleepQuality = NewTable("sleepQuality", "",
	Option{Label: "Good", Token: "GOOD", Aliases: []string{"sound"}},
	Option{Label: "Average", Token: "AVERAGE", Aliases: []string{"moderate"}},
	Option{Label: "Poor", Token: "POOR", Aliases: []string{"disturbed"}},
)

// AppointmentMode collapses every spelling into one of two tokens; blank input
// defaults to an online consultation.
var AppointmentMode = NewTable("appointmentMode", ModeOnline,
	Option{Label: "In-person", Token: ModeInPerson, Aliases: []string{"in person", "offline", "clinic", "in-clinic", "in_person"}},
	Option{Label: "Online", Token: ModeOnline, Aliases: []string{"video", "virtual", "tele", "teleconsultation"}},
)

// MealType for recall entries.
var MealType = NewTable("mealType", "",
	Option{Label: "Early Morning", Token: "EARLY_MORNING"},
	Option{Label: "Breakfast", Token: "BREAKFAST"},
	Option{Label: "Mid-Morning Snack", Token: "MID_MORNING_SNACK"},
	Option{Label: "Lunch", Token: "LUNCH"},
	Option{Label: "Evening Snack", Token: "EVENING_SNACK"},
	Option{Label: "Dinner", Token: "DINNER"},
	Option{Label: "Bedtime", Token: "BEDTIME"},
	Option{Label: "Other", Token: "OTHER"},
)

// Appointment mode tokens.
const (
	ModeInPerson = "IN_PERSON"
	ModeOnline   = "ONLINE"
)

// NormalizeMode always yields ModeInPerson or ModeOnline.
func NormalizeMode(label string) string {
	if AppointmentMode.Token(label) == ModeInPerson {
		return ModeInPerson
	}
	return ModeOnline
}

// BookingProgress marks how far an appointment's booking has reached.
type BookingProgress string

const (
	ProgressUserDetails BookingProgress = "USER_DETAILS"
	ProgressRecall      BookingProgress = "RECALL"
	ProgressSlot        BookingProgress = "SLOT"
	ProgressPayment     BookingProgress = "PAYMENT"
)

// AppointmentStatus as issued by the backend.
type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "PENDING"
	StatusConfirmed AppointmentStatus = "CONFIRMED"
	StatusCancelled AppointmentStatus = "CANCELLED"
)
