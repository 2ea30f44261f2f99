package bookingform

import (
	"strings"

	"github.com/google/uuid"
)

// RecallEntry is one line of the food recall: what was eaten, when, how much.
type RecallEntry struct {
	ID       string `json:"id"`
	MealType string `json:"mealType"`
	Time     string `json:"time"`
	FoodItem string `json:"foodItem"`
	Quantity string `json:"quantity"`
	Notes    string `json:"notes,omitempty"`
}

// NewRecallEntry returns an empty entry with a client-generated id.
func NewRecallEntry() RecallEntry {
	return RecallEntry{ID: uuid.NewString()}
}

// Complete reports whether the four required sub-fields are present.
func (e RecallEntry) Complete() bool {
	return strings.TrimSpace(e.MealType) != "" &&
		strings.TrimSpace(e.Time) != "" &&
		strings.TrimSpace(e.FoodItem) != "" &&
		strings.TrimSpace(e.Quantity) != ""
}

// RecallEntryPatch updates selected sub-fields of an entry.
type RecallEntryPatch struct {
	MealType *string `json:"mealType,omitempty"`
	Time     *string `json:"time,omitempty"`
	FoodItem *string `json:"foodItem,omitempty"`
	Quantity *string `json:"quantity,omitempty"`
	Notes    *string `json:"notes,omitempty"`
}

// Apply merges p into e.
func (e *RecallEntry) Apply(p RecallEntryPatch) {
	set(&e.MealType, p.MealType)
	set(&e.Time, p.Time)
	set(&e.FoodItem, p.FoodItem)
	set(&e.Quantity, p.Quantity)
	set(&e.Notes, p.Notes)
}
