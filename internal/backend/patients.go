package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// PatientRequest is the body of POST /patients.
type PatientRequest struct {
	Name                string   `json:"name"`
	Phone               string   `json:"phone"`
	Gender              string   `json:"gender"`
	Email               string   `json:"email"`
	DOB                 string   `json:"dob"`
	Age                 int      `json:"age"`
	Address             string   `json:"address"`
	Weight              float64  `json:"weight"`
	Height              float64  `json:"height"`
	Neck                float64  `json:"neck"`
	Waist               float64  `json:"waist"`
	Hip                 float64  `json:"hip"`
	MedicalHistory      string   `json:"medicalHistory,omitempty"`
	AppointmentConcerns string   `json:"appointmentConcerns,omitempty"`
	BowelMovement       string   `json:"bowelMovement"`
	FoodPreference      string   `json:"foodPreference"`
	Allergies           string   `json:"allergies,omitempty"`
	DailyFoodIntake     string   `json:"dailyFoodIntake,omitempty"`
	WaterIntake         float64  `json:"waterIntake"`
	WakeUpTime          string   `json:"wakeUpTime"`
	SleepTime           string   `json:"sleepTime"`
	SleepQuality        string   `json:"sleepQuality"`
	FileIDs             []string `json:"fileIds"`
}

// Patient is the subset of the created patient the booking flow needs.
type Patient struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

type patientResponse struct {
	Success bool    `json:"success"`
	Patient Patient `json:"patient"`
}

// CreatePatient registers a new patient record. Every call creates a new one.
func (c *Client) CreatePatient(ctx context.Context, req PatientRequest) (Patient, error) {
	if req.FileIDs == nil {
		req.FileIDs = []string{}
	}
	var resp patientResponse
	if err := c.doJSON(ctx, "create_patient", http.MethodPost, "/patients", nil, req, &resp); err != nil {
		return Patient{}, err
	}
	if strings.TrimSpace(resp.Patient.ID) == "" {
		return Patient{}, fmt.Errorf("backend: create_patient: response missing patient id")
	}
	return resp.Patient, nil
}

// LinkFiles attaches already-uploaded files to a patient.
func (c *Client) LinkFiles(ctx context.Context, patientID string, fileIDs []string) error {
	if strings.TrimSpace(patientID) == "" {
		return fmt.Errorf("backend: link_files: patient id required")
	}
	body := map[string][]string{"fileIds": fileIDs}
	path := "/patients/" + url.PathEscape(patientID) + "/files"
	return c.doJSON(ctx, "link_files", http.MethodPatch, path, nil, body, nil)
}
