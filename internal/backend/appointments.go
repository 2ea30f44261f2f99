package backend

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// AppointmentRequest is the body of POST /appointments.
type AppointmentRequest struct {
	PatientID       string  `json:"patientId"`
	PlanSlug        string  `json:"planSlug"`
	PlanName        string  `json:"planName"`
	PlanPrice       float64 `json:"planPrice"`
	PlanDuration    string  `json:"planDuration"`
	PlanPackageName string  `json:"planPackageName,omitempty"`
	AppointmentMode string  `json:"appointmentMode"`
	Status          string  `json:"status,omitempty"`
	BookingProgress string  `json:"bookingProgress"`
}

// Appointment is a created appointment.
type Appointment struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	StartAt string `json:"startAt,omitempty"`
	EndAt   string `json:"endAt,omitempty"`
}

type appointmentResponse struct {
	Success bool        `json:"success"`
	Data    Appointment `json:"data"`
}

// CreateAppointment opens a PENDING appointment for a patient.
func (c *Client) CreateAppointment(ctx context.Context, req AppointmentRequest) (Appointment, error) {
	var resp appointmentResponse
	if err := c.doJSON(ctx, "create_appointment", http.MethodPost, "/appointments", nil, req, &resp); err != nil {
		return Appointment{}, err
	}
	if strings.TrimSpace(resp.Data.ID) == "" {
		return Appointment{}, fmt.Errorf("backend: create_appointment: response missing appointment id")
	}
	return resp.Data, nil
}

// RecallEntryRequest is one recall line as the backend expects it.
type RecallEntryRequest struct {
	MealType string `json:"mealType"`
	Time     string `json:"time"`
	FoodItem string `json:"foodItem"`
	Quantity string `json:"quantity"`
	Notes    string `json:"notes,omitempty"`
}

// RecallRequest is the body of POST /recalls.
type RecallRequest struct {
	PatientID     string               `json:"patientId"`
	Notes         string               `json:"notes,omitempty"`
	Entries       []RecallEntryRequest `json:"entries"`
	AppointmentID string               `json:"appointmentId,omitempty"`
}

// Recall is a created recall record.
type Recall struct {
	ID            string `json:"id"`
	PatientID     string `json:"patientId,omitempty"`
	AppointmentID string `json:"appointmentId,omitempty"`
}

type recallResponse struct {
	Success bool   `json:"success"`
	Data    Recall `json:"data"`
}

// CreateRecall stores the food recall, linked to an appointment when given.
func (c *Client) CreateRecall(ctx context.Context, req RecallRequest) (Recall, error) {
	var resp recallResponse
	if err := c.doJSON(ctx, "create_recall", http.MethodPost, "/recalls", nil, req, &resp); err != nil {
		return Recall{}, err
	}
	return resp.Data, nil
}
