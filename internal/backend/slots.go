package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
)

// Slot is a bookable time unit for one date and mode.
type Slot struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	StartTime string `json:"startTime,omitempty"`
	EndTime   string `json:"endTime,omitempty"`
	Available *bool  `json:"available,omitempty"`
}

// slotList accepts both a bare array and a {"data": [...]} envelope.
type slotList []Slot

func (l *slotList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var slots []Slot
		if err := json.Unmarshal(data, &slots); err != nil {
			return err
		}
		*l = slots
		return nil
	}
	var envelope struct {
		Data  []Slot `json:"data"`
		Slots []Slot `json:"slots"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return err
	}
	if envelope.Data != nil {
		*l = envelope.Data
	} else {
		*l = envelope.Slots
	}
	return nil
}

// AvailableSlots lists the open slots for a YYYY-MM-DD date and mode token.
func (c *Client) AvailableSlots(ctx context.Context, date, mode string) ([]Slot, error) {
	query := url.Values{}
	query.Set("date", date)
	query.Set("mode", mode)
	var list slotList
	if err := c.doJSON(ctx, "available_slots", http.MethodGet, "/slots/available", query, nil, &list); err != nil {
		return nil, err
	}
	out := make([]Slot, 0, len(list))
	for _, s := range list {
		if s.Available != nil && !*s.Available {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}
