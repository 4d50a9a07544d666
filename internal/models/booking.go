package models

import (
	"encoding/json"
	"time"
)

// Booking is one confirmed slot. ClassName is a snapshot of the class name at
// booking time; a later class rename must not rewrite history.
type Booking struct {
	ID          int64     `json:"id"`
	ClassID     int64     `json:"class_id"`
	ClassName   string    `json:"class_name"`
	ClientName  string    `json:"client_name"`
	ClientEmail string    `json:"client_email"`
	CreatedAt   time.Time `json:"created_at"`
}

// Entry is a booking payload exactly as received on the wire. Fields stay raw
// so the validator can tell a missing field from a wrongly typed one, and the
// original bytes are kept so a rejected entry is echoed back verbatim,
// unknown keys included.
type Entry struct {
	ClassID     json.RawMessage `json:"class_id,omitempty"`
	ClientName  json.RawMessage `json:"client_name,omitempty"`
	ClientEmail json.RawMessage `json:"client_email,omitempty"`

	raw json.RawMessage
}

func (e *Entry) UnmarshalJSON(data []byte) error {
	type entryFields Entry
	var fields entryFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	fields.raw = append(json.RawMessage(nil), data...)
	*e = Entry(fields)
	return nil
}

func (e Entry) MarshalJSON() ([]byte, error) {
	if len(e.raw) > 0 {
		return e.raw, nil
	}
	type entryFields Entry
	return json.Marshal(entryFields(e))
}

// BookingRequest is a validated entry with concrete types.
type BookingRequest struct {
	ClassID     int64
	ClientName  string
	ClientEmail string
}

// BookingResult is one per-entry outcome in a batch response: either an
// inline error or a confirmation echoing the booking fields.
type BookingResult struct {
	Message     string `json:"message,omitempty"`
	Error       string `json:"error,omitempty"`
	ClassID     int64  `json:"class_id,omitempty"`
	ClassName   string `json:"class_name,omitempty"`
	ClientName  string `json:"client_name,omitempty"`
	ClientEmail string `json:"client_email,omitempty"`
}
