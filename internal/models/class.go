package models

import "time"

// FitnessClass is a scheduled class with a fixed slot pool.
// ScheduledAt is stored as wall time ("2006-01-02 15:04") in the studio
// reference timezone and converted per request.
type FitnessClass struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	ScheduledAt    string    `json:"datetime"`
	Instructor     string    `json:"instructor"`
	AvailableSlots int64     `json:"available_slots"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ClassView is the transport representation of a class with the schedule
// rendered in the caller's timezone.
type ClassView struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	Datetime       string `json:"datetime"`
	Instructor     string `json:"instructor"`
	AvailableSlots int64  `json:"available_slots"`
}

// SeedClass is one record of the seed file loaded when the classes table is empty.
type SeedClass struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	Datetime       string `json:"datetime"`
	Instructor     string `json:"instructor"`
	AvailableSlots int64  `json:"available_slots"`
}
