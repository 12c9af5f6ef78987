package models

import "time"

// User is a read-only projection of the authenticated account.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
}

// EmergencyContact is notified when the owner triggers an SOS. Contacts are
// created and deleted, never edited in place.
type EmergencyContact struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	PhoneNumber  string `json:"phoneNumber"`
	Relationship string `json:"relationship"`
}

// Location is one captured device position. Immutable once recorded.
type Location struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Timestamp time.Time `json:"timestamp"`
}
