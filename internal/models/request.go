package models

import "time"

// TravelPeriod uses plain YYYY-MM-DD strings. Dates are advisory input
// from the client form; the agency interprets them when quoting.
type TravelPeriod struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Flexible  bool   `json:"flexible"`
}

type Passengers struct {
	Adults   int `json:"adults"`
	Children int `json:"children"`
	Babies   int `json:"babies"`
}

// TravelPreferences is stored as a single JSON document inside the
// travel_requests row, document-store style.
type TravelPreferences struct {
	TravelPeriod      TravelPeriod `json:"travel_period"`
	DaysAvailable     int          `json:"days_available"`
	Passengers        Passengers   `json:"passengers"`
	Destinations      []string     `json:"destinations"`
	AccommodationType []string     `json:"accommodation_type"`
	Activities        []string     `json:"activities"`
	OtherPreferences  string       `json:"other_preferences"`
}

type TravelRequest struct {
	ID          string            `json:"id"`
	UserID      string            `json:"user_id"`
	UserEmail   string            `json:"user_email"`
	UserName    string            `json:"user_name"`
	Preferences TravelPreferences `json:"preferences"`
	Status      string            `json:"status"` // pending, quoted, accepted, rejected
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	Version     int64             `json:"version"`
}
