package models

import (
	"time"
)

// LogEntry is one registered dive. Date carries only the calendar day;
// a zero Date means the row had no readable date.
type LogEntry struct {
	Date      time.Time `json:"date"`
	Site      string    `json:"site"`
	Diver     string    `json:"diver"`
	Remarks   string    `json:"remarks,omitempty"`
	EnteredBy string    `json:"enteredBy"`
	Timestamp time.Time `json:"timestamp"`
}

// DateOnly truncates t to midnight UTC of its calendar day.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
