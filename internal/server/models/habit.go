package models

import "time"

// Habit is a user-owned habit with its per-day completion records.
type Habit struct {
	ID        string        `json:"id"`
	UserID    string        `json:"-"`
	Title     string        `json:"title"`
	Records   []HabitRecord `json:"records"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// HabitRecord marks a habit done (or explicitly not done) on a calendar day.
// Date uses the YYYY-MM-DD form the client sends.
type HabitRecord struct {
	Date string `json:"date"`
	Done bool   `json:"done"`
}
