package models

import "time"

// Suggestion is a ranked remediation exercise. Regenerated per request, never persisted.
type Suggestion struct {
	ID            string     `json:"id"`
	ExerciseID    string     `json:"exercise_id"`
	ExerciseTitle string     `json:"exercise_title"`
	SubjectID     string     `json:"subject_id"`
	SubjectName   string     `json:"subject_name"`
	Priority      int        `json:"priority"`
	Reason        string     `json:"reason"`
	CurrentGrade  *float64   `json:"current_grade,omitempty"`
	Difficulty    Difficulty `json:"difficulty"`
}

// SuggestionFeedback is a usefulness signal recorded for a suggestion.
type SuggestionFeedback struct {
	ID           string     `db:"id" json:"id"`
	SuggestionID string     `db:"suggestion_id" json:"suggestion_id"`
	UserID       string     `db:"user_id" json:"user_id"`
	Useful       bool       `db:"useful" json:"useful"`
	Delivered    bool       `db:"delivered" json:"delivered"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	DeliveredAt  *time.Time `db:"delivered_at" json:"delivered_at,omitempty"`
}
