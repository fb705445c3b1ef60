package models

import "time"

// Settings are per-user preferences loaded when a session opens.
type Settings struct {
	UserID           string    `db:"user_id" json:"user_id"`
	RiskThreshold    float64   `db:"risk_threshold" json:"risk_threshold"`
	SuggestionCount  int       `db:"suggestion_count" json:"suggestion_count"`
	Theme            string    `db:"theme" json:"theme"`
	Language         string    `db:"language" json:"language"`
	SuggestionAlerts bool      `db:"suggestion_alerts" json:"suggestion_alerts"`
	ValidationAlerts bool      `db:"validation_alerts" json:"validation_alerts"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// SessionInfo describes an open session.
type SessionInfo struct {
	ID       string    `json:"id"`
	UserID   string    `json:"user_id"`
	Role     UserRole  `json:"role"`
	OpenedAt time.Time `json:"opened_at"`
	Settings Settings  `json:"settings"`
}
