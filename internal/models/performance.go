package models

import "time"

// SubjectAverage is derived per aggregation. Average is nil when SampleCount is zero.
type SubjectAverage struct {
	SubjectID   string   `json:"subject_id"`
	SubjectName string   `json:"subject_name"`
	Average     *float64 `json:"average"`
	SampleCount int      `json:"sample_count"`
}

// Level bands the global average.
type Level string

const (
	LevelExpert       Level = "expert"
	LevelIntermediate Level = "intermediate"
	LevelBeginner     Level = "beginner"
	LevelCritical     Level = "critical"
)

// LevelFor returns the band an average falls into.
func LevelFor(average float64) Level {
	switch {
	case average >= 16:
		return LevelExpert
	case average >= 12:
		return LevelIntermediate
	case average >= 10:
		return LevelBeginner
	default:
		return LevelCritical
	}
}

// PerformanceSummary is the aggregation output for one student.
type PerformanceSummary struct {
	GlobalAverage  *float64         `json:"global_average"`
	PerSubject     []SubjectAverage `json:"per_subject"`
	BestSubject    *string          `json:"best_subject"`
	WeakestSubject *string          `json:"weakest_subject"`
	TotalGrades    int              `json:"total_grades"`
	Level          *Level           `json:"level"`
}

// Trend classifies a student's trajectory.
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendDeclining Trend = "declining"
	TrendStable    Trend = "stable"
)

// SubjectRisk flags a subject whose average sits under the risk threshold.
type SubjectRisk struct {
	SubjectID             string     `json:"subject_id"`
	SubjectName           string     `json:"subject_name"`
	Average               float64    `json:"average"`
	Priority              int        `json:"priority"`
	RecommendedDifficulty Difficulty `json:"recommended_difficulty"`
}

// Performance is the snapshot served for a student: summary, trend and risks.
type Performance struct {
	StudentID   string             `json:"student_id"`
	Summary     PerformanceSummary `json:"summary"`
	Trend       Trend              `json:"trend"`
	Risks       []SubjectRisk      `json:"risks"`
	Threshold   float64            `json:"threshold"`
	GeneratedAt time.Time          `json:"generated_at"`
	Stale       bool               `json:"stale"`
}
