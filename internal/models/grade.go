package models

import (
	"errors"
	"fmt"
	"time"
)

// Grade bounds on the 0-20 scale.
const (
	GradeMin = 0.0
	GradeMax = 20.0
)

// ErrIllegalTransition is returned when a state machine is asked to move backwards.
var ErrIllegalTransition = errors.New("illegal state transition")

// EvaluationType categorises the assessment a grade came from.
type EvaluationType string

const (
	EvaluationExam     EvaluationType = "exam"
	EvaluationHomework EvaluationType = "homework"
	EvaluationLab      EvaluationType = "lab"
)

// ValidationState is the grade workflow state. Pending grades become validated exactly once.
type ValidationState string

const (
	GradePending   ValidationState = "pending"
	GradeValidated ValidationState = "validated"
)

// Transition returns the state reached by moving s to next. Moving to the current state
// is allowed and returns it unchanged.
func (s ValidationState) Transition(next ValidationState) (ValidationState, error) {
	switch {
	case s == next && (s == GradePending || s == GradeValidated):
		return s, nil
	case s == GradePending && next == GradeValidated:
		return next, nil
	default:
		return s, fmt.Errorf("%w: grade %s -> %s", ErrIllegalTransition, s, next)
	}
}

// GradeRecord is a single grade as delivered by the academic API.
type GradeRecord struct {
	ID             string          `json:"id"`
	StudentID      string          `json:"student_id"`
	SubjectID      string          `json:"subject_id"`
	SubjectName    string          `json:"subject_name"`
	Value          float64         `json:"value"`
	EvaluationType EvaluationType  `json:"evaluation_type"`
	Date           time.Time       `json:"date"`
	State          ValidationState `json:"state"`
	Observation    *string         `json:"observation,omitempty"`
}

// Validated reports whether the grade reached the terminal state.
func (g GradeRecord) Validated() bool {
	return g.State == GradeValidated
}

// InRange reports whether v is a finite grade on the 0-20 scale.
func InRange(v float64) bool {
	return v >= GradeMin && v <= GradeMax
}

// GradeSubmission is the payload for creating a pending grade.
type GradeSubmission struct {
	StudentID      string     `json:"student_id" validate:"required"`
	SubjectID      string     `json:"subject_id" validate:"required"`
	Value          *float64   `json:"value" validate:"required,gte=0,lte=20"`
	EvaluationType string     `json:"evaluation_type" validate:"omitempty,oneof=exam homework lab"`
	Date           *time.Time `json:"date" validate:"required"`
	Observation    *string    `json:"observation,omitempty" validate:"omitempty,max=500"`
}

// BulkRejection reports why one input row of a bulk submission was refused.
type BulkRejection struct {
	Index  int             `json:"index"`
	Input  GradeSubmission `json:"input"`
	Reason string          `json:"reason"`
}

// BulkAccepted pairs an accepted input row with the record the API created.
type BulkAccepted struct {
	Index  int         `json:"index"`
	Record GradeRecord `json:"record"`
}

// BulkResult is the outcome of a bulk submission. Both lists follow input order.
type BulkResult struct {
	Accepted []BulkAccepted  `json:"accepted"`
	Rejected []BulkRejection `json:"rejected"`
}
