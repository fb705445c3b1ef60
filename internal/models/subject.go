package models

// Subject represents an academic subject.
type Subject struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Coefficient float64 `json:"coefficient"`
}

// Difficulty grades a remediation exercise. Lower is easier.
type Difficulty int

const (
	DifficultyEasy   Difficulty = 1
	DifficultyMedium Difficulty = 2
	DifficultyHard   Difficulty = 3
)

// Valid reports whether d is one of the known levels.
func (d Difficulty) Valid() bool {
	return d >= DifficultyEasy && d <= DifficultyHard
}

func (d Difficulty) String() string {
	switch d {
	case DifficultyEasy:
		return "easy"
	case DifficultyMedium:
		return "medium"
	case DifficultyHard:
		return "hard"
	default:
		return "unknown"
	}
}

// Exercise is a catalog entry tagged by subject and difficulty.
type Exercise struct {
	ID          string     `json:"id"`
	SubjectID   string     `json:"subject_id"`
	SubjectName string     `json:"subject_name"`
	Title       string     `json:"title"`
	Difficulty  Difficulty `json:"difficulty"`
}
