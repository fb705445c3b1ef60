package service

import (
	"fmt"
	"sort"

	"github.com/noah-isme/academic-insights/internal/models"
	appErrors "github.com/noah-isme/academic-insights/pkg/errors"
)

type suggestionCandidate struct {
	suggestion models.Suggestion
	riskOrder  int
	catalogPos int
}

// PrioritizeSuggestions ranks catalog exercises of at-risk subjects and keeps at most nb.
// Each exercise inherits its subject's risk priority. Ties go to the easier exercise, then to
// the riskier subject, then to catalog order. Missing candidates are not backfilled.
func PrioritizeSuggestions(risks []models.SubjectRisk, catalog []models.Exercise, nb int) ([]models.Suggestion, error) {
	if nb <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("suggestion count %d must be positive", nb))
	}

	byID := make(map[string]int, len(risks))
	byName := make(map[string]int, len(risks))
	for i, risk := range risks {
		if _, ok := byID[risk.SubjectID]; !ok && risk.SubjectID != "" {
			byID[risk.SubjectID] = i
		}
		if _, ok := byName[risk.SubjectName]; !ok && risk.SubjectName != "" {
			byName[risk.SubjectName] = i
		}
	}

	candidates := make([]suggestionCandidate, 0)
	for pos, exercise := range catalog {
		riskIdx, ok := matchRisk(exercise, byID, byName)
		if !ok {
			continue
		}
		risk := risks[riskIdx]
		current := risk.Average
		candidates = append(candidates, suggestionCandidate{
			suggestion: models.Suggestion{
				ID:            exercise.ID,
				ExerciseID:    exercise.ID,
				ExerciseTitle: exercise.Title,
				SubjectID:     risk.SubjectID,
				SubjectName:   risk.SubjectName,
				Priority:      risk.Priority,
				Reason:        suggestionReason(risk.SubjectName, risk.Average),
				CurrentGrade:  &current,
				Difficulty:    exercise.Difficulty,
			},
			riskOrder:  riskIdx,
			catalogPos: pos,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.suggestion.Priority != b.suggestion.Priority {
			return a.suggestion.Priority > b.suggestion.Priority
		}
		if da, db := difficultyRank(a.suggestion.Difficulty), difficultyRank(b.suggestion.Difficulty); da != db {
			return da < db
		}
		if a.riskOrder != b.riskOrder {
			return a.riskOrder < b.riskOrder
		}
		return a.catalogPos < b.catalogPos
	})

	if len(candidates) > nb {
		candidates = candidates[:nb]
	}
	result := make([]models.Suggestion, len(candidates))
	for i, c := range candidates {
		result[i] = c.suggestion
	}
	return result, nil
}

// An exercise tagged only by subject name falls back to matching on name.
func matchRisk(exercise models.Exercise, byID, byName map[string]int) (int, bool) {
	if exercise.SubjectID != "" {
		idx, ok := byID[exercise.SubjectID]
		return idx, ok
	}
	idx, ok := byName[exercise.SubjectName]
	return idx, ok
}

// Unknown difficulties rank after hard ones.
func difficultyRank(d models.Difficulty) int {
	if !d.Valid() {
		return int(models.DifficultyHard) + 1
	}
	return int(d)
}

func suggestionReason(subject string, average float64) string {
	switch {
	case average < 8:
		return fmt.Sprintf("Urgent: your %s average is %.1f/20, start with the basics", subject, average)
	case average < 10:
		return fmt.Sprintf("Needs work: your %s average is %.1f/20, below the pass mark", subject, average)
	case average < 12:
		return fmt.Sprintf("Fair: consolidate %s, your average is %.1f/20", subject, average)
	default:
		return fmt.Sprintf("Already good in %s (%.1f/20), keep practising", subject, average)
	}
}
