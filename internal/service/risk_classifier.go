package service

import (
	"fmt"
	"math"
	"sort"

	"github.com/noah-isme/academic-insights/internal/models"
	appErrors "github.com/noah-isme/academic-insights/pkg/errors"
)

// DefaultRiskThreshold is the pass mark on the 0-20 scale.
const DefaultRiskThreshold = 10.0

// ClassifyRisk returns every subject whose average is under threshold, highest priority first.
// Priority is round((threshold-average)/threshold*100) clamped to [0,100]; equal priorities keep
// input order. Subjects without samples never appear.
func ClassifyRisk(perSubject []models.SubjectAverage, threshold float64) ([]models.SubjectRisk, error) {
	if err := checkThreshold(threshold); err != nil {
		return nil, err
	}

	risks := make([]models.SubjectRisk, 0)
	for _, subject := range perSubject {
		if subject.SampleCount == 0 || subject.Average == nil {
			continue
		}
		avg := *subject.Average
		if !models.InRange(avg) {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("average %v for subject %s is outside [0,20]", avg, subject.SubjectName))
		}
		if avg >= threshold {
			continue
		}
		risks = append(risks, models.SubjectRisk{
			SubjectID:             subject.SubjectID,
			SubjectName:           subject.SubjectName,
			Average:               avg,
			Priority:              riskPriority(avg, threshold),
			RecommendedDifficulty: recommendedDifficulty(avg),
		})
	}

	sort.SliceStable(risks, func(i, j int) bool {
		return risks[i].Priority > risks[j].Priority
	})
	return risks, nil
}

func checkThreshold(threshold float64) error {
	if math.IsNaN(threshold) || threshold <= 0 || threshold > models.GradeMax {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("risk threshold %v must be in (0,20]", threshold))
	}
	return nil
}

func riskPriority(average, threshold float64) int {
	p := math.Round((threshold - average) / threshold * 100)
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	default:
		return int(p)
	}
}

func recommendedDifficulty(average float64) models.Difficulty {
	switch {
	case average < 8:
		return models.DifficultyEasy
	case average < 12:
		return models.DifficultyMedium
	default:
		return models.DifficultyHard
	}
}
