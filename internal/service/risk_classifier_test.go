package service

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academic-insights/internal/models"
	appErrors "github.com/noah-isme/academic-insights/pkg/errors"
)

func subjectAvg(id string, avg float64, samples int) models.SubjectAverage {
	return models.SubjectAverage{SubjectID: id, SubjectName: id, Average: &avg, SampleCount: samples}
}

func TestClassifyRiskExample(t *testing.T) {
	summary, err := AggregateGrades(exampleGrades())
	require.NoError(t, err)

	risks, err := ClassifyRisk(summary.PerSubject, DefaultRiskThreshold)
	require.NoError(t, err)
	require.Len(t, risks, 1)
	assert.Equal(t, "Physics", risks[0].SubjectName)
	assert.Equal(t, 8.0, risks[0].Average)
	assert.Equal(t, 20, risks[0].Priority)
	assert.Equal(t, models.DifficultyMedium, risks[0].RecommendedDifficulty)
}

func TestClassifyRiskOrdering(t *testing.T) {
	risks, err := ClassifyRisk([]models.SubjectAverage{
		subjectAvg("a", 9, 2),
		subjectAvg("b", 5, 1),
		subjectAvg("c", 9, 3),
		subjectAvg("d", 12, 1),
	}, 10)
	require.NoError(t, err)
	require.Len(t, risks, 3)
	assert.Equal(t, []string{"b", "a", "c"}, []string{risks[0].SubjectID, risks[1].SubjectID, risks[2].SubjectID})
	assert.Equal(t, 50, risks[0].Priority)
	assert.Equal(t, models.DifficultyEasy, risks[0].RecommendedDifficulty)
	assert.Equal(t, 10, risks[1].Priority)
}

func TestClassifyRiskSkipsSubjectsWithoutSamples(t *testing.T) {
	risks, err := ClassifyRisk([]models.SubjectAverage{
		{SubjectID: "empty", SubjectName: "Empty"},
		subjectAvg("zero", 0, 0),
	}, 10)
	require.NoError(t, err)
	assert.Empty(t, risks)
}

func TestClassifyRiskZeroAverageIsMaximal(t *testing.T) {
	risks, err := ClassifyRisk([]models.SubjectAverage{subjectAvg("a", 0, 1)}, 10)
	require.NoError(t, err)
	require.Len(t, risks, 1)
	assert.Equal(t, 100, risks[0].Priority)
}

func TestClassifyRiskInvalidThreshold(t *testing.T) {
	for _, threshold := range []float64{0, -1, 20.5, math.NaN(), math.Inf(1)} {
		_, err := ClassifyRisk([]models.SubjectAverage{subjectAvg("a", 5, 1)}, threshold)
		require.Error(t, err)
		assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
	}
}

func TestClassifyRiskRejectsInvalidAverage(t *testing.T) {
	_, err := ClassifyRisk([]models.SubjectAverage{subjectAvg("a", -2, 1)}, 10)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestClassifyRiskProperties(t *testing.T) {
	for _, threshold := range []float64{5, 10, 12, 20} {
		perSubject := make([]models.SubjectAverage, 0)
		for avg := 0.0; avg <= 20; avg += 0.25 {
			perSubject = append(perSubject, subjectAvg("s", avg, 1))
		}

		risks, err := ClassifyRisk(perSubject, threshold)
		require.NoError(t, err)

		for i, r := range risks {
			assert.Less(t, r.Average, threshold)
			assert.GreaterOrEqual(t, r.Priority, 0)
			assert.LessOrEqual(t, r.Priority, 100)
			if i > 0 {
				assert.LessOrEqual(t, risks[i-1].Average, r.Average)
				assert.GreaterOrEqual(t, risks[i-1].Priority, r.Priority)
			}
		}
	}
}
