package service

import (
	"fmt"

	"github.com/noah-isme/academic-insights/internal/models"
	appErrors "github.com/noah-isme/academic-insights/pkg/errors"
)

type subjectBucket struct {
	id    string
	name  string
	sum   float64
	count int
}

// AggregateGrades computes per-subject averages, the global average and the best and weakest
// subjects for one student's grades. Subjects keep the order they are first met in records.
// Out-of-range values abort the aggregation with a validation error naming the record.
func AggregateGrades(records []models.GradeRecord) (*models.PerformanceSummary, error) {
	summary := &models.PerformanceSummary{PerSubject: []models.SubjectAverage{}}
	if len(records) == 0 {
		return summary, nil
	}

	index := make(map[string]int)
	buckets := make([]*subjectBucket, 0)
	total := 0.0
	for i, record := range records {
		if err := checkRecord(i, record); err != nil {
			return nil, err
		}
		pos, ok := index[record.SubjectID]
		if !ok {
			pos = len(buckets)
			index[record.SubjectID] = pos
			buckets = append(buckets, &subjectBucket{id: record.SubjectID, name: record.SubjectName})
		}
		b := buckets[pos]
		if b.name == "" {
			b.name = record.SubjectName
		}
		b.sum += record.Value
		b.count++
		total += record.Value
	}

	var best, weakest *models.SubjectAverage
	for _, b := range buckets {
		avg := b.sum / float64(b.count)
		summary.PerSubject = append(summary.PerSubject, models.SubjectAverage{
			SubjectID:   b.id,
			SubjectName: b.name,
			Average:     &avg,
			SampleCount: b.count,
		})
	}
	for i := range summary.PerSubject {
		entry := &summary.PerSubject[i]
		if best == nil || *entry.Average > *best.Average {
			best = entry
		}
		if weakest == nil || *entry.Average < *weakest.Average {
			weakest = entry
		}
	}

	global := total / float64(len(records))
	level := models.LevelFor(global)
	bestName := best.SubjectName
	weakestName := weakest.SubjectName
	summary.GlobalAverage = &global
	summary.BestSubject = &bestName
	summary.WeakestSubject = &weakestName
	summary.TotalGrades = len(records)
	summary.Level = &level
	return summary, nil
}

func checkRecord(i int, record models.GradeRecord) error {
	details := map[string]interface{}{"index": i, "grade_id": record.ID}
	if record.SubjectID == "" {
		return appErrors.WithDetails(appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("grade %s has no subject", gradeLabel(i, record))), details)
	}
	if !models.InRange(record.Value) {
		return appErrors.WithDetails(appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("grade %s value %v is outside [0,20]", gradeLabel(i, record), record.Value)), details)
	}
	return nil
}

func gradeLabel(i int, record models.GradeRecord) string {
	if record.ID != "" {
		return record.ID
	}
	return fmt.Sprintf("#%d", i)
}
