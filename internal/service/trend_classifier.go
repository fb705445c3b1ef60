package service

import (
	"sort"

	"github.com/noah-isme/academic-insights/internal/models"
)

// DefaultTrendEpsilon is the mean difference, in grade points, below which a trajectory is stable.
const DefaultTrendEpsilon = 0.5

// TrendOptions tunes ClassifyTrend.
type TrendOptions struct {
	// Epsilon defaults to DefaultTrendEpsilon when not positive.
	Epsilon float64
	// Window compares the last Window records against the rest when positive and smaller
	// than the record count. Otherwise the records are split in two halves.
	Window int
}

// ClassifyTrend compares the mean of recent grades against older ones. With an odd count
// the older half gets the extra record. Fewer than two usable records is stable.
// Out-of-range records are skipped; AggregateGrades reports them.
func ClassifyTrend(records []models.GradeRecord, opts TrendOptions) models.Trend {
	epsilon := opts.Epsilon
	if !(epsilon > 0) {
		epsilon = DefaultTrendEpsilon
	}

	ordered := make([]models.GradeRecord, 0, len(records))
	for _, record := range records {
		if models.InRange(record.Value) {
			ordered = append(ordered, record)
		}
	}
	if len(ordered) < 2 {
		return models.TrendStable
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].Date.Equal(ordered[j].Date) {
			return ordered[i].Date.Before(ordered[j].Date)
		}
		return ordered[i].ID < ordered[j].ID
	})

	recentSize := len(ordered) / 2
	if opts.Window > 0 && opts.Window < len(ordered) {
		recentSize = opts.Window
	}
	split := len(ordered) - recentSize

	diff := meanOf(ordered[split:]) - meanOf(ordered[:split])
	switch {
	case diff > epsilon:
		return models.TrendImproving
	case diff < -epsilon:
		return models.TrendDeclining
	default:
		return models.TrendStable
	}
}

func meanOf(records []models.GradeRecord) float64 {
	sum := 0.0
	for _, record := range records {
		sum += record.Value
	}
	return sum / float64(len(records))
}
