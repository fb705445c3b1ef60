package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/academic-insights/internal/models"
	appErrors "github.com/noah-isme/academic-insights/pkg/errors"
)

type gradeFetcher interface {
	FetchGrades(ctx context.Context, studentID string) ([]models.GradeRecord, error)
}

// PerformanceService chains aggregation, trend and risk classification for a student and
// keeps the last good result per session.
type PerformanceService struct {
	api     gradeFetcher
	store   *GradeStore
	guard   *StaleGuard
	trend   TrendOptions
	metrics *MetricsService
	logger  *zap.Logger
	now     func() time.Time
}

// NewPerformanceService constructs the service.
func NewPerformanceService(api gradeFetcher, store *GradeStore, trend TrendOptions, metrics *MetricsService, logger *zap.Logger) *PerformanceService {
	if store == nil {
		store = NewGradeStore()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PerformanceService{
		api:     api,
		store:   store,
		guard:   NewStaleGuard(),
		trend:   trend,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

// Performance computes a fresh snapshot from the student's current grades. When the grades
// cannot be fetched or aggregated it returns DATA_UNAVAILABLE together with the previous
// snapshot flagged stale, or a nil snapshot if there is none. A result overtaken by a later
// request of the same session, or by the session closing, is returned to its caller but
// neither its grades nor its snapshot are kept.
func (s *PerformanceService) Performance(ctx context.Context, session *Session, studentID string) (*models.Performance, error) {
	studentID = strings.TrimSpace(studentID)
	if studentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student id is required")
	}
	ticket := s.guard.Begin(session.ID)
	session.setViewed(studentID)

	records, err := s.api.FetchGrades(ctx, studentID)
	if err != nil {
		if appErrors.IsRetryable(err) {
			return s.unavailable(session, studentID, err)
		}
		return nil, err
	}

	summary, err := AggregateGrades(records)
	if err != nil {
		return s.unavailable(session, studentID, err)
	}
	settings := session.Settings()
	risks, err := ClassifyRisk(summary.PerSubject, settings.RiskThreshold)
	if err != nil {
		return nil, err
	}

	perf := &models.Performance{
		StudentID:   studentID,
		Summary:     *summary,
		Trend:       ClassifyTrend(records, s.trend),
		Risks:       risks,
		Threshold:   settings.RiskThreshold,
		GeneratedAt: s.now().UTC(),
	}
	kept := s.guard.Commit(ticket, func() {
		s.store.Put(studentID, records, perf.GeneratedAt)
		session.storeSnapshot(perf)
	})
	if !kept {
		s.logger.Debug("performance overtaken by a newer request", zap.String("student_id", studentID))
	}
	return perf, nil
}

// Grades returns the records used by the latest computation for a student.
func (s *PerformanceService) Grades(studentID string) []models.GradeRecord {
	records, _, _ := s.store.Get(studentID)
	return records
}

// Release discards in-flight results of a closed session and the grades it last viewed.
func (s *PerformanceService) Release(session *Session) {
	s.guard.Invalidate(session.ID)
	if viewed := session.Viewed(); viewed != "" {
		s.store.Forget(viewed)
	}
}

func (s *PerformanceService) unavailable(session *Session, studentID string, cause error) (*models.Performance, error) {
	s.logger.Warn("performance unavailable", zap.String("student_id", studentID), zap.Error(cause))
	unavailable := appErrors.Wrap(cause, appErrors.ErrDataUnavailable.Code, appErrors.ErrDataUnavailable.Status, "data unavailable")
	previous := session.snapshot(studentID)
	if previous == nil {
		return nil, unavailable
	}
	previous.Stale = true
	return previous, unavailable
}
