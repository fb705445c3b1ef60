package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/academic-insights/internal/models"
	"github.com/noah-isme/academic-insights/internal/upstream"
	appErrors "github.com/noah-isme/academic-insights/pkg/errors"
	"github.com/noah-isme/academic-insights/pkg/jobs"
)

// FeedbackJobType labels feedback deliveries on the job queue.
const FeedbackJobType = "suggestion_feedback"

// FeedbackRepository keeps a local ledger of feedback and its delivery.
type FeedbackRepository interface {
	Create(ctx context.Context, feedback *models.SuggestionFeedback) error
	MarkDelivered(ctx context.Context, id string, at time.Time) error
}

type feedbackSender interface {
	SendSuggestionFeedback(ctx context.Context, suggestionID string, useful bool) error
}

type exerciseSource interface {
	Exercises(ctx context.Context, subjectID string) ([]models.Exercise, error)
}

type feedbackEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// FeedbackPayload is carried by feedback jobs.
type FeedbackPayload struct {
	FeedbackID   string
	SuggestionID string
	Useful       bool
	Token        string
}

// SuggestionService ranks remediation exercises for a student and records feedback on them.
type SuggestionService struct {
	performance    *PerformanceService
	catalog        exerciseSource
	repo           FeedbackRepository
	sender         feedbackSender
	queue          feedbackEnqueuer
	maxSuggestions int
	metrics        *MetricsService
	logger         *zap.Logger
	now            func() time.Time
}

// NewSuggestionService constructs the service. repo and queue may be nil: feedback is then
// not kept locally, or delivered inline.
func NewSuggestionService(performance *PerformanceService, catalog exerciseSource, repo FeedbackRepository, sender feedbackSender, maxSuggestions int, metrics *MetricsService, logger *zap.Logger) *SuggestionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxSuggestions <= 0 {
		maxSuggestions = 20
	}
	return &SuggestionService{
		performance:    performance,
		catalog:        catalog,
		repo:           repo,
		sender:         sender,
		maxSuggestions: maxSuggestions,
		metrics:        metrics,
		logger:         logger,
		now:            time.Now,
	}
}

// UseQueue routes feedback delivery through a job queue.
func (s *SuggestionService) UseQueue(queue feedbackEnqueuer) {
	s.queue = queue
}

// Suggestions returns at most nb suggestions for the student. nb of zero uses the session
// setting. Fewer results than requested is normal.
func (s *SuggestionService) Suggestions(ctx context.Context, session *Session, studentID string, nb int) ([]models.Suggestion, error) {
	if nb == 0 {
		nb = session.Settings().SuggestionCount
	}
	if nb > s.maxSuggestions {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("nb must not exceed %d", s.maxSuggestions))
	}
	if nb < 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "nb must be positive")
	}

	perf, err := s.performance.Performance(ctx, session, studentID)
	if err != nil {
		return nil, err
	}

	catalog := make([]models.Exercise, 0)
	for _, risk := range perf.Risks {
		exercises, err := s.catalog.Exercises(ctx, risk.SubjectID)
		if err != nil {
			return nil, err
		}
		catalog = append(catalog, exercises...)
	}

	suggestions, err := PrioritizeSuggestions(perf.Risks, catalog, nb)
	if err != nil {
		return nil, err
	}
	for i := range suggestions {
		suggestions[i].ID = perf.StudentID + ":" + suggestions[i].ExerciseID
	}
	s.metrics.ObserveSuggestions(len(suggestions))
	return suggestions, nil
}

// Feedback records whether a suggestion helped and delivers the signal to the academic API.
// Already computed suggestions are left untouched.
func (s *SuggestionService) Feedback(ctx context.Context, userID, suggestionID string, useful bool) (*models.SuggestionFeedback, error) {
	suggestionID = strings.TrimSpace(suggestionID)
	if suggestionID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "suggestion id is required")
	}
	feedback := &models.SuggestionFeedback{
		ID:           uuid.NewString(),
		SuggestionID: suggestionID,
		UserID:       userID,
		Useful:       useful,
		CreatedAt:    s.now().UTC(),
	}
	if s.repo != nil {
		start := time.Now()
		err := s.repo.Create(ctx, feedback)
		s.metrics.ObserveDBQuery("feedback_create", time.Since(start))
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record feedback")
		}
	}

	payload := FeedbackPayload{FeedbackID: feedback.ID, SuggestionID: suggestionID, Useful: useful, Token: upstream.TokenFrom(ctx)}
	if s.queue == nil {
		if err := s.Deliver(ctx, jobs.Job{ID: feedback.ID, Type: FeedbackJobType, Payload: payload}); err != nil {
			return nil, err
		}
		feedback.Delivered = true
		return feedback, nil
	}
	if err := s.queue.Enqueue(jobs.Job{ID: feedback.ID, Type: FeedbackJobType, Payload: payload}); err != nil {
		s.logger.Warn("feedback enqueue failed", zap.String("feedback_id", feedback.ID), zap.Error(err))
	}
	return feedback, nil
}

// Deliver is the job handler sending one feedback upstream.
func (s *SuggestionService) Deliver(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(FeedbackPayload)
	if !ok {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unexpected payload for job %s", job.ID))
	}
	callCtx := ctx
	if payload.Token != "" {
		callCtx = upstream.WithToken(ctx, payload.Token)
	}
	if err := s.sender.SendSuggestionFeedback(callCtx, payload.SuggestionID, payload.Useful); err != nil {
		s.metrics.ObserveFeedback("failed")
		return err
	}
	s.metrics.ObserveFeedback("delivered")
	if s.repo != nil {
		start := time.Now()
		err := s.repo.MarkDelivered(ctx, payload.FeedbackID, s.now().UTC())
		s.metrics.ObserveDBQuery("feedback_mark_delivered", time.Since(start))
		if err != nil {
			s.logger.Warn("failed to mark feedback delivered", zap.String("feedback_id", payload.FeedbackID), zap.Error(err))
		}
	}
	return nil
}

// GiveUp is called once the queue stops retrying a delivery. The feedback stays recorded as
// undelivered.
func (s *SuggestionService) GiveUp(job jobs.Job, err error) {
	s.metrics.ObserveFeedback("dropped")
	s.logger.Warn("feedback delivery abandoned", zap.String("feedback_id", job.ID), zap.Int("attempts", job.Attempt), zap.Error(err))
}
