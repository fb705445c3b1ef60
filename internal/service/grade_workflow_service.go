package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/academic-insights/internal/models"
	appErrors "github.com/noah-isme/academic-insights/pkg/errors"
)

// MaxBulkGrades caps one bulk submission.
const MaxBulkGrades = 100

type gradeWorkflowAPI interface {
	SubmitGrade(ctx context.Context, submission models.GradeSubmission) (*models.GradeRecord, error)
	SubmitBulkGrades(ctx context.Context, submissions []models.GradeSubmission) (*models.BulkResult, error)
	ValidateGrade(ctx context.Context, id string) (*models.GradeRecord, error)
	FetchGrade(ctx context.Context, id string) (*models.GradeRecord, error)
}

// GradeWorkflowService creates pending grades and moves them to validated.
type GradeWorkflowService struct {
	api       gradeWorkflowAPI
	store     *GradeStore
	validator *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger
	now       func() time.Time
}

// NewGradeWorkflowService constructs the workflow service.
func NewGradeWorkflowService(api gradeWorkflowAPI, store *GradeStore, validate *validator.Validate, metrics *MetricsService, logger *zap.Logger) *GradeWorkflowService {
	if store == nil {
		store = NewGradeStore()
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	validate.RegisterTagNameFunc(jsonFieldName)
	return &GradeWorkflowService{
		api:       api,
		store:     store,
		validator: validate,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
	}
}

// Submit validates a submission and creates it upstream in the pending state.
func (s *GradeWorkflowService) Submit(ctx context.Context, submission models.GradeSubmission) (*models.GradeRecord, error) {
	if reason := s.checkSubmission(submission); reason != "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, reason)
	}
	record, err := s.api.SubmitGrade(ctx, submission)
	if err != nil {
		return nil, err
	}
	s.store.Apply(*record)
	s.metrics.ObserveGradeEvent("submitted")
	return record, nil
}

// Validate moves a grade from pending to validated. Validating an already validated grade
// succeeds without changing it.
func (s *GradeWorkflowService) Validate(ctx context.Context, id string) (*models.GradeRecord, error) {
	if strings.TrimSpace(id) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "grade id is required")
	}
	if known, ok := s.store.Find(id); ok && known.Validated() {
		return &known, nil
	}

	record, err := s.api.ValidateGrade(ctx, id)
	if err != nil {
		if !appErrors.Is(err, appErrors.ErrConflict) {
			return nil, err
		}
		// The API refuses to validate twice; the grade is already in the terminal state.
		s.logger.Debug("grade already validated upstream", zap.String("grade_id", id))
		known, ok := s.store.Find(id)
		if !ok {
			known = s.refetch(ctx, id)
		}
		known.State = models.GradeValidated
		s.store.Apply(known)
		return &known, nil
	}

	next, terr := models.GradePending.Transition(record.State)
	if terr != nil || next != models.GradeValidated {
		s.logger.Warn("validate returned a non validated grade", zap.String("grade_id", id), zap.String("state", string(record.State)))
		record.State = models.GradeValidated
	}
	s.store.Apply(*record)
	s.metrics.ObserveGradeEvent("validated")
	return record, nil
}

// refetch loads a grade validated elsewhere. When the refresh fails only the ID and state are
// known and the record is returned with its other fields empty.
func (s *GradeWorkflowService) refetch(ctx context.Context, id string) models.GradeRecord {
	record, err := s.api.FetchGrade(ctx, id)
	if err != nil {
		s.logger.Warn("validated grade could not be refreshed", zap.String("grade_id", id), zap.Error(err))
		return models.GradeRecord{ID: id}
	}
	return *record
}

// SubmitBulk checks every row, forwards the valid ones and reports each row as accepted or
// rejected with its input index. Invalid rows never abort the batch and an empty batch yields
// an empty result.
func (s *GradeWorkflowService) SubmitBulk(ctx context.Context, rows []models.GradeSubmission) (*models.BulkResult, error) {
	if len(rows) > MaxBulkGrades {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("at most %d grades per bulk submission", MaxBulkGrades))
	}

	result := &models.BulkResult{Accepted: []models.BulkAccepted{}, Rejected: []models.BulkRejection{}}
	forwarded := make([]models.GradeSubmission, 0, len(rows))
	origin := make([]int, 0, len(rows))
	for i, row := range rows {
		if reason := s.checkSubmission(row); reason != "" {
			result.Rejected = append(result.Rejected, models.BulkRejection{Index: i, Input: row, Reason: reason})
			continue
		}
		forwarded = append(forwarded, row)
		origin = append(origin, i)
	}

	if len(forwarded) > 0 {
		upstream, err := s.api.SubmitBulkGrades(ctx, forwarded)
		if err != nil {
			return nil, err
		}
		seen := make(map[int]bool, len(forwarded))
		for _, accepted := range upstream.Accepted {
			if accepted.Index < 0 || accepted.Index >= len(forwarded) || seen[accepted.Index] {
				continue
			}
			seen[accepted.Index] = true
			s.store.Apply(accepted.Record)
			result.Accepted = append(result.Accepted, models.BulkAccepted{Index: origin[accepted.Index], Record: accepted.Record})
		}
		for _, rejected := range upstream.Rejected {
			if rejected.Index < 0 || rejected.Index >= len(forwarded) || seen[rejected.Index] {
				continue
			}
			seen[rejected.Index] = true
			result.Rejected = append(result.Rejected, models.BulkRejection{Index: origin[rejected.Index], Input: forwarded[rejected.Index], Reason: rejected.Reason})
		}
		for i := range forwarded {
			if !seen[i] {
				result.Rejected = append(result.Rejected, models.BulkRejection{Index: origin[i], Input: forwarded[i], Reason: "not acknowledged by the academic API"})
			}
		}
	}

	sort.Slice(result.Accepted, func(i, j int) bool { return result.Accepted[i].Index < result.Accepted[j].Index })
	sort.Slice(result.Rejected, func(i, j int) bool { return result.Rejected[i].Index < result.Rejected[j].Index })

	s.metrics.ObserveBulkGrades(len(result.Accepted), len(result.Rejected))
	s.logger.Info("bulk grades submitted", zap.Int("accepted", len(result.Accepted)), zap.Int("rejected", len(result.Rejected)))
	return result, nil
}

// checkSubmission returns an empty string for a valid submission, else the first reason.
func (s *GradeWorkflowService) checkSubmission(submission models.GradeSubmission) string {
	if err := s.validator.Struct(submission); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) || len(verrs) == 0 {
			return err.Error()
		}
		return describeFieldError(verrs[0], submission)
	}
	if submission.Date.After(s.now()) {
		return "date cannot be in the future"
	}
	return ""
}

func describeFieldError(fe validator.FieldError, submission models.GradeSubmission) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "gte", "lte":
		if fe.Field() == "value" && submission.Value != nil {
			return fmt.Sprintf("value %v is out of range [0,20]", *submission.Value)
		}
		return fmt.Sprintf("%s is out of range", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s exceeds %s characters", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

func jsonFieldName(field reflect.StructField) string {
	name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return field.Name
	}
	return name
}
