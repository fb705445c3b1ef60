package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/academic-insights/internal/models"
	appErrors "github.com/noah-isme/academic-insights/pkg/errors"
)

// DefaultTimeout bounds a single upstream call when none is configured.
const DefaultTimeout = 20 * time.Second

const maxBodyBytes = 8 << 20

type callObserver interface {
	ObserveUpstreamCall(operation, outcome string, duration time.Duration)
}

// Client talks to the academic REST API on behalf of the caller whose token is in the context.
type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	metrics    callObserver
	logger     *zap.Logger
}

// New constructs a Client. A nil metrics observer disables call metrics.
func New(baseURL string, timeout time.Duration, metrics callObserver, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		timeout:    timeout,
		httpClient: &http.Client{Timeout: timeout},
		metrics:    metrics,
		logger:     logger,
	}
}

// FetchGrades lists every grade of a student.
func (c *Client) FetchGrades(ctx context.Context, studentID string) ([]models.GradeRecord, error) {
	body, err := c.do(ctx, "fetch_grades", http.MethodGet, "/academic/etudiants/"+url.PathEscape(studentID)+"/notes/", nil, nil)
	if err != nil {
		return nil, err
	}
	notes, err := decodeList[noteWire](body)
	if err != nil {
		return nil, decodeError("grades", err)
	}
	records := make([]models.GradeRecord, 0, len(notes))
	for _, note := range notes {
		record, err := note.toModel()
		if err != nil {
			return nil, decodeError("grades", err)
		}
		if record.StudentID == "" {
			record.StudentID = studentID
		}
		records = append(records, record)
	}
	return records, nil
}

// FetchSubjects lists the subjects known to the academic API.
func (c *Client) FetchSubjects(ctx context.Context) ([]models.Subject, error) {
	body, err := c.do(ctx, "fetch_subjects", http.MethodGet, "/academic/matieres/", nil, nil)
	if err != nil {
		return nil, err
	}
	items, err := decodeList[matiereWire](body)
	if err != nil {
		return nil, decodeError("subjects", err)
	}
	subjects := make([]models.Subject, 0, len(items))
	for _, item := range items {
		subjects = append(subjects, item.toModel())
	}
	return subjects, nil
}

// FetchStudent loads a single student.
func (c *Client) FetchStudent(ctx context.Context, studentID string) (*models.Student, error) {
	body, err := c.do(ctx, "fetch_student", http.MethodGet, "/academic/etudiants/"+url.PathEscape(studentID)+"/", nil, nil)
	if err != nil {
		return nil, err
	}
	var item etudiantWire
	if err := json.Unmarshal(body, &item); err != nil {
		return nil, decodeError("student", err)
	}
	student := item.toModel()
	if student.ID == "" {
		student.ID = studentID
	}
	return &student, nil
}

// SubmitGrade creates a pending grade.
func (c *Client) SubmitGrade(ctx context.Context, submission models.GradeSubmission) (*models.GradeRecord, error) {
	body, err := c.do(ctx, "submit_grade", http.MethodPost, "/academic/notes/", nil, noteCreateFrom(submission))
	if err != nil {
		return nil, err
	}
	var note noteWire
	if err := json.Unmarshal(body, &note); err != nil {
		return nil, decodeError("grade", err)
	}
	// The created row may be echoed without the submitted fields.
	if note.ValeurNote == nil && submission.Value != nil {
		value := decimal(*submission.Value)
		note.ValeurNote = &value
	}
	if note.DateNote == "" && submission.Date != nil {
		note.DateNote = submission.Date.Format(dateLayout)
	}
	record, err := note.toModel()
	if err != nil {
		return nil, decodeError("grade", err)
	}
	if record.StudentID == "" {
		record.StudentID = submission.StudentID
	}
	if record.SubjectID == "" {
		record.SubjectID = submission.SubjectID
	}
	record.Observation = submission.Observation
	return &record, nil
}

// SubmitBulkGrades creates each row in turn since the API has no batch endpoint. Rows the API
// refuses are rejected individually. A transport failure before any row was created fails the
// whole batch; after that, the remaining rows are left unacknowledged.
func (c *Client) SubmitBulkGrades(ctx context.Context, submissions []models.GradeSubmission) (*models.BulkResult, error) {
	result := &models.BulkResult{Accepted: []models.BulkAccepted{}, Rejected: []models.BulkRejection{}}
	for i, submission := range submissions {
		record, err := c.SubmitGrade(ctx, submission)
		if err == nil {
			result.Accepted = append(result.Accepted, models.BulkAccepted{Index: i, Record: *record})
			continue
		}
		if !rowLevel(err) {
			if len(result.Accepted) == 0 {
				return nil, err
			}
			c.logger.Warn("bulk submission interrupted", zap.Int("row", i), zap.Error(err))
			break
		}
		result.Rejected = append(result.Rejected, models.BulkRejection{Index: i, Input: submission, Reason: appErrors.FromError(err).Message})
	}
	return result, nil
}

// ValidateGrade marks a grade validated and returns the refreshed record.
func (c *Client) ValidateGrade(ctx context.Context, id string) (*models.GradeRecord, error) {
	if _, err := c.do(ctx, "validate_grade", http.MethodPost, "/academic/notes/"+url.PathEscape(id)+"/valider/", nil, struct{}{}); err != nil {
		return nil, err
	}
	record, err := c.FetchGrade(ctx, id)
	if err != nil {
		if appErrors.IsRetryable(err) {
			// Validation already happened; report it even though the refresh failed.
			c.logger.Warn("validated grade could not be refreshed", zap.String("grade_id", id), zap.Error(err))
			return &models.GradeRecord{ID: id, State: models.GradeValidated}, nil
		}
		return nil, err
	}
	record.State = models.GradeValidated
	return record, nil
}

// FetchGrade loads one grade.
func (c *Client) FetchGrade(ctx context.Context, id string) (*models.GradeRecord, error) {
	body, err := c.do(ctx, "fetch_grade", http.MethodGet, "/academic/notes/"+url.PathEscape(id)+"/", nil, nil)
	if err != nil {
		return nil, err
	}
	var note noteWire
	if err := json.Unmarshal(body, &note); err != nil {
		return nil, decodeError("grade", err)
	}
	record, err := note.toModel()
	if err != nil {
		return nil, decodeError("grade", err)
	}
	if record.ID == "" {
		record.ID = id
	}
	return &record, nil
}

// FetchExerciseCatalog lists exercises, restricted to one subject when subjectID is set.
func (c *Client) FetchExerciseCatalog(ctx context.Context, subjectID string) ([]models.Exercise, error) {
	var query url.Values
	if subjectID != "" {
		query = url.Values{"subject": []string{subjectID}}
	}
	body, err := c.do(ctx, "fetch_exercises", http.MethodGet, "/academic/exercices/", query, nil)
	if err != nil {
		return nil, err
	}
	items, err := decodeList[exerciceWire](body)
	if err != nil {
		return nil, decodeError("exercises", err)
	}
	exercises := make([]models.Exercise, 0, len(items))
	for _, item := range items {
		exercises = append(exercises, item.toModel())
	}
	return exercises, nil
}

// FetchNotifications lists the caller's notifications.
func (c *Client) FetchNotifications(ctx context.Context) ([]models.Notification, error) {
	return c.fetchNotifications(ctx, "fetch_notifications", "/notifications/")
}

// FetchUnreadNotifications lists the caller's unread notifications.
func (c *Client) FetchUnreadNotifications(ctx context.Context) ([]models.Notification, error) {
	return c.fetchNotifications(ctx, "fetch_unread_notifications", "/notifications/non_lues/")
}

func (c *Client) fetchNotifications(ctx context.Context, op, path string) ([]models.Notification, error) {
	body, err := c.do(ctx, op, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}
	items, err := decodeList[notificationWire](body)
	if err != nil {
		return nil, decodeError("notifications", err)
	}
	list := make([]models.Notification, 0, len(items))
	for _, item := range items {
		notification, err := item.toModel()
		if err != nil {
			return nil, decodeError("notifications", err)
		}
		list = append(list, notification)
	}
	return list, nil
}

// MarkNotificationRead marks one notification read.
func (c *Client) MarkNotificationRead(ctx context.Context, id string) error {
	_, err := c.do(ctx, "mark_notification_read", http.MethodPost, "/notifications/"+url.PathEscape(id)+"/marquer_lu/", nil, struct{}{})
	return err
}

// MarkAllNotificationsRead marks every notification of the caller read.
func (c *Client) MarkAllNotificationsRead(ctx context.Context) error {
	_, err := c.do(ctx, "mark_all_notifications_read", http.MethodPost, "/notifications/marquer_tout_lu/", nil, struct{}{})
	return err
}

// SendSuggestionFeedback records whether a suggestion helped.
func (c *Client) SendSuggestionFeedback(ctx context.Context, suggestionID string, useful bool) error {
	_, err := c.do(ctx, "suggestion_feedback", http.MethodPost, "/ia/suggestions/feedback/", nil, feedbackWire{SuggestionID: suggestionID, EstUtile: useful})
	return err
}

func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, payload any) ([]byte, error) {
	start := time.Now()
	body, err := c.roundTrip(ctx, method, path, query, payload)
	outcome := "ok"
	if err != nil {
		outcome = appErrors.FromError(err).Code
		c.logger.Debug("upstream call failed", zap.String("operation", op), zap.String("path", path), zap.Error(err))
	}
	if c.metrics != nil {
		c.metrics.ObserveUpstreamCall(op, outcome, time.Since(start))
	}
	return body, err
}

func (c *Client) roundTrip(ctx context.Context, method, path string, query url.Values, payload any) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode upstream request")
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build upstream request")
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := TokenFrom(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrTransient.Code, appErrors.ErrTransient.Status, transportMessage(err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrTransient.Code, appErrors.ErrTransient.Status, "failed to read upstream response")
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return body, nil
	}
	return nil, statusError(resp.StatusCode, body)
}

// statusError maps an upstream status onto the error taxonomy.
func statusError(status int, body []byte) error {
	message := errorMessage(body)
	var sentinel *appErrors.Error
	switch {
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		sentinel = appErrors.ErrValidation
	case status == http.StatusUnauthorized:
		sentinel = appErrors.ErrUnauthorized
	case status == http.StatusForbidden:
		sentinel = appErrors.ErrForbidden
	case status == http.StatusNotFound:
		sentinel = appErrors.ErrNotFound
	case status == http.StatusConflict:
		sentinel = appErrors.ErrConflict
	case status == http.StatusTooManyRequests || status == http.StatusRequestTimeout || status >= 500:
		sentinel = appErrors.ErrTransient
	default:
		sentinel = appErrors.ErrInternal
	}
	if message == "" {
		message = fmt.Sprintf("%s (upstream status %d)", sentinel.Message, status)
	}
	return appErrors.Clone(sentinel, message)
}

// rowLevel reports whether a bulk row failure concerns that row alone.
func rowLevel(err error) bool {
	return appErrors.Is(err, appErrors.ErrValidation) ||
		appErrors.Is(err, appErrors.ErrNotFound) ||
		appErrors.Is(err, appErrors.ErrConflict)
}

func transportMessage(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "upstream request timed out"
	}
	if errors.Is(err, context.Canceled) {
		return "upstream request cancelled"
	}
	return appErrors.ErrTransient.Message
}

func decodeError(what string, err error) error {
	return appErrors.Wrap(err, appErrors.ErrDataUnavailable.Code, appErrors.ErrDataUnavailable.Status, "malformed upstream "+what+" payload")
}
