package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/academic-insights/internal/models"
	"github.com/noah-isme/academic-insights/internal/upstream"
	appErrors "github.com/noah-isme/academic-insights/pkg/errors"
)

// SettingsRepository persists per-user settings.
type SettingsRepository interface {
	Get(ctx context.Context, userID string) (*models.Settings, error)
	Upsert(ctx context.Context, settings *models.Settings) error
}

// SessionDefaults seed the settings of users who never saved any.
type SessionDefaults struct {
	RiskThreshold   float64
	SuggestionCount int
	MaxSuggestions  int
}

// SettingsUpdateRequest changes some settings. Nil fields are left as they are.
type SettingsUpdateRequest struct {
	RiskThreshold    *float64 `json:"risk_threshold" validate:"omitempty,gt=0,lte=20"`
	SuggestionCount  *int     `json:"suggestion_count" validate:"omitempty,min=1"`
	Theme            *string  `json:"theme" validate:"omitempty,oneof=light dark system"`
	Language         *string  `json:"language" validate:"omitempty,oneof=fr en"`
	SuggestionAlerts *bool    `json:"suggestion_alerts"`
	ValidationAlerts *bool    `json:"validation_alerts"`
}

// Session is the state kept for one signed-in user between requests.
type Session struct {
	ID            string
	UserID        string
	OpenedAt      time.Time
	Notifications *NotificationState

	mu        sync.RWMutex
	role      models.UserRole
	token     string
	settings  models.Settings
	viewed    string
	snapshots map[string]*models.Performance
}

// Role returns the role of the session owner.
func (s *Session) Role() models.UserRole {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.role
}

// Settings returns a copy of the current settings.
func (s *Session) Settings() models.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// Context attaches the session's latest access token for upstream calls made outside a request.
func (s *Session) Context(parent context.Context) context.Context {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return upstream.WithToken(parent, s.token)
}

// Touch records the credentials of the latest request.
func (s *Session) Touch(principal models.Principal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if principal.Token != "" {
		s.token = principal.Token
	}
	if principal.Role != "" {
		s.role = principal.Role
	}
}

// Viewed returns the student whose performance was requested last.
func (s *Session) Viewed() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.viewed
}

// Info describes the session for API responses.
func (s *Session) Info() models.SessionInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.SessionInfo{ID: s.ID, UserID: s.UserID, Role: s.role, OpenedAt: s.OpenedAt, Settings: s.settings}
}

func (s *Session) setViewed(studentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.viewed = studentID
}

func (s *Session) snapshot(studentID string) *models.Performance {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.snapshots[studentID]
	if !ok {
		return nil
	}
	cp := *p
	return &cp
}

func (s *Session) storeSnapshot(p *models.Performance) {
	cp := *p
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[p.StudentID] = &cp
}

func (s *Session) setSettings(settings models.Settings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = settings
}

// SessionService opens, updates and closes sessions. Settings are loaded when a session
// opens, persisted whenever they change and dropped from memory at logout.
type SessionService struct {
	repo      SettingsRepository
	api       notificationAPI
	defaults  SessionDefaults
	validator *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger
	now       func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
	onClose  []func(*Session)
}

// NewSessionService constructs the service. repo may be nil, in which case settings only live
// as long as the session.
func NewSessionService(repo SettingsRepository, api notificationAPI, defaults SessionDefaults, validate *validator.Validate, metrics *MetricsService, logger *zap.Logger) *SessionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaults.RiskThreshold <= 0 {
		defaults.RiskThreshold = DefaultRiskThreshold
	}
	if defaults.SuggestionCount <= 0 {
		defaults.SuggestionCount = 5
	}
	if defaults.MaxSuggestions < defaults.SuggestionCount {
		defaults.MaxSuggestions = defaults.SuggestionCount
	}
	return &SessionService{
		repo:      repo,
		api:       api,
		defaults:  defaults,
		validator: validate,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
		sessions:  make(map[string]*Session),
	}
}

// Open starts a session for the principal or refreshes the credentials of the open one.
// A first notification load is attempted but its failure does not prevent the session.
func (s *SessionService) Open(ctx context.Context, principal models.Principal) (*Session, error) {
	if principal.UserID == "" {
		return nil, appErrors.ErrUnauthorized
	}
	if existing := s.lookup(principal.UserID); existing != nil {
		existing.Touch(principal)
		return existing, nil
	}

	settings, err := s.loadSettings(ctx, principal.UserID)
	if err != nil {
		return nil, err
	}

	session := &Session{
		ID:            uuid.NewString(),
		UserID:        principal.UserID,
		OpenedAt:      s.now().UTC(),
		Notifications: NewNotificationState(s.api, s.metrics, s.logger.With(zap.String("user_id", principal.UserID))),
		role:          principal.Role,
		token:         principal.Token,
		settings:      *settings,
		snapshots:     make(map[string]*models.Performance),
	}

	s.mu.Lock()
	if existing, ok := s.sessions[principal.UserID]; ok {
		s.mu.Unlock()
		existing.Touch(principal)
		return existing, nil
	}
	s.sessions[principal.UserID] = session
	s.mu.Unlock()
	s.metrics.SessionOpened()

	if _, err := session.Notifications.Refresh(session.Context(ctx)); err != nil {
		s.logger.Warn("initial notification load failed", zap.String("user_id", principal.UserID), zap.Error(err))
	}
	s.logger.Info("session opened", zap.String("user_id", principal.UserID), zap.String("session_id", session.ID))
	return session, nil
}

// Get returns the open session of a user.
func (s *SessionService) Get(userID string) (*Session, error) {
	if session := s.lookup(userID); session != nil {
		return session, nil
	}
	return nil, appErrors.ErrSessionRequired
}

// UpdateSettings applies and persists a settings change.
func (s *SessionService) UpdateSettings(ctx context.Context, userID string, req SettingsUpdateRequest) (*models.Settings, error) {
	session, err := s.Get(userID)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid settings")
	}
	if req.SuggestionCount != nil && *req.SuggestionCount > s.defaults.MaxSuggestions {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("suggestion_count must not exceed %d", s.defaults.MaxSuggestions))
	}

	updated := session.Settings()
	if req.RiskThreshold != nil {
		updated.RiskThreshold = *req.RiskThreshold
	}
	if req.SuggestionCount != nil {
		updated.SuggestionCount = *req.SuggestionCount
	}
	if req.Theme != nil {
		updated.Theme = *req.Theme
	}
	if req.Language != nil {
		updated.Language = *req.Language
	}
	if req.SuggestionAlerts != nil {
		updated.SuggestionAlerts = *req.SuggestionAlerts
	}
	if req.ValidationAlerts != nil {
		updated.ValidationAlerts = *req.ValidationAlerts
	}
	updated.UpdatedAt = s.now().UTC()

	if s.repo != nil {
		start := time.Now()
		err := s.repo.Upsert(ctx, &updated)
		s.metrics.ObserveDBQuery("settings_upsert", time.Since(start))
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save settings")
		}
	}
	session.setSettings(updated)
	return &updated, nil
}

// OnClose registers a hook run after a session is closed.
func (s *SessionService) OnClose(hook func(*Session)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onClose = append(s.onClose, hook)
}

// Close ends a user's session. Closing a session that is not open succeeds.
func (s *SessionService) Close(ctx context.Context, userID string) error {
	s.mu.Lock()
	session, ok := s.sessions[userID]
	delete(s.sessions, userID)
	hooks := s.onClose
	s.mu.Unlock()
	if !ok {
		return nil
	}
	for _, hook := range hooks {
		hook(session)
	}
	s.metrics.SessionClosed()
	s.logger.Info("session closed", zap.String("user_id", userID), zap.String("session_id", session.ID))
	return nil
}

// Sessions lists open sessions ordered by user ID.
func (s *SessionService) Sessions() []*Session {
	s.mu.RLock()
	list := make([]*Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		list = append(list, session)
	}
	s.mu.RUnlock()
	sort.Slice(list, func(i, j int) bool { return list[i].UserID < list[j].UserID })
	return list
}

func (s *SessionService) lookup(userID string) *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[userID]
}

func (s *SessionService) loadSettings(ctx context.Context, userID string) (*models.Settings, error) {
	defaults := &models.Settings{
		UserID:           userID,
		RiskThreshold:    s.defaults.RiskThreshold,
		SuggestionCount:  s.defaults.SuggestionCount,
		Theme:            "light",
		Language:         "fr",
		SuggestionAlerts: true,
		ValidationAlerts: true,
		UpdatedAt:        s.now().UTC(),
	}
	if s.repo == nil {
		return defaults, nil
	}
	start := time.Now()
	settings, err := s.repo.Get(ctx, userID)
	s.metrics.ObserveDBQuery("settings_get", time.Since(start))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return defaults, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load settings")
	}
	return settings, nil
}
