package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/academic-insights/internal/models"
	appErrors "github.com/noah-isme/academic-insights/pkg/errors"
)

const notificationScope = "notifications"

type notificationAPI interface {
	FetchNotifications(ctx context.Context) ([]models.Notification, error)
	FetchUnreadNotifications(ctx context.Context) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, id string) error
	MarkAllNotificationsRead(ctx context.Context) error
}

// LocalReads are the reads made in the current session that a server snapshot may not
// reflect yet. Pending reads await confirmation; confirmed reads were acknowledged.
type LocalReads struct {
	Pending   map[string]time.Time
	Confirmed map[string]time.Time
}

// Reconcile overlays local reads on a server snapshot. A notification read on either side
// is read; nothing read becomes unread. The result is newest first and holds each ID once.
func Reconcile(server []models.Notification, local LocalReads) []models.Notification {
	seen := make(map[string]bool, len(server))
	result := make([]models.Notification, 0, len(server))
	for _, n := range server {
		if seen[n.ID] {
			continue
		}
		seen[n.ID] = true
		if !n.IsRead() {
			if at, ok := local.Confirmed[n.ID]; ok {
				n = n.MarkRead(at)
			} else if at, ok := local.Pending[n.ID]; ok {
				n = n.MarkRead(at)
			}
		}
		result = append(result, n)
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result
}

// FilterByPreferences hides notification types the user switched off.
func FilterByPreferences(list []models.Notification, settings models.Settings) []models.Notification {
	result := make([]models.Notification, 0, len(list))
	for _, n := range list {
		if n.Type == models.NotificationSuggestion && !settings.SuggestionAlerts {
			continue
		}
		if n.Type == models.NotificationValidation && !settings.ValidationAlerts {
			continue
		}
		result = append(result, n)
	}
	return result
}

// NotificationState tracks one session's notifications: the last server snapshot plus
// the optimistic reads applied on top of it.
type NotificationState struct {
	api     notificationAPI
	guard   *StaleGuard
	metrics *MetricsService
	logger  *zap.Logger
	now     func() time.Time

	mu          sync.Mutex
	server      []models.Notification
	pending     map[string]map[uint64]time.Time
	confirmed   map[string]time.Time
	nextToken   uint64
	refreshedAt time.Time
}

// NewNotificationState builds an empty state. Call Refresh to load it.
func NewNotificationState(api notificationAPI, metrics *MetricsService, logger *zap.Logger) *NotificationState {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationState{
		api:       api,
		guard:     NewStaleGuard(),
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
		pending:   make(map[string]map[uint64]time.Time),
		confirmed: make(map[string]time.Time),
	}
}

// Refresh replaces the server snapshot with the full list from the API. A response
// overtaken by a later refresh is dropped. On error the state is left untouched.
func (s *NotificationState) Refresh(ctx context.Context) ([]models.Notification, error) {
	ticket := s.guard.Begin(notificationScope)
	list, err := s.api.FetchNotifications(ctx)
	if err != nil {
		s.metrics.ObserveNotificationRefresh("error")
		return nil, err
	}
	var view []models.Notification
	applied := s.guard.Commit(ticket, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.server = cloneNotifications(list)
		s.pruneConfirmedLocked()
		s.refreshedAt = s.now()
		view = s.viewLocked()
	})
	if !applied {
		s.metrics.ObserveNotificationRefresh("stale")
		s.logger.Debug("dropping stale notification refresh")
		return s.List(), nil
	}

	s.metrics.ObserveNotificationRefresh("ok")
	return view, nil
}

// RefreshUnread merges the API's unread list into the snapshot. Unknown ones are new. A known
// notification missing from the list was either read or deleted server side; the list cannot
// tell them apart, so it is marked read here and a deleted one stays until the next Refresh
// replaces the snapshot.
func (s *NotificationState) RefreshUnread(ctx context.Context) ([]models.Notification, error) {
	ticket := s.guard.Begin(notificationScope)
	unread, err := s.api.FetchUnreadNotifications(ctx)
	if err != nil {
		s.metrics.ObserveNotificationRefresh("error")
		return nil, err
	}
	var view []models.Notification
	applied := s.guard.Commit(ticket, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		view = s.mergeUnreadLocked(unread)
	})
	if !applied {
		s.metrics.ObserveNotificationRefresh("stale")
		return s.Unread(), nil
	}

	s.metrics.ObserveNotificationRefresh("ok")
	return view, nil
}

func (s *NotificationState) mergeUnreadLocked(unread []models.Notification) []models.Notification {
	now := s.now()
	stillUnread := make(map[string]models.Notification, len(unread))
	for _, n := range unread {
		stillUnread[n.ID] = n
	}
	merged := make([]models.Notification, 0, len(s.server)+len(unread))
	known := make(map[string]bool, len(s.server))
	for _, n := range s.server {
		known[n.ID] = true
		if _, ok := stillUnread[n.ID]; !ok && !n.IsRead() {
			n = n.MarkRead(now)
		}
		merged = append(merged, n)
	}
	for _, n := range unread {
		if !known[n.ID] {
			merged = append(merged, n)
		}
	}
	s.server = merged
	s.pruneConfirmedLocked()
	s.refreshedAt = now
	return unreadOf(s.viewLocked())
}

// MarkRead marks one notification read locally, then confirms with the API. A failed call
// withdraws its own optimistic read and returns the error. A conflict also resyncs from the API.
func (s *NotificationState) MarkRead(ctx context.Context, id string) error {
	if id == "" {
		return appErrors.Clone(appErrors.ErrValidation, "notification id is required")
	}

	s.mu.Lock()
	if s.readOnServerLocked(id) {
		s.mu.Unlock()
		return nil
	}
	at := s.now()
	token := s.addPendingLocked([]string{id}, at)
	s.mu.Unlock()

	err := s.api.MarkNotificationRead(ctx, id)

	s.mu.Lock()
	s.dropPendingLocked([]string{id}, token)
	switch {
	case err == nil:
		s.confirmLocked(id, at)
	case appErrors.Is(err, appErrors.ErrNotFound):
		s.removeLocked(id)
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn("mark notification read failed", zap.String("notification_id", id), zap.Error(err))
		if appErrors.Is(err, appErrors.ErrConflict) {
			s.resync(ctx)
		}
	}
	return err
}

// MarkAllRead marks every notification currently unread, with the same contract as MarkRead.
func (s *NotificationState) MarkAllRead(ctx context.Context) error {
	s.mu.Lock()
	ids := make([]string, 0)
	for _, n := range s.viewLocked() {
		if !n.IsRead() {
			ids = append(ids, n.ID)
		}
	}
	at := s.now()
	token := s.addPendingLocked(ids, at)
	s.mu.Unlock()

	err := s.api.MarkAllNotificationsRead(ctx)

	s.mu.Lock()
	s.dropPendingLocked(ids, token)
	if err == nil {
		for _, id := range ids {
			s.confirmLocked(id, at)
		}
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn("mark all notifications read failed", zap.Int("count", len(ids)), zap.Error(err))
		if appErrors.Is(err, appErrors.ErrConflict) {
			s.resync(ctx)
		}
	}
	return err
}

// List returns the reconciled notifications, newest first.
func (s *NotificationState) List() []models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

// Unread returns the reconciled unread notifications, newest first.
func (s *NotificationState) Unread() []models.Notification {
	return unreadOf(s.List())
}

// RefreshedAt reports when a server snapshot was last applied.
func (s *NotificationState) RefreshedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshedAt
}

func (s *NotificationState) resync(ctx context.Context) {
	if _, err := s.Refresh(ctx); err != nil {
		s.logger.Warn("notification resync failed", zap.Error(err))
	}
}

func (s *NotificationState) viewLocked() []models.Notification {
	local := LocalReads{
		Pending:   make(map[string]time.Time, len(s.pending)),
		Confirmed: make(map[string]time.Time, len(s.confirmed)),
	}
	for id, tokens := range s.pending {
		for _, at := range tokens {
			if prev, ok := local.Pending[id]; !ok || at.Before(prev) {
				local.Pending[id] = at
			}
		}
	}
	for id, at := range s.confirmed {
		local.Confirmed[id] = at
	}
	return Reconcile(s.server, local)
}

func (s *NotificationState) addPendingLocked(ids []string, at time.Time) uint64 {
	s.nextToken++
	token := s.nextToken
	for _, id := range ids {
		tokens, ok := s.pending[id]
		if !ok {
			tokens = make(map[uint64]time.Time)
			s.pending[id] = tokens
		}
		tokens[token] = at
	}
	return token
}

func (s *NotificationState) dropPendingLocked(ids []string, token uint64) {
	for _, id := range ids {
		tokens := s.pending[id]
		delete(tokens, token)
		if len(tokens) == 0 {
			delete(s.pending, id)
		}
	}
}

func (s *NotificationState) confirmLocked(id string, at time.Time) {
	if prev, ok := s.confirmed[id]; ok && prev.Before(at) {
		return
	}
	s.confirmed[id] = at
}

func (s *NotificationState) removeLocked(id string) {
	delete(s.confirmed, id)
	kept := s.server[:0]
	for _, n := range s.server {
		if n.ID != id {
			kept = append(kept, n)
		}
	}
	s.server = kept
}

func (s *NotificationState) readOnServerLocked(id string) bool {
	if _, ok := s.confirmed[id]; ok {
		return true
	}
	for _, n := range s.server {
		if n.ID == id {
			return n.IsRead()
		}
	}
	return false
}

// Confirmed reads are only needed until the server snapshot shows them read.
func (s *NotificationState) pruneConfirmedLocked() {
	for _, n := range s.server {
		if n.IsRead() {
			delete(s.confirmed, n.ID)
		}
	}
}

func unreadOf(list []models.Notification) []models.Notification {
	result := make([]models.Notification, 0, len(list))
	for _, n := range list {
		if !n.IsRead() {
			result = append(result, n)
		}
	}
	return result
}

func cloneNotifications(list []models.Notification) []models.Notification {
	cp := make([]models.Notification, len(list))
	copy(cp, list)
	return cp
}
