package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultPollInterval is how often open sessions refresh their notifications.
const DefaultPollInterval = 30 * time.Second

type sessionLister interface {
	Sessions() []*Session
}

// NotificationPoller refreshes the notifications of every open session on a fixed interval.
type NotificationPoller struct {
	sessions sessionLister
	interval time.Duration
	timeout  time.Duration
	logger   *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewNotificationPoller constructs a poller. timeout bounds each session refresh.
func NewNotificationPoller(sessions sessionLister, interval, timeout time.Duration, logger *zap.Logger) *NotificationPoller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if timeout <= 0 || timeout > interval {
		timeout = interval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationPoller{sessions: sessions, interval: interval, timeout: timeout, logger: logger}
}

// Start boots the polling goroutine. Calling Start twice has no effect.
func (p *NotificationPoller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return
	}
	ctx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})
	ticker := time.NewTicker(p.interval)
	go func() {
		defer close(p.done)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.PollOnce(ctx)
			}
		}
	}()
	p.logger.Info("notification poller started", zap.Duration("interval", p.interval))
}

// Stop halts polling and waits for the running cycle to finish.
func (p *NotificationPoller) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// PollOnce refreshes every open session once and returns how many refreshes succeeded.
// A failing session does not stop the cycle.
func (p *NotificationPoller) PollOnce(ctx context.Context) int {
	refreshed := 0
	for _, session := range p.sessions.Sessions() {
		if ctx.Err() != nil {
			break
		}
		callCtx, cancel := context.WithTimeout(session.Context(ctx), p.timeout)
		_, err := session.Notifications.Refresh(callCtx)
		cancel()
		if err != nil {
			p.logger.Warn("notification refresh failed", zap.String("user_id", session.UserID), zap.Error(err))
			continue
		}
		refreshed++
	}
	return refreshed
}
