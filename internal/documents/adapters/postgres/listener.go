package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"visit-dashboard-service/internal/documents/core/domain"
	"visit-dashboard-service/internal/documents/core/ports"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

const (
	minReconnectInterval = 2 * time.Second
	maxReconnectInterval = time.Minute
	pingInterval         = 90 * time.Second
)

// notificationSource is the part of *pq.Listener the feed uses.
type notificationSource interface {
	Listen(channel string) error
	NotificationChannel() <-chan *pq.Notification
	Ping() error
	Close() error
}

// ChangeListener turns NOTIFY payloads from the documents trigger into
// domain changes.
type ChangeListener struct {
	dsn    string
	logger *zap.Logger
	ping   time.Duration
	open   func(dsn string, onEvent pq.EventCallbackType) notificationSource
}

func NewChangeListener(dsn string, logger *zap.Logger) *ChangeListener {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChangeListener{
		dsn:    dsn,
		logger: logger,
		ping:   pingInterval,
		open: func(dsn string, onEvent pq.EventCallbackType) notificationSource {
			return pq.NewListener(dsn, minReconnectInterval, maxReconnectInterval, onEvent)
		},
	}
}

var _ ports.ChangeFeedPort = (*ChangeListener)(nil)

func (l *ChangeListener) Changes(ctx context.Context) (<-chan domain.Change, error) {
	src := l.open(l.dsn, l.onEvent)
	if err := src.Listen(NotifyChannel); err != nil {
		_ = src.Close()
		return nil, fmt.Errorf("listen %s: %w", NotifyChannel, err)
	}

	out := make(chan domain.Change, 64)

	go func() {
		defer close(out)
		defer src.Close()

		ticker := time.NewTicker(l.ping)
		defer ticker.Stop()

		notifications := src.NotificationChannel()
		for {
			select {
			case <-ctx.Done():
				return
			case n, ok := <-notifications:
				if !ok {
					return
				}
				select {
				case out <- l.decode(n):
				case <-ctx.Done():
					return
				}
			case <-ticker.C:
				// src is closed only after Ping returns
				if err := src.Ping(); err != nil {
					l.logger.Warn("change listener ping failed", zap.Error(err))
				}
			}
		}
	}()

	return out, nil
}

// decode maps a notification to a change. pq delivers nil after a
// reconnect, when notifications may have been missed, so that becomes a
// resync as does any payload we cannot read.
func (l *ChangeListener) decode(n *pq.Notification) domain.Change {
	if n == nil {
		l.logger.Info("change listener reconnected, resyncing watchers")
		return domain.Change{}
	}

	var c domain.Change
	if err := json.Unmarshal([]byte(n.Extra), &c); err != nil {
		l.logger.Warn("unreadable change notification",
			zap.String("payload", n.Extra),
			zap.Error(err))
		return domain.Change{}
	}
	return c
}

func (l *ChangeListener) onEvent(ev pq.ListenerEventType, err error) {
	switch ev {
	case pq.ListenerEventConnected:
		l.logger.Info("change listener connected", zap.String("channel", NotifyChannel))
	case pq.ListenerEventDisconnected:
		l.logger.Warn("change listener disconnected", zap.Error(err))
	case pq.ListenerEventReconnected:
		l.logger.Info("change listener reconnected")
	case pq.ListenerEventConnectionAttemptFailed:
		l.logger.Warn("change listener connection attempt failed", zap.Error(err))
	}
}
