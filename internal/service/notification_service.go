package service

import (
	"context"
	"sync"
	"time"

	"talecraft_client/internal/domain"
	"talecraft_client/internal/logger"
	"talecraft_client/internal/metrics"
)

// сколько последних уведомлений хранится для UI
const notificationFeedSize = 50

const sinkTimeout = 10 * time.Second

// NotificationSink - внешний канал доставки (Telegram и т.п.)
type NotificationSink interface {
	Name() string
	Send(ctx context.Context, n domain.Notification) error
}

// PreferenceStore - локальные настройки пользователя
type PreferenceStore interface {
	Get(ctx context.Context) (domain.Preferences, error)
	Save(ctx context.Context, p domain.Preferences) error
}

// NotificationService раздает уведомления UI и внешним каналам.
// Внешние каналы получают только игровые события и только при выданном разрешении,
// разрешение проверяется перед каждой отправкой.
type NotificationService struct {
	prefs PreferenceStore
	sinks []NotificationSink

	mu      sync.Mutex
	feed    []domain.Notification
	subs    map[int]chan domain.Notification
	nextSub int
}

func NewNotificationService(prefs PreferenceStore, sinks ...NotificationSink) *NotificationService {
	return &NotificationService{
		prefs: prefs,
		sinks: sinks,
		subs:  make(map[int]chan domain.Notification),
	}
}

// Notify реализует Notifier
func (s *NotificationService) Notify(ctx context.Context, n domain.Notification) {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}

	s.mu.Lock()
	s.feed = append(s.feed, n)
	if len(s.feed) > notificationFeedSize {
		s.feed = s.feed[len(s.feed)-notificationFeedSize:]
	}
	for _, ch := range s.subs {
		select {
		case ch <- n:
		default:
			// медленный подписчик пропускает уведомление
		}
	}
	s.mu.Unlock()

	if !isGameEvent(n.Kind) || len(s.sinks) == 0 {
		return
	}

	if !s.permitted(ctx) {
		metrics.Notifications.WithLabelValues(string(n.Kind), "not_permitted").Inc()
		return
	}

	for _, sink := range s.sinks {
		sctx, cancel := context.WithTimeout(ctx, sinkTimeout)
		err := sink.Send(sctx, n)
		cancel()
		if err != nil {
			metrics.Notifications.WithLabelValues(string(n.Kind), "failed").Inc()
			logger.Warn("notification: доставка не удалась", "sink", sink.Name(), "kind", n.Kind, "error", err)
			continue
		}
		metrics.Notifications.WithLabelValues(string(n.Kind), "sent").Inc()
	}
}

func (s *NotificationService) permitted(ctx context.Context) bool {
	if s.prefs == nil {
		return false
	}
	p, err := s.prefs.Get(ctx)
	if err != nil {
		logger.Warn("notification: не удалось прочитать разрешение", "error", err)
		return false
	}
	return p.NotificationsGranted
}

func isGameEvent(k domain.NotificationKind) bool {
	switch k {
	case domain.NotifyGameStarted, domain.NotifyYourTurn, domain.NotifyGameFinished, domain.NotifyChatMessage:
		return true
	}
	return false
}

// SetPermission сохраняет явно выданное (или отозванное) разрешение
func (s *NotificationService) SetPermission(ctx context.Context, granted bool) error {
	p, err := s.prefs.Get(ctx)
	if err != nil {
		return err
	}
	p.NotificationsGranted = granted
	return s.prefs.Save(ctx, p)
}

// Recent возвращает последние уведомления, старые первыми
func (s *NotificationService) Recent() []domain.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Notification, len(s.feed))
	copy(out, s.feed)
	return out
}

// Subscribe возвращает канал новых уведомлений и функцию отписки
func (s *NotificationService) Subscribe() (<-chan domain.Notification, func()) {
	ch := make(chan domain.Notification, 16)

	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			close(ch)
			s.mu.Unlock()
		})
	}
}
