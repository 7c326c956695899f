package service

import (
	"context"
	"errors"
	"testing"

	"talecraft_client/internal/domain"
)

type recordingSink struct {
	sent []domain.Notification
	err  error
}

func (s *recordingSink) Name() string { return "test" }

func (s *recordingSink) Send(ctx context.Context, n domain.Notification) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, n)
	return nil
}

func TestNotifyChecksPermissionEveryTime(t *testing.T) {
	prefs := &memoryPrefs{}
	sink := &recordingSink{}
	svc := NewNotificationService(prefs, sink)
	ctx := context.Background()

	svc.Notify(ctx, domain.Notification{Kind: domain.NotifyYourTurn, Body: "Your turn"})
	if len(sink.sent) != 0 {
		t.Fatal("без разрешения внешние уведомления не отправляются")
	}

	if err := svc.SetPermission(ctx, true); err != nil {
		t.Fatalf("set permission: %v", err)
	}
	svc.Notify(ctx, domain.Notification{Kind: domain.NotifyYourTurn, Body: "Your turn"})
	if len(sink.sent) != 1 {
		t.Fatalf("ожидалась одна отправка, получено %d", len(sink.sent))
	}

	// отзыв разрешения действует на следующую же отправку
	if err := svc.SetPermission(ctx, false); err != nil {
		t.Fatalf("set permission: %v", err)
	}
	svc.Notify(ctx, domain.Notification{Kind: domain.NotifyGameFinished})
	if len(sink.sent) != 1 {
		t.Fatal("после отзыва разрешения отправок быть не должно")
	}

	if got := len(svc.Recent()); got != 3 {
		t.Fatalf("в ленте UI ожидалось 3 уведомления, получено %d", got)
	}
}

func TestNotifyKeepsToastsLocal(t *testing.T) {
	prefs := &memoryPrefs{prefs: domain.Preferences{NotificationsGranted: true}}
	sink := &recordingSink{}
	svc := NewNotificationService(prefs, sink)

	ch, cancel := svc.Subscribe()
	defer cancel()

	svc.Notify(context.Background(), domain.Notification{Kind: domain.NotifyError, Body: "Failed"})
	if len(sink.sent) != 0 {
		t.Fatal("ошибки показываются только в UI")
	}
	if prefs.reads != 0 {
		t.Fatal("для локальных уведомлений разрешение не читается")
	}

	select {
	case n := <-ch:
		if n.Kind != domain.NotifyError || n.CreatedAt.IsZero() {
			t.Fatalf("неверное уведомление: %+v", n)
		}
	default:
		t.Fatal("подписчик должен получить уведомление")
	}
}

func TestNotifySinkFailureIsNotFatal(t *testing.T) {
	prefs := &memoryPrefs{prefs: domain.Preferences{NotificationsGranted: true}}
	failing := &recordingSink{err: errors.New("telegram down")}
	ok := &recordingSink{}
	svc := NewNotificationService(prefs, failing, ok)

	svc.Notify(context.Background(), domain.Notification{Kind: domain.NotifyGameStarted})
	if len(ok.sent) != 1 {
		t.Fatal("ошибка одного канала не должна мешать остальным")
	}
}
