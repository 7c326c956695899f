package domain

import "time"

// ChatMessage - сообщение игрового чата
type ChatMessage struct {
	ID     int64  `json:"id"`
	From   string `json:"from"`
	ChatID string `json:"chatId"`
	Text   string `json:"text"`
}

// NotificationKind - категория уведомления для пользователя
type NotificationKind string

const (
	NotifyGameStarted  NotificationKind = "game_started"
	NotifyYourTurn     NotificationKind = "your_turn"
	NotifyGameFinished NotificationKind = "game_finished"
	NotifyChatMessage  NotificationKind = "chat_message"
	NotifyError        NotificationKind = "error"
	NotifySuccess      NotificationKind = "success"
)

// Notification - асинхронное событие, которое нужно показать пользователю
type Notification struct {
	Kind      NotificationKind `json:"kind"`
	Title     string           `json:"title"`
	Body      string           `json:"body"`
	League    League           `json:"league,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

// Preferences - пользовательские настройки, которые переживают перезапуск
type Preferences struct {
	AudioMuted           bool `json:"audio_muted"`
	DarkTheme            bool `json:"dark_theme"`
	WalletConnected      bool `json:"wallet_connected"`
	NotificationsGranted bool `json:"notifications_granted"`
}

// DefaultPreferences - значения по умолчанию (темная тема включена)
func DefaultPreferences() Preferences {
	return Preferences{DarkTheme: true}
}
