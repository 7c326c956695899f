package bot

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"sync"
	"time"

	"talecraft_client/internal/domain"
	"talecraft_client/internal/logger"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// messageSender - часть BotAPI, которой достаточно для отправки
type messageSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// StatusFunc собирает сводку по играм для команды /status
type StatusFunc func(ctx context.Context) string

// PermissionSetter включает и выключает внешние уведомления
type PermissionSetter interface {
	SetPermission(ctx context.Context, granted bool) error
}

// NotifyBot доставляет игровые уведомления в Telegram-чат владельца
// и отвечает на пару команд из этого же чата
type NotifyBot struct {
	api    *tgbotapi.BotAPI
	sender messageSender
	chatID int64

	status StatusFunc
	perm   PermissionSetter

	stopCh chan struct{}
	wg     sync.WaitGroup
	log    *slog.Logger
}

// NewNotifyBot авторизует бота
func NewNotifyBot(token string, chatID int64) (*NotifyBot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	log := logger.With("component", "notify_bot")
	log.Info("notify bot authorized", "username", api.Self.UserName, "chat_id", chatID)

	return &NotifyBot{
		api:    api,
		sender: api,
		chatID: chatID,
		stopCh: make(chan struct{}),
		log:    log,
	}, nil
}

// SetHandlers подключает обработчики команд, вызывается до Start
func (b *NotifyBot) SetHandlers(status StatusFunc, perm PermissionSetter) {
	b.status = status
	b.perm = perm
}

// Name реализует NotificationSink
func (b *NotifyBot) Name() string { return "telegram" }

// Send реализует NotificationSink
func (b *NotifyBot) Send(ctx context.Context, n domain.Notification) error {
	msg := tgbotapi.NewMessage(b.chatID, formatNotification(n))
	msg.ParseMode = "HTML"
	if _, err := b.sender.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

func formatNotification(n domain.Notification) string {
	title := n.Title
	if title == "" {
		title = "TaleCraft"
	}
	var sb strings.Builder
	sb.WriteString("<b>")
	sb.WriteString(html.EscapeString(title))
	sb.WriteString("</b>")
	if n.League != "" {
		sb.WriteString(" · ")
		sb.WriteString(html.EscapeString(string(n.League)))
	}
	if n.Body != "" {
		sb.WriteString("\n")
		sb.WriteString(html.EscapeString(n.Body))
	}
	return sb.String()
}

// Start запускает прослушивание команд
func (b *NotifyBot) Start() {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	b.log.Info("starting bot update loop")

	for {
		select {
		case <-b.stopCh:
			b.log.Info("stopping bot update loop")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil || !update.Message.IsCommand() {
				continue
			}
			// команды принимаются только из чата владельца
			if update.Message.Chat == nil || update.Message.Chat.ID != b.chatID {
				continue
			}

			b.wg.Add(1)
			go func(msg *tgbotapi.Message) {
				defer b.wg.Done()
				b.handleCommand(msg)
			}(update.Message)
		}
	}
}

// Stop плавно останавливает бота
func (b *NotifyBot) Stop() {
	b.log.Info("stopping notify bot...")
	close(b.stopCh)
	b.api.StopReceivingUpdates()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.log.Info("notify bot stopped gracefully")
	case <-time.After(10 * time.Second):
		b.log.Warn("notify bot shutdown timeout, some handlers may not have completed")
	}
}

func (b *NotifyBot) handleCommand(msg *tgbotapi.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	response := b.commandResponse(ctx, msg.Command(), msg.CommandArguments())

	reply := tgbotapi.NewMessage(msg.Chat.ID, response)
	reply.ParseMode = "HTML"
	reply.ReplyToMessageID = msg.MessageID

	if _, err := b.sender.Send(reply); err != nil {
		b.log.Error("error sending message", "error", err)
	}
}

func (b *NotifyBot) commandResponse(ctx context.Context, command, args string) string {
	switch command {
	case "start", "help":
		return helpMessage

	case "status":
		if b.status == nil {
			return "Статус недоступен"
		}
		return html.EscapeString(b.status(ctx))

	case "notify":
		return b.handleNotify(ctx, args)
	}
	return "❌ Неизвестная команда. Используйте /help для списка команд."
}

func (b *NotifyBot) handleNotify(ctx context.Context, args string) string {
	if b.perm == nil {
		return "Настройки недоступны"
	}

	var granted bool
	switch strings.ToLower(strings.TrimSpace(args)) {
	case "on":
		granted = true
	case "off":
		granted = false
	default:
		return "Использование: /notify on|off"
	}

	if err := b.perm.SetPermission(ctx, granted); err != nil {
		b.log.Error("failed to save notification permission", "error", err)
		return "❌ Не удалось сохранить настройку"
	}
	if granted {
		return "🔔 Уведомления включены"
	}
	return "🔕 Уведомления выключены"
}

const helpMessage = `<b>🃏 TaleCraft</b>

/status - Текущие игры по лигам
/notify on|off - Включить или выключить уведомления`
