package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"gutachten-api/api/internal/metrics"
	"gutachten-api/api/internal/records"
)

// Notifier announces newly saved reports. Failures never fail the request.
type Notifier interface {
	Enabled() bool
	NotifySaved(ctx context.Context, g records.Gutachten, saved records.Saved)
}

// Nop is used when no channel is configured.
type Nop struct{}

func (Nop) Enabled() bool                                                  { return false }
func (Nop) NotifySaved(context.Context, records.Gutachten, records.Saved) {}

type Telegram struct {
	Bot    *tgbotapi.BotAPI
	ChatID int64
	logger *slog.Logger
}

// NewTelegram connects to the Bot API (getMe). An empty token or chat yields Nop.
func NewTelegram(token, chatID string, logger *slog.Logger) (Notifier, error) {
	return newTelegram(token, chatID, tgbotapi.APIEndpoint, &http.Client{Timeout: 15 * time.Second}, logger)
}

func newTelegram(token, chatID, endpoint string, httpc *http.Client, logger *slog.Logger) (Notifier, error) {
	token, chatID = strings.TrimSpace(token), strings.TrimSpace(chatID)
	if token == "" || chatID == "" {
		return Nop{}, nil
	}
	cid, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("TELEGRAM_CHAT_ID: %w", err)
	}
	bot, err := tgbotapi.NewBotAPIWithClient(token, endpoint, httpc)
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Telegram{Bot: bot, ChatID: cid, logger: logger}, nil
}

func (t *Telegram) Enabled() bool { return true }

// NotifySaved: ctx не пробрасывается в tgbotapi, поэтому отправка просто не блокирует ответ клиенту.
func (t *Telegram) NotifySaved(_ context.Context, g records.Gutachten, saved records.Saved) {
	msg := tgbotapi.NewMessage(t.ChatID, Message(g, saved))
	msg.DisableWebPagePreview = true

	started := time.Now()
	_, err := t.Bot.Send(msg)
	metrics.ObserveUpstream("telegram", started, err)
	if err != nil {
		t.logger.Warn("telegram notify failed", "gutachten", g.Nummer, "err", err)
	}
}

// Message renders the notification text.
func Message(g records.Gutachten, saved records.Saved) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Neues Gutachten %s", g.Nummer)
	if g.Kunde != "" {
		fmt.Fprintf(&b, " für %s", g.Kunde)
	}
	fmt.Fprintf(&b, "\nStatus: %s", g.Status)
	if g.Ergebnis != "" {
		fmt.Fprintf(&b, "\nErgebnis: %s", g.Ergebnis)
	}
	if g.Stunden > 0 {
		fmt.Fprintf(&b, "\nUmsatz: %.2f € (%.1f h × %.0f €)", g.Umsatz, g.Stunden, g.Stundensatz)
	}
	if n := len(g.FotoURLs); n > 0 {
		fmt.Fprintf(&b, "\nFotos: %d", n)
	}
	if saved.URL != "" {
		fmt.Fprintf(&b, "\n%s", saved.URL)
	}
	return b.String()
}
