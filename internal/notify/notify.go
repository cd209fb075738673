// Package notify sends staff alerts to a Telegram chat.
package notify

import (
	"fmt"
	"strings"

	"topdivers/internal/domain"
	"topdivers/internal/events"
	"topdivers/internal/pricing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// Notifier posts new invoices and chat sessions to the staff chat. A
// Notifier without a sender drops everything.
type Notifier struct {
	bot    domain.TelegramSender
	chatID int64
	logger *zerolog.Logger
}

func New(bot domain.TelegramSender, chatID int64, logger *zerolog.Logger) *Notifier {
	return &Notifier{bot: bot, chatID: chatID, logger: logger}
}

// NewFromToken connects to the Bot API. An empty token yields a disabled
// Notifier.
func NewFromToken(token string, chatID int64, debug bool, logger *zerolog.Logger) (*Notifier, error) {
	if token == "" {
		return New(nil, chatID, logger), nil
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	bot.Debug = debug
	logger.Info().Str("bot", bot.Self.UserName).Int64("chat_id", chatID).Msg("staff notifications enabled")
	return New(bot, chatID, logger), nil
}

func (n *Notifier) Enabled() bool {
	return n != nil && n.bot != nil && n.chatID != 0
}

// Subscribe forwards invoice and chat events from the bus.
func (n *Notifier) Subscribe(bus *events.EventBus) {
	bus.Subscribe(events.EventInvoiceCreated, func(ev *events.Event) error {
		var p events.InvoiceEventPayload
		if err := ev.Decode(&p); err != nil {
			return err
		}
		return n.InvoiceCreated(p)
	})
	bus.Subscribe(events.EventChatSessionStarted, func(ev *events.Event) error {
		var p events.ChatSessionPayload
		if err := ev.Decode(&p); err != nil {
			return err
		}
		return n.NewChatSession(p)
	})
}

func (n *Notifier) InvoiceCreated(p events.InvoiceEventPayload) error {
	var b strings.Builder
	fmt.Fprintf(&b, "*New invoice #%d*\n", p.InvoiceID)
	fmt.Fprintf(&b, "Buyer: %s", escape(p.BuyerName))
	if p.BuyerEmail != "" {
		fmt.Fprintf(&b, " (%s)", escape(p.BuyerEmail))
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "Activity: %s\n", escape(p.Activity))
	fmt.Fprintf(&b, "Amount: %s\n", escape(pricing.FormatPrice(p.Amount, p.Currency, "")))
	fmt.Fprintf(&b, "Type: %s", escape(p.InvoiceType))
	if p.CouponCode != "" {
		fmt.Fprintf(&b, "\nCoupon: %s", escape(p.CouponCode))
	}
	return n.send(b.String())
}

func (n *Notifier) NewChatSession(p events.ChatSessionPayload) error {
	var b strings.Builder
	fmt.Fprintf(&b, "*New chat session* `%s`", p.SessionID)
	if p.IP != "" {
		fmt.Fprintf(&b, "\nIP: %s", escape(p.IP))
	}
	if p.Browser != "" || p.Device != "" {
		fmt.Fprintf(&b, "\nClient: %s %s", escape(p.Browser), escape(p.Device))
	}
	return n.send(b.String())
}

func (n *Notifier) send(text string) error {
	if !n.Enabled() {
		return nil
	}
	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := n.bot.Send(msg); err != nil {
		n.logger.Error().Err(err).Int64("chat_id", n.chatID).Msg("telegram send failed")
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

func escape(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s)
}
