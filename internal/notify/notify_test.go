package notify

import (
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"topdivers/internal/events"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockTelegramSender struct {
	mock.Mock
}

func (m *mockTelegramSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	args := m.Called(c)
	return args.Get(0).(tgbotapi.Message), args.Error(1)
}

var logger = zerolog.New(io.Discard)

func TestNotifier_InvoiceCreated(t *testing.T) {
	sender := new(mockTelegramSender)
	n := New(sender, 42, &logger)

	sender.On("Send", mock.MatchedBy(func(c tgbotapi.Chattable) bool {
		msg, ok := c.(tgbotapi.MessageConfig)
		return ok &&
			msg.ChatID == 42 &&
			msg.ParseMode == tgbotapi.ModeMarkdown &&
			strings.Contains(msg.Text, "New invoice #55") &&
			strings.Contains(msg.Text, "2,700 EGP") &&
			strings.Contains(msg.Text, "SUMMER")
	})).Return(tgbotapi.Message{}, nil).Once()

	err := n.InvoiceCreated(events.InvoiceEventPayload{
		InvoiceID: 55, BuyerName: "Mona", Activity: "trip", Amount: 2700,
		Currency: "EGP", InvoiceType: "online", CouponCode: "SUMMER",
	})
	require.NoError(t, err)
	sender.AssertExpectations(t)
}

func TestNotifier_EscapesMarkdown(t *testing.T) {
	sender := new(mockTelegramSender)
	n := New(sender, 42, &logger)

	sender.On("Send", mock.MatchedBy(func(c tgbotapi.Chattable) bool {
		msg := c.(tgbotapi.MessageConfig)
		return strings.Contains(msg.Text, `mona\_s`)
	})).Return(tgbotapi.Message{}, nil).Once()

	require.NoError(t, n.InvoiceCreated(events.InvoiceEventPayload{InvoiceID: 1, BuyerName: "mona_s"}))
}

func TestNotifier_Disabled(t *testing.T) {
	n, err := NewFromToken("", 42, false, &logger)
	require.NoError(t, err)
	assert.False(t, n.Enabled())
	assert.NoError(t, n.NewChatSession(events.ChatSessionPayload{SessionID: "s1"}))

	sender := new(mockTelegramSender)
	assert.False(t, New(sender, 0, &logger).Enabled())
	assert.NoError(t, New(sender, 0, &logger).InvoiceCreated(events.InvoiceEventPayload{}))
	sender.AssertNotCalled(t, "Send", mock.Anything)
}

func TestNotifier_SendError(t *testing.T) {
	sender := new(mockTelegramSender)
	sender.On("Send", mock.Anything).Return(tgbotapi.Message{}, errors.New("flood wait"))

	err := New(sender, 42, &logger).NewChatSession(events.ChatSessionPayload{SessionID: "s1"})
	assert.ErrorContains(t, err, "flood wait")
}

func TestNotifier_Subscribe(t *testing.T) {
	sender := new(mockTelegramSender)
	n := New(sender, 42, &logger)
	bus := events.NewEventBus()
	n.Subscribe(bus)

	sender.On("Send", mock.MatchedBy(func(c tgbotapi.Chattable) bool {
		msg := c.(tgbotapi.MessageConfig)
		return strings.Contains(msg.Text, "abc") && strings.Contains(msg.Text, "10.0.0.1")
	})).Return(tgbotapi.Message{}, nil).Once()

	err := bus.PublishJSON(events.EventChatSessionStarted, events.ChatSessionPayload{
		SessionID: "abc", IP: "10.0.0.1", At: time.Now(),
	})
	require.NoError(t, err)
	sender.AssertExpectations(t)
}
