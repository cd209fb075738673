package events

import (
	"errors"
	"testing"
)

func TestEventBus(t *testing.T) {
	bus := NewEventBus()

	var received *Event
	var callCount int

	bus.Subscribe(EventInvoiceCreated, func(event *Event) error {
		received = event
		callCount++
		return nil
	})

	err := bus.PublishJSON(EventInvoiceCreated, InvoiceEventPayload{InvoiceID: 42, Amount: 2700, Currency: "EGP"})
	if err != nil {
		t.Fatalf("PublishJSON failed: %v", err)
	}

	if callCount != 1 {
		t.Errorf("expected 1 call, got %d", callCount)
	}
	if received.Type != EventInvoiceCreated {
		t.Errorf("expected type %s, got %s", EventInvoiceCreated, received.Type)
	}

	var decoded InvoiceEventPayload
	if err := received.Decode(&decoded); err != nil {
		t.Fatalf("failed to decode payload: %v", err)
	}
	if decoded.InvoiceID != 42 || decoded.Amount != 2700 {
		t.Errorf("unexpected payload %+v", decoded)
	}
}

func TestEventBusMultipleSubscribers(t *testing.T) {
	bus := NewEventBus()
	var count1, count2 int
	boom := errors.New("boom")

	bus.Subscribe(EventChatSessionStarted, func(_ *Event) error { count1++; return boom })
	bus.Subscribe(EventChatSessionStarted, func(_ *Event) error { count2++; return nil })

	err := bus.Publish(&Event{Type: EventChatSessionStarted})

	if count1 != 1 || count2 != 1 {
		t.Errorf("expected both handlers to be called once, got %d and %d", count1, count2)
	}
	if !errors.Is(err, boom) {
		t.Errorf("expected handler error to be returned, got %v", err)
	}
}

func TestEventBusNoSubscribers(t *testing.T) {
	bus := NewEventBus()
	if err := bus.Publish(&Event{Type: "unknown"}); err != nil {
		t.Errorf("Publish failed: %v", err)
	}
	if err := bus.PublishJSON("unknown", nil); err != nil {
		t.Errorf("PublishJSON failed: %v", err)
	}

	var nilBus *EventBus
	if err := nilBus.PublishJSON(EventInvoiceCreated, nil); err != nil {
		t.Errorf("nil bus PublishJSON failed: %v", err)
	}
}

func TestNewJSONEvent(t *testing.T) {
	event, err := NewJSONEvent(EventChatSessionEnded, ChatSessionPayload{SessionID: "abc"})
	if err != nil {
		t.Fatalf("NewJSONEvent failed: %v", err)
	}
	if event.CreatedAt.IsZero() {
		t.Errorf("expected CreatedAt to be set")
	}

	var decoded ChatSessionPayload
	if err := event.Decode(&decoded); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if decoded.SessionID != "abc" {
		t.Errorf("expected session abc, got %s", decoded.SessionID)
	}

	if _, err := NewJSONEvent("bad", make(chan int)); err == nil {
		t.Errorf("expected encode error for channel payload")
	}
}

func TestEventBusNumbersEvents(t *testing.T) {
	bus := NewEventBus()
	var ids []int64
	bus.Subscribe(EventChatSessionEnded, func(e *Event) error {
		ids = append(ids, e.ID)
		return nil
	})

	_ = bus.PublishJSON(EventChatSessionEnded, ChatSessionPayload{SessionID: "a"})
	_ = bus.PublishJSON(EventChatSessionEnded, ChatSessionPayload{SessionID: "b"})
	_ = bus.Publish(&Event{ID: 99, Type: EventChatSessionEnded})

	want := []int64{1, 2, 99}
	if len(ids) != len(want) {
		t.Fatalf("expected %d events, got %v", len(want), ids)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("event %d: expected id %d, got %d", i, want[i], ids[i])
		}
	}
}
