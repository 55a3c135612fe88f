// Package events is the engine's in-process publish/subscribe bus for
// engine-originated state changes. It is fanned out to browser clients by
// the action router's websocket hub — a push channel for engine events,
// not a market-data tick feed.
package events

import (
	"sync"
	"time"
)

type EventType string

const (
	EventTradeOpened   EventType = "TRADE_OPENED"
	EventTradeClosed   EventType = "TRADE_CLOSED"
	EventSessionStatus EventType = "SESSION_STATUS_CHANGE"
	EventNotification  EventType = "NOTIFICATION_CREATED"
	EventBacktestReady EventType = "BACKTEST_REPORT_READY"
)

// Event is one published occurrence.
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	UserID    string                 `json:"userId,omitempty"`
	Data      map[string]interface{} `json:"data"`
}

// Subscriber handles one published event.
type Subscriber func(Event)

// Bus manages event publishing and subscriptions.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[EventType][]Subscriber
	allSubs     []Subscriber
}

func NewBus() *Bus {
	return &Bus{subscribers: make(map[EventType][]Subscriber)}
}

// Subscribe registers a subscriber for a specific event type.
func (b *Bus) Subscribe(eventType EventType, subscriber Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], subscriber)
}

// SubscribeAll registers a subscriber for every event type — the
// websocket hub uses this to fan every engine event out to clients.
func (b *Bus) SubscribeAll(subscriber Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.allSubs = append(b.allSubs, subscriber)
}

// Publish notifies subscribers of event, setting Timestamp if unset.
func (b *Bus) Publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subscribers[event.Type] {
		go sub(event)
	}
	for _, sub := range b.allSubs {
		go sub(event)
	}
}

func (b *Bus) PublishTradeOpened(userID, symbol, side string, openPrice, lot float64) {
	b.Publish(Event{
		Type:   EventTradeOpened,
		UserID: userID,
		Data: map[string]interface{}{
			"symbol": symbol, "side": side, "openPrice": openPrice, "lot": lot,
		},
	})
}

func (b *Bus) PublishTradeClosed(userID, symbol string, closePrice, profitLoss float64) {
	b.Publish(Event{
		Type:   EventTradeClosed,
		UserID: userID,
		Data: map[string]interface{}{
			"symbol": symbol, "closePrice": closePrice, "profitLoss": profitLoss,
		},
	})
}

func (b *Bus) PublishSessionStatus(userID, sessionID, status string) {
	b.Publish(Event{
		Type:   EventSessionStatus,
		UserID: userID,
		Data:   map[string]interface{}{"sessionId": sessionID, "status": status},
	})
}

func (b *Bus) PublishNotification(userID, kind, title string) {
	b.Publish(Event{
		Type:   EventNotification,
		UserID: userID,
		Data:   map[string]interface{}{"kind": kind, "title": title},
	})
}
