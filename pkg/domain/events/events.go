// Package events carries the in-process notification stream: every
// user-visible outcome (a toast in the web client) is published here and
// rendered by whatever shell is attached.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Level classifies a notification.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notification is a single user-visible message.
type Notification struct {
	ID    string    `json:"id"`
	Level Level     `json:"level"`
	Text  string    `json:"text"`
	Time  time.Time `json:"time"`
}

// New creates a notification with a fresh id.
func New(level Level, text string) Notification {
	return Notification{
		ID:    uuid.New().String(),
		Level: level,
		Text:  text,
		Time:  time.Now(),
	}
}

// Publisher is the write side of the notification stream.
type Publisher interface {
	Info(text string)
	Success(text string)
	Error(text string)
}

// Bus is an in-memory publisher with subscriber fan-out. Slow
// subscribers do not block publishers; channel subscribers drop instead.
type Bus struct {
	mu   sync.RWMutex
	subs []func(Notification)
}

// NewBus creates an empty notification bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers a callback invoked for every notification.
func (b *Bus) Subscribe(fn func(Notification)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, fn)
}

// Channel subscribes with a buffered channel. Notifications are dropped
// when the buffer is full.
func (b *Bus) Channel(size int) <-chan Notification {
	ch := make(chan Notification, size)
	b.Subscribe(func(n Notification) {
		select {
		case ch <- n:
		default:
			// Drop if the consumer is slow
		}
	})
	return ch
}

func (b *Bus) publish(n Notification) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, fn := range b.subs {
		fn(n)
	}
}

func (b *Bus) Info(text string)    { b.publish(New(LevelInfo, text)) }
func (b *Bus) Success(text string) { b.publish(New(LevelSuccess, text)) }
func (b *Bus) Error(text string)   { b.publish(New(LevelError, text)) }
