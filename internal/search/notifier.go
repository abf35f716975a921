package search

import (
	"log/slog"
	"sync"
)

type Level string

const (
	LevelInfo  Level = "info"
	LevelError Level = "error"
)

// Notification is a user-facing message, the server-side stand-in for a toast.
type Notification struct {
	Level   Level  `json:"level"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

type Notifier interface {
	Notify(n Notification)
}

// LogNotifier writes notifications to the default logger.
type LogNotifier struct{}

func (LogNotifier) Notify(n Notification) {
	slog.Default().Info("search notification", "level", n.Level, "title", n.Title, "message", n.Message)
}

// Inbox keeps the most recent notifications until they are drained.
type Inbox struct {
	mu    sync.Mutex
	max   int
	items []Notification
}

func NewInbox(max int) *Inbox {
	if max <= 0 {
		max = 10
	}
	return &Inbox{max: max}
}

func (b *Inbox) Notify(n Notification) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items = append(b.items, n)
	if len(b.items) > b.max {
		b.items = b.items[len(b.items)-b.max:]
	}
}

// Drain returns and forgets the pending notifications.
func (b *Inbox) Drain() []Notification {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.items
	b.items = nil
	return out
}
