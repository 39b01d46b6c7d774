// Package notify queues the transient toasts shown by the UI.
package notify

import (
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Level is a toast severity.
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelWarning
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelSuccess:
		return "success"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// Toast is one queued message.
type Toast struct {
	Level   Level
	Message string
	Created time.Time
	Expires time.Time
}

const (
	DefaultCapacity = 4
	DefaultTTL      = 4 * time.Second
	errorTTL        = 8 * time.Second
)

// Queue holds the most recent toasts. It is safe for concurrent use and
// satisfies the row engine's Notifier.
type Queue struct {
	logger   *zap.Logger
	capacity int
	ttl      time.Duration
	now      func() time.Time

	mu     sync.Mutex
	toasts []Toast
}

// NewQueue returns a queue keeping at most capacity toasts for ttl each.
// Errors stay twice as long. Non-positive values use the defaults.
func NewQueue(logger *zap.Logger, capacity int, ttl time.Duration) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Queue{logger: logger, capacity: capacity, ttl: ttl, now: time.Now}
}

func (q *Queue) Success(msg string) { q.push(LevelSuccess, msg) }
func (q *Queue) Info(msg string)    { q.push(LevelInfo, msg) }
func (q *Queue) Warning(msg string) { q.push(LevelWarning, msg) }
func (q *Queue) Error(msg string)   { q.push(LevelError, msg) }

func (q *Queue) push(level Level, msg string) {
	switch level {
	case LevelError:
		q.logger.Error(msg)
	case LevelWarning:
		q.logger.Warn(msg)
	default:
		q.logger.Info(msg, zap.Stringer("level", level))
	}

	ttl := q.ttl
	if level == LevelError && ttl < errorTTL {
		ttl = errorTTL
	}
	now := q.now()
	q.mu.Lock()
	defer q.mu.Unlock()
	q.toasts = append(q.toasts, Toast{Level: level, Message: msg, Created: now, Expires: now.Add(ttl)})
	if over := len(q.toasts) - q.capacity; over > 0 {
		q.toasts = slices.Delete(q.toasts, 0, over)
	}
}

// Active drops expired toasts and returns the rest, oldest first.
func (q *Queue) Active() []Toast {
	now := q.now()
	q.mu.Lock()
	defer q.mu.Unlock()
	q.toasts = slices.DeleteFunc(q.toasts, func(t Toast) bool { return !now.Before(t.Expires) })
	return slices.Clone(q.toasts)
}

// Clear drops every toast.
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.toasts = nil
}
