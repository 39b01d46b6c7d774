package rows

import "context"

// Record is the constraint every editable line item satisfies. Rows are
// values; the With* methods return modified copies.
type Record[T any] interface {
	// RowUID is the client identifier, assigned once and never recomputed.
	RowUID() string
	// RowID is the server identifier, zero until the row is persisted.
	RowID() int64
	WithUID(uid string) T
	WithID(id int64) T
	// WithField returns a copy with the named field parsed from value.
	WithField(name, value string) (T, error)
}

// API is the outbound half of the REST collaborator for one table kind.
type API[T any] interface {
	// CreateBatch creates rows for an owner and returns their server ids in
	// request order. A nil or short id slice is tolerated.
	CreateBatch(ctx context.Context, owner int64, rows []T) ([]int64, error)
	Update(ctx context.Context, row T) error
	// Acknowledge marks an already persisted row as validated.
	Acknowledge(ctx context.Context, row T) error
	Delete(ctx context.Context, row T) error
	Reorder(ctx context.Context, owner int64, ids []int64) error
}

// Storage is the durable key/value store used for crash-recovery snapshots.
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Notifier receives transient user-facing messages. Calls must not block.
type Notifier interface {
	Success(msg string)
	Info(msg string)
	Warning(msg string)
	Error(msg string)
}

type nopNotifier struct{}

func (nopNotifier) Success(string) {}
func (nopNotifier) Info(string)    {}
func (nopNotifier) Warning(string) {}
func (nopNotifier) Error(string)   {}
