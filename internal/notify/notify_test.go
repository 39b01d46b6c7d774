package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newTestQueue(capacity int) (*Queue, *observer.ObservedLogs, *time.Time) {
	core, logs := observer.New(zap.InfoLevel)
	q := NewQueue(zap.New(core), capacity, time.Second)
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	q.now = func() time.Time { return now }
	return q, logs, &now
}

func TestQueue_KeepsMostRecent(t *testing.T) {
	q, _, _ := newTestQueue(2)
	q.Info("one")
	q.Success("two")
	q.Warning("three")

	active := q.Active()
	require.Len(t, active, 2)
	assert.Equal(t, "two", active[0].Message)
	assert.Equal(t, LevelWarning, active[1].Level)
}

func TestQueue_ExpiresToasts(t *testing.T) {
	q, _, now := newTestQueue(4)
	q.Success("saved")
	q.Error("failed")

	*now = now.Add(2 * time.Second)
	active := q.Active()
	require.Len(t, active, 1)
	assert.Equal(t, "failed", active[0].Message, "errors outlive the default ttl")

	*now = now.Add(10 * time.Second)
	assert.Empty(t, q.Active())
}

func TestQueue_LogsEveryToast(t *testing.T) {
	q, logs, _ := newTestQueue(1)
	q.Info("restored")
	q.Error("Delete failed: Timeout")
	q.Clear()

	assert.Empty(t, q.Active())
	require.Equal(t, 2, logs.Len())
	assert.Equal(t, "Delete failed: Timeout", logs.All()[1].Message)
}
