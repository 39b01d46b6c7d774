package rows

import (
	"sync"
	"time"
)

// Debouncer runs at most one delayed task at a time. Scheduling a new task
// cancels the one still waiting.
type Debouncer struct {
	mu      sync.Mutex
	timer   *time.Timer
	seq     uint64
	stopped bool
}

// Schedule cancels any waiting task and runs fn after d. A non-positive d
// runs fn synchronously. It reports false once the debouncer is stopped.
func (d *Debouncer) Schedule(delay time.Duration, fn func()) bool {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return false
	}
	d.cancelLocked()
	if delay <= 0 {
		d.mu.Unlock()
		fn()
		return true
	}
	d.seq++
	seq := d.seq
	d.timer = time.AfterFunc(delay, func() {
		d.mu.Lock()
		// a later Schedule or Cancel won the race against this timer
		if d.stopped || d.seq != seq {
			d.mu.Unlock()
			return
		}
		d.timer = nil
		d.mu.Unlock()
		fn()
	})
	d.mu.Unlock()
	return true
}

// Pending reports whether a task is waiting to run.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

// Cancel drops the waiting task, if any.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancelLocked()
}

// Stop cancels the waiting task and refuses further scheduling.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancelLocked()
	d.stopped = true
}

func (d *Debouncer) cancelLocked() {
	d.seq++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
