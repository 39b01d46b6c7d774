package rows

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/looplab/fsm"
	"go.uber.org/zap"
)

const (
	stateIdle    = "idle"
	stateRunning = "running"

	eventStart  = "start"
	eventFinish = "finish"
)

// Progress counts processed rows in the current validation run.
type Progress struct {
	Current int
	Total   int
}

// Result summarises one validation run.
type Result struct {
	Succeeded int
	Failed    int
}

// runGate admits one validation run at a time.
type runGate struct {
	machine *fsm.FSM

	mu       sync.Mutex
	progress Progress
}

func newRunGate(logger *zap.Logger) *runGate {
	g := &runGate{}
	g.machine = fsm.NewFSM(
		stateIdle,
		fsm.Events{
			{Name: eventStart, Src: []string{stateIdle}, Dst: stateRunning},
			{Name: eventFinish, Src: []string{stateRunning}, Dst: stateIdle},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				logger.Debug("validator state", zap.String("from", e.Src), zap.String("to", e.Dst))
			},
		},
	)
	return g
}

func (g *runGate) begin() error {
	if err := g.machine.Event(context.Background(), eventStart); err != nil {
		return ErrBusy
	}
	g.mu.Lock()
	g.progress = Progress{}
	g.mu.Unlock()
	return nil
}

func (g *runGate) setTotal(total int) {
	g.mu.Lock()
	g.progress.Total = total
	g.mu.Unlock()
}

func (g *runGate) advance(n int) {
	g.mu.Lock()
	g.progress.Current += n
	g.mu.Unlock()
}

func (g *runGate) finish() {
	_ = g.machine.Event(context.Background(), eventFinish)
}

func (g *runGate) running() bool {
	return g.machine.Is(stateRunning)
}

func (g *runGate) snapshot() Progress {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.progress
}

// job is a row captured for commit, outside the table lock.
type job[T any] struct {
	uid     string
	row     T
	gen     uint64
	isNew   bool
	ackOnly bool
}

type outcome[T any] struct {
	job[T]
	id  int64
	msg string // empty on success
}

// Running reports whether a validation run is in progress.
func (t *Table[T]) Running() bool {
	return t.gate.running()
}

// Progress returns the current run's progress and whether one is running.
func (t *Table[T]) Progress() (Progress, bool) {
	return t.gate.snapshot(), t.gate.running()
}

// ValidateAll commits every pending row: new rows in batches, modified
// rows one at a time. Failures replace the retained failure list.
func (t *Table[T]) ValidateAll(ctx context.Context) (Result, error) {
	if err := t.gate.begin(); err != nil {
		return Result{}, err
	}
	defer t.gate.finish()

	jobs, err := t.pendingJobs()
	if err != nil {
		return Result{}, err
	}
	if len(jobs) == 0 {
		t.opts.Notify.Info("Nothing to validate")
		return Result{}, nil
	}
	t.gate.setTotal(len(jobs))
	t.logger.Info("validating pending rows", zap.Int("rows", len(jobs)))

	var created, modified []job[T]
	for _, j := range jobs {
		if j.isNew {
			created = append(created, j)
		} else {
			modified = append(modified, j)
		}
	}

	outcomes := make([]outcome[T], 0, len(jobs))
	for batch := range slices.Chunk(created, t.opts.BatchSize) {
		outcomes = append(outcomes, t.createBatch(ctx, batch, t.opts.CreateTimeout)...)
		t.gate.advance(len(batch))
	}
	for _, j := range modified {
		outcomes = append(outcomes, t.commit(ctx, j))
		t.gate.advance(1)
	}

	res, err := t.apply(outcomes, true)
	if err != nil {
		return res, err
	}
	t.report(res)
	return res, nil
}

// ValidateRow commits the single row at pos. An untracked persisted row is
// only acknowledged.
func (t *Table[T]) ValidateRow(ctx context.Context, pos int) (Result, error) {
	return t.validateRow(ctx, t.atPos(pos))
}

// ValidateRowUID is ValidateRow for the row identified by uid.
func (t *Table[T]) ValidateRowUID(ctx context.Context, uid string) (Result, error) {
	return t.validateRow(ctx, t.atUID(uid))
}

func (t *Table[T]) validateRow(ctx context.Context, locate locator) (Result, error) {
	if err := t.gate.begin(); err != nil {
		return Result{}, err
	}
	defer t.gate.finish()

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return Result{}, ErrClosed
	}
	pos, err := locate()
	if err != nil {
		t.mu.Unlock()
		return Result{}, err
	}
	j := t.jobLocked(pos)
	if !t.pending.IsPending(pos) && !j.isNew {
		j.ackOnly = true
	}
	t.mu.Unlock()
	t.gate.setTotal(1)

	o := t.commit(ctx, j)
	t.gate.advance(1)
	res, err := t.apply([]outcome[T]{o}, false)
	if err != nil {
		return res, err
	}
	if o.msg == "" {
		t.opts.Notify.Success(fmt.Sprintf("Row %d validated", pos+1))
	} else {
		t.opts.Notify.Error(fmt.Sprintf("Row %d: %s", pos+1, o.msg))
	}
	return res, nil
}

// RetryFailed re-attempts exactly the rows in the failure list. The list
// only ever narrows.
func (t *Table[T]) RetryFailed(ctx context.Context) (Result, error) {
	if err := t.gate.begin(); err != nil {
		return Result{}, err
	}
	defer t.gate.finish()

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return Result{}, ErrClosed
	}
	records := t.failuresLocked()
	jobs := make([]job[T], 0, len(records))
	for _, rec := range records {
		jobs = append(jobs, t.jobLocked(rec.Position))
	}
	t.mu.Unlock()
	if len(jobs) == 0 {
		return Result{}, nil
	}
	t.gate.setTotal(len(jobs))
	t.logger.Info("retrying failed rows", zap.Int("rows", len(jobs)))

	outcomes := make([]outcome[T], 0, len(jobs))
	for _, j := range jobs {
		outcomes = append(outcomes, t.commit(ctx, j))
		t.gate.advance(1)
	}
	res, err := t.apply(outcomes, false)
	if err != nil {
		return res, err
	}
	t.report(res)
	return res, nil
}

// DismissFailures drops the retained failure list. The rows stay pending.
func (t *Table[T]) DismissFailures() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failures = make(map[string]FailureRecord[T])
}

func (t *Table[T]) pendingJobs() ([]job[T], error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, ErrClosed
	}
	positions := t.pending.State().Union()
	jobs := make([]job[T], 0, len(positions))
	for _, pos := range positions {
		if pos >= len(t.rows) {
			continue
		}
		jobs = append(jobs, t.jobLocked(pos))
	}
	return jobs, nil
}

func (t *Table[T]) jobLocked(pos int) job[T] {
	row := t.rows[pos]
	return job[T]{
		uid:   row.RowUID(),
		row:   row,
		gen:   t.edits[row.RowUID()],
		isNew: t.pending.IsNew(pos) || row.RowID() == 0,
	}
}

// createBatch sends one creation request for jobs. The batch succeeds or
// fails as a whole.
func (t *Table[T]) createBatch(ctx context.Context, jobs []job[T], timeout time.Duration) []outcome[T] {
	payload := make([]T, len(jobs))
	for i, j := range jobs {
		payload[i] = j.row
	}
	ids, err := guard(ctx, timeout, func(ctx context.Context) ([]int64, error) {
		return t.opts.API.CreateBatch(ctx, t.opts.OwnerID, payload)
	})

	out := make([]outcome[T], len(jobs))
	msg := classify(ctx, err)
	if err != nil {
		t.logger.Warn("create batch failed", zap.Int("rows", len(jobs)), zap.String("error", msg))
	}
	for i, j := range jobs {
		out[i] = outcome[T]{job: j, msg: msg}
		if err == nil && i < len(ids) {
			out[i].id = ids[i]
		}
	}
	return out
}

// commit applies the per-row logic: create a new row, or update then
// acknowledge a persisted one.
func (t *Table[T]) commit(ctx context.Context, j job[T]) outcome[T] {
	if j.isNew {
		return t.createBatch(ctx, []job[T]{j}, t.opts.UpdateTimeout)[0]
	}
	call := func(fn func(context.Context, T) error) error {
		_, err := guard(ctx, t.opts.UpdateTimeout, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, fn(ctx, j.row)
		})
		return err
	}
	if !j.ackOnly {
		if err := call(t.opts.API.Update); err != nil {
			return t.failed(ctx, j, "update", err)
		}
	}
	if err := call(t.opts.API.Acknowledge); err != nil {
		return t.failed(ctx, j, "acknowledge", err)
	}
	return outcome[T]{job: j}
}

func (t *Table[T]) failed(ctx context.Context, j job[T], step string, err error) outcome[T] {
	msg := classify(ctx, err)
	t.logger.Warn("row commit failed",
		zap.String("step", step), zap.Int64("id", j.row.RowID()), zap.String("error", msg))
	return outcome[T]{job: j, msg: msg}
}

// apply folds outcomes back into the table by uid. Rows edited again while
// the request was in flight stay pending.
func (t *Table[T]) apply(outcomes []outcome[T], replaceFailures bool) (Result, error) {
	var res Result
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return res, ErrClosed
	}
	if replaceFailures {
		t.failures = make(map[string]FailureRecord[T])
	}
	for _, o := range outcomes {
		pos := t.indexLocked(o.uid)
		if o.msg != "" {
			res.Failed++
			if pos >= 0 {
				t.failures[o.uid] = FailureRecord[T]{UID: o.uid, Message: o.msg, Row: o.row}
			}
			continue
		}
		res.Succeeded++
		delete(t.failures, o.uid)
		if pos < 0 {
			continue
		}
		if o.id != 0 && t.rows[pos].RowID() == 0 {
			t.rows[pos] = t.rows[pos].WithID(o.id)
		}
		if t.edits[o.uid] == o.gen {
			t.pending.Clear(pos)
			continue
		}
		if o.isNew && t.rows[pos].RowID() != 0 {
			// created on the server but edited since: commit the edit as an update
			t.pending.Clear(pos)
			t.pending.MarkModified(pos)
		}
	}
	empty := t.pending.Empty()
	t.mu.Unlock()

	switch {
	case res.Failed == 0 && empty:
		t.persistQ.Cancel()
		t.persister.Clear(context.Background())
		t.scheduleRefresh()
	case res.Failed == 0:
		t.schedulePersist()
		t.scheduleRefresh()
	default:
		t.schedulePersist()
	}
	return res, nil
}

func (t *Table[T]) report(res Result) {
	t.logger.Info("validation finished", zap.Int("succeeded", res.Succeeded), zap.Int("failed", res.Failed))
	switch {
	case res.Failed == 0:
		t.opts.Notify.Success(fmt.Sprintf("%d row(s) validated", res.Succeeded))
	case res.Succeeded == 0:
		t.opts.Notify.Error(fmt.Sprintf("Validation failed for %d row(s)", res.Failed))
	default:
		t.opts.Notify.Warning(fmt.Sprintf("%d row(s) validated, %d failed", res.Succeeded, res.Failed))
	}
}

// guard runs fn with a per-request deadline and gives up at the deadline
// even if fn ignores its context.
func guard[R any](ctx context.Context, timeout time.Duration, fn func(context.Context) (R, error)) (R, error) {
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		value R
		err   error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn(cctx)
		done <- result{v, err}
	}()

	select {
	case r := <-done:
		return r.value, r.err
	case <-cctx.Done():
		var zero R
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		return zero, ErrTimeout
	}
}
