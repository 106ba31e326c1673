package resolver

import (
	"context"
	"sync"
	"time"

	"github.com/theoremus-urban-solutions/gtfs-journey/utils"
)

// DefaultDebounce is the quiet period before a typed query is geocoded.
const DefaultDebounce = 600 * time.Millisecond

// Debouncer runs at most one pending task per input field. Scheduling a
// task cancels the field's previous one, whether it is still waiting or
// already running.
type Debouncer struct {
	timers  utils.Timers
	mu      sync.Mutex
	tasks   map[string]*debounceTask
	stopped bool
	wg      sync.WaitGroup
}

type debounceTask struct {
	timer  utils.Timer
	cancel context.CancelFunc
}

// NewDebouncer schedules tasks on timers, the system clock when nil.
func NewDebouncer(timers utils.Timers) *Debouncer {
	if timers == nil {
		timers = utils.SystemClock{}
	}
	return &Debouncer{timers: timers, tasks: map[string]*debounceTask{}}
}

// Schedule runs fn after delay unless another Schedule or Cancel for the
// same field comes first. fn's context is cancelled when it is superseded.
func (d *Debouncer) Schedule(field string, delay time.Duration, fn func(ctx context.Context)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.cancelLocked(field)

	ctx, cancel := context.WithCancel(context.Background())
	t := &debounceTask{cancel: cancel}
	d.wg.Add(1)
	t.timer = d.timers.AfterFunc(delay, func() {
		defer d.wg.Done()
		defer func() {
			d.mu.Lock()
			if d.tasks[field] == t {
				delete(d.tasks, field)
			}
			d.mu.Unlock()
			cancel()
		}()
		if ctx.Err() != nil {
			return
		}
		fn(ctx)
	})
	d.tasks[field] = t
}

// Cancel drops the field's pending task.
func (d *Debouncer) Cancel(field string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancelLocked(field)
}

func (d *Debouncer) cancelLocked(field string) {
	t, ok := d.tasks[field]
	if !ok {
		return
	}
	delete(d.tasks, field)
	t.cancel()
	if t.timer.Stop() {
		// never fired, so its callback will not release the wait group
		d.wg.Done()
	}
}

// Pending reports whether the field has a task waiting or running.
func (d *Debouncer) Pending(field string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.tasks[field]
	return ok
}

// Stop cancels every task, waits for running ones to return and rejects
// further scheduling.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	d.stopped = true
	for field := range d.tasks {
		d.cancelLocked(field)
	}
	d.mu.Unlock()
	d.wg.Wait()
}
