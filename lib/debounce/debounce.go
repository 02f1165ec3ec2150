package debounce

import (
	"sync"
	"time"
)

// Debouncer smooths a busy/idle signal. Becoming busy is reported at once; becoming idle is reported only after the
// window elapses without the signal turning busy again.
type Debouncer struct {
	mu       sync.Mutex
	window   time.Duration
	onChange func(busy bool)
	busy     bool
	timer    *time.Timer
	gen      uint64
}

// New returns a Debouncer that reports state changes to onChange. onChange is called with the debouncer's lock held
// so it must not call back into the debouncer.
func New(window time.Duration, onChange func(busy bool)) *Debouncer {
	return &Debouncer{
		window:   window,
		onChange: onChange,
	}
}

// Set records the latest raw state.
func (d *Debouncer) Set(busy bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if busy {
		d.cancelLocked()
		if !d.busy {
			d.busy = true
			d.onChange(true)
		}
		return
	}

	if !d.busy || d.timer != nil {
		return
	}
	if d.window <= 0 {
		d.busy = false
		d.onChange(false)
		return
	}

	gen := d.gen
	d.timer = time.AfterFunc(d.window, func() {
		d.fire(gen)
	})
}

// Busy returns the state last reported to onChange.
func (d *Debouncer) Busy() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.busy
}

// Stop drops any pending idle report.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancelLocked()
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	// a busy signal or Stop raced with the timer
	if gen != d.gen || !d.busy {
		return
	}
	d.timer = nil
	d.busy = false
	d.onChange(false)
}

func (d *Debouncer) cancelLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
}
