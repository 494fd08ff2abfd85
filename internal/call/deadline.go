package call

import (
	"sync"
	"time"
)

// deadline is a re-armable one-shot timer. A timer that fires after being
// disarmed or re-armed does nothing.
type deadline struct {
	mu    sync.Mutex
	timer *time.Timer
	gen   uint64
}

func (d *deadline) arm(after time.Duration, fire func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.timer = time.AfterFunc(after, func() {
		d.mu.Lock()
		live := d.gen == gen
		if live {
			d.timer = nil
		}
		d.mu.Unlock()
		if live {
			fire()
		}
	})
}

func (d *deadline) disarm() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
}

func (d *deadline) armed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}
