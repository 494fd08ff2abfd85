// Package notify is a tick-driven priority queue of transient status
// messages. It is decoupled from display: a single listener receives the
// items the queue decides to report.
package notify

import (
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Level orders items. Higher levels are consumed first.
type Level int

const (
	LevelLow Level = iota + 1
	LevelMiddle
	LevelHigh
)

func (l Level) String() string {
	switch l {
	case LevelLow:
		return "low"
	case LevelMiddle:
		return "middle"
	case LevelHigh:
		return "high"
	default:
		return "unknown"
	}
}

// Frequency controls when consumed items are reported.
type Frequency int

const (
	// Once reports an item only when it is evicted.
	Once Frequency = iota + 1
	// Always reports the consumed item on every tick.
	Always
	// Never reports nothing.
	Never
)

// Forever marks an item that is never evicted by ticking.
const Forever = time.Duration(math.MaxInt64)

const (
	DefaultInterval = 500 * time.Millisecond
	DefaultTime     = time.Second
)

// Item is a queued message.
type Item struct {
	ID        string
	Level     Level
	Content   string
	Lazy      func() string
	Remaining time.Duration
}

// Text resolves the item content, preferring the lazy producer.
func (i Item) Text() string {
	if i.Lazy != nil {
		return i.Lazy()
	}
	return i.Content
}

// Infinite reports whether the item blocks until removed explicitly.
func (i Item) Infinite() bool { return i.Remaining == Forever }

// ShowParams describes a new item. Zero Level means LevelLow and zero
// Time means DefaultTime.
type ShowParams struct {
	Level   Level
	Content string
	Lazy    func() string
	Time    time.Duration
}

// Patch changes selected fields of an existing item. Nil fields are kept.
type Patch struct {
	Level   *Level
	Content *string
	Lazy    func() string
	Time    *time.Duration
}

// Listener receives reported items on the queue goroutine.
type Listener func(Item)

// Options configures a Queue.
type Options struct {
	Interval        time.Duration
	NoticeFrequency Frequency
	Logger          zerolog.Logger
}

// Queue holds items newest first and consumes one per tick.
type Queue struct {
	interval time.Duration
	freq     Frequency
	log      zerolog.Logger

	mu       sync.Mutex
	items    []*Item
	listener Listener

	started bool
	stop    chan struct{}
	done    chan struct{}
	destroy sync.Once
}

// New builds a queue and starts its ticker. Call Destroy to stop it.
func New(opts Options) *Queue {
	q := newQueue(opts)
	q.started = true
	go q.run()
	return q
}

func newQueue(opts Options) *Queue {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.NoticeFrequency == 0 {
		opts.NoticeFrequency = Once
	}
	return &Queue{
		interval: opts.Interval,
		freq:     opts.NoticeFrequency,
		log:      opts.Logger.With().Str("component", "notify").Logger(),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (q *Queue) run() {
	defer close(q.done)
	ticker := time.NewTicker(q.interval)
	defer ticker.Stop()
	for {
		select {
		case <-q.stop:
			return
		case <-ticker.C:
			q.consume()
		}
	}
}

// consume handles the highest level item once.
func (q *Queue) consume() {
	q.mu.Lock()
	idx := q.head()
	if idx < 0 {
		q.mu.Unlock()
		return
	}
	it := q.items[idx]
	// Listeners see the item as it was before this tick.
	snapshot := *it
	var report bool
	switch {
	case it.Remaining == Forever:
		report = q.freq == Always
	case it.Remaining > 0:
		it.Remaining -= q.interval
		report = q.freq == Always
	default:
		q.items = append(q.items[:idx], q.items[idx+1:]...)
		report = q.freq == Always || q.freq == Once
	}
	listener := q.listener
	q.mu.Unlock()

	if report && listener != nil {
		q.deliver(listener, snapshot)
	}
}

// head returns the index of the newest item of the highest level, or -1.
func (q *Queue) head() int {
	idx := -1
	for i, it := range q.items {
		if idx < 0 || it.Level > q.items[idx].Level {
			idx = i
		}
	}
	return idx
}

func (q *Queue) deliver(l Listener, it Item) {
	defer func() {
		if r := recover(); r != nil {
			q.log.Error().Interface("panic", r).Str("notice_id", it.ID).Msg("notice listener panicked")
		}
	}()
	l(it)
}

// Show inserts an item in front of the queue and returns its id.
func (q *Queue) Show(p ShowParams) string {
	it := &Item{
		ID:        uuid.NewString(),
		Level:     p.Level,
		Content:   p.Content,
		Lazy:      p.Lazy,
		Remaining: p.Time,
	}
	if it.Level == 0 {
		it.Level = LevelLow
	}
	if it.Remaining == 0 {
		it.Remaining = DefaultTime
	}

	q.mu.Lock()
	q.items = append([]*Item{it}, q.items...)
	q.mu.Unlock()

	q.log.Debug().Str("notice_id", it.ID).Str("level", it.Level.String()).Bool("forever", it.Infinite()).Msg("notice shown")
	return it.ID
}

// Get returns a copy of the item with id.
func (q *Queue) Get(id string) (Item, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if i := q.index(id); i >= 0 {
		return *q.items[i], true
	}
	return Item{}, false
}

// Update applies p to the item with id. It reports whether the item exists.
func (q *Queue) Update(id string, p Patch) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	i := q.index(id)
	if i < 0 {
		return false
	}
	it := q.items[i]
	if p.Level != nil {
		it.Level = *p.Level
	}
	if p.Content != nil {
		it.Content = *p.Content
	}
	if p.Lazy != nil {
		it.Lazy = p.Lazy
	}
	if p.Time != nil {
		it.Remaining = *p.Time
	}
	return true
}

// Hide removes the item with id. It reports whether the item existed.
func (q *Queue) Hide(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	i := q.index(id)
	if i < 0 {
		return false
	}
	q.items = append(q.items[:i], q.items[i+1:]...)
	return true
}

// Clear removes every item.
func (q *Queue) Clear() {
	q.mu.Lock()
	q.items = nil
	q.mu.Unlock()
}

// Len is the number of queued items.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Subscribe installs the listener, replacing the previous one.
func (q *Queue) Subscribe(l Listener) {
	q.mu.Lock()
	q.listener = l
	q.mu.Unlock()
}

// Destroy stops the ticker goroutine and drops the listener. Safe to call
// more than once.
func (q *Queue) Destroy() {
	q.destroy.Do(func() {
		close(q.stop)
		q.mu.Lock()
		q.listener = nil
		q.mu.Unlock()
	})
	if q.started {
		<-q.done
	}
}

func (q *Queue) index(id string) int {
	for i, it := range q.items {
		if it.ID == id {
			return i
		}
	}
	return -1
}
