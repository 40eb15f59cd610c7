package events

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/scanhive/scanhive/pkg/defaults"
	"github.com/scanhive/scanhive/pkg/duration"
	"github.com/scanhive/scanhive/pkg/finding"
)

// Hook observes every published event. Implementations must be fast
// or internally asynchronous; a hook error is logged and never fails
// the publish. Hooks do not see the per-subscriber connected greeting.
type Hook interface {
	// OnEvent processes a single event.
	OnEvent(ctx context.Context, ev Event) error

	// Types returns the event types the hook wants. Empty means all.
	Types() []Type
}

// CancelFunc detaches a subscriber. Safe to call more than once.
type CancelFunc func()

// Broadcaster fans scan events out to per-scan subscribers and global
// hooks. One instance serves the whole process.
type Broadcaster struct {
	mu      sync.RWMutex
	streams map[string]*stream
	hooks   []Hook

	// retention is how long a completed scan's stream stays
	// subscribable for terminal-event replay before Sweep retires it.
	retention time.Duration

	logger *slog.Logger
}

type stream struct {
	mu       sync.Mutex
	subs     map[int]*subscriber
	nextID   int
	closed   bool
	final    Event
	retireAt time.Time
}

type subscriber struct {
	ch      chan Event
	dropped int
}

// New creates a broadcaster. logger may be nil.
func New(logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{
		streams:   make(map[string]*stream),
		retention: duration.StreamRetire,
		logger:    logger,
	}
}

// AttachHook registers a global observer. Call before scans start;
// hooks are not removable.
func (b *Broadcaster) AttachHook(h Hook) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hooks = append(b.hooks, h)
}

// Open creates the stream for a scan. Idempotent.
func (b *Broadcaster) Open(scanID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.streams[scanID]; !ok {
		b.streams[scanID] = &stream{subs: make(map[int]*subscriber)}
	}
}

// Subscribe attaches to a scan's event stream. The returned channel
// first yields a synthetic connected greeting, then every event
// published from this moment on; it is closed after the scan's
// complete event. Subscribing to an already-finished scan replays the
// terminal event once and closes. Unknown scans return ErrNotFound.
func (b *Broadcaster) Subscribe(scanID string) (<-chan Event, CancelFunc, error) {
	b.mu.RLock()
	st, ok := b.streams[scanID]
	b.mu.RUnlock()
	if !ok {
		return nil, nil, fmt.Errorf("%w: no event stream for %q", finding.ErrNotFound, scanID)
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if st.closed {
		// Terminal replay: greeting plus the final event, then EOF.
		ch := make(chan Event, 2)
		ch <- NewConnected(scanID)
		ch <- st.final
		close(ch)
		return ch, func() {}, nil
	}

	sub := &subscriber{ch: make(chan Event, defaults.SubscriberBuffer)}
	sub.ch <- NewConnected(scanID)
	id := st.nextID
	st.nextID++
	st.subs[id] = sub

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			st.mu.Lock()
			defer st.mu.Unlock()
			if s, ok := st.subs[id]; ok {
				delete(st.subs, id)
				close(s.ch)
			}
		})
	}
	return sub.ch, cancel, nil
}

// Publish delivers an event to every subscriber of the scan and to
// all hooks. It never blocks on a slow subscriber: a full queue drops
// the event for that subscriber and counts the loss. Publishing
// TypeComplete closes the stream.
func (b *Broadcaster) Publish(ctx context.Context, ev Event) {
	b.runHooks(ctx, ev)

	b.mu.RLock()
	st, ok := b.streams[ev.Scan]
	b.mu.RUnlock()
	if !ok {
		b.logger.Debug("no event stream", slog.String("scan_id", ev.Scan))
		return
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if st.closed {
		return
	}

	for id, sub := range st.subs {
		select {
		case sub.ch <- ev:
		default:
			sub.dropped++
			if sub.dropped == 1 || sub.dropped%100 == 0 {
				b.logger.Warn("subscriber queue full, dropping events",
					slog.String("scan_id", ev.Scan),
					slog.Int("subscriber", id),
					slog.Int("dropped", sub.dropped))
			}
		}
	}

	if ev.Type == TypeComplete {
		st.closed = true
		st.final = ev
		st.retireAt = time.Now().Add(b.retention)
		for id, sub := range st.subs {
			delete(st.subs, id)
			close(sub.ch)
		}
	}
}

// Sweep retires completed streams past their retention window and
// returns how many were removed. The engine calls this periodically.
func (b *Broadcaster) Sweep(now time.Time) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	removed := 0
	for id, st := range b.streams {
		st.mu.Lock()
		expired := st.closed && now.After(st.retireAt)
		st.mu.Unlock()
		if expired {
			delete(b.streams, id)
			removed++
		}
	}
	return removed
}

// Subscribers reports the current subscriber count for a scan.
func (b *Broadcaster) Subscribers(scanID string) int {
	b.mu.RLock()
	st, ok := b.streams[scanID]
	b.mu.RUnlock()
	if !ok {
		return 0
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.subs)
}

func (b *Broadcaster) runHooks(ctx context.Context, ev Event) {
	b.mu.RLock()
	hooks := b.hooks
	b.mu.RUnlock()

	for _, h := range hooks {
		if !hookWants(h, ev.Type) {
			continue
		}
		if err := h.OnEvent(ctx, ev); err != nil {
			b.logger.Warn("event hook failed",
				slog.String("scan_id", ev.Scan),
				slog.String("type", string(ev.Type)),
				slog.String("error", err.Error()))
		}
	}
}

func hookWants(h Hook, t Type) bool {
	types := h.Types()
	if len(types) == 0 {
		return true
	}
	for _, want := range types {
		if want == t {
			return true
		}
	}
	return false
}
