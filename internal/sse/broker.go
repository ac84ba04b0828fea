// Package sse streams route tree changes to browsers as Server-Sent Events.
package sse

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/starford/routetree/internal/models"
	"github.com/starford/routetree/internal/routetree"
)

// Event types sent to clients.
const (
	// EventRouteCreated carries the committed route. One per commit.
	EventRouteCreated = "route.created"
	// EventTreeUpdated carries routetree.Stats. At most one per throttle
	// window; the last commit in a window is always reported when it closes.
	EventTreeUpdated = "tree.updated"
)

// clientBuffer is how many frames a slow client may lag before frames are dropped for it.
const clientBuffer = 64

type change struct {
	route models.Route
	stats routetree.Stats
}

// Broker fans route commits out to SSE clients.
//
// A single goroutine owns the client set, the frame sequence and the
// tree.updated throttle; public methods talk to it over channels.
type Broker struct {
	throttle time.Duration

	subscribeCh   chan chan []byte
	unsubscribeCh chan chan []byte
	changeCh      chan change
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker starts a broker that sends tree.updated at most once per throttle.
func NewBroker(throttle time.Duration) *Broker {
	if throttle <= 0 {
		throttle = 2 * time.Second
	}

	b := &Broker{
		throttle:      throttle,
		subscribeCh:   make(chan chan []byte),
		unsubscribeCh: make(chan chan []byte),
		changeCh:      make(chan change, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go b.run()
	return b
}

// loop is the state owned by the broker goroutine.
type loop struct {
	clients map[chan []byte]struct{}
	seq     uint64

	// latest is the most recent stats, sent to new subscribers and on flush.
	latest   *routetree.Stats
	lastTree time.Time
	pending  bool
}

// frame encodes one SSE message. Every frame gets the next id so clients can
// tell whether they missed any.
func (l *loop) frame(eventType string, data any) ([]byte, bool) {
	payload, err := json.Marshal(data)
	if err != nil {
		slog.Error("sse: encode event", slog.String("type", eventType), slog.String("error", err.Error()))
		return nil, false
	}
	l.seq++
	return []byte(fmt.Sprintf("id: %d\nevent: %s\ndata: %s\n\n", l.seq, eventType, payload)), true
}

func (l *loop) send(ch chan []byte, msg []byte) {
	select {
	case ch <- msg:
	default:
		// Slow client; it misses this frame rather than stalling everyone.
	}
}

func (l *loop) broadcast(eventType string, data any) {
	msg, ok := l.frame(eventType, data)
	if !ok {
		return
	}
	for ch := range l.clients {
		l.send(ch, msg)
	}
}

func (l *loop) sendTree(now time.Time) {
	l.pending = false
	l.lastTree = now
	l.broadcast(EventTreeUpdated, l.latest)
}

func (b *Broker) run() {
	defer close(b.stopped)

	l := &loop{clients: make(map[chan []byte]struct{})}

	var timer *time.Timer
	var flush <-chan time.Time

	for {
		select {
		case <-b.stopCh:
			if timer != nil {
				timer.Stop()
			}
			for ch := range l.clients {
				close(ch)
			}
			return

		case ch := <-b.subscribeCh:
			l.clients[ch] = struct{}{}
			if l.latest != nil {
				if msg, ok := l.frame(EventTreeUpdated, l.latest); ok {
					l.send(ch, msg)
				}
			}

		case ch := <-b.unsubscribeCh:
			if _, ok := l.clients[ch]; ok {
				delete(l.clients, ch)
				close(ch)
			}

		case c := <-b.changeCh:
			l.broadcast(EventRouteCreated, c.route)
			stats := c.stats
			l.latest = &stats

			now := time.Now()
			wait := b.throttle - now.Sub(l.lastTree)
			switch {
			case wait <= 0:
				l.sendTree(now)
			case !l.pending:
				l.pending = true
				if timer == nil {
					timer = time.NewTimer(wait)
				} else {
					timer.Reset(wait)
				}
				flush = timer.C
			}

		case <-flush:
			flush = nil
			if l.pending {
				l.sendTree(time.Now())
			}

		case resp := <-b.countReqCh:
			resp <- len(l.clients)
		}
	}
}

// Close stops the broker and closes every client channel. Safe to call twice.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe registers a client. If any route has been committed, the
// channel starts with a tree.updated frame carrying the latest stats.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, clientBuffer)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- ch:
	case <-b.stopped:
		close(ch)
	}
	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}

	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// PublishRouteCreated queues a commit: route.created now, tree.updated
// within the throttle window.
func (b *Broker) PublishRouteCreated(r models.Route, stats routetree.Stats) {
	if b.closed.Load() {
		return
	}
	select {
	case b.changeCh <- change{route: r, stats: stats}:
	case <-b.stopped:
	}
}

// ServeHTTP streams events to one client (GET /api/events).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	// Reconnect delay hint for EventSource, in milliseconds.
	_, _ = fmt.Fprintf(w, "retry: %d\n\n", b.throttle.Milliseconds())
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
