// Package sse implements a Server-Sent Events broker for register change
// notifications.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"sync/atomic"
	"time"
)

// Event represents an SSE event to broadcast.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Event types broadcast by the broker.
const (
	TypeRegisterUpdated   = "register.updated"
	TypeAlphabeticUpdated = "alphabetic.updated"
	TypeBatchApplied      = "batch.applied"
)

// RegisterChange describes the updates applied to one volume register.
type RegisterChange struct {
	Volume  string `json:"volume"`
	Applied int    `json:"applied"`
	Failed  int    `json:"failed"`
}

// AlphabeticChange lists the volumes whose changes reached the alphabetic
// registers since the previous alphabetic.updated event.
type AlphabeticChange struct {
	Volumes []string `json:"volumes"`
}

const keepAlive = 30 * time.Second

type client struct {
	ch chan []byte
	// volumes filters register.updated; empty means every volume.
	volumes map[string]struct{}
}

func (c *client) wants(volume string) bool {
	if len(c.volumes) == 0 {
		return true
	}
	_, ok := c.volumes[volume]
	return ok
}

type subscription struct {
	ch      chan []byte
	volumes []string
}

// Broker manages SSE client connections and broadcasts events.
//
// A single event loop owns the clients, the event sequence and the pending
// alphabetic change. Public methods talk to it through channels.
type Broker struct {
	alphabeticMin time.Duration

	subscribeCh   chan subscription
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	changeCh      chan RegisterChange
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a new SSE broker. alphabeticThrottle is the minimum gap
// between two alphabetic.updated events; changes arriving inside the gap are
// folded into one trailing event.
func NewBroker(alphabeticThrottle time.Duration) *Broker {
	if alphabeticThrottle <= 0 {
		alphabeticThrottle = 2 * time.Second
	}

	b := &Broker{
		alphabeticMin: alphabeticThrottle,
		subscribeCh:   make(chan subscription),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		changeCh:      make(chan RegisterChange, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]*client)
	var seq uint64

	var lastAlphabetic time.Time
	var pending []string
	var trailing *time.Timer
	var trailingCh <-chan time.Time

	send := func(event Event, to func(*client) bool) {
		payload, err := json.Marshal(event.Data)
		if err != nil {
			return
		}
		seq++
		raw := []byte(fmt.Sprintf("id: %d\nevent: %s\ndata: %s\n\n", seq, event.Type, payload))

		for _, c := range clients {
			if to != nil && !to(c) {
				continue
			}
			select {
			case c.ch <- raw:
			default:
				// Slow client; drop rather than stall the loop.
			}
		}
	}

	flushAlphabetic := func(now time.Time) {
		lastAlphabetic = now
		send(Event{Type: TypeAlphabeticUpdated, Data: AlphabeticChange{Volumes: pending}}, nil)
		pending = nil
	}

	for {
		select {
		case <-b.stopCh:
			if trailing != nil {
				trailing.Stop()
			}
			for ch := range clients {
				close(ch)
			}
			return

		case sub := <-b.subscribeCh:
			c := &client{ch: sub.ch}
			if len(sub.volumes) > 0 {
				c.volumes = make(map[string]struct{}, len(sub.volumes))
				for _, v := range sub.volumes {
					c.volumes[v] = struct{}{}
				}
			}
			clients[sub.ch] = c

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case event := <-b.publishCh:
			send(event, nil)

		case change := <-b.changeCh:
			send(Event{Type: TypeRegisterUpdated, Data: change}, func(c *client) bool {
				return c.wants(change.Volume)
			})
			if change.Applied == 0 {
				continue
			}
			if !slices.Contains(pending, change.Volume) {
				pending = append(pending, change.Volume)
			}

			now := time.Now()
			if wait := b.alphabeticMin - now.Sub(lastAlphabetic); wait > 0 {
				if trailingCh == nil {
					trailing = time.NewTimer(wait)
					trailingCh = trailing.C
				}
				continue
			}
			flushAlphabetic(now)

		case now := <-trailingCh:
			trailingCh = nil
			if len(pending) > 0 {
				flushAlphabetic(now)
			}

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close gracefully stops broker loop and closes all client channels.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a new client and returns its channel. When volumes are
// given, register.updated events for other volumes are not delivered.
func (b *Broker) Subscribe(volumes ...string) chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- subscription{ch: ch, volumes: volumes}:
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

// Publish sends an event to all connected clients.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- event:
	case <-b.stopped:
	}
}

// PublishRegisterChange publishes a register change to the clients
// following its volume. Changes that applied anything also feed the
// throttled alphabetic.updated event.
func (b *Broker) PublishRegisterChange(change RegisterChange) {
	if b.closed.Load() {
		return
	}
	select {
	case b.changeCh <- change:
	case <-b.stopped:
	}
}

// ServeHTTP is the SSE endpoint handler (GET /api/events). Repeated
// ?volume= parameters restrict register.updated to those volumes.
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
	flusher.Flush()

	ch := b.Subscribe(r.URL.Query()["volume"]...)
	defer b.Unsubscribe(ch)

	ping := time.NewTicker(keepAlive)
	defer ping.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			_, _ = w.Write([]byte(": ping\n\n"))
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
