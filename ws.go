package main

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// feedBuffer is how many events a slow subscriber may fall behind before
// events are dropped for it.
const feedBuffer = 64

// FeedEvent describes one dispatched event.
type FeedEvent struct {
	Kind   string    `json:"kind"`
	Detail string    `json:"detail"`
	Error  string    `json:"error,omitempty"`
	Time   time.Time `json:"time"`
}

// Feed fans dispatched events out to websocket subscribers. Publish never
// blocks, so the event loop is never held up by a reader.
type Feed struct {
	mu   sync.Mutex
	subs map[uuid.UUID]chan FeedEvent
}

func NewFeed() *Feed {
	return &Feed{subs: map[uuid.UUID]chan FeedEvent{}}
}

func (f *Feed) Subscribe() (uuid.UUID, <-chan FeedEvent) {
	id := uuid.New()
	ch := make(chan FeedEvent, feedBuffer)
	f.mu.Lock()
	f.subs[id] = ch
	f.mu.Unlock()
	return id, ch
}

func (f *Feed) Unsubscribe(id uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ch, ok := f.subs[id]; ok {
		delete(f.subs, id)
		close(ch)
	}
}

// Len reports the number of subscribers.
func (f *Feed) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

// Publish is a no-op on a nil Feed.
func (f *Feed) Publish(ev FeedEvent) {
	if f == nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, ch := range f.subs {
		select {
		case ch <- ev:
		default:
			slog.Debug("Event feed subscriber is behind, dropping event", "subscriber", id, "kind", ev.Kind)
		}
	}
}

func makeWSHandler(
	handler func(context.Context, *websocket.Conn),
) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			slog.Warn("Websocket accept failed", "error", err)
			return
		}
		slog.Debug("Websocket connect", "path", r.URL.Path, "remote", r.RemoteAddr)
		defer slog.Debug("Websocket disconnect", "remote", r.RemoteAddr)
		defer c.Close(websocket.StatusInternalError, "")
		handler(r.Context(), c)
	}
}

// streamFeed writes every event published on f to c until the peer goes
// away.
func streamFeed(f *Feed) func(context.Context, *websocket.Conn) {
	return func(ctx context.Context, c *websocket.Conn) {
		// Subscribers only listen; CloseRead handles control frames and
		// cancels ctx when the peer closes.
		ctx = c.CloseRead(ctx)
		id, events := f.Subscribe()
		defer f.Unsubscribe(id)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				if err := wsjson.Write(ctx, c, ev); err != nil {
					slog.Debug("Websocket write failed", "subscriber", id, "error", err)
					return
				}
			}
		}
	}
}
