package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/CesValde/MongoCart/internal/broadcast"
	"github.com/CesValde/MongoCart/internal/service"
)

const snapshotTimeout = 5 * time.Second

// LiveFeed streams the current product listing to every connected viewer over
// server-sent events: once on connect, then again whenever a catalog or cart
// mutation announces a change.
type LiveFeed struct {
	catalog *service.CatalogService
	events  <-chan broadcast.Event

	mu      sync.Mutex
	clients map[chan []byte]struct{}
}

func NewLiveFeed(catalog *service.CatalogService, events <-chan broadcast.Event) *LiveFeed {
	return &LiveFeed{
		catalog: catalog,
		events:  events,
		clients: make(map[chan []byte]struct{}),
	}
}

// Run fans incoming change events out to connected viewers. It returns when
// ctx is cancelled or the event channel closes.
func (f *LiveFeed) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-f.events:
			if !ok {
				return
			}
			data, err := f.snapshot(ctx)
			if err != nil {
				logrus.WithError(err).Warn("live feed: snapshot failed")
				continue
			}
			f.broadcastToClients(data)
		}
	}
}

// snapshot renders the first listing page, the same payload a fresh viewer
// receives on connect.
func (f *LiveFeed) snapshot(ctx context.Context) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, snapshotTimeout)
	defer cancel()

	page, err := f.catalog.List(ctx, service.ListQuery{})
	if err != nil {
		return nil, err
	}
	return json.Marshal(page.Payload)
}

func (f *LiveFeed) broadcastToClients(data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.clients {
		select {
		case ch <- data:
		default:
			// Slow viewer; it will catch up on the next broadcast.
		}
	}
}

func (f *LiveFeed) subscribe() chan []byte {
	ch := make(chan []byte, 4)
	f.mu.Lock()
	f.clients[ch] = struct{}{}
	f.mu.Unlock()
	return ch
}

func (f *LiveFeed) unsubscribe(ch chan []byte) {
	f.mu.Lock()
	delete(f.clients, ch)
	f.mu.Unlock()
}

// Products is the SSE endpoint. It pushes the current listing immediately,
// then every broadcast until the client disconnects.
func (f *LiveFeed) Products(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := f.subscribe()
	defer f.unsubscribe(ch)

	if data, err := f.snapshot(r.Context()); err == nil {
		writeSSE(w, data)
		flusher.Flush()
	} else {
		logrus.WithError(err).Warn("live feed: initial snapshot failed")
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case data := <-ch:
			writeSSE(w, data)
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, data []byte) {
	fmt.Fprintf(w, "event: products\ndata: %s\n\n", data)
}
