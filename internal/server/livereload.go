package server

import (
	"bufio"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/metrics"
)

const heartbeatInterval = 30 * time.Second

// ReloadEvent is the payload sent to browsers after a successful rebuild.
// CSS-only events let the client swap stylesheets instead of reloading.
type ReloadEvent struct {
	Version string `json:"version"`
	Group   string `json:"group,omitempty"`
}

// LiveReloadHub manages SSE clients and fans reload events out to them.
type LiveReloadHub struct {
	mu       sync.Mutex
	nextID   int
	clients  map[int]*lrClient
	recorder metrics.Recorder
	logger   *slog.Logger
	closed   bool
}

type lrClient struct {
	ch   chan ReloadEvent
	done chan struct{}
}

// NewLiveReloadHub creates an empty hub. A nil recorder disables the client gauge.
func NewLiveReloadHub(recorder metrics.Recorder, logger *slog.Logger) *LiveReloadHub {
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LiveReloadHub{clients: map[int]*lrClient{}, recorder: recorder, logger: logger}
}

// Clients returns the number of connected browsers.
func (h *LiveReloadHub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeHTTP implements the SSE endpoint.
func (h *LiveReloadHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "stream unsupported", http.StatusInternalServerError)
		return
	}
	id, client, ok := h.register()
	if !ok {
		http.Error(w, "livereload shutting down", http.StatusServiceUnavailable)
		return
	}
	defer h.remove(id)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	bw := bufio.NewWriter(w)
	send := func(s string) bool {
		if _, err := bw.WriteString(s); err != nil {
			h.logger.Debug("livereload write", logfields.Error(err))
			return false
		}
		if err := bw.Flush(); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}
	if !send(": connected\n\n") {
		return
	}

	hb := time.NewTicker(heartbeatInterval)
	defer hb.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-client.done:
			return
		case <-hb.C:
			if !send(": ping\n\n") {
				return
			}
		case ev := <-client.ch:
			payload, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			if !send("data: " + string(payload) + "\n\n") {
				return
			}
		}
	}
}

func (h *LiveReloadHub) register() (int, *lrClient, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return 0, nil, false
	}
	c := &lrClient{ch: make(chan ReloadEvent, 8), done: make(chan struct{})}
	id := h.nextID
	h.nextID++
	h.clients[id] = c
	h.recorder.SetLiveReloadClients(len(h.clients))
	return id, c, true
}

func (h *LiveReloadHub) remove(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.clients[id]; ok {
		delete(h.clients, id)
		close(c.done)
		h.recorder.SetLiveReloadClients(len(h.clients))
	}
}

// Reload broadcasts a reload for the rebuilt group.
func (h *LiveReloadHub) Reload(group string) {
	h.Broadcast(ReloadEvent{Version: strconv.FormatInt(time.Now().UnixNano(), 10), Group: group})
}

// Broadcast sends ev to every client. Clients whose buffers are full are dropped.
func (h *LiveReloadHub) Broadcast(ev ReloadEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	dropped := 0
	for id, c := range h.clients {
		select {
		case c.ch <- ev:
		default:
			delete(h.clients, id)
			close(c.done)
			dropped++
		}
	}
	if dropped > 0 {
		h.recorder.SetLiveReloadClients(len(h.clients))
	}
	h.logger.Debug("livereload broadcast", slog.String("group", ev.Group), logfields.Count(len(h.clients)), slog.Int("dropped", dropped))
}

// Shutdown disconnects every client and rejects new ones.
func (h *LiveReloadHub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, c := range h.clients {
		delete(h.clients, id)
		close(c.done)
	}
	h.recorder.SetLiveReloadClients(0)
}

// LiveReloadScript is served at /livereload.js.
const LiveReloadScript = `(function () {
  if (window.__SITEBUILDER_LR__) return;
  window.__SITEBUILDER_LR__ = true;
  function refreshCSS() {
    var links = document.querySelectorAll('link[rel="stylesheet"]');
    for (var i = 0; i < links.length; i++) {
      var url = new URL(links[i].href, location.href);
      url.searchParams.set('lr', Date.now());
      links[i].href = url.toString();
    }
  }
  function connect() {
    var es = new EventSource('/livereload');
    es.onmessage = function (e) {
      try {
        var ev = JSON.parse(e.data);
        if (ev.group === 'css') { refreshCSS(); return; }
        location.reload();
      } catch (_) {}
    };
    es.onerror = function () { es.close(); setTimeout(connect, 2000); };
  }
  connect();
})();
`
