package demo

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/yndnr/embedhttp/pkg/embedhttp"
)

// EventStreamMIME is the Content-Type of /updates.
const EventStreamMIME = "text/event-stream"

// Feed pushes a counter to every subscribed connection as server-sent
// events. A connection subscribes by requesting /updates and stays
// subscribed until it closes or a push to it fails.
type Feed struct {
	interval time.Duration
	logger   *slog.Logger

	// pushMu orders pushes; mu guards subs and is never held across a write.
	pushMu sync.Mutex
	mu     sync.Mutex
	subs   map[embedhttp.Writer]struct{}
	value  int
}

// NewFeed creates a Feed that pushes every interval once Run is called.
func NewFeed(interval time.Duration, logger *slog.Logger) *Feed {
	if logger == nil {
		logger = slog.Default()
	}
	return &Feed{
		interval: interval,
		logger:   logger,
		subs:     make(map[embedhttp.Writer]struct{}),
	}
}

// Subscribe is the generic GET action for /updates. It sends the stream
// header and keeps the connection writer for later pushes.
func (f *Feed) Subscribe(w embedhttp.Writer, _ *embedhttp.Request) error {
	if _, err := w.WriteString(embedhttp.Header(EventStreamMIME, 0, false)); err != nil {
		return err
	}
	f.mu.Lock()
	f.subs[w] = struct{}{}
	f.mu.Unlock()
	return nil
}

// ConnectionCallback drops a connection's subscription before it closes.
func (f *Feed) ConnectionCallback(w embedhttp.Writer, ev embedhttp.ConnEvent) {
	if ev != embedhttp.Closing {
		return
	}
	f.mu.Lock()
	delete(f.subs, w)
	f.mu.Unlock()
}

// Subscribers returns the number of subscribed connections.
func (f *Feed) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

// Run pushes an event every interval until ctx is done.
func (f *Feed) Run(ctx context.Context) {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			f.Push()
		}
	}
}

// Push sends the next counter value to every subscriber right away. A slow
// subscriber delays the push but not subscription changes.
func (f *Feed) Push() {
	f.pushMu.Lock()
	defer f.pushMu.Unlock()

	f.mu.Lock()
	f.value++
	event := "data: " + strconv.Itoa(f.value) + "\r\n\r\n"
	subs := make([]embedhttp.Writer, 0, len(f.subs))
	for w := range f.subs {
		subs = append(subs, w)
	}
	f.mu.Unlock()

	var failed []embedhttp.Writer
	for _, w := range subs {
		if err := send(w, event); err != nil {
			f.logger.Debug("event stream subscriber dropped", "error", err)
			failed = append(failed, w)
		}
	}

	if len(failed) == 0 {
		return
	}
	f.mu.Lock()
	for _, w := range failed {
		delete(f.subs, w)
	}
	f.mu.Unlock()
}

func send(w embedhttp.Writer, event string) error {
	if _, err := w.WriteString(event); err != nil {
		return err
	}
	return w.Flush()
}
