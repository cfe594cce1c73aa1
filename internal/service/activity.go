package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sumire/triage/internal/domain"
)

// ActivityStore persists activity events.
type ActivityStore interface {
	Record(ctx context.Context, event domain.ActivityEvent) error
}

// ActivityConfig configures the dispatcher.
type ActivityConfig struct {
	Workers    int
	QueueSize  int
	WebhookURL string
}

// ActivityDispatcher is the asynchronous ActivityNotifier: events are queued
// without blocking the request path and drained by a fixed worker pool that
// persists each record and, when configured, posts it to a webhook. Worker
// failures are logged and swallowed; request correctness never depends on
// delivery.
type ActivityDispatcher struct {
	store   ActivityStore
	queue   chan domain.ActivityEvent
	webhook string
	client  *http.Client
	workers int

	group  *errgroup.Group
	once   sync.Once
	closed chan struct{}
}

// NewActivityDispatcher creates a stopped dispatcher.
func NewActivityDispatcher(store ActivityStore, cfg ActivityConfig) *ActivityDispatcher {
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	size := cfg.QueueSize
	if size < 1 {
		size = 64
	}
	return &ActivityDispatcher{
		store:   store,
		queue:   make(chan domain.ActivityEvent, size),
		webhook: cfg.WebhookURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		workers: workers,
		closed:  make(chan struct{}),
	}
}

// Start launches the worker pool.
func (d *ActivityDispatcher) Start() {
	d.group = &errgroup.Group{}
	for i := 0; i < d.workers; i++ {
		d.group.Go(func() error {
			for event := range d.queue {
				d.process(event)
			}
			return nil
		})
	}
}

// Notify enqueues an event. It never blocks: when the queue is full the event
// is dropped with a log line, and events arriving after Stop are discarded.
func (d *ActivityDispatcher) Notify(event domain.ActivityEvent) {
	select {
	case <-d.closed:
		return
	default:
	}
	select {
	case d.queue <- event:
	default:
		slog.Warn("activity queue full, dropping event",
			"type", event.Type, "issue_id", event.IssueID)
	}
}

// Stop drains the queue and waits for the workers to finish.
func (d *ActivityDispatcher) Stop() {
	d.once.Do(func() {
		close(d.closed)
		close(d.queue)
	})
	if d.group != nil {
		_ = d.group.Wait()
	}
}

func (d *ActivityDispatcher) process(event domain.ActivityEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := d.store.Record(ctx, event); err != nil {
		slog.Error("record issue activity", "error", err,
			"type", event.Type, "issue_id", event.IssueID)
	}

	if d.webhook == "" {
		return
	}
	if err := d.post(ctx, event); err != nil {
		slog.Error("post activity webhook", "error", err,
			"type", event.Type, "issue_id", event.IssueID)
	}
}

func (d *ActivityDispatcher) post(ctx context.Context, event domain.ActivityEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhook, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
