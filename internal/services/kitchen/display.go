package kitchen

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"restaurant-pos/internal/logger"
)

// DefaultPollInterval matches the kitchen screen refresh rate.
const DefaultPollInterval = 5 * time.Second

// Snapshot is the result of one poll, diffed against the previous one.
type Snapshot struct {
	Tickets []Ticket
	Added   int
	Updated int
	Cleared int
}

// Display is the kitchen screen client. It polls the feed on a fixed interval
// and logs tickets as they appear, change status, or leave the queue.
type Display struct {
	client   *http.Client
	feedURL  string
	interval time.Duration
	logger   *logger.Logger

	// status of every ticket in the previous poll
	seen map[uuid.UUID]string
}

func NewDisplay(feedURL string, interval time.Duration, client *http.Client, log *logger.Logger) *Display {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if client == nil {
		client = &http.Client{Timeout: interval}
	}
	return &Display{
		client:   client,
		feedURL:  feedURL,
		interval: interval,
		logger:   log,
		seen:     make(map[uuid.UUID]string),
	}
}

// Run polls until ctx is cancelled. Poll failures are logged and retried on
// the next tick.
func (d *Display) Run(ctx context.Context) error {
	requestID := logger.GenerateRequestID()
	d.logger.Info("display_started", "Kitchen display started", requestID, map[string]interface{}{
		"feed_url":      d.feedURL,
		"poll_interval": d.interval.String(),
	})

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		if _, err := d.Poll(ctx); err != nil && ctx.Err() == nil {
			d.logger.Error("poll_failed", "Failed to poll kitchen feed", requestID, err, map[string]interface{}{
				"feed_url": d.feedURL,
			})
		}

		select {
		case <-ctx.Done():
			d.logger.Info("graceful_shutdown", "Kitchen display stopped", requestID, nil)
			return nil
		case <-ticker.C:
		}
	}
}

// Poll fetches the feed once.
func (d *Display) Poll(ctx context.Context) (*Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build feed request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch kitchen feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("kitchen feed returned %d: %s", resp.StatusCode, body)
	}

	var tickets []Ticket
	if err := json.NewDecoder(resp.Body).Decode(&tickets); err != nil {
		return nil, fmt.Errorf("failed to decode kitchen feed: %w", err)
	}

	snap := d.reconcile(tickets)
	return snap, nil
}

func (d *Display) reconcile(tickets []Ticket) *Snapshot {
	snap := &Snapshot{Tickets: tickets}
	current := make(map[uuid.UUID]string, len(tickets))

	for _, t := range tickets {
		current[t.ID] = t.Status
		prev, ok := d.seen[t.ID]
		switch {
		case !ok:
			snap.Added++
			d.logger.Info("ticket_new", fmt.Sprintf("Order #%d: %s", t.OrderNumber, summarize(t)), "", map[string]interface{}{
				"order_id":     t.ID.String(),
				"order_number": t.OrderNumber,
				"status":       t.Status,
				"age_minutes":  int(time.Since(t.CreatedAt).Minutes()),
			})
		case prev != t.Status:
			snap.Updated++
			d.logger.Info("ticket_updated", fmt.Sprintf("Order #%d is now %s", t.OrderNumber, t.Status), "", map[string]interface{}{
				"order_id":   t.ID.String(),
				"old_status": prev,
				"new_status": t.Status,
			})
		}
	}

	for id := range d.seen {
		if _, ok := current[id]; !ok {
			snap.Cleared++
			d.logger.Debug("ticket_cleared", "Order left the kitchen queue", "", map[string]interface{}{
				"order_id": id.String(),
			})
		}
	}

	d.seen = current
	return snap
}

func summarize(t Ticket) string {
	out := ""
	for i, item := range t.Items {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprintf("%dx %s", item.Quantity, item.ItemName.En)
		if item.SizeName != nil {
			out += " (" + item.SizeName.En + ")"
		}
	}
	return out
}
