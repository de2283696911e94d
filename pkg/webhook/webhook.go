// Package webhook delivers domain events to an HTTP endpoint with retries and
// optional payload signing.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Signer returns the headers that let a receiver verify payload.
type Signer interface {
	Sign(payload []byte, secret string, at time.Time) map[string]string
}

// HMACSigner signs "<unix>.<payload>" with HMAC-SHA256 and sends
// "t=<unix>,v1=<hex>" in Header.
type HMACSigner struct {
	Header string
}

func (s HMACSigner) Sign(payload []byte, secret string, at time.Time) map[string]string {
	ts := strconv.FormatInt(at.Unix(), 10)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(payload)
	header := s.Header
	if header == "" {
		header = "X-Agrotwin-Signature"
	}
	return map[string]string{header: "t=" + ts + ",v1=" + hex.EncodeToString(mac.Sum(nil))}
}

// Verify checks a header produced by HMACSigner.
func (s HMACSigner) Verify(payload []byte, secret, header string) bool {
	var ts, sig string
	for _, part := range bytes.Split([]byte(header), []byte(",")) {
		k, v, ok := bytes.Cut(part, []byte("="))
		if !ok {
			continue
		}
		switch string(k) {
		case "t":
			ts = string(v)
		case "v1":
			sig = string(v)
		}
	}
	unix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil || sig == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(unix, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	return hmac.Equal([]byte(hex.EncodeToString(mac.Sum(nil))), []byte(sig))
}

// Event is one outbound webhook.
type Event struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Payload   map[string]any `json:"data"`
	CreatedAt time.Time      `json:"created_at"`
}

// Delivery records one delivery attempt.
type Delivery struct {
	EventID    string    `json:"event_id"`
	URL        string    `json:"url"`
	StatusCode int       `json:"status_code"`
	Error      string    `json:"error,omitempty"`
	Attempt    int       `json:"attempt"`
	Timestamp  time.Time `json:"timestamp"`
}

// Config configures a Dispatcher. Zero values get defaults.
type Config struct {
	URL         string
	Secret      string
	Signer      Signer
	Logger      *slog.Logger
	Client      *http.Client
	MaxRetries  int
	RetryDelay  time.Duration
	EventPrefix string
	// AutoDeliver sends each event in the background as it is queued.
	AutoDeliver bool
	// MaxQueue bounds the events awaiting Flush; the oldest is dropped when
	// full. Defaults to 1000.
	MaxQueue int
	Now      func() time.Time
}

// Dispatcher queues events and delivers them to the configured URL.
type Dispatcher struct {
	mu         sync.RWMutex
	cfg        Config
	queue      []Event
	deliveries []Delivery
	inflight   sync.WaitGroup
}

func NewDispatcher(cfg Config) *Dispatcher {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.MaxQueue <= 0 {
		cfg.MaxQueue = 1000
	}
	if cfg.EventPrefix == "" {
		cfg.EventPrefix = "evt"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Dispatcher{cfg: cfg}
}

// SetURL changes the delivery URL. An empty URL disables delivery.
func (d *Dispatcher) SetURL(url string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cfg.URL = url
}

// URL returns the delivery URL.
func (d *Dispatcher) URL() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cfg.URL
}

func (d *Dispatcher) SetSecret(secret string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cfg.Secret = secret
}

// Enqueue queues an event. With AutoDeliver it is sent in the background and
// not kept in the queue. Without a URL the event is dropped.
func (d *Dispatcher) Enqueue(ctx context.Context, eventType string, payload map[string]any) Event {
	d.mu.Lock()
	evt := Event{
		ID:        d.cfg.EventPrefix + "_" + uuid.NewString(),
		Type:      eventType,
		Payload:   payload,
		CreatedAt: d.cfg.Now(),
	}
	if d.cfg.URL == "" {
		d.mu.Unlock()
		return evt
	}
	auto := d.cfg.AutoDeliver
	var dropped *Event
	if !auto {
		if len(d.queue) >= d.cfg.MaxQueue {
			oldest := d.queue[0]
			dropped = &oldest
			d.queue = d.queue[1:]
		}
		d.queue = append(d.queue, evt)
	}
	d.mu.Unlock()

	if dropped != nil {
		d.cfg.Logger.Warn("webhook queue full, dropping oldest event", "event_id", dropped.ID, "type", dropped.Type)
	}

	if auto {
		d.inflight.Add(1)
		go func() {
			defer d.inflight.Done()
			if err := d.deliver(context.WithoutCancel(ctx), evt); err != nil {
				d.cfg.Logger.Warn("webhook delivery failed", "event_id", evt.ID, "type", evt.Type, "err", err)
			}
		}()
	}
	return evt
}

// Flush delivers the events queued at call time, in order, and removes them
// from the queue. Events queued meanwhile stay for the next flush.
func (d *Dispatcher) Flush(ctx context.Context) error {
	d.mu.RLock()
	events := make([]Event, len(d.queue))
	copy(events, d.queue)
	d.mu.RUnlock()

	var errs []error
	for _, evt := range events {
		if err := d.deliver(ctx, evt); err != nil {
			errs = append(errs, fmt.Errorf("event %s: %w", evt.ID, err))
		}
	}

	d.mu.Lock()
	d.queue = append(d.queue[:0:0], d.queue[len(events):]...)
	d.mu.Unlock()
	return errors.Join(errs...)
}

// FlushWebhooks is Flush for the admin plane.
func (d *Dispatcher) FlushWebhooks(ctx context.Context) error {
	return d.Flush(ctx)
}

// Wait blocks until background deliveries finish or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) deliver(ctx context.Context, evt Event) error {
	d.mu.RLock()
	cfg := d.cfg
	d.mu.RUnlock()

	if cfg.URL == "" {
		cfg.Logger.Debug("no webhook URL configured, skipping delivery", "event_id", evt.ID)
		return nil
	}

	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.URL, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Agrotwin-Event", evt.Type)
		if cfg.Signer != nil && cfg.Secret != "" {
			for k, v := range cfg.Signer.Sign(payload, cfg.Secret, cfg.Now()) {
				req.Header.Set(k, v)
			}
		}

		delivery := Delivery{EventID: evt.ID, URL: cfg.URL, Attempt: attempt, Timestamp: cfg.Now()}
		resp, err := cfg.Client.Do(req)
		if err != nil {
			delivery.Error = err.Error()
			lastErr = err
		} else {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			delivery.StatusCode = resp.StatusCode
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				d.record(delivery)
				return nil
			}
			lastErr = fmt.Errorf("webhook delivery failed: status %d", resp.StatusCode)
		}
		d.record(delivery)

		if attempt < cfg.MaxRetries {
			select {
			case <-time.After(cfg.RetryDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return lastErr
}

func (d *Dispatcher) record(delivery Delivery) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deliveries = append(d.deliveries, delivery)
}

// Deliveries returns every recorded attempt.
func (d *Dispatcher) Deliveries() []Delivery {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Delivery, len(d.deliveries))
	copy(out, d.deliveries)
	return out
}

// QueuedEvents returns events awaiting Flush, oldest first.
func (d *Dispatcher) QueuedEvents() []Event {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Event, len(d.queue))
	copy(out, d.queue)
	return out
}

// Reset drops the queue and delivery history.
func (d *Dispatcher) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.queue = nil
	d.deliveries = nil
}
