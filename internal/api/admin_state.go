package api

import (
	"encoding/json"
	"fmt"
	neturl "net/url"
	"time"

	"github.com/Eblazecode/Agrolinkernew/internal/state"
	"github.com/Eblazecode/Agrolinkernew/internal/store"
	"github.com/Eblazecode/Agrolinkernew/pkg/webhook"
)

// AdminState exposes the session store to the admin plane: GET /admin/state
// dumps every session keyed by id, POST replaces them all.
type AdminState struct {
	Store *store.MemoryStore
}

func (a AdminState) Snapshot() any { return a.Store.Snapshot() }

func (a AdminState) LoadState(data []byte) error {
	var snap map[string]state.State
	if err := json.Unmarshal(data, &snap); err != nil {
		return err
	}
	for id, st := range snap {
		if id == "" {
			return fmt.Errorf("empty session id")
		}
		if err := st.Validate(); err != nil {
			return fmt.Errorf("session %s: %w", id, err)
		}
	}
	a.Store.LoadSnapshot(snap)
	return nil
}

func (a AdminState) Reset() { a.Store.Reset() }

// ServerSettings is the runtime-tunable part of the HTTP server.
// *twincore.Twin satisfies it.
type ServerSettings interface {
	GetConfig() map[string]any
	UpdateConfig(updates map[string]any) error
}

var delayKeys = map[string]func(*store.Delays) *time.Duration{
	"login_delay":    func(d *store.Delays) *time.Duration { return &d.Login },
	"register_delay": func(d *store.Delays) *time.Duration { return &d.Register },
	"checkout_delay": func(d *store.Delays) *time.Duration { return &d.Checkout },
}

// WebhookSettings is the runtime-tunable part of the webhook dispatcher.
// *webhook.Dispatcher satisfies it.
type WebhookSettings interface {
	URL() string
	SetURL(url string)
	SetSecret(secret string)
	QueuedEvents() []webhook.Event
}

// RuntimeConfig adds the simulated intent delays and the webhook target to
// the server settings for GET and PATCH /admin/config.
type RuntimeConfig struct {
	Server   ServerSettings
	Store    *store.MemoryStore
	Webhooks WebhookSettings
}

func (c RuntimeConfig) GetConfig() map[string]any {
	out := c.Server.GetConfig()
	d := c.Store.Delays()
	for key, field := range delayKeys {
		out[key] = field(&d).String()
	}
	if c.Webhooks != nil {
		out["webhook_url"] = c.Webhooks.URL()
		out["webhook_pending"] = len(c.Webhooks.QueuedEvents())
	}
	return out
}

// webhookUpdate pulls webhook_url and webhook_secret out of updates.
func (c RuntimeConfig) webhookUpdate(updates map[string]any) (url, secret *string, err error) {
	for _, key := range []string{"webhook_url", "webhook_secret"} {
		v, ok := updates[key]
		if !ok {
			continue
		}
		if c.Webhooks == nil {
			return nil, nil, fmt.Errorf("%s: webhooks not configured", key)
		}
		s, ok := v.(string)
		if !ok {
			return nil, nil, fmt.Errorf("%s must be a string", key)
		}
		if key == "webhook_secret" {
			secret = &s
			continue
		}
		if s != "" {
			u, perr := neturl.Parse(s)
			if perr != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
				return nil, nil, fmt.Errorf("webhook_url must be an absolute http(s) URL")
			}
		}
		url = &s
	}
	return url, secret, nil
}

// UpdateConfig validates every key before applying any.
func (c RuntimeConfig) UpdateConfig(updates map[string]any) error {
	url, secret, err := c.webhookUpdate(updates)
	if err != nil {
		return err
	}
	delays := c.Store.Delays()
	rest := make(map[string]any, len(updates))
	for k, v := range updates {
		if k == "webhook_url" || k == "webhook_secret" {
			continue
		}
		field, ok := delayKeys[k]
		if !ok {
			rest[k] = v
			continue
		}
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("%s must be a duration string", k)
		}
		d, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", k, err)
		}
		if d < 0 {
			return fmt.Errorf("%s must not be negative", k)
		}
		*field(&delays) = d
	}
	if len(rest) > 0 {
		if err := c.Server.UpdateConfig(rest); err != nil {
			return err
		}
	}
	c.Store.SetDelays(delays)
	if url != nil {
		c.Webhooks.SetURL(*url)
	}
	if secret != nil {
		c.Webhooks.SetSecret(*secret)
	}
	return nil
}
