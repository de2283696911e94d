// Package twincore provides the HTTP server core of agrotwin: the chi router
// with its middleware chain, runtime-tunable settings, graceful shutdown and
// JSON response helpers.
package twincore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// Config is the server's runtime configuration.
type Config struct {
	Name     string
	Host     string
	Port     int
	Latency  time.Duration
	FailRate float64
	Verbose  bool
	// ShutdownTimeout bounds graceful shutdown. Zero means 10s.
	ShutdownTimeout time.Duration
}

// Addr returns host:port.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, fmt.Sprint(c.Port))
}

// Option customises a Twin.
type Option func(*options)

type options struct {
	logOutput io.Writer
	observer  Observer
}

// WithLogOutput sends the JSON log to w instead of stdout.
func WithLogOutput(w io.Writer) Option {
	return func(o *options) { o.logOutput = w }
}

// WithObserver reports every request to obs.
func WithObserver(obs Observer) Option {
	return func(o *options) { o.observer = obs }
}

// Twin is the HTTP server. Handlers mount on Router; settings can be changed
// while serving through UpdateConfig.
type Twin struct {
	Router *chi.Mux
	Logger *slog.Logger

	cfg   atomic.Pointer[Config]
	level *slog.LevelVar
	mw    *Middleware
}

// New builds a Twin with the standard middleware chain installed.
func New(cfg Config, opts ...Option) *Twin {
	o := options{logOutput: os.Stdout}
	for _, opt := range opts {
		opt(&o)
	}

	level := new(slog.LevelVar)
	if cfg.Verbose {
		level.Set(slog.LevelDebug)
	}
	logger := slog.New(slog.NewJSONHandler(o.logOutput, &slog.HandlerOptions{Level: level}))
	if cfg.Name != "" {
		logger = logger.With("twin", cfg.Name)
	}

	t := &Twin{
		Router: chi.NewRouter(),
		Logger: logger,
		level:  level,
	}
	t.cfg.Store(&cfg)
	t.mw = NewMiddleware(t.Config, logger, o.observer)

	// Latency and failure middleware are always mounted; they read the
	// current settings on every request.
	t.Router.Use(chimw.RequestID)
	t.Router.Use(chimw.RealIP)
	t.Router.Use(chimw.Recoverer)
	t.Router.Use(t.mw.CORS)
	t.Router.Use(t.mw.RequestLog)
	t.Router.Use(t.mw.LatencyInjection)
	t.Router.Use(t.mw.RandomFailure)
	return t
}

// Config returns a copy of the current settings.
func (t *Twin) Config() Config {
	return *t.cfg.Load()
}

// Middleware exposes the shared middleware state (request log, faults,
// idempotency cache).
func (t *Twin) Middleware() *Middleware {
	return t.mw
}

// GetConfig reports the runtime settings for the admin plane.
func (t *Twin) GetConfig() map[string]any {
	c := t.Config()
	return map[string]any{
		"name":      c.Name,
		"port":      c.Port,
		"latency":   c.Latency.String(),
		"fail_rate": c.FailRate,
		"verbose":   c.Verbose,
	}
}

// UpdateConfig changes latency, fail_rate and verbose at runtime. Every key is
// validated before any is applied.
func (t *Twin) UpdateConfig(updates map[string]any) error {
	next := t.Config()
	for k, v := range updates {
		switch k {
		case "latency":
			s, ok := v.(string)
			if !ok {
				return fmt.Errorf("latency must be a duration string")
			}
			d, err := time.ParseDuration(s)
			if err != nil {
				return fmt.Errorf("invalid latency duration: %w", err)
			}
			if d < 0 {
				return fmt.Errorf("latency must not be negative")
			}
			next.Latency = d
		case "fail_rate":
			f, ok := v.(float64)
			if !ok {
				return fmt.Errorf("fail_rate must be a number")
			}
			if f < 0 || f > 1 {
				return fmt.Errorf("fail_rate must be between 0.0 and 1.0")
			}
			next.FailRate = f
		case "verbose":
			b, ok := v.(bool)
			if !ok {
				return fmt.Errorf("verbose must be a boolean")
			}
			next.Verbose = b
		case "name", "host", "port":
			return fmt.Errorf("%s cannot be changed at runtime", k)
		default:
			return fmt.Errorf("unknown config key: %s", k)
		}
	}

	t.cfg.Store(&next)
	if next.Verbose {
		t.level.Set(slog.LevelDebug)
	} else {
		t.level.Set(slog.LevelInfo)
	}
	t.Logger.Info("config updated", "latency", next.Latency, "fail_rate", next.FailRate, "verbose", next.Verbose)
	return nil
}

// Serve listens on the configured address until ctx is cancelled, then shuts
// down gracefully.
func (t *Twin) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", t.Config().Addr())
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	return t.ServeListener(ctx, ln)
}

// ServeListener is Serve on an existing listener.
func (t *Twin) ServeListener(ctx context.Context, ln net.Listener) error {
	cfg := t.Config()
	srv := &http.Server{
		Handler:      t.Router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
		ErrorLog:     slog.NewLogLogger(t.Logger.Handler(), slog.LevelError),
	}

	errCh := make(chan error, 1)
	go func() {
		t.Logger.Info("starting twin", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	t.Logger.Info("shutting down twin")
	timeout := cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// ServeHTTP lets tests drive the Twin directly.
func (t *Twin) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	t.Router.ServeHTTP(w, r)
}

// JSON writes v as a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

// Error writes the standard error envelope.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorBody{Error: ErrorDetail{
		Message: message,
		Type:    http.StatusText(status),
		Code:    status,
	}})
}

// ErrorBody is the JSON error envelope.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes a failed request. Kind and Fields are set for
// domain rejections.
type ErrorDetail struct {
	Message string         `json:"message"`
	Type    string         `json:"type"`
	Code    int            `json:"code"`
	Kind    string         `json:"kind,omitempty"`
	Fields  []string       `json:"fields,omitempty"`
	Context map[string]any `json:"context,omitempty"`
}
