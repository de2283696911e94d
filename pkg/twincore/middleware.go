package twincore

import (
	"bytes"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// Observer receives one call per completed request. route is the matched
// chi pattern, or "unmatched".
type Observer interface {
	ObserveRequest(method, route string, status int, elapsed time.Duration)
}

// Middleware holds the state shared by the middleware chain.
type Middleware struct {
	settings   func() Config
	logger     *slog.Logger
	observer   Observer
	ReqLog     *RequestLog
	Faults     *FaultRegistry
	Idempotent *IdempotencyTracker
}

// NewMiddleware creates a Middleware reading live settings from settings.
// obs may be nil.
func NewMiddleware(settings func() Config, logger *slog.Logger, obs Observer) *Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return &Middleware{
		settings:   settings,
		logger:     logger,
		observer:   obs,
		ReqLog:     NewRequestLog(1000),
		Faults:     NewFaultRegistry(),
		Idempotent: NewIdempotencyTracker(),
	}
}

// CORS allows any origin; the twin backs browser demos on arbitrary ports.
func (m *Middleware) CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, Idempotency-Key")
		w.Header().Set("Access-Control-Max-Age", "3600")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequestLog records every request into the ring buffer and reports it to
// the observer.
func (m *Middleware) RequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)
		verbose := m.settings().Verbose

		entry := RequestLogEntry{
			Timestamp:  start,
			Method:     r.Method,
			Path:       r.URL.Path,
			StatusCode: status,
			Duration:   elapsed,
			RequestID:  chimw.GetReqID(r.Context()),
		}
		if verbose {
			entry.Headers = make(map[string]string, len(r.Header))
			for k := range r.Header {
				if k == "Authorization" {
					continue
				}
				entry.Headers[k] = r.Header.Get(k)
			}
		}
		m.ReqLog.Add(entry)

		if m.observer != nil {
			route := "unmatched"
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				route = rc.RoutePattern()
			}
			m.observer.ObserveRequest(r.Method, route, status, elapsed)
		}

		m.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"duration", elapsed,
			"request_id", entry.RequestID,
		)
	})
}

// LatencyInjection sleeps 80-120% of the configured latency before each
// request.
func (m *Middleware) LatencyInjection(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if latency := m.settings().Latency; latency > 0 {
			jitter := 0.8 + rand.Float64()*0.4
			time.Sleep(time.Duration(float64(latency) * jitter))
		}
		next.ServeHTTP(w, r)
	})
}

// RandomFailure fails requests with 500 at the configured rate.
func (m *Middleware) RandomFailure(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rate := m.settings().FailRate; rate > 0 && rand.Float64() < rate {
			Error(w, http.StatusInternalServerError, "simulated random failure")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// FaultInjection applies faults registered for the request path. Mount it on
// API route groups only, so the admin plane stays reachable.
func (m *Middleware) FaultInjection(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fault := m.Faults.Check(r.URL.Path); fault != nil {
			if fault.Delay > 0 {
				time.Sleep(fault.Delay)
			}
			if fault.StatusCode > 0 {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(fault.StatusCode)
				if fault.Body != "" {
					fmt.Fprint(w, fault.Body)
				} else {
					fmt.Fprintf(w, `{"error":{"message":"injected fault","type":"api_error","code":%d}}`, fault.StatusCode)
				}
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// Idempotency replays the stored response for a repeated Idempotency-Key.
// scope namespaces keys per caller (for example per session); requests
// without the header pass through.
func (m *Middleware) Idempotency(scope func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("Idempotency-Key")
			if key == "" || r.Method == http.MethodGet {
				next.ServeHTTP(w, r)
				return
			}
			if scope != nil {
				key = scope(r) + "/" + key
			}
			key = r.Method + " " + r.URL.Path + " " + key

			if status, body, ok := m.Idempotent.Check(key); ok {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Idempotent-Replayed", "true")
				w.WriteHeader(status)
				w.Write(body)
				return
			}

			var buf bytes.Buffer
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			ww.Tee(&buf)
			next.ServeHTTP(ww, r)

			// Only successful outcomes are cached so a rejected intent can be
			// retried once its precondition holds.
			if status := ww.Status(); status >= 200 && status < 300 {
				m.Idempotent.Store(key, status, buf.Bytes())
			}
		})
	}
}
