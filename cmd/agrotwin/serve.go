package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Eblazecode/Agrolinkernew/internal/api"
	"github.com/Eblazecode/Agrolinkernew/internal/auth"
	"github.com/Eblazecode/Agrolinkernew/internal/catalog"
	"github.com/Eblazecode/Agrolinkernew/internal/config"
	"github.com/Eblazecode/Agrolinkernew/internal/events"
	"github.com/Eblazecode/Agrolinkernew/internal/metrics"
	"github.com/Eblazecode/Agrolinkernew/internal/store"
	"github.com/Eblazecode/Agrolinkernew/pkg/admin"
	pkgstore "github.com/Eblazecode/Agrolinkernew/pkg/store"
	"github.com/Eblazecode/Agrolinkernew/pkg/twincore"
	"github.com/Eblazecode/Agrolinkernew/pkg/webhook"
)

// shutdownGrace bounds the wait for queued webhook deliveries on exit.
const shutdownGrace = 5 * time.Second

var serveFlags struct {
	host        string
	port        int
	verbose     bool
	strictAuth  bool
	frozenClock bool
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the twin",
	Long: `Starts the HTTP twin. Settings come from the config file, then the
environment (PORT, AGROTWIN_JWT_SECRET, KAFKA_BROKERS, AGROTWIN_WEBHOOK_URL,
AGROTWIN_WEBHOOK_SECRET, AGROTWIN_STRICT_AUTH), then flags.`,
	RunE: runServe,
}

func init() {
	f := serveCmd.Flags()
	f.StringVar(&serveFlags.host, "host", "", "Listen host")
	f.IntVarP(&serveFlags.port, "port", "p", 0, "Listen port")
	f.BoolVarP(&serveFlags.verbose, "verbose", "v", false, "Debug logging")
	f.BoolVar(&serveFlags.strictAuth, "strict-auth", false, "Check demo passwords on login")
	f.BoolVar(&serveFlags.frozenClock, "frozen-clock", false, "Pin simulated time at startup")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	applyServeFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	srv, err := newServer(cfg, os.Stdout)
	if err != nil {
		return err
	}
	defer srv.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.twin.Serve(ctx)
}

func applyServeFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("host") {
		cfg.Server.Host = serveFlags.host
	}
	if flags.Changed("port") {
		cfg.Server.Port = serveFlags.port
	}
	if flags.Changed("verbose") {
		cfg.Server.Verbose = serveFlags.verbose
	}
	if flags.Changed("strict-auth") {
		cfg.Auth.StrictPasswords = serveFlags.strictAuth
	}
	if flags.Changed("frozen-clock") {
		cfg.Server.FrozenClock = serveFlags.frozenClock
	}
}

// server is a fully wired twin.
type server struct {
	twin       *twincore.Twin
	store      *store.MemoryStore
	dispatcher *webhook.Dispatcher
	metrics    *metrics.Metrics
	closers    []io.Closer
}

func newServer(cfg *config.Config, logOut io.Writer) (*server, error) {
	m := metrics.New()
	twin := twincore.New(twincore.Config{
		Name:     "agrotwin",
		Host:     cfg.Server.Host,
		Port:     cfg.Server.Port,
		Latency:  cfg.Server.Latency,
		FailRate: cfg.Server.FailRate,
		Verbose:  cfg.Server.Verbose,
	}, twincore.WithLogOutput(logOut), twincore.WithObserver(m))
	logger := twin.Logger

	cat := catalog.Default()
	if cfg.Catalog.Path != "" {
		loaded, err := catalog.LoadFile(cfg.Catalog.Path)
		if err != nil {
			return nil, err
		}
		cat = loaded
	}

	clk := pkgstore.NewClock()
	if cfg.Server.FrozenClock {
		clk = pkgstore.NewFrozenClock(clk.Now())
	}

	s := &server{twin: twin, metrics: m}
	s.dispatcher = webhook.NewDispatcher(webhook.Config{
		URL:         cfg.Events.Webhook.URL,
		Secret:      cfg.Events.Webhook.Secret,
		Signer:      webhook.HMACSigner{},
		Logger:      logger,
		MaxRetries:  cfg.Events.Webhook.MaxRetries,
		RetryDelay:  cfg.Events.Webhook.RetryDelay,
		AutoDeliver: cfg.Events.Webhook.AutoDeliver,
		Now:         clk.Now,
	})

	publishers := events.Fanout{events.WebhookPublisher{Dispatcher: s.dispatcher}}
	if cfg.Events.Log {
		publishers = append(publishers, events.LogPublisher{Logger: logger})
	}
	if brokers := cfg.Events.Kafka.Brokers; len(brokers) > 0 {
		kp := events.NewKafkaPublisher(brokers, cfg.Events.Kafka.Topic, cfg.Events.Kafka.Timeout)
		publishers = append(publishers, kp)
		s.closers = append(s.closers, kp)
		logger.Info("publishing events to kafka", "brokers", brokers, "topic", cfg.Events.Kafka.Topic)
	}

	memStore, err := store.New(store.Config{
		Catalog: cat,
		Clock:   clk,
		Delays: store.Delays{
			Login:    cfg.Delays.Login,
			Register: cfg.Delays.Register,
			Checkout: cfg.Delays.Checkout,
		},
		StrictPasswords: cfg.Auth.StrictPasswords,
		Publisher:       publishers,
		Recorder:        m,
		Logger:          logger,
	})
	if err != nil {
		return nil, err
	}
	s.store = memStore
	if !cfg.Auth.StrictPasswords {
		logger.Warn("demo login: any non-empty password is accepted for seeded accounts; set auth.strict_passwords to check them")
	}

	secret := cfg.Auth.JWTSecret
	if secret == "" {
		secret, err = randomSecret()
		if err != nil {
			return nil, err
		}
		logger.Warn("no jwt secret configured; tokens will not survive a restart")
	}
	issuer, err := auth.NewIssuer(secret, auth.WithTTL(cfg.Auth.TokenTTL))
	if err != nil {
		return nil, err
	}

	handler := api.NewHandler(memStore, twin.Middleware(), issuer, logger)
	handler.Routes(twin.Router)

	adminHandler := admin.NewHandler(api.AdminState{Store: memStore}, twin.Middleware(), clk)
	adminHandler.SetFlusher(s.dispatcher)
	adminHandler.SetConfig(api.RuntimeConfig{Server: twin, Store: memStore, Webhooks: s.dispatcher})
	adminHandler.Routes(twin.Router)

	twin.Router.Method("GET", "/metrics", m.Handler())
	return s, nil
}

// Close waits for in-flight webhook deliveries and closes event sinks.
func (s *server) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	errs := []error{s.dispatcher.Wait(ctx)}
	for _, c := range s.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating jwt secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}
