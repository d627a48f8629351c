package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/mosaicsci/inquiry/commands"
	"github.com/mosaicsci/inquiry/config"
	"github.com/mosaicsci/inquiry/llm"
	"github.com/mosaicsci/inquiry/pipeline"
	"github.com/mosaicsci/inquiry/retry"
	"github.com/mosaicsci/inquiry/storage"
)

// App wires together the NATS-backed store, the model gateway, and the
// stage orchestrator.
type App struct {
	cfg    *config.Config
	logger *slog.Logger

	// NATS
	embeddedServer *server.Server
	natsConn       *nats.Conn
	js             jetstream.JetStream

	// Components
	store        *storage.Store
	checkpointer *storage.Checkpointer
	gateway      *llm.Client
	orchestrator *pipeline.Orchestrator

	checkpointCancel context.CancelFunc
}

// NewApp creates a new application instance.
func NewApp(cfg *config.Config, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.Default()
	}
	return &App{cfg: cfg, logger: logger}
}

// Start initializes all components.
func (a *App) Start(ctx context.Context) error {
	if err := a.startNATS(); err != nil {
		return fmt.Errorf("start NATS: %w", err)
	}

	store, err := storage.NewStore(ctx, a.js)
	if err != nil {
		return fmt.Errorf("initialize storage: %w", err)
	}
	a.store = store

	a.checkpointer = storage.NewCheckpointer(store, a.logger, a.cfg.Pipeline.CheckpointInterval)
	checkpointCtx, cancel := context.WithCancel(context.Background())
	a.checkpointCancel = cancel
	go a.checkpointer.Run(checkpointCtx)

	a.gateway = llm.NewClient(a.cfg.BuildRegistry(),
		llm.WithTimeout(a.cfg.Model.Timeout),
		llm.WithLogger(a.logger))

	retryOpts := retry.DefaultOptions()
	if a.cfg.Retry.MaxAttempts > 0 {
		retryOpts.MaxAttempts = a.cfg.Retry.MaxAttempts
	}
	if a.cfg.Retry.BaseDelay > 0 {
		retryOpts.BaseDelay = a.cfg.Retry.BaseDelay
	}
	if a.cfg.Retry.MaxDelay > 0 {
		retryOpts.MaxDelay = a.cfg.Retry.MaxDelay
	}

	a.orchestrator = pipeline.New(a.gateway,
		pipeline.WithLogger(a.logger),
		pipeline.WithRetryOptions(retryOpts),
		pipeline.WithPacing(a.cfg.Pipeline.Pacing),
		pipeline.WithCaptionConcurrency(a.cfg.Pipeline.CaptionConcurrency),
		pipeline.WithRecencyWindow(a.cfg.Pipeline.RecencyWindow))

	return nil
}

// Env returns the command environment over the wired components.
func (a *App) Env() *commands.Env {
	return &commands.Env{
		Store:        a.store,
		Orchestrator: a.orchestrator,
		Checkpointer: a.checkpointer,
		Gateway:      a.gateway,
		Logger:       a.logger,
	}
}

func (a *App) startNATS() error {
	if a.cfg.NATS.URL != "" && !a.cfg.NATS.Embedded {
		a.logger.Debug("connecting to NATS", "url", a.cfg.NATS.URL)
		conn, err := nats.Connect(a.cfg.NATS.URL)
		if err != nil {
			return fmt.Errorf("connect to NATS: %w", err)
		}
		a.natsConn = conn
	} else {
		opts := &server.Options{
			Port:      -1, // Random available port
			JetStream: true,
			StoreDir:  a.cfg.NATS.StoreDir,
			NoLog:     true,
			NoSigs:    true,
		}

		ns, err := server.NewServer(opts)
		if err != nil {
			return fmt.Errorf("create embedded NATS server: %w", err)
		}

		go ns.Start()

		if !ns.ReadyForConnections(5 * time.Second) {
			ns.Shutdown()
			return fmt.Errorf("embedded NATS server failed to start")
		}
		a.embeddedServer = ns

		conn, err := nats.Connect(ns.ClientURL())
		if err != nil {
			ns.Shutdown()
			return fmt.Errorf("connect to embedded NATS: %w", err)
		}
		a.natsConn = conn
	}

	js, err := jetstream.New(a.natsConn)
	if err != nil {
		return fmt.Errorf("create JetStream context: %w", err)
	}
	a.js = js
	return nil
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() {
	if a.checkpointCancel != nil {
		a.checkpointCancel()
	}

	if a.natsConn != nil {
		a.natsConn.Drain()
		a.natsConn.Close()
	}

	if a.embeddedServer != nil {
		a.embeddedServer.Shutdown()
		a.embeddedServer.WaitForShutdown()
	}
}
