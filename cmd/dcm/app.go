package main

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/dcmio/dcm/internal/audit"
	"github.com/dcmio/dcm/internal/clock"
	"github.com/dcmio/dcm/internal/config"
	"github.com/dcmio/dcm/internal/maintenance"
	"github.com/dcmio/dcm/internal/notify"
	"github.com/dcmio/dcm/internal/proposal"
	"github.com/dcmio/dcm/internal/publish"
	"github.com/dcmio/dcm/internal/rpcserver"
	"github.com/dcmio/dcm/internal/store"
	"github.com/dcmio/dcm/internal/store/memstore"
)

// app holds every collaborator the subcommands need, wired once from Config.
type app struct {
	cfg *config.Config

	store    store.Store
	clock    clock.Clock
	ids      clock.IDGenerator
	notifier notify.Notifier
	audit    *audit.Recorder

	publish  *publish.Coordinator
	proposal *proposal.Service

	registry *rpcserver.Registry
	server   *rpcserver.Server

	logger *slog.Logger
}

// newApp wires the production dependency graph: an in-memory store (spec
// §1 scopes a real persistence backend out), a real clock and UUID
// generator, and either a webhook notifier or a no-op one depending on
// config.
func newApp(cfg *config.Config) *app {
	logger := newLogger(cfg.Log.Level)

	s := memstore.New()
	c := clock.System{}
	ids := clock.UUIDGenerator{}

	var notifier notify.Notifier = notify.Noop{}
	if cfg.Webhook.Enabled {
		notifier = &notify.Logging{Next: notify.NewWebhook(cfg.Webhook.URL, logger), Logger: logger}
	}

	pub := publish.New(s, c, ids, notifier)
	prop := proposal.New(s, c, ids, notifier)

	registry := rpcserver.NewRegistry()
	rpcserver.RegisterCoreOperations(registry, pub, prop, s)
	server := rpcserver.NewServer(registry, logger)

	return &app{
		cfg:      cfg,
		store:    s,
		clock:    c,
		ids:      ids,
		notifier: notifier,
		audit:    audit.New(c, ids),
		publish:  pub,
		proposal: prop,
		registry: registry,
		server:   server,
		logger:   logger,
	}
}

// startMaintenance launches the periodic invariant scanner, if enabled. The
// scanner stops on its own once ctx is canceled; there is no separate Stop.
func (a *app) startMaintenance(ctx context.Context) {
	if !a.cfg.Maintenance.Enabled {
		return
	}
	scanner := maintenance.NewScanner(a.store, a.logger)
	hours := a.cfg.Maintenance.IntervalHours
	if hours <= 0 {
		hours = 1
	}
	scanner.Start(ctx, durationHours(hours))
}

func durationHours(hours int) time.Duration {
	return time.Duration(hours) * time.Hour
}

func newLogger(level string) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: parseLogLevel(level)}))
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
