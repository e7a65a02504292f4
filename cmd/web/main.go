// cmd/web/main.go
//
// Serenity – HTTP entry point.
//
// Start-up sequence
// -----------------
//
//  1. Load layered config (defaults → conf/.env → conf/global.yaml → env).
//
//  2. Start daily rotating logger (tees to console when running in a TTY).
//
//  3. Resolve `vault:` secret references when Vault is enabled, then key
//     the CSRF signer.
//
//  4. Open the optional GeoLite2 database and build the delivery pipeline
//     from delivery.modes (simulate, webhook, queue, store).
//
//  5. Build the form session store.  Each visitor gets one contact
//     controller that delivers through the pipeline.
//
//  6. Build the router: request ID → request log → recoverer → HTTPS →
//     security headers → request info, then /metrics, /healthz, /static/,
//     and every registered component.
//
//  7. Serve until SIGINT or SIGTERM, then drain: HTTP first, then form
//     sessions (outstanding deliveries are cancelled), then the pipeline.
//
// Large comment blocks are framed by blank “//” lines; inline comments use
// a single “//”.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/yanizio/serenity/internal/component"
	"github.com/yanizio/serenity/internal/config"
	"github.com/yanizio/serenity/internal/contact"
	"github.com/yanizio/serenity/internal/delivery"
	"github.com/yanizio/serenity/internal/form"
	"github.com/yanizio/serenity/internal/logger"
	"github.com/yanizio/serenity/internal/metrics"
	"github.com/yanizio/serenity/internal/middleware"
	"github.com/yanizio/serenity/internal/requestinfo"
	"github.com/yanizio/serenity/internal/server"
	"github.com/yanizio/serenity/internal/session"
	"github.com/yanizio/serenity/internal/vault"
	"github.com/yanizio/serenity/internal/view"

	_ "github.com/yanizio/serenity/components/contact"
	_ "github.com/yanizio/serenity/components/pages"
)

// runningInTTY returns true when stdout is a character device.
func runningInTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "serenity:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	log, err := logger.New(cfg.Log.Dir, cfg.Log.Level, runningInTTY())
	if err != nil {
		return fmt.Errorf("start logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	//
	// ── 1.  Secrets ─────────────────────────────────────────────────────
	//
	var resolver config.Resolver
	if cfg.Vault.Enabled {
		vc, err := vault.New(ctx, log, cfg.Vault.CacheTTL)
		if err != nil {
			return err
		}
		resolver = vc
		log.Infow("vault enabled", "cache_ttl", cfg.Vault.CacheTTL)
	}
	if err := config.ResolveSecrets(ctx, cfg, resolver); err != nil {
		return err
	}
	if err := form.SetKey(cfg.Contact.CSRFKey); err != nil {
		return fmt.Errorf("contact.csrf_key: %w", err)
	}

	//
	// ── 2.  Request info and delivery ───────────────────────────────────
	//
	requestinfo.SetTrustProxy(cfg.HTTP.TrustProxy)
	if err := requestinfo.InitGeo(cfg.Geo.DBPath); err != nil {
		log.Warnw("geoip disabled", "path", cfg.Geo.DBPath, "err", err)
	}
	defer func() { _ = requestinfo.CloseGeo() }()

	pipeline, err := delivery.Build(ctx, cfg.Delivery, delivery.Deps{})
	if err != nil {
		return fmt.Errorf("delivery: %w", err)
	}

	//
	// ── 3.  Form sessions ───────────────────────────────────────────────
	//
	store := session.NewStore(func(id string) *contact.Controller {
		return contact.New(pipeline,
			contact.WithTimeout(cfg.Contact.Timeout),
			contact.WithLogger(log.With("session", id)),
			contact.WithObserver(observeOutcome),
		)
	}, cfg.Contact.MaxSessions, cfg.Contact.IdleTTL)

	//
	// ── 4.  Router ──────────────────────────────────────────────────────
	//
	views, err := view.New()
	if err != nil {
		return err
	}

	r := chi.NewRouter()
	r.Use(
		chimw.RequestID,
		middleware.RequestLog(log),
		chimw.Recoverer,
		middleware.ForceHTTPS(cfg.HTTP.ForceHTTPS),
		middleware.Security(cfg.HTTP.ForceHTTPS),
		requestinfo.Enrich,
	)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = fmt.Fprintf(w, "ok\nforms %d\n", store.Len())
	})
	r.Handle("/static/*", view.Static())

	env := component.Env{Config: cfg, Sessions: store, Views: views, Log: log}
	if err := component.Mount(r, env); err != nil {
		return err
	}

	//
	// ── 5.  Serve and drain ─────────────────────────────────────────────
	//
	srv := server.New(cfg.HTTP, r)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return server.Run(gctx, srv) })
	g.Go(func() error {
		store.Run(gctx)
		return nil
	})

	err = g.Wait()
	store.Close()
	if cerr := pipeline.Close(); cerr != nil {
		log.Warnw("delivery close", "err", cerr)
	}
	log.Infow("server stopped", "err", err)
	return err
}

// observeOutcome counts settled deliveries.  It runs on the delivery
// goroutine after every settlement.
func observeOutcome(s contact.Snapshot) {
	switch {
	case s.State == contact.StateSubmitted:
		metrics.SubmissionsTotal.WithLabelValues("delivered").Inc()
	case s.Notice != nil:
		metrics.SubmissionsTotal.WithLabelValues("failed").Inc()
		zap.S().Infow("contact delivery failed", "submission", s.SubmissionID)
	}
}
