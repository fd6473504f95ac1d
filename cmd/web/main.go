// cmd/web/main.go
//
// Storefront – HTTP entry point.
//
// Boot sequence
// -------------
//
//  1. Connect to Vault when VAULT_ADDR is set, so `vault:` references in
//     configuration resolve.
//
//  2. Load configuration (dotenv → YAML → STOREFRONT_ env → platform
//     bindings) and start the daily rotating logger.
//
//  3. Open the GeoLite2 database when configured.
//
//  4. Open the preview-secret ledger when single-use secrets are on, apply
//     component migrations, and start the pruner.
//
//  5. Build the router:
//
//     • request ID, real IP, access log, panic recovery
//     • HTTPS redirect                – http.force_https
//     • security headers              – frame-ancestors allows the studio
//     • /metrics                      – Prometheus, outside the root context
//     • request info, bypass token, root context, then every component
//
//  6. Serve until SIGINT or SIGTERM, then drain.
//
// Large comment blocks are framed by blank “//” lines; inline comments use
// a single “//”.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/yanizio/storefront/internal/bypass"
	"github.com/yanizio/storefront/internal/component"
	"github.com/yanizio/storefront/internal/config"
	"github.com/yanizio/storefront/internal/database"
	"github.com/yanizio/storefront/internal/logger"
	"github.com/yanizio/storefront/internal/middleware"
	"github.com/yanizio/storefront/internal/preview"
	"github.com/yanizio/storefront/internal/requestinfo"
	"github.com/yanizio/storefront/internal/rootctx"
	"github.com/yanizio/storefront/internal/server"
	"github.com/yanizio/storefront/internal/vault"

	_ "github.com/yanizio/storefront/components/home"
	_ "github.com/yanizio/storefront/components/preview"
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
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	//
	// ── 1.  Config (+ Vault) and logger ─────────────────────────────────
	//
	var opts []config.Option
	if os.Getenv("VAULT_ADDR") != "" {
		vc, err := vault.New(ctx)
		if err != nil {
			log.Fatalf("vault: %v", err)
		}
		opts = append(opts, config.WithSecrets(vc))
	}
	cfg, err := config.Load(ctx, opts...)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	lg, err := logger.New(cfg.Paths.Root, runningInTTY(), os.Getenv("LOG_LEVEL"))
	if err != nil {
		log.Fatalf("start logger: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	//
	// ── 2.  GeoIP ───────────────────────────────────────────────────────
	//
	if err := requestinfo.InitGeo(cfg.Geo.DBPath); err != nil {
		lg.Warnw("geoip disabled", "path", cfg.Geo.DBPath, "err", err)
	}

	//
	// ── 3.  Preview-secret ledger ───────────────────────────────────────
	//
	var db *sqlx.DB
	if cfg.Preview.SingleUseSecrets {
		if db, err = database.Open(ctx, cfg.Preview.LedgerDSN); err != nil {
			lg.Fatalw("open preview ledger", "err", err)
		}
		defer db.Close()

		for _, stmt := range component.Migrations() {
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				lg.Fatalw("apply migration", "err", err)
			}
		}
		go preview.NewLedger(db).RunPruner(ctx, preview.Retention/4)
		lg.Infow("single-use preview secrets enabled")
	}

	//
	// ── 4.  Router ──────────────────────────────────────────────────────
	//
	r := chi.NewRouter()
	r.Use(
		chimw.RequestID,
		chimw.RealIP,
		middleware.RequestLog,
		chimw.Recoverer,
		middleware.ForceHTTPS(cfg.HTTP.ForceHTTPS),
		middleware.Security(cfg.Sanity.StudioURL),
	)
	r.Handle("/metrics", promhttp.Handler())

	var mountErr error
	r.Group(func(app chi.Router) {
		app.Use(requestinfo.Enrich, bypass.Capture, rootctx.NewBuilder(cfg).Middleware)
		mountErr = component.Mount(app, component.Deps{Config: cfg, DB: db})
	})
	if mountErr != nil {
		lg.Fatalw("mount components", "err", mountErr)
	}
	for _, c := range component.All() {
		lg.Debugw("component mounted", "name", c.Name())
	}

	//
	// ── 5.  Serve ───────────────────────────────────────────────────────
	//
	srv := server.New(cfg.HTTP.ListenAddr, r)
	if err := server.Run(ctx, srv); err != nil {
		lg.Errorw("http server", "err", err)
		os.Exit(1)
	}
	zap.S().Infow("stopped")
}
