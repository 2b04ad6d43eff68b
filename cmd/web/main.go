// cmd/web/main.go
//
// Campus gateway – HTTP entry point.
//
// Boot sequence
// -------------
//
//  1. Console logger until config is known.
//
//  2. Load config (conf/.env → conf/global.yaml → CAMPUS_ env, vault refs).
//
//  3. Daily rotating file logger (tees to console when running in a TTY).
//
//  4. Optional GeoIP database for request enrichment.
//
//  5. Session stores: in-memory, or MySQL (scs records plus context rows,
//     with an idle purge loop).
//
//  6. Upstream client, scs session manager, CSRF, slice cache registry.
//
//  7. Component Init, then the router:
//
//     • security headers, HTTPS redirect, request enrichment
//     • /metrics and /healthz (no session)
//     • scs session → scope.Handle → deep-link context import
//     • component dispatch
//
//  8. Serve until SIGINT/SIGTERM, then drain.
//
// Large comment blocks are framed by blank “//” lines; inline comments use
// a single “//”.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/yanizio/campus/internal/component"
	"github.com/yanizio/campus/internal/config"
	"github.com/yanizio/campus/internal/database"
	"github.com/yanizio/campus/internal/form"
	"github.com/yanizio/campus/internal/linkimport"
	"github.com/yanizio/campus/internal/logger"
	"github.com/yanizio/campus/internal/middleware"
	"github.com/yanizio/campus/internal/requestinfo"
	"github.com/yanizio/campus/internal/scope"
	"github.com/yanizio/campus/internal/server"
	"github.com/yanizio/campus/internal/session"
	"github.com/yanizio/campus/internal/slice"
	"github.com/yanizio/campus/internal/upstream"

	_ "github.com/yanizio/campus/components/auth"
	_ "github.com/yanizio/campus/components/credits"
	_ "github.com/yanizio/campus/components/exercises"
	_ "github.com/yanizio/campus/components/proxy"
	_ "github.com/yanizio/campus/components/selection"
	_ "github.com/yanizio/campus/components/tags"
	_ "github.com/yanizio/campus/components/textai"
	_ "github.com/yanizio/campus/components/videos"
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
	boot := logger.Bootstrap()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		boot.Fatalw("campus gateway", "err", err)
	}
}

func run(ctx context.Context) error {
	//
	// ── 1.  Config and file logger ──────────────────────────────────────
	//
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	log, err := logger.New(logger.Options{
		Dir:   cfg.Log.Dir,
		Level: cfg.Log.Level,
		Tee:   runningInTTY(),
	})
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	//
	// ── 2.  GeoIP (optional) ────────────────────────────────────────────
	//
	geoPath := cfg.Geo.DBPath
	if geoPath != "" && !filepath.IsAbs(geoPath) {
		geoPath = filepath.Join(cfg.Paths.Root, geoPath)
	}
	if err := requestinfo.InitGeo(geoPath); err != nil {
		log.Warnw("geoip disabled", "err", err)
	}
	defer requestinfo.CloseGeo()

	//
	// ── 3.  Session context store ───────────────────────────────────────
	//
	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.close()

	//
	// ── 4.  Shared dependencies ─────────────────────────────────────────
	//
	client, err := upstream.New(cfg.Upstream.BaseURL, cfg.Upstream.Timeout, nil)
	if err != nil {
		return err
	}
	sessions := session.NewManager(session.Options{
		CookieName:  cfg.Session.CookieName,
		Lifetime:    cfg.Session.Lifetime,
		IdleTimeout: cfg.Session.IdleTTL,
		Secure:      cfg.HTTP.ForceHTTPS,
		Store:       st.cookies,
	})
	csrf, err := form.NewCSRF([]byte(cfg.Session.Secret))
	if err != nil {
		return err
	}
	slices := slice.NewRegistry()
	go slices.Run(cfg.Cache.SweepInterval, ctx.Done())

	comps := component.All()
	if err := component.InitAll(comps, component.Deps{
		Config:   cfg,
		Upstream: client,
		Sessions: sessions,
		CSRF:     csrf,
		Slices:   slices,
	}); err != nil {
		return err
	}
	names := make([]string, 0, len(comps))
	for _, c := range comps {
		names = append(names, c.Name())
	}
	log.Infow("components ready", "components", names, "upstream", cfg.Upstream.BaseURL)

	//
	// ── 5.  Router ──────────────────────────────────────────────────────
	//
	r := chi.NewRouter()
	r.Use(middleware.Security, middleware.ForceHTTPS(cfg.HTTP.ForceHTTPS), requestinfo.Enrich)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
	r.Group(func(r chi.Router) {
		r.Use(sessions.Middleware(st.context), linkimport.New(zap.L()).Middleware)
		r.Mount("/", component.Dispatch(comps))
	})

	//
	// ── 6.  Serve ───────────────────────────────────────────────────────
	//
	return server.Run(ctx, server.New(cfg.HTTP.ListenAddr, r, cfg.Upstream.Timeout))
}

// stores holds the session stores for the configured backend.
type stores struct {
	context scope.Store
	cookies scs.Store // nil selects scs's in-memory store
	close   func()
}

// openStores builds the configured scope.Store and scs store.  With MySQL
// both share one pool, so every gateway instance sees every session.
func openStores(ctx context.Context, cfg *config.Config) (stores, error) {
	if cfg.Session.Store != "mysql" {
		s := scope.NewMemoryStore(cfg.Session.IdleTTL)
		return stores{context: s, close: s.Close}, nil
	}

	db, err := database.Open(ctx, cfg.Database.DSN)
	if err != nil {
		return stores{}, err
	}
	s := scope.NewMySQLStore(db)
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return stores{}, err
	}
	cookies, err := session.NewMySQLStore(ctx, db)
	if err != nil {
		_ = db.Close()
		return stores{}, err
	}
	go purgeIdle(ctx, s, cfg.Session.IdleTTL)
	return stores{
		context: s,
		cookies: cookies,
		close: func() {
			cookies.StopCleanup()
			_ = db.Close()
		},
	}, nil
}

// purgeIdle deletes sessions untouched for idleTTL, checking every tenth
// of that window.
func purgeIdle(ctx context.Context, s *scope.MySQLStore, idleTTL time.Duration) {
	every := idleTTL / 10
	if every < time.Minute {
		every = time.Minute
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			n, err := s.PurgeIdle(ctx, now.Add(-idleTTL))
			if err != nil {
				zap.L().Warn("purge idle sessions", zap.Error(err))
				continue
			}
			if n > 0 {
				zap.L().Info("idle sessions purged", zap.Int64("count", n))
			}
		}
	}
}
