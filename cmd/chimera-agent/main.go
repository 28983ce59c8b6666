package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/use-agent/chimera/api"
	"github.com/use-agent/chimera/config"
	"github.com/use-agent/chimera/patcher"
	"github.com/use-agent/chimera/profile"
	"github.com/use-agent/chimera/session"
	"github.com/use-agent/chimera/sidecar"
	"github.com/use-agent/chimera/verifier"
	"github.com/use-agent/chimera/worldmodel"
)

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)
	slog.Info("chimera agent starting",
		"addr", cfg.Server.Addr,
		"mode", cfg.Server.Mode,
		"proxyPort", cfg.Sidecar.ProxyPort,
	)

	// ── 3. Patch the browser binary before it is ever launched ──────
	if cfg.Patch.Enabled && cfg.Browser.Bin != "" {
		p := patcher.New(patcher.DefaultPatterns())
		counts, err := p.Patch(cfg.Browser.Bin)
		if err != nil {
			slog.Error("patcher: failed", "error", err)
			os.Exit(1)
		}
		slog.Info("patcher: applied", "replacements", counts)
	}

	// ── 4. Start the sidecar CONNECT-tunneling proxy ─────────────────
	sc := sidecar.New(cfg.Sidecar.ProxyPort)
	ctx, cancelSidecar := context.WithCancel(context.Background())
	sidecarErrCh := make(chan error, 1)
	go func() {
		sidecarErrCh <- sc.Serve(ctx)
	}()
	// Bind failures surface almost immediately; give the listener a brief
	// window before trusting it's up, since Serve blocks in Accept after
	// a successful bind.
	select {
	case err := <-sidecarErrCh:
		if err != nil {
			slog.Error("sidecar: failed to bind", "error", err)
			os.Exit(1)
		}
	case <-time.After(200 * time.Millisecond):
	}

	// ── 5. Fail-fast engine verification on a throwaway session ──────
	// Process startup must exit non-zero before the RPC port opens if the
	// freshly-launched engine still leaks automation tell-tales.
	probeSession, err := session.New("__verify__", session.Options{
		Headless:         true,
		ProxyPort:        cfg.Sidecar.ProxyPort,
		BrowserBin:       cfg.Browser.Bin,
		NoSandbox:        cfg.Browser.NoSandbox,
		ViewportW:        cfg.Browser.ViewportW,
		ViewportH:        cfg.Browser.ViewportH,
		SkipSanitization: cfg.Browser.DisableSanitization,
	})
	if err != nil {
		slog.Error("verifier: failed to launch probe session", "error", err)
		os.Exit(1)
	}
	clean, err := verifier.Verify(probeSession.Page())
	probeSession.Close()
	if err != nil {
		slog.Error("verifier: probe eval failed", "error", err)
		os.Exit(1)
	}
	if !clean {
		slog.Error("verifier: engine still leaks automation tell-tales, refusing to start — no mission run against a dirty engine can be trusted")
		os.Exit(1)
	}
	slog.Info("verifier: engine is clean")

	// ── 6. Initialise the synthetic profile store ────────────────────
	profileCtx, cancelProfile := context.WithTimeout(context.Background(), 10*time.Second)
	profiles, err := profile.NewStore(profileCtx, profile.Options{
		ProfilesDir: cfg.Profile.ProfilesDir,
		RedisURL:    cfg.Profile.RedisURL,
	})
	cancelProfile()
	if err != nil {
		slog.Error("profile: failed to initialise store", "error", err)
		os.Exit(1)
	}

	// ── 7. Process-wide session map + optional world-model advisory ──
	manager := session.NewManager()
	world := worldmodel.New()

	// ── 8. Setup router ───────────────────────────────────────────────
	startTime := time.Now()
	router := api.NewRouter(cfg, manager, profiles, world, startTime)

	// ── 9. Start HTTP server ───────────────────────────────────────────
	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	go func() {
		slog.Info("RPC server listening", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("RPC server error", "error", err)
			os.Exit(1)
		}
	}()

	// ── 10. Graceful shutdown ───────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig.String())

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("RPC server forced shutdown", "error", err)
	} else {
		slog.Info("RPC server drained gracefully")
	}

	manager.CloseAll()
	cancelSidecar()
	if err := profiles.Close(); err != nil {
		slog.Warn("profile: close failed", "error", err)
	}
	slog.Info("chimera agent stopped")
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
