// CLAUDE:SUMMARY Entry point for the worldpulse service — chi router, secret-gated trigger API, scheduler.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/worldpulse/dbopen"
	"github.com/hazyhaar/worldpulse/horosafe"
	"github.com/hazyhaar/worldpulse/pulse"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	godotenv.Load()

	port := env("PORT", "8090")
	dbPath := env("DB_PATH", "db/pulse.db")
	logLevel := env("LOG_LEVEL", "info")

	secret := os.Getenv("PULSE_SECRET")
	if secret == "" {
		slog.Error("PULSE_SECRET is required")
		os.Exit(1)
	}
	if err := horosafe.ValidateSecret([]byte(secret)); err != nil {
		slog.Error("PULSE_SECRET rejected", "error", err)
		os.Exit(1)
	}

	// Logging.
	var lvl slog.Level
	switch logLevel {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)

	// Signal context.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	db, err := dbopen.Open(dbPath, dbopen.WithMkdirAll())
	if err != nil {
		slog.Error("open db", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	cfg := &pulse.Config{
		RefreshInterval:  envDuration("REFRESH_INTERVAL", 0),
		WatchdogInterval: envDuration("WATCHDOG_INTERVAL", 0),
		CatalogPath:      os.Getenv("CATALOG_PATH"),
		GitHubToken:      os.Getenv("GITHUB_TOKEN"),
	}
	svc := pulse.New(db, cfg, logger)
	if err := svc.Init(ctx); err != nil {
		slog.Error("init", "error", err)
		os.Exit(1)
	}

	go svc.Run(ctx)

	// Router.
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(requireSecret(secret))

		r.Post("/api/refresh", func(w http.ResponseWriter, req *http.Request) {
			summary, err := svc.RefreshAll(req.Context(), isForce(req))
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, 200, summary)
		})
		r.Post("/api/refresh/{slug}", func(w http.ResponseWriter, req *http.Request) {
			out, err := svc.RefreshOne(req.Context(), chi.URLParam(req, "slug"), isForce(req))
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, 200, out)
		})

		r.Post("/api/watchdog", func(w http.ResponseWriter, req *http.Request) {
			summary, err := svc.WatchdogAll(req.Context())
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, 200, summary)
		})
		r.Post("/api/watchdog/{slug}", func(w http.ResponseWriter, req *http.Request) {
			chk, err := svc.WatchdogOne(req.Context(), chi.URLParam(req, "slug"))
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, 200, chk)
		})

		r.Get("/api/datasets", func(w http.ResponseWriter, req *http.Request) {
			datasets, err := svc.Datasets(req.Context())
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, 200, datasets)
		})
		r.Get("/api/datasets/{slug}", func(w http.ResponseWriter, req *http.Request) {
			detail, err := svc.Dataset(req.Context(), chi.URLParam(req, "slug"))
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, 200, detail)
		})
		r.Get("/api/datasets/{slug}/history", func(w http.ResponseWriter, req *http.Request) {
			limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
			history, err := svc.History(req.Context(), chi.URLParam(req, "slug"), limit)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, 200, history)
		})
		r.Post("/api/datasets/{slug}/enabled", func(w http.ResponseWriter, req *http.Request) {
			var body struct {
				Enabled bool `json:"enabled"`
			}
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
				writeJSON(w, 400, map[string]string{"error": "invalid body"})
				return
			}
			if err := svc.SetEnabled(req.Context(), chi.URLParam(req, "slug"), body.Enabled); err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, 200, map[string]bool{"enabled": body.Enabled})
		})
	})

	// HTTP server.
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown", "error", err)
	}
	slog.Info("server stopped")
}

// requireSecret gates the trigger API. The secret travels in X-Pulse-Secret
// or as a bearer token; comparison is constant time.
func requireSecret(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			presented := r.Header.Get("X-Pulse-Secret")
			if presented == "" {
				const prefix = "Bearer "
				if auth := r.Header.Get("Authorization"); len(auth) > len(prefix) && auth[:len(prefix)] == prefix {
					presented = auth[len(prefix):]
				}
			}
			if !horosafe.SecretEqual(presented, secret) {
				writeJSON(w, 401, map[string]string{"error": "unauthorized"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func isForce(r *http.Request) bool {
	return r.URL.Query().Get("force") == "1" || r.URL.Query().Get("force") == "true"
}

func writeError(w http.ResponseWriter, err error) {
	code := 500
	if errors.Is(err, pulse.ErrUnknownDataset) || errors.Is(err, pulse.ErrNoProbe) {
		code = 404
	}
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("invalid duration, using default", "key", key, "value", v)
		return def
	}
	return d
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
