package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pricewatch/internal/browser"
	"pricewatch/internal/config"
	"pricewatch/internal/extractor"
	"pricewatch/internal/models"
	"pricewatch/internal/notifier"
	"pricewatch/internal/scan"
	"pricewatch/internal/storage"
	"pricewatch/internal/util"
	"pricewatch/internal/validator"
)

type Server struct {
	store        *storage.FileStore
	orchestrator *scan.Orchestrator
	validator    *validator.Validator
}

func main() {
	slog.Info("Starting pricewatch server...")
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Critical error loading configuration", "error", err)
		os.Exit(1)
	}

	store, err := storage.New(cfg.DataDir)
	if err != nil {
		slog.Error("Critical error initializing product store", "error", err)
		os.Exit(1)
	}

	n, err := buildNotifier(cfg)
	if err != nil {
		slog.Error("Critical error initializing notifier", "error", err)
		os.Exit(1)
	}

	pages := browser.New(cfg.BrowserHeadless, cfg.BrowserMaxPages)
	defer pages.Close()

	extractors := extractor.NewRegistry(pages)
	engine := notifier.NewEngine(n, cfg.NotifyLocation)
	orchestrator := scan.New(store, extractors, engine, n, pages, cfg)
	defer orchestrator.Close()

	srv := &Server{
		store:        store,
		orchestrator: orchestrator,
		validator:    validator.New(),
	}

	// Continuous mode survives restarts: an enabled flag re-arms the loop.
	if state, err := store.State(); err == nil && state.ContinuousEnabled {
		slog.Info("Continuous scanning was enabled, resuming")
		if _, err := orchestrator.SetContinuous(true); err != nil {
			slog.Error("Failed to resume continuous scanning", "error", err)
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /scan", srv.StartScanHandler)
	mux.HandleFunc("POST /scan/stop", srv.StopScanHandler)
	mux.HandleFunc("POST /scan/offers", srv.StartOfferSyncHandler)
	mux.HandleFunc("GET /scan/status", srv.ScanStatusHandler)
	mux.HandleFunc("GET /scan/logs", srv.ScanLogsHandler)
	mux.HandleFunc("GET /scan/continuous", srv.GetContinuousHandler)
	mux.HandleFunc("POST /scan/continuous", srv.SetContinuousHandler)
	mux.HandleFunc("GET /products", srv.ListProductsHandler)
	mux.HandleFunc("POST /products", srv.AddProductHandler)
	mux.HandleFunc("DELETE /products/{id}", srv.DeleteProductHandler)
	mux.HandleFunc("DELETE /platforms/{platform}/products", srv.DeleteByPlatformHandler)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, `{"status":"ok"}`)
	})

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGTERM/SIGINT
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
		sig := <-sigCh
		slog.Info("Received signal, shutting down gracefully...", "signal", sig)

		orchestrator.RequestStop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP server shutdown error", "error", err)
		}
	}()

	slog.Info("Listening on port", "port", cfg.Port)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("Failed to listen and serve", "error", err)
		os.Exit(1)
	}
	slog.Info("Server stopped.")
}

func buildNotifier(cfg *config.Config) (notifier.Notifier, error) {
	switch cfg.NotifierKind {
	case "discord":
		return notifier.NewDiscord(cfg.DiscordWebhookURL), nil
	case "telegram":
		return notifier.NewTelegram(cfg.TelegramToken, cfg.TelegramChatID)
	default:
		return notifier.Noop{}, nil
	}
}

func (s *Server) StartScanHandler(w http.ResponseWriter, r *http.Request) {
	if s.orchestrator.Guard().InProgress() {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "scan already in progress"})
		return
	}

	// Run asynchronously so the response isn't held open for the whole pass.
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				slog.Error("Panic in scan goroutine", "panic", rec)
			}
		}()
		if err := s.orchestrator.RunScan(context.Background()); err != nil && !errors.Is(err, models.ErrScanInProgress) {
			slog.Error("Scan failed", "error", err)
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "scan started"})
}

func (s *Server) StopScanHandler(w http.ResponseWriter, r *http.Request) {
	if s.orchestrator.RequestStop() {
		// Confirmation only: the scan halts after its in-flight batch.
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "stop requested"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "no scan running"})
}

func (s *Server) StartOfferSyncHandler(w http.ResponseWriter, r *http.Request) {
	if s.orchestrator.Guard().InProgress() {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "scan already in progress"})
		return
	}

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				slog.Error("Panic in offer sync goroutine", "panic", rec)
			}
		}()
		if err := s.orchestrator.RunOfferSync(context.Background()); err != nil && !errors.Is(err, models.ErrScanInProgress) {
			slog.Error("Offer sync failed", "error", err)
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "offer sync started"})
}

func (s *Server) ScanStatusHandler(w http.ResponseWriter, r *http.Request) {
	state, err := s.store.State()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"scanInProgress":    s.orchestrator.Guard().InProgress(),
		"continuousEnabled": state.ContinuousEnabled,
		"lastUpdated":       state.LastUpdated,
	})
}

func (s *Server) ScanLogsHandler(w http.ResponseWriter, r *http.Request) {
	logs, err := s.store.ScanLogs()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

func (s *Server) GetContinuousHandler(w http.ResponseWriter, r *http.Request) {
	state, err := s.store.State()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) SetContinuousHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	state, err := s.orchestrator.SetContinuous(req.Enabled)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) ListProductsHandler(w http.ResponseWriter, r *http.Request) {
	products, err := s.store.LoadAll()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (s *Server) AddProductHandler(w http.ResponseWriter, r *http.Request) {
	var product models.Product
	if err := json.NewDecoder(r.Body).Decode(&product); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if normalized, err := util.NormalizeURL(product.URL); err == nil {
		product.URL = normalized
	}
	if product.Platform == "" || product.Platform == models.PlatformUnknown {
		product.Platform = extractor.DetectPlatform(product.URL)
	} else {
		product.Platform = models.ParsePlatform(string(product.Platform))
	}

	if err := s.validator.ValidateStruct(product); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	added, err := s.store.Add(product)
	if err != nil {
		if errors.Is(err, models.ErrDuplicateProduct) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "product with this URL is already tracked"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, added)
}

func (s *Server) DeleteProductHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	removed, err := s.store.Delete(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if !removed {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "product not found"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) DeleteByPlatformHandler(w http.ResponseWriter, r *http.Request) {
	platform := models.ParsePlatform(strings.ToLower(r.PathValue("platform")))
	count, err := s.store.DeleteByPlatform(platform)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"deleted": count})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}
