package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/afero"
	"gopkg.in/natefinch/lumberjack.v2"

	"moviepicker/api"
	"moviepicker/config"
	"moviepicker/handlers"
	"moviepicker/internal/validation"
	"moviepicker/services/catalog"
	"moviepicker/services/grid"
	"moviepicker/services/picker"
	"moviepicker/services/providers"
	"moviepicker/services/sessions"
)

func main() {
	portOverride := flag.Int("port", 0, "override server port from config and environment")
	flag.Parse()

	fmt.Println("🎬 Movie Picker starting...")

	if err := config.LoadDotEnv(); err != nil {
		log.Printf("Warning: %v", err)
	}

	configPath := os.Getenv(config.EnvConfigPath)
	if configPath == "" {
		configPath = filepath.Join("cache", "settings.json")
	}

	// Load settings (creates defaults if missing), then environment overrides
	cfgManager := config.NewManager(configPath)
	settings, err := cfgManager.Load()
	if err != nil {
		log.Fatalf("failed to load settings: %v", err)
	}

	logOutput := io.Writer(os.Stdout)
	if settings.Log.File != "" {
		logDir := filepath.Dir(settings.Log.File)
		if err := os.MkdirAll(logDir, 0o755); err != nil {
			log.Printf("Warning: could not create log directory %s: %v", logDir, err)
		} else {
			fileWriter := &lumberjack.Logger{
				Filename:   settings.Log.File,
				MaxSize:    settings.Log.MaxSize,
				MaxBackups: settings.Log.MaxBackups,
				MaxAge:     settings.Log.MaxAge,
				Compress:   settings.Log.Compress,
			}
			defer fileWriter.Close()
			logOutput = io.MultiWriter(os.Stdout, fileWriter)
		}
	}
	log.SetOutput(logOutput)
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(settings.Log.Level))); err != nil {
		level = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(logOutput, &slog.HandlerOptions{Level: level})))

	if *portOverride > 0 {
		settings.Server.Port = *portOverride
	}

	if err := settings.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	slog.Info("settings loaded",
		"path", cfgManager.Path(),
		"region", settings.Catalog.Region,
		"language", settings.Catalog.Language,
		"logFile", settings.Log.File,
	)

	tmdb := catalog.NewClient(catalog.Options{
		AccessToken:       settings.Catalog.AccessToken,
		BaseURL:           settings.Catalog.BaseURL,
		ImageBaseURL:      settings.Catalog.ImageBaseURL,
		Language:          settings.Catalog.Language,
		Timeout:           settings.Catalog.Timeout(),
		RequestsPerSecond: settings.Catalog.RequestsPerSecond,
		Burst:             settings.Catalog.Burst,
	})

	providerSvc := providers.NewService(tmdb, settings.Catalog.Region, settings.Providers.TTL(), settings.Providers.MaxEntries)

	posterURL := func(p string) string {
		if u := tmdb.ImageURL(p, settings.Images.PosterSize); u != "" {
			return u
		}
		return grid.FallbackPoster
	}
	logoURL := func(p string) string {
		return tmdb.ImageURL(p, settings.Images.LogoSize)
	}

	selector := picker.NewSelector(tmdb, nil, settings.Catalog.MaxPage)
	validator := validation.New(nil)
	app := picker.NewApp(selector, validator, posterURL, nil)

	store := sessions.NewStore(sessions.Options{
		IdleTimeout:       settings.Session.IdleTimeout(),
		MovieCacheSize:    settings.Session.MovieCacheSize,
		ProviderCacheSize: settings.Session.ProviderCacheSize,
	})
	janitorCtx, stopJanitor := context.WithCancel(context.Background())
	defer stopJanitor()
	go store.Run(janitorCtx, time.Minute)

	imageHosts := []string{"image.tmdb.org"}
	if u, err := urlHost(settings.Catalog.ImageBaseURL); err == nil && u != "" {
		imageHosts = append(imageHosts, u)
	}
	imageHandler := handlers.NewImageHandler(afero.NewOsFs(), settings.Images.CacheDirectory, nil, imageHosts...)
	if count, size := imageHandler.CacheStats(); count > 0 {
		slog.Info("poster cache", "dir", settings.Images.CacheDirectory, "files", count, "bytes", size)
	}

	cards := grid.NewBuilder(func(p string) string {
		u := tmdb.ImageURL(p, settings.Images.PosterSize)
		if u == "" {
			return ""
		}
		return handlers.ProxyURL(u, 0)
	})

	catalogHandler := handlers.NewCatalogHandler(tmdb, providerSvc)
	shortlistHandler := handlers.NewShortlistHandler(store, app)
	pickerHandler := handlers.NewPickerUIHandler(handlers.PickerOptions{
		Sessions:     store,
		App:          app,
		Listings:     tmdb,
		Availability: providerSvc,
		Cards:        cards,
		LogoURL:      logoURL,
		WebsiteURL:   settings.Catalog.WebsiteURL,
		Region:       providerSvc.Region(),
		Feedback:     validator,
	})

	r := mux.NewRouter()
	api.Register(r, catalogHandler, shortlistHandler, imageHandler, pickerHandler)

	addr := fmt.Sprintf("%s:%d", settings.Server.Host, settings.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.WithCORS(r),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-shutdownChan
	log.Println("🛑 Shutdown signal received, cleaning up...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	stopJanitor()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	slog.Info("shutdown complete", "sessions", store.Len(), "providerLookups", providerSvc.UpstreamCalls())
}

// urlHost returns the lower-cased host of a configured base URL.
func urlHost(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	return strings.ToLower(u.Hostname()), nil
}
