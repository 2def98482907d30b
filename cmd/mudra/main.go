package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/link"
	"github.com/ayusman/mudra/internal/logging"
	"github.com/ayusman/mudra/internal/preview"
	"github.com/ayusman/mudra/internal/server"
	"github.com/ayusman/mudra/internal/store"
	"github.com/ayusman/mudra/internal/tray"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "mudra: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	logCloser := logging.InitLogger(logging.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	defer logCloser.Close()

	slog.Info("Mudra - finger count to serial commands")

	var st *store.Store
	if cfg.Store.Path != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Store.Path), 0755); err != nil {
			return fmt.Errorf("create data directory: %w", err)
		}
		st, err = store.New(cfg.Store.Path)
		if err != nil {
			return fmt.Errorf("initialize store: %w", err)
		}
		defer st.Close()
	}

	lnk, err := link.Open(link.SerialConfig{
		Port:        cfg.Serial.Port,
		Baud:        cfg.Serial.Baud,
		ReadTimeout: cfg.Serial.ReadTimeout,
		Settle:      cfg.Serial.Settle,
	}, cfg.Serial.Required)
	if err != nil {
		return err
	}

	det, err := detector.NewMediaPipeDetector(detector.Config{
		MaxHands:        cfg.Detector.MaxHands,
		MinConfidence:   cfg.Detector.MinDetectionConfidence,
		MinTrackingConf: cfg.Detector.MinTrackingConfidence,
		Script:          cfg.Detector.Script,
	})
	if err != nil {
		lnk.Close()
		return fmt.Errorf("start detector: %w", err)
	}

	cam := capture.NewCamera(capture.Config{
		DeviceID: cfg.Camera.Device,
		Width:    cfg.Camera.Width,
		Height:   cfg.Camera.Height,
		FPS:      cfg.Camera.FPS,
		Mirror:   cfg.Camera.Mirror,
	})

	appConfig := app.Config{
		Camera:        cam,
		Detector:      det,
		Link:          lnk,
		Store:         st,
		Debounce:      cfg.Dispatch.Debounce,
		ShutdownGrace: cfg.Dispatch.ShutdownGrace,
	}
	// The tray owns the main thread, so the window is only shown without it.
	if cfg.Preview.Enabled && !cfg.Tray.Enabled {
		appConfig.Viewer = preview.New(cfg.Preview.Title)
	}

	a, err := app.New(appConfig)
	if err != nil {
		lnk.Close()
		det.Close()
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var srv *server.Server
	if cfg.HTTP.Addr != "" {
		hub := server.NewEventHub()
		a.Subscribe(hub.Publish)

		srv = server.New(server.Config{Store: st, Status: a, Events: hub})
		go func() {
			slog.Info("Starting server", "addr", cfg.HTTP.Addr)
			if err := srv.ListenAndServe(cfg.HTTP.Addr); err != nil {
				slog.Error("Server failed", "error", err)
			}
		}()
	}

	if cfg.Tray.Enabled {
		err = runWithTray(ctx, a, lnk)
	} else {
		err = a.Run(ctx)
	}

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if serr := srv.Shutdown(shutdownCtx); serr != nil {
			slog.Error("Server shutdown failed", "error", serr)
		}
	}

	if errors.Is(err, app.ErrFrameAcquisition) {
		return fmt.Errorf("session ended: %w", err)
	}
	return err
}

// runWithTray runs the session in the background while the tray holds the main
// thread. Either side ending stops the other.
func runWithTray(ctx context.Context, a *app.App, lnk link.Link) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	t := tray.New()
	t.OnQuit(cancel)
	t.SetLink(lnk.Connected())
	a.Subscribe(func(ev app.Event) {
		if ev.Type == app.EventFrame {
			t.SetFingers(ev.Count, ev.HandPresent)
		}
	})

	done := make(chan error, 1)
	go func() {
		select {
		case <-t.Ready():
		case <-ctx.Done():
		}
		done <- a.Run(ctx)
		t.Quit()
	}()

	t.Run()
	cancel()
	return <-done
}
