// Package main provides the entry point for the Textractor application.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"textractor/internal/app"
	"textractor/internal/config"
	"textractor/internal/cvwarp"
	"textractor/internal/extract"
	"textractor/internal/recent"
	"textractor/internal/selection"
	"textractor/internal/version"
	"textractor/internal/warp"
	"textractor/ui/mainwindow"

	fyneapp "fyne.io/fyne/v2/app"
)

const appID = "io.github.textractor"

func main() {
	cfgPath := config.DefaultPath()
	cfg, cfgErr := config.Load(cfgPath)

	logger, closer, err := NewLogger(cfg.Level(), cfg.LogFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "textractor: %v\n", err)
		logger, closer, _ = NewLogger(cfg.Level(), "")
	}
	defer closer.Close()

	logger.Info("starting", "version", version.String())
	if cfgErr != nil {
		logger.Warn("config not loaded, using defaults", "path", cfgPath, "error", cfgErr)
	}

	engine, err := newEngine(cfg, logger)
	if err != nil {
		logger.Error("dependency check failed", "error", err)
		fmt.Fprintf(os.Stderr, "textractor: %v\n", err)
		os.Exit(1)
	}

	store := recent.Load(recent.DefaultPath(), cfg.MaxRecentFiles)

	fyneApp := fyneapp.NewWithID(appID)
	fyneApp.Settings().SetTheme(&app.TextractorTheme{})

	win := mainwindow.New(fyneApp, mainwindow.Options{
		Width:           float32(cfg.WindowWidth),
		Height:          float32(cfg.WindowHeight),
		ShowLaunchPopup: cfg.ShowLaunchPopup,
		OnLaunchNoticeClosed: func(dontShowAgain bool) {
			if !dontShowAgain {
				return
			}
			cfg.ShowLaunchPopup = false
			if err := cfg.Save(cfgPath); err != nil {
				logger.Warn("config not saved", "path", cfgPath, "error", err)
			}
		},
	}, logger.With("component", "ui"))

	session := app.NewSession(sessionConfig(cfg), engine, win, store, logger.With("component", "session"))
	loop := app.NewLoop(session, cfg.PollInterval(), logger)
	win.Bind(session, loop)
	loop.Start()
	defer loop.Stop()

	if len(os.Args) > 1 {
		win.OpenPath(os.Args[1])
	}

	win.ShowLaunchNotice()
	win.ShowAndRun()
	logger.Info("exiting")
}

// newEngine returns the configured warp engine. The OpenCV engine fails
// when the native library cannot be used.
func newEngine(cfg *config.Config, logger *slog.Logger) (extract.Warper, error) {
	if cfg.Engine == config.EngineGo {
		logger.Info("warp engine", "engine", config.EngineGo)
		return warp.NewEngine(), nil
	}
	v, ok := cvwarp.Available()
	if !ok {
		return nil, errors.New("OpenCV is not available; install it or set \"engine\": \"go\" in " + config.DefaultPath())
	}
	logger.Info("warp engine", "engine", config.EngineOpenCV, "opencv", v)
	return cvwarp.NewEngine(), nil
}

func sessionConfig(cfg *config.Config) app.SessionConfig {
	sc := app.DefaultSessionConfig()
	sc.Selection = selection.Config{
		MinDistance: cfg.MinPointDistance,
		HitRadius:   cfg.HitRadius,
	}
	if cfg.PreviewMaxSize > 0 {
		sc.PreviewMaxSize = cfg.PreviewMaxSize
	}
	sc.MaxOutputDimension = cfg.MaxOutputDimension
	return sc
}
