package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"finboard/internal/cli"
	"finboard/internal/core"
	applog "finboard/internal/log"
	"finboard/internal/reports"
	"finboard/internal/tui"
)

func main() {
	now := time.Now()
	view := flag.String("view", reports.ViewTransactions, "view to open or print")
	month := flag.Int("month", int(now.Month()), "month, 1-12")
	year := flag.Int("year", now.Year(), "year")
	card := flag.Int64("card", 0, "credit card id, for the card views in print mode")
	printMode := flag.Bool("print", false, "print the view as a text table and exit")
	logFile := flag.String("log", "", "write logs to this file while the interface runs")
	flag.Parse()

	interactive := !*printMode && term.IsTerminal(int(os.Stdout.Fd()))

	// stdout carries the table in print mode and the screen otherwise.
	cli.LoadEnvFile()
	lcfg := applog.DefaultConfig()
	lcfg.Level = applog.ParseLevel(os.Getenv("LOG_LEVEL"))
	lcfg.Output = os.Stderr
	logger := applog.New(lcfg)
	applog.SetDefault(logger)
	cfg := cli.LoadAndValidateConfig(logger)

	if interactive {
		screenLogger, closeLog, err := openLog(*logFile, cfg.LogLevel)
		if err != nil {
			logger.Error("Failed to open log file", applog.FieldError, err)
			os.Exit(1)
		}
		defer closeLog()
		applog.SetDefault(screenLogger)
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	res := cli.InitBackend(ctx, applog.WithComponent(applog.ComponentApp), cfg)
	defer func() {
		if err := res.Close(); err != nil {
			logger.Error("Backend cleanup failed", applog.FieldError, err)
		}
	}()
	cached := reports.NewCachedFetcher(res.Fetcher, cfg.CacheSize, cfg.CacheTTL)
	svc := reports.NewService(cached)

	catalog, err := reports.NewCatalog()
	if err != nil {
		logger.Error("Failed to build views", applog.FieldError, err)
		os.Exit(1)
	}
	period := core.Period{Year: *year, Month: *month}

	if !interactive {
		v, ok := catalog.Lookup(*view)
		if !ok {
			fmt.Fprintf(os.Stderr, "unknown view %q; choose one of %v\n", *view, catalog.Names())
			os.Exit(2)
		}
		params := reports.Params{Period: period, CardID: *card}
		if err := tui.Print(ctx, os.Stdout, svc, v, params); err != nil {
			logger.Error("Print failed", applog.FieldView, *view, applog.FieldError, err)
			os.Exit(1)
		}
		return
	}

	m, err := tui.New(ctx, svc, catalog, period, *view, tui.WithInvalidator(cached))
	if err != nil {
		logger.Error("Failed to start", applog.FieldError, err)
		os.Exit(2)
	}

	p := tea.NewProgram(m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithReportFocus(),
		tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		logger.Error("Program failed", applog.FieldError, err)
		os.Exit(1)
	}
}

// openLog returns the process logger while the screen is taken: a file
// when path is set, nothing otherwise. Component loggers derive from it.
func openLog(path, level string) (*applog.Logger, func(), error) {
	if path == "" {
		return applog.Discard(), func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	cfg := applog.DefaultConfig()
	cfg.Level = applog.ParseLevel(level)
	cfg.Output = f
	return applog.New(cfg), func() { _ = f.Close() }, nil
}
