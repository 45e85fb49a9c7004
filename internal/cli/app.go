// Package cli carries the run lifecycle shared by the toolkit commands:
// configuration loading, the subprocess runner, the optional provenance
// catalog, and interrupt handling.
package cli

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/arsf-data/dem.toolkit/internal/backend"
	"github.com/arsf-data/dem.toolkit/internal/config"
	"github.com/arsf-data/dem.toolkit/internal/runlog"
	"github.com/arsf-data/dem.toolkit/internal/toolrun"
)

// Exit codes. Interrupted runs exit 2 so wrappers can tell an operator abort
// from a processing failure.
const (
	ExitOK        = 0
	ExitError     = 1
	ExitInterrupt = 2
)

// App is the shared state of one command invocation.
type App struct {
	Name   string
	Config *config.Config
	Runner *toolrun.Runner
	Tools  *backend.Tools

	catalog *runlog.Log
	runID   int64
}

// New loads configuration and wires the runner and tools. When the config
// names a run catalog, the invocation is recorded there and every external
// command line lands in it.
func New(name string, dryRun bool) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	runner := toolrun.NewRunner(dryRun)
	app := &App{
		Name:   name,
		Config: cfg,
		Runner: runner,
		Tools:  backend.NewTools(runner, cfg),
	}

	if path := cfg.GetRunLogPath(); path != "" && !dryRun {
		catalog, err := runlog.Open(path)
		if err != nil {
			// The catalog is never worth failing a run for.
			log.Printf("WARNING: run catalog unavailable: %v", err)
		} else {
			app.catalog = catalog
			if id, err := catalog.StartRun(name, os.Args[1:]); err == nil {
				app.runID = id
				runner.SetLogger(&runlog.Recorder{Log: catalog, RunID: id})
			}
		}
	}

	app.trapInterrupt()
	return app, nil
}

func (a *App) trapInterrupt() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-ch
		log.Printf("%s: interrupted", a.Name)
		a.finish(ExitInterrupt)
		os.Exit(ExitInterrupt)
	}()
}

func (a *App) finish(status int) {
	if a.catalog == nil {
		return
	}
	if a.runID != 0 {
		_ = a.catalog.FinishRun(a.runID, status)
	}
	_ = a.catalog.Close()
	a.catalog = nil
}

// RecordInput notes an input file in the catalog.
func (a *App) RecordInput(path string) {
	if a.catalog != nil && a.runID != 0 {
		_ = a.catalog.AddInput(a.runID, path)
	}
}

// RecordOutput notes an output file in the catalog.
func (a *App) RecordOutput(path string) {
	if a.catalog != nil && a.runID != 0 {
		_ = a.catalog.AddOutput(a.runID, path)
	}
}

// Exit finishes the catalog record and exits with the status.
func (a *App) Exit(status int) {
	a.finish(status)
	os.Exit(status)
}

// Fatalf logs the error, records the failed run, and exits 1.
func (a *App) Fatalf(format string, args ...interface{}) {
	log.Printf("ERROR: "+format, args...)
	a.Exit(ExitError)
}

// Usagef prints a usage line and the flag defaults to stderr, then exits 1.
func (a *App) Usagef(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	flag.PrintDefaults()
	a.Exit(ExitError)
}
