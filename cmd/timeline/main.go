package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/aristath/timeline/internal/config"
	"github.com/aristath/timeline/internal/ctxlog"
	"github.com/aristath/timeline/internal/events"
	"github.com/aristath/timeline/internal/persistence"
	"github.com/aristath/timeline/internal/planner"
	"github.com/aristath/timeline/internal/scheduler"
	"github.com/aristath/timeline/internal/tui"
)

// errAssetsFailed makes the process exit non-zero when any asset could not
// be scheduled and had no fallback.
var errAssetsFailed = errors.New("one or more assets could not be scheduled")

type options struct {
	tasksPath  string
	dbPath     string
	liveDate   string
	assetID    string
	plain      bool
	configPath string
	exportPath string
	logLevel   string
	logFormat  string
	width      int
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("timeline", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.tasksPath, "tasks", "", "JSON task batch to schedule")
	fs.StringVar(&opts.dbPath, "db", "", "SQLite database (defaults to the configured store when -tasks is not set)")
	fs.StringVar(&opts.liveDate, "live", "", "live date (YYYY-MM-DD); overrides the batch and config")
	fs.StringVar(&opts.assetID, "asset", "", "schedule only this asset")
	fs.BoolVar(&opts.plain, "plain", false, "print the schedule instead of starting the interactive viewer")
	fs.StringVar(&opts.configPath, "config", "", "project config file (default .timeline/config.json)")
	fs.StringVar(&opts.exportPath, "export", "", "write the loaded tasks as a JSON batch to this file and exit")
	fs.StringVar(&opts.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	fs.StringVar(&opts.logFormat, "log-format", "text", "log format: text or json")
	fs.IntVar(&opts.width, "width", 100, "output width for -plain")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if fs.NArg() > 0 {
		return opts, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return opts, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	logger := ctxlog.New(opts.logLevel, opts.logFormat, stderr)
	ctx = ctxlog.WithLogger(ctx, logger)

	globalPath, projectPath, cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}

	var batch *scheduler.Batch
	if opts.tasksPath != "" {
		if batch, err = readBatch(ctx, opts.tasksPath); err != nil {
			return err
		}
	}

	var store persistence.Store
	if dbPath := storePath(opts, cfg); dbPath != "" {
		s, err := persistence.NewSQLiteStore(ctx, dbPath)
		if err != nil {
			return fmt.Errorf("opening store: %w", err)
		}
		defer s.Close()
		store = s
		logger.Debug("opened store", "path", dbPath)
	}

	retry := planner.DefaultRetryConfig()
	base, err := loadProject(ctx, store, batch, retry)
	if err != nil {
		return err
	}
	base = filterAsset(base, opts.assetID)
	if len(base.Tasks) == 0 {
		if opts.assetID != "" {
			return fmt.Errorf("no tasks for asset %q", opts.assetID)
		}
		return errors.New("no tasks to schedule; pass -tasks or import into the store first")
	}

	// Precedence: flag, then batch, then config.
	switch {
	case opts.liveDate != "":
		cfg.LiveDate = opts.liveDate
	case batch != nil && batch.LiveDate != "":
		cfg.LiveDate = batch.LiveDate
	}

	if opts.exportPath != "" {
		return exportBatch(ctx, opts.exportPath, base, cfg.LiveDate)
	}
	if cfg.LiveDate == "" {
		return errors.New("no live date; pass -live or set live_date in the batch or config")
	}

	bus := events.NewEventBus()
	defer bus.Close()

	p := planner.New(planner.Config{
		ConcurrencyLimit: cfg.Planner.ConcurrencyLimit,
		Breakers: planner.BreakerSettings{
			FailureThreshold: cfg.Planner.FailureThreshold,
			Cooldown:         cfg.Cooldown(),
		},
		Retry:      retry,
		Calculator: cfg.CalculatorOptions(),
		Store:      store,
		Bus:        bus,
	}, logger)

	schedule := func(ctx context.Context, cfg *config.ScheduleConfig) ([]planner.AssetResult, error) {
		p.SetCalculatorOptions(cfg.CalculatorOptions())
		return p.Schedule(ctx, withConfig(base, cfg))
	}

	if opts.plain {
		results, err := schedule(ctx, cfg)
		if err != nil {
			return err
		}
		fmt.Fprint(stdout, tui.RenderPlain(results, opts.width))
		for _, r := range results {
			if r.Outcome == planner.OutcomeFailed {
				return errAssetsFailed
			}
		}
		return nil
	}

	return runTUI(ctx, logger, tui.New(ctx, bus, schedule, cfg, globalPath, projectPath))
}

func loadConfig(projectOverride string) (globalPath, projectPath string, cfg *config.ScheduleConfig, err error) {
	globalPath, err = config.GlobalPath()
	if err != nil {
		return "", "", nil, err
	}
	projectPath = config.ProjectPath()
	if projectOverride != "" {
		projectPath = projectOverride
	}
	cfg, err = config.Load(globalPath, projectPath)
	if err != nil {
		return "", "", nil, err
	}
	if err := cfg.Validate(); err != nil {
		return "", "", nil, fmt.Errorf("invalid config: %w", err)
	}
	return globalPath, projectPath, cfg, nil
}

// storePath picks the database: the -db flag, or the configured store when
// tasks are not coming from a file.
func storePath(opts options, cfg *config.ScheduleConfig) string {
	if opts.dbPath != "" {
		return opts.dbPath
	}
	if opts.tasksPath == "" {
		return cfg.Store.Path
	}
	return ""
}

func readBatch(ctx context.Context, path string) (*scheduler.Batch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading tasks: %w", err)
	}
	batch, warnings, err := scheduler.DecodeBatch(data)
	if err != nil {
		return nil, err
	}
	log := ctxlog.FromContext(ctx)
	for _, w := range warnings {
		log.Warn("task import", "warning", w)
	}
	log.Info("loaded task batch", "path", path, "tasks", len(batch.Tasks))
	return batch, nil
}

// loadProject imports batch into the store when both are present, then
// reads the project from the store; without a store the batch is used as is.
func loadProject(ctx context.Context, store persistence.Store, batch *scheduler.Batch, retry planner.RetryConfig) (planner.Project, error) {
	if store == nil {
		if batch == nil {
			return planner.Project{}, errors.New("no task source: pass -tasks or -db")
		}
		return planner.Project{Tasks: batch.Tasks, Holidays: batch.Holidays}, nil
	}
	if batch != nil {
		if err := store.SaveTasks(ctx, batch.Tasks); err != nil {
			return planner.Project{}, fmt.Errorf("importing tasks: %w", err)
		}
		if len(batch.Holidays) > 0 {
			if err := store.SaveHolidays(ctx, batch.Holidays); err != nil {
				return planner.Project{}, fmt.Errorf("importing holidays: %w", err)
			}
		}
		ctxlog.FromContext(ctx).Info("imported task batch", "tasks", len(batch.Tasks), "holidays", len(batch.Holidays))
	}
	return planner.LoadProject(ctx, store, retry, "", nil)
}

func exportBatch(ctx context.Context, path string, p planner.Project, liveDate string) error {
	data, err := scheduler.EncodeBatch(&scheduler.Batch{LiveDate: liveDate, Holidays: p.Holidays, Tasks: p.Tasks})
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing export: %w", err)
	}
	ctxlog.FromContext(ctx).Info("exported task batch", "path", path, "tasks", len(p.Tasks))
	return nil
}

func filterAsset(p planner.Project, assetID string) planner.Project {
	if assetID == "" {
		return p
	}
	p.Tasks = p.TasksFor(assetID)
	return p
}

// withConfig applies the config's live date, holidays, and duration
// overrides to the loaded project.
func withConfig(p planner.Project, cfg *config.ScheduleConfig) planner.Project {
	p.LiveDate = cfg.LiveDate
	p.Overrides = cfg.DurationOverrides

	seen := make(map[string]bool)
	var holidays []string
	for _, h := range append(append([]string{}, p.Holidays...), cfg.Holidays...) {
		if !seen[h] {
			seen[h] = true
			holidays = append(holidays, h)
		}
	}
	sort.Strings(holidays)
	p.Holidays = holidays
	return p
}

func runTUI(ctx context.Context, logger *slog.Logger, model tui.Model) error {
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	errChan := make(chan error, 1)
	go func() {
		_, err := program.Run()
		errChan <- err
	}()

	select {
	case err := <-errChan:
		if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			return err
		}
		return nil
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		program.Quit()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		select {
		case err := <-errChan:
			if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
				logger.Error("TUI exit error", "error", err)
			}
		case <-shutdownCtx.Done():
			logger.Warn("shutdown timeout exceeded, forcing exit")
		}
		return nil
	}
}
