package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/nick-dorsch/tracker/internal/db"
	"github.com/nick-dorsch/tracker/internal/history"
	"github.com/nick-dorsch/tracker/internal/mcp"
	"github.com/nick-dorsch/tracker/internal/persist"
	"github.com/nick-dorsch/tracker/internal/server"
	"github.com/nick-dorsch/tracker/internal/store"
	"github.com/nick-dorsch/tracker/internal/ui"
	"github.com/nick-dorsch/tracker/internal/ui/components"
	"github.com/nick-dorsch/tracker/pkg/models"
)

var (
	configPath string
	dataPath   string
	dbPath     string
	verbose    bool
)

const (
	listWidth       = 80
	statusNextItems = 5
)

func main() {
	flag.StringVar(&configPath, "config", defaultConfigPath, "Path to config file")
	flag.StringVar(&dataPath, "data-path", "", "Path to CSV data file (overrides config)")
	flag.StringVar(&dbPath, "db-path", "", "Path to SQLite database (overrides config)")
	flag.BoolVar(&verbose, "verbose", false, "Enable verbose logging")
	flag.Parse()

	var command string
	var args []string

	if flag.NArg() == 0 {
		selected, err := ui.RunMenu()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error running menu: %v\n", err)
			os.Exit(1)
		}
		if selected == "" {
			os.Exit(0)
		}
		command = selected
	} else {
		command = flag.Arg(0)
		args = flag.Args()[1:]
	}

	var err error
	switch command {
	case "init":
		err = runInit(args)
	case "web":
		err = runWeb(args)
	case "mcp":
		err = runMCP(args)
	case "list":
		err = runList(args)
	case "history":
		err = runHistory(args)
	case "prioritized":
		err = runPrioritized(args)
	case "status":
		err = runStatus(args)
	default:
		fmt.Printf("Unknown command: %s\n", command)
		os.Exit(1)
	}

	if err != nil {
		if errors.Is(err, persist.ErrUnknownKind) {
			fmt.Fprintf(os.Stderr, "Fatal: saved data is corrupt: %v\n", err)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// settings loads the config and applies command-line overrides.
func settings() (*Config, error) {
	return settingsFrom(configPath)
}

func settingsFrom(path string) (*Config, error) {
	cfg, err := loadConfig(path)
	if err != nil {
		return nil, err
	}
	if dataPath != "" {
		cfg.DataPath = dataPath
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}

func newLogger(cfg *Config) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.logLevel()}))
}

// backendCloser is a persistence backend that may hold an open handle.
type backendCloser interface {
	persist.Backend
	Close() error
}

// itemCounter is a backend that can count its stored rows.
type itemCounter interface {
	Stats(ctx context.Context) (map[models.Kind]int, error)
}

type csvBackend struct{ *persist.CSVFile }

func (csvBackend) Close() error { return nil }

func openBackend(ctx context.Context, cfg *Config) (backendCloser, error) {
	switch cfg.Backend {
	case backendSQLite:
		database, err := db.Open(cfg.DBPath)
		if err != nil {
			return nil, err
		}
		if err := database.Init(ctx); err != nil {
			database.Close()
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		return database, nil
	default:
		return csvBackend{persist.NewCSVFile(cfg.DataPath)}, nil
	}
}

// openStore builds a store, loads saved items into it and enables
// write-through persistence. The caller closes the returned backend.
func openStore(ctx context.Context, cfg *Config, logger *slog.Logger) (*store.Store, backendCloser, error) {
	backend, err := openBackend(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	st := store.New(history.NewTracker(history.WithLimit(cfg.HistoryLimit)), store.WithLogger(logger))
	if err := persist.Attach(ctx, st, backend, logger); err != nil {
		backend.Close()
		return nil, nil, err
	}
	logger.Debug("store loaded", "backend", cfg.Backend, "path", cfg.storagePath(), "items", len(st.All(ctx)))
	return st, backend, nil
}

func runInit(args []string) error {
	targetDir := "."
	if len(args) > 0 {
		targetDir = args[0]
	}

	trackerDir := filepath.Join(targetDir, defaultDir)
	if err := os.MkdirAll(trackerDir, 0755); err != nil {
		return fmt.Errorf("failed to create %s directory: %w", defaultDir, err)
	}
	fmt.Printf("✓ Created %s/ directory\n", defaultDir)

	gitignorePath := filepath.Join(trackerDir, ".gitignore")
	if err := os.WriteFile(gitignorePath, []byte("tasks.db*\n"), 0644); err != nil {
		return fmt.Errorf("failed to create .gitignore: %w", err)
	}
	fmt.Printf("✓ Created %s/.gitignore\n", defaultDir)

	cfgFile := configPath
	if cfgFile == defaultConfigPath {
		cfgFile = filepath.Join(targetDir, defaultConfigPath)
	}
	cfg, err := settingsFrom(cfgFile)
	if err != nil {
		return err
	}
	cfg.relocate(targetDir)

	if _, err := os.Stat(cfgFile); errors.Is(err, os.ErrNotExist) {
		data, err := json.MarshalIndent(defaultConfig(), "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode config: %w", err)
		}
		if err := os.WriteFile(cfgFile, append(data, '\n'), 0644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
		fmt.Printf("✓ Wrote default config to %s\n", cfgFile)
	}

	ctx := context.Background()
	backend, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer backend.Close()

	// Loading first keeps existing data when init is run twice.
	items, err := backend.Load(ctx)
	if err != nil {
		return err
	}
	if err := backend.Save(ctx, items); err != nil {
		return fmt.Errorf("failed to initialize %s storage: %w", cfg.Backend, err)
	}
	fmt.Printf("✓ Initialized %s storage at %s (%d items)\n", cfg.Backend, cfg.storagePath(), len(items))

	fmt.Println("✓ Tracker initialized successfully")
	return nil
}

func runWeb(args []string) error {
	cfg, err := settings()
	if err != nil {
		return err
	}

	webFlags := flag.NewFlagSet("web", flag.ContinueOnError)
	port := webFlags.String("port", cfg.Port, "Port to listen on")
	if err := webFlags.Parse(args); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := newLogger(cfg)
	st, backend, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer backend.Close()

	srv := server.NewServer(st, logger)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	if err := srv.Start(fmt.Sprintf(":%s", *port)); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func runMCP(args []string) error {
	cfg, err := settings()
	if err != nil {
		return err
	}

	ctx := context.Background()
	st, backend, err := openStore(ctx, cfg, newLogger(cfg))
	if err != nil {
		return err
	}
	defer backend.Close()

	return mcp.Serve(mcp.NewServer(st))
}

func runList(args []string) error {
	listFlags := flag.NewFlagSet("list", flag.ContinueOnError)
	typeFilter := listFlags.String("type", "", "Only list items of this type (task, epic, subtask)")
	if err := listFlags.Parse(args); err != nil {
		return err
	}

	cfg, err := settings()
	if err != nil {
		return err
	}
	ctx := context.Background()
	st, backend, err := openStore(ctx, cfg, newLogger(cfg))
	if err != nil {
		return err
	}
	defer backend.Close()

	items := st.All(ctx)
	title := "All items"
	if *typeFilter != "" {
		kind, ok := models.ParseKind(*typeFilter)
		if !ok {
			return fmt.Errorf("unknown type %q", *typeFilter)
		}
		var filtered []*models.Task
		for _, t := range items {
			if t.Kind == kind {
				filtered = append(filtered, t)
			}
		}
		items = filtered
		title = fmt.Sprintf("%s items", kind)
	}

	l := components.NewItemList(title, listWidth, items)
	l.Placeholder = "No items yet"
	fmt.Println(l.View())
	return nil
}

// runHistory views each given id in order and prints the resulting history.
func runHistory(args []string) error {
	cfg, err := settings()
	if err != nil {
		return err
	}
	ctx := context.Background()
	st, backend, err := openStore(ctx, cfg, newLogger(cfg))
	if err != nil {
		return err
	}
	defer backend.Close()

	for _, arg := range args {
		id, err := strconv.Atoi(arg)
		if err != nil {
			return fmt.Errorf("invalid id %q: %w", arg, err)
		}
		if _, err := st.Get(ctx, id); err != nil {
			return err
		}
	}

	l := components.NewItemList("History", listWidth, st.History(ctx))
	l.Placeholder = "No items viewed"
	fmt.Println(l.View())
	return nil
}

func runPrioritized(args []string) error {
	cfg, err := settings()
	if err != nil {
		return err
	}
	ctx := context.Background()
	st, backend, err := openStore(ctx, cfg, newLogger(cfg))
	if err != nil {
		return err
	}
	defer backend.Close()

	l := components.NewItemList("Prioritized", listWidth, st.Prioritized(ctx))
	l.Placeholder = "No scheduled items"
	fmt.Println(l.View())
	return nil
}

func runStatus(args []string) error {
	cfg, err := settings()
	if err != nil {
		return err
	}
	ctx := context.Background()
	st, backend, err := openStore(ctx, cfg, newLogger(cfg))
	if err != nil {
		return err
	}
	defer backend.Close()

	byStatus := make(map[models.TaskStatus]int)
	for _, t := range st.All(ctx) {
		byStatus[t.Status]++
	}
	next := st.Prioritized(ctx)
	if len(next) > statusNextItems {
		next = next[:statusNextItems]
	}

	summary := components.StatusSummary{
		Backend:  cfg.Backend,
		Path:     cfg.storagePath(),
		Counts:   st.Counts(),
		ByStatus: byStatus,
		Next:     next,
	}
	if counter, ok := backend.(itemCounter); ok {
		saved, err := counter.Stats(ctx)
		if err != nil {
			return err
		}
		summary.Saved = saved
	}
	fmt.Println(summary.View())
	return nil
}
