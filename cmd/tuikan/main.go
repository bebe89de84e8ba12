package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/fang"
	"github.com/evanschultz/tuikan/internal/adapters/storage/jsonfile"
	"github.com/evanschultz/tuikan/internal/adapters/storage/sqlite"
	"github.com/evanschultz/tuikan/internal/app"
	"github.com/evanschultz/tuikan/internal/config"
	"github.com/evanschultz/tuikan/internal/platform"
	"github.com/evanschultz/tuikan/internal/tui"
	"github.com/spf13/cobra"
)

// version stores a package-level helper value.
var version = "dev"

// program represents program data used by this package.
type program interface {
	Run() (tea.Model, error)
}

// programFactory stores a package-level helper value.
var programFactory = func(m tea.Model) program {
	return tea.NewProgram(m)
}

// clipboardFactory returns the clipboard used by the copy command.
var clipboardFactory = func() app.Clipboard {
	return tui.SystemClipboard{}
}

// main handles main.
func main() {
	root := newRootCmd(os.Stdout, os.Stderr)
	if err := fang.Execute(context.Background(), root, fang.WithVersion(version)); err != nil {
		os.Exit(1)
	}
}

// rootOptions holds the persistent flags shared by every command.
type rootOptions struct {
	configPath string
	statePath  string
	backend    string
	appName    string
	devMode    bool
}

// newRootCmd builds the command tree.
func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}

	opts := &rootOptions{appName: platform.DefaultAppName}
	defaultDevMode := version == "dev"
	if envDev, ok := parseBoolEnv("TUIKAN_DEV_MODE"); ok {
		defaultDevMode = envDev
	}
	if envApp := strings.TrimSpace(os.Getenv("TUIKAN_APP_NAME")); envApp != "" {
		opts.appName = envApp
	}

	root := &cobra.Command{
		Use:           "tuikan",
		Short:         "A keyboard-driven kanban board for the terminal",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBoard(cmd.Context(), opts, stderr)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "path to config TOML")
	flags.StringVar(&opts.statePath, "state", "", "path to the state file")
	flags.StringVar(&opts.backend, "backend", "", "storage backend (json|sqlite)")
	flags.StringVar(&opts.appName, "app", opts.appName, "application name for config/data path resolution")
	flags.BoolVar(&opts.devMode, "dev", defaultDevMode, "use dev mode paths (<app>-dev)")

	root.AddCommand(
		newPathsCmd(opts, stdout),
		newExportCmd(opts, stdout, stderr),
		newImportCmd(opts, stderr),
		newQuarantineCmd(opts, stdout),
	)
	return root
}

// newPathsCmd prints resolved locations.
func newPathsCmd(opts *rootOptions, stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Print resolved config, state and data paths",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			env, err := resolveEnvironment(opts)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(stdout, "app: %s\n", opts.appName)
			_, _ = fmt.Fprintf(stdout, "dev_mode: %t\n", opts.devMode)
			_, _ = fmt.Fprintf(stdout, "config: %s\n", env.configPath)
			_, _ = fmt.Fprintf(stdout, "backend: %s\n", env.cfg.Storage.Backend)
			_, _ = fmt.Fprintf(stdout, "state: %s\n", env.cfg.Storage.StatePath)
			_, _ = fmt.Fprintf(stdout, "legacy: %s\n", env.cfg.Storage.LegacyPath)
			_, _ = fmt.Fprintf(stdout, "legacy_projects: %s\n", env.cfg.Storage.LegacyProjectsPath)
			_, _ = fmt.Fprintf(stdout, "db: %s\n", env.cfg.Storage.DBPath)
			return nil
		},
	}
}

// newExportCmd writes the current state as a snapshot.
func newExportCmd(opts *rootOptions, stdout, stderr io.Writer) *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the board state as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withService(cmd.Context(), opts, stderr, "export", func(ctx context.Context, svc *app.Service) error {
				return runExport(ctx, svc, outPath, stdout, stderr)
			})
		},
	}
	cmd.Flags().StringVar(&outPath, "out", "-", "output file path ('-' for stdout)")
	return cmd
}

// newImportCmd replaces the stored state with a snapshot file.
func newImportCmd(opts *rootOptions, stderr io.Writer) *cobra.Command {
	var inPath string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Replace the board state with a snapshot or state document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(inPath) == "" {
				return errors.New("--in is required")
			}
			return withService(cmd.Context(), opts, stderr, "import", func(ctx context.Context, svc *app.Service) error {
				return runImport(ctx, svc, inPath)
			})
		},
	}
	cmd.Flags().StringVar(&inPath, "in", "", "input snapshot JSON file")
	return cmd
}

// newQuarantineCmd lists state that was set aside because it could not be read.
func newQuarantineCmd(opts *rootOptions, stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "quarantine",
		Short: "List saved state that was set aside as unreadable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := resolveEnvironment(opts)
			if err != nil {
				return err
			}
			return runQuarantine(cmd.Context(), env.cfg, stdout)
		},
	}
}

// runQuarantine prints quarantined documents for the configured backend.
func runQuarantine(ctx context.Context, cfg config.Config, stdout io.Writer) error {
	if cfg.Storage.Backend == config.BackendSQLite {
		repo, err := sqlite.Open(cfg.Storage.DBPath)
		if err != nil {
			return fmt.Errorf("open sqlite store: %w", err)
		}
		defer func() { _ = repo.Close() }()
		docs, err := repo.ListQuarantined(ctx)
		if err != nil {
			return fmt.Errorf("list quarantined documents: %w", err)
		}
		for _, doc := range docs {
			_, _ = fmt.Fprintf(stdout, "%d\t%s\t%s\n", doc.ID, doc.QuarantinedAt.Format(time.RFC3339), doc.Reason)
		}
		if len(docs) == 0 {
			_, _ = fmt.Fprintln(stdout, "no quarantined state")
		}
		return nil
	}

	store, err := jsonfile.New(cfg.Storage.StatePath)
	if err != nil {
		return fmt.Errorf("open state file: %w", err)
	}
	files, err := store.ListQuarantined(ctx)
	if err != nil {
		return err
	}
	for _, path := range files {
		_, _ = fmt.Fprintln(stdout, path)
	}
	if len(files) == 0 {
		_, _ = fmt.Fprintln(stdout, "no quarantined state")
	}
	return nil
}

// environment is the resolved configuration for one invocation.
type environment struct {
	paths      platform.Paths
	configPath string
	cfg        config.Config
}

// logSetup describes the runtime logger for this invocation.
func (e environment) logSetup(opts *rootOptions) logSetup {
	return logSetup{
		AppName: opts.appName,
		DevMode: opts.devMode,
		DataDir: e.paths.DataDir,
		Now:     time.Now,
	}
}

// resolveEnvironment resolves paths, loads config and applies flag and env overrides.
func resolveEnvironment(opts *rootOptions) (environment, error) {
	paths, err := platform.DefaultPathsWithOptions(platform.Options{
		AppName: opts.appName,
		DevMode: opts.devMode,
	})
	if err != nil {
		return environment{}, err
	}

	configPath := strings.TrimSpace(opts.configPath)
	if configPath == "" {
		if envPath := strings.TrimSpace(os.Getenv("TUIKAN_CONFIG")); envPath != "" {
			configPath = envPath
		} else {
			configPath = paths.ConfigPath
		}
	}

	cfg, err := config.Load(configPath, config.Default(paths))
	if err != nil {
		return environment{}, fmt.Errorf("load config %q: %w", configPath, err)
	}
	statePath := strings.TrimSpace(opts.statePath)
	if statePath == "" {
		statePath = strings.TrimSpace(os.Getenv("TUIKAN_STATE_PATH"))
	}
	if statePath != "" {
		cfg.Storage.StatePath = statePath
	}
	if backend := strings.TrimSpace(opts.backend); backend != "" {
		cfg.Storage.Backend = config.Backend(strings.ToLower(backend))
	}
	if err := cfg.Validate(); err != nil {
		return environment{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return environment{paths: paths, configPath: configPath, cfg: cfg}, nil
}

// openStore opens the configured storage backend.
func openStore(cfg config.Config) (app.Store, func() error, error) {
	switch cfg.Storage.Backend {
	case config.BackendSQLite:
		repo, err := sqlite.Open(cfg.Storage.DBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return repo, repo.Close, nil
	default:
		store, err := jsonfile.New(cfg.Storage.StatePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open state file: %w", err)
		}
		return store, func() error { return nil }, nil
	}
}

// newService wires the store, legacy source and config into an app service.
func newService(store app.Store, cfg config.Config, logger *runtimeLogger) *app.Service {
	svc := app.NewService(store, jsonfile.LegacyFile{Path: cfg.Storage.LegacyPath}, time.Now, app.ServiceConfig{
		DefaultProjectName: cfg.Projects.DefaultName,
	})
	svc.SetLegacyProjects(jsonfile.LegacyFile{Path: cfg.Storage.LegacyProjectsPath})
	svc.SetLogger(logger.AppLogger())
	return svc
}

// withService runs fn with a service over the configured store.
func withService(ctx context.Context, opts *rootOptions, stderr io.Writer, command string, fn func(context.Context, *app.Service) error) error {
	env, err := resolveEnvironment(opts)
	if err != nil {
		return err
	}
	logger, err := newRuntimeLogger(stderr, env.cfg.Logging, env.logSetup(opts))
	if err != nil {
		return fmt.Errorf("configure runtime logger: %w", err)
	}
	defer func() { _ = logger.Close() }()

	store, closeStore, err := openStore(env.cfg)
	if err != nil {
		logger.Error("store open failed", "backend", env.cfg.Storage.Backend, "err", err)
		return err
	}
	defer func() {
		if closeErr := closeStore(); closeErr != nil {
			logger.Warn("store close failed", "err", closeErr)
		}
	}()

	logger.Info("command flow start", "command", command)
	if err := fn(ctx, newService(store, env.cfg, logger)); err != nil {
		logger.Error("command flow failed", "command", command, "err", err)
		return fmt.Errorf("run %s command: %w", command, err)
	}
	logger.Info("command flow complete", "command", command)
	return nil
}

// runBoard runs the interactive board.
func runBoard(ctx context.Context, opts *rootOptions, stderr io.Writer) error {
	env, err := resolveEnvironment(opts)
	if err != nil {
		return err
	}
	if err := config.EnsureConfigDir(env.configPath); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if env.cfg.Storage.Backend == config.BackendJSON {
		if err := platform.EnsureDir(filepath.Dir(env.cfg.Storage.StatePath)); err != nil {
			return fmt.Errorf("create state dir: %w", err)
		}
	}

	logger, err := newRuntimeLogger(stderr, env.cfg.Logging, env.logSetup(opts))
	if err != nil {
		return fmt.Errorf("configure runtime logger: %w", err)
	}
	// The board owns the terminal from here on.
	logger.Mute()
	defer func() {
		if closeErr := logger.Close(); closeErr != nil {
			_, _ = fmt.Fprintf(stderr, "warning: close runtime log sink: %v\n", closeErr)
		}
	}()

	logger.Info("startup configuration resolved", "app", opts.appName, "dev_mode", opts.devMode, "backend", env.cfg.Storage.Backend)
	logger.Debug("runtime paths resolved", "config_path", env.configPath, "state_path", env.cfg.Storage.StatePath, "db_path", env.cfg.Storage.DBPath)
	if devPath := logger.DevLogPath(); devPath != "" {
		logger.Info("dev file logging enabled", "path", devPath)
	}

	store, closeStore, err := openStore(env.cfg)
	if err != nil {
		logger.Error("store open failed", "backend", env.cfg.Storage.Backend, "err", err)
		return err
	}
	defer func() {
		if closeErr := closeStore(); closeErr != nil {
			logger.Warn("store close failed", "err", closeErr)
		}
	}()

	svc := newService(store, env.cfg, logger)
	session, report := svc.NewSession(ctx,
		app.WithKeyMap(app.NewKeyMap(env.cfg.Keys.AppKeys())),
		app.WithClipboard(clipboardFactory()),
	)
	logger.Info("state ready", "source", report.Source, "projects", len(session.State().Projects))

	m := tui.NewModel(session,
		tui.WithContext(ctx),
		tui.WithMarkdown(env.cfg.UI.RenderMarkdown),
		tui.WithNoticeDuration(time.Duration(env.cfg.UI.NoticeSeconds)*time.Second),
	)
	logger.Info("starting tui program loop")
	_, runErr := programFactory(m).Run()
	if closeErr := session.Close(ctx); closeErr != nil {
		logger.Error("final save failed", "err", closeErr)
		_, _ = fmt.Fprintf(stderr, "warning: %v\n", closeErr)
	}
	if runErr != nil {
		logger.Error("tui program terminated with error", "err", runErr)
		return fmt.Errorf("run tui program: %w", runErr)
	}
	logger.Info("command flow complete", "command", "tui")
	return nil
}

// runExport writes the snapshot to outPath or stdout.
func runExport(ctx context.Context, svc *app.Service, outPath string, stdout, stderr io.Writer) error {
	snap, report := svc.ExportSnapshot(ctx)
	if report.Warning != "" {
		_, _ = fmt.Fprintf(stderr, "warning: %s\n", report.Warning)
	}
	encoded, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot json: %w", err)
	}
	encoded = append(encoded, '\n')

	if outPath == "" || outPath == "-" {
		if _, err := stdout.Write(encoded); err != nil {
			return fmt.Errorf("write snapshot to stdout: %w", err)
		}
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create export output dir: %w", err)
	}
	if err := os.WriteFile(outPath, encoded, 0o644); err != nil {
		return fmt.Errorf("write export file: %w", err)
	}
	return nil
}

// runImport validates a snapshot file and stores it.
func runImport(ctx context.Context, svc *app.Service, inPath string) error {
	content, err := os.ReadFile(inPath)
	if err != nil {
		return fmt.Errorf("read import file: %w", err)
	}
	snap, err := app.ParseSnapshot(content)
	if err != nil {
		return fmt.Errorf("decode snapshot json: %w", err)
	}
	if err := svc.ImportSnapshot(ctx, snap); err != nil {
		return fmt.Errorf("import snapshot: %w", err)
	}
	return nil
}

// parseBoolEnv parses input into a normalized form.
func parseBoolEnv(name string) (bool, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
