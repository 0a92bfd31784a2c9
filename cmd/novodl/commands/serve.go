package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/alecthomas/kingpin/v2"

	"github.com/novodl/novodl/internal/config"
	"github.com/novodl/novodl/internal/lnd"
	lndfake "github.com/novodl/novodl/internal/lnd/fake"
	"github.com/novodl/novodl/internal/manager"
	"github.com/novodl/novodl/internal/server"
	"github.com/novodl/novodl/internal/settings"
	"github.com/novodl/novodl/internal/storage/sqlite"
)

type ServeCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	configFile string
	listenAddr string
	lndMode    string
}

// NewServeCommand returns the serve command.
func NewServeCommand(rootCmd *RootCommand, app *kingpin.Application) *ServeCommand {
	c := &ServeCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("serve", "Run the download manager API server.")
	c.Cmd.Flag("config", "Path to the server config file (YAML).").StringVar(&c.configFile)
	c.Cmd.Flag("listen-addr", "Listen address, overrides the config file.").StringVar(&c.listenAddr)
	c.Cmd.Flag("lnd-mode", "Lnd execution mode, overrides the config file (exec, fake).").EnumVar(&c.lndMode, config.LndModeExec, config.LndModeFake)

	return c
}

func (c ServeCommand) Name() string { return c.Cmd.FullCommand() }

func (c ServeCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	// Load server configuration (defaults < file < env < flags).
	cfg, err := config.Load(config.Options{
		Path:                c.configFile,
		DefaultDBPath:       c.rootCmd.DBPath,
		DefaultSettingsPath: c.rootCmd.SettingsPath,
	})
	if err != nil {
		return fmt.Errorf("could not load configuration: %w", err)
	}
	if c.listenAddr != "" {
		cfg.ListenAddr = c.listenAddr
	}
	if c.lndMode != "" {
		cfg.LndMode = c.lndMode
	}

	// Settings store.
	store, err := settings.NewStore(settings.StoreConfig{
		Path:   cfg.SettingsPath,
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("could not create settings store: %w", err)
	}

	// Initialize storage (SQLite).
	repo, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{
		DBPath: cfg.DBPath,
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("could not create repository: %w", err)
	}

	// Lnd runner.
	var runner lnd.Runner
	switch cfg.LndMode {
	case config.LndModeFake:
		runner, err = lndfake.NewRunner(lndfake.RunnerConfig{
			Logger: logger,
		})
	default:
		s, loadErr := store.Load(ctx)
		if loadErr != nil {
			return fmt.Errorf("could not load settings: %w", loadErr)
		}
		runner, err = lnd.NewCommandRunner(lnd.CommandRunnerConfig{
			Path:   s.LndCmdPath,
			Logger: logger,
		})
	}
	if err != nil {
		return fmt.Errorf("could not create lnd runner: %w", err)
	}

	// Task manager.
	mgr, err := manager.NewManager(manager.ManagerConfig{
		Repo:     repo,
		Runner:   runner,
		Settings: store.Load,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("could not create task manager: %w", err)
	}

	var accessLog io.Writer
	if cfg.AccessLog {
		accessLog = c.rootCmd.Stderr
	}

	srv, err := server.NewServer(server.Config{
		Addr:          cfg.ListenAddr,
		Manager:       mgr,
		SettingsStore: store,
		LogWriter:     accessLog,
		Logger:        logger,
	})
	if err != nil {
		return fmt.Errorf("could not create server: %w", err)
	}

	logger.Infof("Listening on %s", cfg.ListenAddr)
	err = srv.Run(ctx)

	// Let running tasks persist their final state before exiting.
	mgr.Wait()

	return err
}
