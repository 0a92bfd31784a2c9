package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/alecthomas/kingpin/v2"

	"github.com/novodl/novodl/internal/client"
	"github.com/novodl/novodl/internal/client/notify"
)

// NewSettingsCommand returns the parent settings command.
func NewSettingsCommand(app *kingpin.Application) *kingpin.CmdClause {
	return app.Command("settings", "Manage application settings.")
}

// newSettingsManager wires the settings dialog against the API server with
// terminal rendering and notifications.
func newSettingsManager(rootCmd *RootCommand, format string, confirmer client.Confirmer) (*client.SettingsManager, error) {
	cli, err := newAPIClient(rootCmd)
	if err != nil {
		return nil, fmt.Errorf("could not create API client: %w", err)
	}

	view := client.NewTerminalSettingsView(newPrinter(format, rootCmd.Stdout), rootCmd.Stdout)

	return client.NewSettingsManager(client.SettingsManagerConfig{
		Client:    cli,
		View:      view,
		Notifier:  notify.NewTerminalNotifier(rootCmd.Stderr),
		Confirmer: confirmer,
		Logger:    rootCmd.Logger,
	})
}

type SettingsGetCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	format string
}

// NewSettingsGetCommand returns the settings get command.
func NewSettingsGetCommand(rootCmd *RootCommand, parent *kingpin.CmdClause) *SettingsGetCommand {
	c := &SettingsGetCommand{rootCmd: rootCmd}

	c.Cmd = parent.Command("get", "Show the current settings and system information.")
	c.Cmd.Flag("format", "Output format (table, json).").Default("table").EnumVar(&c.format, "table", "json")

	return c
}

func (c SettingsGetCommand) Name() string { return c.Cmd.FullCommand() }

func (c SettingsGetCommand) Run(ctx context.Context) error {
	mgr, err := newSettingsManager(c.rootCmd, c.format, client.StaticConfirmer{})
	if err != nil {
		return err
	}

	if err := mgr.Show(ctx); err != nil {
		return fmt.Errorf("could not load settings: %w", err)
	}

	return nil
}

type SettingsSetCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	lndPath        string
	downloadDir    string
	maxConcurrent  int
	timeoutSeconds int
	autoValidate   string
	generateReport string
}

// NewSettingsSetCommand returns the settings set command.
func NewSettingsSetCommand(rootCmd *RootCommand, parent *kingpin.CmdClause) *SettingsSetCommand {
	c := &SettingsSetCommand{rootCmd: rootCmd}

	c.Cmd = parent.Command("set", "Update settings fields, unset flags keep their current value.")
	c.Cmd.Flag("lnd-path", "Path to the lnd command.").StringVar(&c.lndPath)
	c.Cmd.Flag("download-dir", "Default download directory.").StringVar(&c.downloadDir)
	c.Cmd.Flag("max-concurrent", "Maximum concurrent download tasks.").Default("0").IntVar(&c.maxConcurrent)
	c.Cmd.Flag("timeout", "Task timeout in seconds.").Default("0").IntVar(&c.timeoutSeconds)
	c.Cmd.Flag("auto-validate", "Validate files after download (true, false).").EnumVar(&c.autoValidate, "true", "false")
	c.Cmd.Flag("generate-report", "Write a validation report file (true, false).").EnumVar(&c.generateReport, "true", "false")

	return c
}

func (c SettingsSetCommand) Name() string { return c.Cmd.FullCommand() }

func (c SettingsSetCommand) Run(ctx context.Context) error {
	cli, err := newAPIClient(c.rootCmd)
	if err != nil {
		return fmt.Errorf("could not create API client: %w", err)
	}

	// Load the current values so unset flags keep them.
	form, err := cli.GetSettings(ctx)
	if err != nil {
		return fmt.Errorf("could not load current settings: %w", err)
	}

	if c.lndPath != "" {
		form.LndCmdPath = c.lndPath
	}
	if c.downloadDir != "" {
		form.DefaultDownloadDir = c.downloadDir
	}
	if c.maxConcurrent > 0 {
		form.MaxConcurrentTasks = c.maxConcurrent
	}
	if c.timeoutSeconds > 0 {
		form.TaskTimeoutSeconds = c.timeoutSeconds
	}
	if c.autoValidate != "" {
		form.AutoValidate, _ = strconv.ParseBool(c.autoValidate)
	}
	if c.generateReport != "" {
		form.GenerateReport, _ = strconv.ParseBool(c.generateReport)
	}

	mgr, err := newSettingsManager(c.rootCmd, "table", client.StaticConfirmer{})
	if err != nil {
		return err
	}

	mgr.SetForm(form)
	if err := mgr.Save(ctx); err != nil {
		return fmt.Errorf("could not save settings: %w", err)
	}

	return nil
}

type SettingsResetCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	yes bool
}

// NewSettingsResetCommand returns the settings reset command.
func NewSettingsResetCommand(rootCmd *RootCommand, parent *kingpin.CmdClause) *SettingsResetCommand {
	c := &SettingsResetCommand{rootCmd: rootCmd}

	c.Cmd = parent.Command("reset", "Reset all settings to their defaults.")
	c.Cmd.Flag("yes", "Skip the confirmation prompt.").Short('y').BoolVar(&c.yes)

	return c
}

func (c SettingsResetCommand) Name() string { return c.Cmd.FullCommand() }

func (c SettingsResetCommand) Run(ctx context.Context) error {
	var confirmer client.Confirmer = client.NewTerminalConfirmer(c.rootCmd.Stdin, c.rootCmd.Stdout)
	if c.yes {
		confirmer = client.StaticConfirmer{Answer: true}
	}

	mgr, err := newSettingsManager(c.rootCmd, "table", confirmer)
	if err != nil {
		return err
	}

	if err := mgr.Reset(ctx); err != nil {
		return fmt.Errorf("could not reset settings: %w", err)
	}

	return nil
}

type SettingsValidateCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand
}

// NewSettingsValidateCommand returns the settings validate command.
func NewSettingsValidateCommand(rootCmd *RootCommand, parent *kingpin.CmdClause) *SettingsValidateCommand {
	c := &SettingsValidateCommand{rootCmd: rootCmd}

	c.Cmd = parent.Command("validate", "Check the configured paths against the server.")

	return c
}

func (c SettingsValidateCommand) Name() string { return c.Cmd.FullCommand() }

func (c SettingsValidateCommand) Run(ctx context.Context) error {
	cli, err := newAPIClient(c.rootCmd)
	if err != nil {
		return fmt.Errorf("could not create API client: %w", err)
	}

	form, err := cli.GetSettings(ctx)
	if err != nil {
		return fmt.Errorf("could not load current settings: %w", err)
	}

	mgr, err := newSettingsManager(c.rootCmd, "table", client.StaticConfirmer{})
	if err != nil {
		return err
	}
	mgr.SetForm(form)

	if err := mgr.ValidateLndPath(ctx); err != nil {
		return fmt.Errorf("could not validate lnd path: %w", err)
	}
	if err := mgr.ValidateDownloadDir(ctx); err != nil {
		return fmt.Errorf("could not validate download directory: %w", err)
	}

	return nil
}
