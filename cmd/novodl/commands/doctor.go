package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/novodl/novodl/internal/settings"
)

type DoctorCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand
}

// NewDoctorCommand returns the doctor command.
func NewDoctorCommand(rootCmd *RootCommand, app *kingpin.Application) *DoctorCommand {
	c := &DoctorCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("doctor", "Run preflight checks for the download environment.")

	return c
}

func (c DoctorCommand) Name() string { return c.Cmd.FullCommand() }

func (c DoctorCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger
	out := c.rootCmd.Stdout

	store, err := settings.NewStore(settings.StoreConfig{
		Path:   c.rootCmd.SettingsPath,
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("could not create settings store: %w", err)
	}

	s, err := store.Load(ctx)
	if err != nil {
		return fmt.Errorf("could not load settings: %w", err)
	}

	validator, err := settings.NewPathValidator(settings.PathValidatorConfig{
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("could not create path validator: %w", err)
	}

	// System information.
	info := settings.SystemInfo()
	p := newPrinter("table", out)
	if err := p.PrintSystemInfo(info); err != nil {
		return fmt.Errorf("could not print system info: %w", err)
	}

	// Path checks.
	fmt.Fprintln(out)
	failed := 0

	lndRes := validator.ValidateLndPath(ctx, s.LndCmdPath)
	fmt.Fprintf(out, "  %s %-16s %s\n", checkIcon(lndRes.Valid), "lnd command", lndRes.Message)
	if !lndRes.Valid {
		failed++
	}

	dirRes := validator.ValidateDownloadDir(ctx, s.DefaultDownloadDir)
	fmt.Fprintf(out, "  %s %-16s %s\n", checkIcon(dirRes.Valid), "download dir", dirRes.Message)
	if !dirRes.Valid {
		failed++
	}

	fmt.Fprintln(out)
	if failed == 0 {
		fmt.Fprintln(out, "All checks passed!")
		return nil
	}

	return fmt.Errorf("preflight checks failed with %d error(s)", failed)
}

func checkIcon(ok bool) string {
	if ok {
		return "OK"
	}
	return "XX"
}
