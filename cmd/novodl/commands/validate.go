package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/novodl/novodl/internal/storage/sqlite"
	"github.com/novodl/novodl/internal/validate"
)

type ValidateCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	taskID string
	dir    string
}

// NewValidateCommand returns the validate command.
func NewValidateCommand(rootCmd *RootCommand, app *kingpin.Application) *ValidateCommand {
	c := &ValidateCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("validate", "Verify downloaded files and print a validation report.")
	c.Cmd.Arg("task-id", "Task ID (ignored when --dir is set).").StringVar(&c.taskID)
	c.Cmd.Flag("dir", "Validate a directory directly instead of a task.").StringVar(&c.dir)

	return c
}

func (c ValidateCommand) Name() string { return c.Cmd.FullCommand() }

func (c ValidateCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	dir := c.dir
	if dir == "" {
		if c.taskID == "" {
			return fmt.Errorf("a task ID or --dir is required")
		}

		// Initialize storage (SQLite).
		repo, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{
			DBPath: c.rootCmd.DBPath,
			Logger: logger,
		})
		if err != nil {
			return fmt.Errorf("could not create repository: %w", err)
		}

		task, err := repo.GetTask(ctx, c.taskID)
		if err != nil {
			return fmt.Errorf("could not get task: %w", err)
		}
		dir = task.DownloadDir
	}

	v, err := validate.NewValidator(validate.ValidatorConfig{
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("could not create validator: %w", err)
	}

	report, err := v.Report(ctx, dir)
	if err != nil {
		return fmt.Errorf("could not generate validation report: %w", err)
	}

	fmt.Fprintln(c.rootCmd.Stdout, report)

	return nil
}
