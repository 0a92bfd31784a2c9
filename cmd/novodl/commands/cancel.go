package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"
)

type CancelCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	taskID string
}

// NewCancelCommand returns the cancel command.
func NewCancelCommand(rootCmd *RootCommand, app *kingpin.Application) *CancelCommand {
	c := &CancelCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("cancel", "Cancel a running download task.")
	c.Cmd.Arg("task-id", "Task ID.").Required().StringVar(&c.taskID)

	return c
}

func (c CancelCommand) Name() string { return c.Cmd.FullCommand() }

func (c CancelCommand) Run(ctx context.Context) error {
	cli, err := newAPIClient(c.rootCmd)
	if err != nil {
		return fmt.Errorf("could not create API client: %w", err)
	}

	res, err := cli.CancelTask(ctx, c.taskID)
	if err != nil {
		return fmt.Errorf("could not cancel task: %w", err)
	}
	if !res.Success {
		return fmt.Errorf("task was not cancelled: %s", res.Message)
	}

	fmt.Fprintf(c.rootCmd.Stdout, "Task %s cancelled\n", c.taskID)

	return nil
}
