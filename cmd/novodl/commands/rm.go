package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"
)

type RemoveCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	taskID string
}

// NewRemoveCommand returns the remove command.
func NewRemoveCommand(rootCmd *RootCommand, app *kingpin.Application) *RemoveCommand {
	c := &RemoveCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("rm", "Remove a finished download task.")
	c.Cmd.Arg("task-id", "Task ID.").Required().StringVar(&c.taskID)

	return c
}

func (c RemoveCommand) Name() string { return c.Cmd.FullCommand() }

func (c RemoveCommand) Run(ctx context.Context) error {
	cli, err := newAPIClient(c.rootCmd)
	if err != nil {
		return fmt.Errorf("could not create API client: %w", err)
	}

	res, err := cli.RemoveTask(ctx, c.taskID)
	if err != nil {
		return fmt.Errorf("could not remove task: %w", err)
	}
	if !res.Success {
		return fmt.Errorf("task was not removed: %s", res.Message)
	}

	fmt.Fprintf(c.rootCmd.Stdout, "Task %s removed\n", c.taskID)

	return nil
}
