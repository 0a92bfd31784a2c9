package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"
)

type LogsCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	taskID string
	start  int
	limit  int
}

// NewLogsCommand returns the logs command.
func NewLogsCommand(rootCmd *RootCommand, app *kingpin.Application) *LogsCommand {
	c := &LogsCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("logs", "Show the log of a download task.")
	c.Cmd.Arg("task-id", "Task ID.").Required().StringVar(&c.taskID)
	c.Cmd.Flag("start", "First log line to show (0-based).").Default("0").IntVar(&c.start)
	c.Cmd.Flag("limit", "Maximum number of log lines.").Default("100").IntVar(&c.limit)

	return c
}

func (c LogsCommand) Name() string { return c.Cmd.FullCommand() }

func (c LogsCommand) Run(ctx context.Context) error {
	cli, err := newAPIClient(c.rootCmd)
	if err != nil {
		return fmt.Errorf("could not create API client: %w", err)
	}

	logs, err := cli.GetTaskLogs(ctx, c.taskID, c.start, c.limit)
	if err != nil {
		return fmt.Errorf("could not get task logs: %w", err)
	}

	for _, line := range logs.Logs {
		fmt.Fprintln(c.rootCmd.Stdout, line)
	}

	if logs.Total > len(logs.Logs) {
		fmt.Fprintf(c.rootCmd.Stderr, "Showing %d of %d log lines\n", len(logs.Logs), logs.Total)
	}

	return nil
}
