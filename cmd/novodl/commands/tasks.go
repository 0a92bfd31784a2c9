package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/alecthomas/kingpin/v2"

	"github.com/novodl/novodl/internal/client"
	"github.com/novodl/novodl/internal/model"
)

type TasksCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	format   string
	watch    bool
	interval time.Duration
}

// NewTasksCommand returns the tasks command.
func NewTasksCommand(rootCmd *RootCommand, app *kingpin.Application) *TasksCommand {
	c := &TasksCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("tasks", "List download tasks.")
	c.Cmd.Flag("format", "Output format (table, json).").Default("table").EnumVar(&c.format, "table", "json")
	c.Cmd.Flag("watch", "Refresh the list periodically.").Short('w').BoolVar(&c.watch)
	c.Cmd.Flag("interval", "Watch refresh interval.").Default("2s").DurationVar(&c.interval)

	return c
}

func (c TasksCommand) Name() string { return c.Cmd.FullCommand() }

func (c TasksCommand) Run(ctx context.Context) error {
	var cli *client.Client
	var err error
	if c.watch {
		cli, err = newQuietAPIClient(c.rootCmd)
	} else {
		cli, err = newAPIClient(c.rootCmd)
	}
	if err != nil {
		return fmt.Errorf("could not create API client: %w", err)
	}

	if !c.watch {
		return c.renderOnce(ctx, cli)
	}

	// Watch loop, fetch errors are logged and the loop keeps going.
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		if err := c.renderOnce(ctx, cli); err != nil {
			c.rootCmd.Logger.Warningf("Could not refresh tasks: %s", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (c TasksCommand) renderOnce(ctx context.Context, cli *client.Client) error {
	summaries, err := cli.ListTasks(ctx)
	if err != nil {
		return fmt.Errorf("could not list tasks: %w", err)
	}

	tasks := make([]model.Task, 0, len(summaries))
	for _, s := range summaries {
		tasks = append(tasks, taskFromSummary(s))
	}

	p := newPrinter(c.format, c.rootCmd.Stdout)
	if len(tasks) == 0 && c.format != "json" {
		return p.PrintMessage("No tasks.")
	}
	if err := p.PrintTaskList(tasks); err != nil {
		return fmt.Errorf("could not print tasks: %w", err)
	}

	return nil
}
