package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kingpin/v2"

	"github.com/novodl/novodl/internal/email"
)

type ParseCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	file   string
	format string
}

// NewParseCommand returns the parse command.
func NewParseCommand(rootCmd *RootCommand, app *kingpin.Application) *ParseCommand {
	c := &ParseCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("parse", "Parse a vendor delivery email into download information.")
	c.Cmd.Arg("file", "Email text file (reads stdin when missing).").StringVar(&c.file)
	c.Cmd.Flag("format", "Output format (table, json).").Default("table").EnumVar(&c.format, "table", "json")

	return c
}

func (c ParseCommand) Name() string { return c.Cmd.FullCommand() }

func (c ParseCommand) Run(ctx context.Context) error {
	var data []byte
	var err error
	if c.file != "" {
		data, err = os.ReadFile(c.file)
	} else {
		data, err = io.ReadAll(c.rootCmd.Stdin)
	}
	if err != nil {
		return fmt.Errorf("could not read email text: %w", err)
	}

	delivery, err := email.NewParser().Parse(string(data))
	if err != nil {
		return fmt.Errorf("could not parse email: %w", err)
	}

	p := newPrinter(c.format, c.rootCmd.Stdout)
	if err := p.PrintDelivery(*delivery); err != nil {
		return fmt.Errorf("could not print delivery: %w", err)
	}

	return nil
}
