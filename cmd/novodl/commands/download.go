package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/alecthomas/kingpin/v2"

	"github.com/novodl/novodl/internal/client"
	"github.com/novodl/novodl/internal/email"
	"github.com/novodl/novodl/internal/model"
	storageio "github.com/novodl/novodl/internal/storage/io"
)

type DownloadCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	emailFile    string
	deliveryFile string
	dataPath     string
	username     string
	password     string
	downloadDir  string
	watch        bool
}

// NewDownloadCommand returns the download command.
func NewDownloadCommand(rootCmd *RootCommand, app *kingpin.Application) *DownloadCommand {
	c := &DownloadCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("download", "Create and start a download task.")
	c.Cmd.Flag("email-file", "Vendor delivery email text file.").StringVar(&c.emailFile)
	c.Cmd.Flag("delivery-file", "Delivery YAML file.").StringVar(&c.deliveryFile)
	c.Cmd.Flag("data-path", "Delivery oss:// data path.").StringVar(&c.dataPath)
	c.Cmd.Flag("username", "Delivery account username.").Short('u').StringVar(&c.username)
	c.Cmd.Flag("password", "Delivery account password.").Short('p').StringVar(&c.password)
	c.Cmd.Flag("download-dir", "Download directory (server default when empty).").Short('d').StringVar(&c.downloadDir)
	c.Cmd.Flag("watch", "Follow the task progress until it finishes.").Short('w').BoolVar(&c.watch)

	return c
}

func (c DownloadCommand) Name() string { return c.Cmd.FullCommand() }

func (c DownloadCommand) Run(ctx context.Context) error {
	delivery, err := c.delivery(ctx)
	if err != nil {
		return err
	}

	// Validate before touching the network.
	if err := delivery.Validate(); err != nil {
		return fmt.Errorf("invalid delivery: %w", err)
	}

	cli, err := newAPIClient(c.rootCmd)
	if err != nil {
		return fmt.Errorf("could not create API client: %w", err)
	}

	res, err := cli.CreateTask(ctx, delivery, c.downloadDir)
	if err != nil {
		return fmt.Errorf("could not create task: %w", err)
	}
	if !res.Success {
		return fmt.Errorf("task was not created: %s", res.Message)
	}

	fmt.Fprintf(c.rootCmd.Stdout, "Task %s started\n", res.TaskID)

	if !c.watch {
		return nil
	}

	return watchTask(ctx, c.rootCmd, res.TaskID)
}

// delivery builds the delivery from the selected input source.
func (c DownloadCommand) delivery(ctx context.Context) (model.Delivery, error) {
	switch {
	case c.emailFile != "":
		data, err := os.ReadFile(c.emailFile)
		if err != nil {
			return model.Delivery{}, fmt.Errorf("could not read email file: %w", err)
		}
		d, err := email.NewParser().Parse(string(data))
		if err != nil {
			return model.Delivery{}, fmt.Errorf("could not parse email: %w", err)
		}
		return *d, nil

	case c.deliveryFile != "":
		abs, err := filepath.Abs(c.deliveryFile)
		if err != nil {
			return model.Delivery{}, fmt.Errorf("could not resolve delivery file: %w", err)
		}
		repo := storageio.NewDeliveryYAMLRepository(os.DirFS(filepath.Dir(abs)))
		return repo.GetDelivery(ctx, filepath.Base(abs))

	case c.dataPath != "" || c.username != "" || c.password != "":
		return model.Delivery{
			DataPath: c.dataPath,
			Username: c.username,
			Password: c.password,
		}, nil
	}

	return model.Delivery{}, fmt.Errorf("a delivery source is required (--email-file, --delivery-file or --data-path/--username/--password)")
}

// watchTask polls the task status and renders it in place until the task
// reaches a terminal state.
func watchTask(ctx context.Context, rootCmd *RootCommand, taskID string) error {
	// A quiet client keeps per-tick fetch errors out of the terminal.
	cli, err := newQuietAPIClient(rootCmd)
	if err != nil {
		return fmt.Errorf("could not create API client: %w", err)
	}

	poller, err := client.NewStatusPoller(client.StatusPollerConfig{
		Client: cli,
		View:   client.NewTerminalStatusView(rootCmd.Stdout),
		Logger: rootCmd.Logger,
	})
	if err != nil {
		return fmt.Errorf("could not create status poller: %w", err)
	}

	poller.Start(ctx, taskID)
	poller.Wait()

	return nil
}
