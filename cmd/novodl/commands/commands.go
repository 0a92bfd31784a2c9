package commands

import (
	"context"
	"io"
	"path/filepath"

	"github.com/alecthomas/kingpin/v2"
	"k8s.io/client-go/util/homedir"

	"github.com/novodl/novodl/internal/log"
)

const (
	// LoggerTypeDefault is the logger default type.
	LoggerTypeDefault = "default"
	// LoggerTypeJSON is the logger json type.
	LoggerTypeJSON = "json"
)

// Command represents an application command, all commands that want to be executed
// should implement and setup on main.
type Command interface {
	Name() string
	Run(ctx context.Context) error
}

// RootCommand represents the root command configuration and global configuration
// for all the commands.
type RootCommand struct {
	// Global flags.
	Debug        bool
	NoLog        bool
	NoColor      bool
	LoggerType   string
	APIURL       string
	DBPath       string
	SettingsPath string

	// Global instances.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Logger log.Logger
}

// NewRootCommand initializes the main root configuration.
func NewRootCommand(app *kingpin.Application) *RootCommand {
	c := &RootCommand{}

	app.Flag("debug", "Enable debug mode.").BoolVar(&c.Debug)
	app.Flag("no-log", "Disable logger.").BoolVar(&c.NoLog)
	app.Flag("no-color", "Disable logger color.").BoolVar(&c.NoColor)
	app.Flag("logger", "Selects the logger type.").Default(LoggerTypeDefault).EnumVar(&c.LoggerType, LoggerTypeDefault, LoggerTypeJSON)

	app.Flag("api-url", "Base URL of the novodl API server.").Envar("NOVODL_API_URL").Default("http://localhost:3683").StringVar(&c.APIURL)

	defaultDBPath := filepath.Join(homedir.HomeDir(), ".novodl", "novodl.db")
	app.Flag("db-path", "Path to the SQLite database file.").Envar("NOVODL_DB_PATH").Default(defaultDBPath).StringVar(&c.DBPath)

	defaultSettingsPath := filepath.Join(homedir.HomeDir(), ".novodl", "settings.json")
	app.Flag("settings-path", "Path to the settings JSON file.").Envar("NOVODL_SETTINGS_PATH").Default(defaultSettingsPath).StringVar(&c.SettingsPath)

	return c
}
