package command

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/urfave/cli/v2"

	cliconfig "github.com/yndnr/kvmesh-go/internal/cli/config"
	"github.com/yndnr/kvmesh-go/internal/cli/connection"
	"github.com/yndnr/kvmesh-go/internal/cli/output"
	"github.com/yndnr/kvmesh-go/internal/infra/buildinfo"
)

const settingsKey = "settings"

// requestTimeout bounds a single command round trip.
const requestTimeout = 10 * time.Second

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "kvmesh-cli",
		Usage:   "kvmesh key-value store client",
		Version: buildinfo.String(),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			GetCommand(),
			PutCommand(),
			CreateCommand(),
			DeleteCommand(),
			ListCommand(),
			HealthCommand(),
			ReadyCommand(),
		},
		Before: loadSettings,
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "server",
			Aliases: []string{"s"},
			Usage:   "kvmesh server URL (e.g., http://localhost:8080)",
			EnvVars: []string{"KVMESH_SERVER"},
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
			EnvVars: []string{"KVMESH_OUTPUT"},
		},
		&cli.StringFlag{
			Name:  "config",
			Usage: "Path to the CLI config file",
			Value: cliconfig.DefaultConfigPath(),
		},
		&cli.BoolFlag{
			Name:  "no-headers",
			Usage: "Omit the header row in table output",
		},
	}
}

// Settings are the resolved global options for one invocation.
type Settings struct {
	Server    string
	Output    output.Format
	NoHeaders bool
}

// loadSettings merges flags over the CLI config file.
func loadSettings(c *cli.Context) error {
	cfg, err := cliconfig.Load(c.String("config"))
	if err != nil {
		return err
	}

	s := &Settings{
		Server:    cfg.DefaultServer,
		NoHeaders: c.Bool("no-headers"),
	}
	if c.IsSet("server") {
		s.Server = c.String("server")
	}

	format := cfg.DefaultOutput
	if c.IsSet("output") {
		format = c.String("output")
	}
	if s.Output, err = output.ParseFormat(format); err != nil {
		return err
	}

	if c.App.Metadata == nil {
		c.App.Metadata = make(map[string]any)
	}
	c.App.Metadata[settingsKey] = s
	return nil
}

// ParseSettings returns the settings resolved by the Before hook.
func ParseSettings(c *cli.Context) *Settings {
	if s, ok := c.App.Metadata[settingsKey].(*Settings); ok {
		return s
	}
	return &Settings{Server: cliconfig.Default().DefaultServer, Output: output.FormatTable}
}

func newClient(c *cli.Context) *connection.HTTPClient {
	return connection.NewHTTPClient(ParseSettings(c).Server, "kvmesh-cli/"+buildinfo.Version)
}

func commandContext(c *cli.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Context, requestTimeout)
}

// render prints data in the selected output format. Table output uses the
// data's Table method when it has one.
func render(c *cli.Context, data any) error {
	s := ParseSettings(c)
	var f output.Formatter
	if s.Output == output.FormatTable {
		f = &output.TableFormatter{NoHeaders: s.NoHeaders}
	} else {
		f = output.NewFormatter(s.Output)
	}
	return f.Format(c.App.Writer, data)
}

// PrintError prints an error message to w.
func PrintError(w io.Writer, err error) {
	fmt.Fprintf(w, "error: %v\n", err)
}
