package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/kvmesh-go/internal/cli/connection"
	"github.com/yndnr/kvmesh-go/internal/cli/output"
)

// Status is the response of the health and ready commands.
type Status struct {
	Status  string `json:"status" yaml:"status"`
	Time    string `json:"time" yaml:"time"`
	Version string `json:"version,omitempty" yaml:"version,omitempty"`
	Keys    *int   `json:"keys,omitempty" yaml:"keys,omitempty"`
}

// Table implements output.Tabular.
func (s *Status) Table() *output.Table {
	t := output.NewTable("STATUS", "TIME", "VERSION", "KEYS")
	keys := ""
	if s.Keys != nil {
		keys = fmt.Sprint(*s.Keys)
	}
	t.AddRow(s.Status, s.Time, s.Version, keys)
	return t
}

// HealthCommand returns the health command.
func HealthCommand() *cli.Command {
	return &cli.Command{
		Name:   "health",
		Usage:  "Check that the server process is up",
		Action: statusAction("/health"),
	}
}

// ReadyCommand returns the ready command.
func ReadyCommand() *cli.Command {
	return &cli.Command{
		Name:   "ready",
		Usage:  "Check that the server can reach its storage backend",
		Action: statusAction("/ready"),
	}
}

func statusAction(path string) cli.ActionFunc {
	return func(c *cli.Context) error {
		ctx, cancel := commandContext(c)
		defer cancel()

		client := newClient(c)
		resp, err := client.Get(ctx, path)
		if err != nil {
			return fmt.Errorf("server %s unreachable: %w", client.BaseURL(), err)
		}
		var status Status
		if err := connection.ParseResponse(resp, &status); err != nil {
			return err
		}
		return render(c, &status)
	}
}
