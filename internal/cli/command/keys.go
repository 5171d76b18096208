package command

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/kvmesh-go/internal/cli/connection"
	"github.com/yndnr/kvmesh-go/internal/cli/output"
)

// EntryMetadata holds entry timestamps as returned by the server.
type EntryMetadata struct {
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// Entry is a key with its value and metadata.
type Entry struct {
	Key      string        `json:"key" yaml:"key"`
	Value    string        `json:"value" yaml:"value"`
	Metadata EntryMetadata `json:"metadata" yaml:"metadata"`
	Outcome  string        `json:"outcome,omitempty" yaml:"outcome,omitempty"`
}

// Table implements output.Tabular.
func (e *Entry) Table() *output.Table {
	if e.Outcome != "" {
		t := output.NewTable("KEY", "VALUE", "CREATED", "UPDATED", "OUTCOME")
		t.AddRow(e.Key, e.Value, formatTime(e.Metadata.CreatedAt), formatTime(e.Metadata.UpdatedAt), e.Outcome)
		return t
	}
	t := output.NewTable("KEY", "VALUE", "CREATED", "UPDATED")
	t.AddRow(e.Key, e.Value, formatTime(e.Metadata.CreatedAt), formatTime(e.Metadata.UpdatedAt))
	return t
}

// KeyList is the response of the list command.
type KeyList struct {
	Keys  []string `json:"keys" yaml:"keys"`
	Total int      `json:"total" yaml:"total"`
}

// Table implements output.Tabular.
func (l *KeyList) Table() *output.Table {
	t := output.NewTable("KEY")
	for _, k := range l.Keys {
		t.AddRow(k)
	}
	return t
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format(time.RFC3339)
}

func keyPath(key string) string {
	return "/keys/" + url.PathEscape(key)
}

// GetCommand returns the get command.
func GetCommand() *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "Show the value and metadata of a key",
		ArgsUsage: "KEY",
		Action: func(c *cli.Context) error {
			key, err := requireArgs(c, 1)
			if err != nil {
				return err
			}

			ctx, cancel := commandContext(c)
			defer cancel()

			resp, err := newClient(c).Get(ctx, keyPath(key[0]))
			if err != nil {
				return fmt.Errorf("request failed: %w", err)
			}
			var entry Entry
			if err := connection.ParseResponse(resp, &entry); err != nil {
				return err
			}
			return render(c, &entry)
		},
	}
}

// PutCommand returns the put command.
func PutCommand() *cli.Command {
	return &cli.Command{
		Name:      "put",
		Aliases:   []string{"set"},
		Usage:     "Create or replace the value of a key",
		ArgsUsage: "KEY VALUE",
		Action: func(c *cli.Context) error {
			args, err := requireArgs(c, 2)
			if err != nil {
				return err
			}

			ctx, cancel := commandContext(c)
			defer cancel()

			resp, err := newClient(c).Put(ctx, keyPath(args[0]), map[string]string{"value": args[1]})
			if err != nil {
				return fmt.Errorf("request failed: %w", err)
			}
			var entry Entry
			if err := connection.ParseResponse(resp, &entry); err != nil {
				return err
			}
			return render(c, &entry)
		},
	}
}

// CreateCommand returns the create command.
func CreateCommand() *cli.Command {
	return &cli.Command{
		Name:      "create",
		Usage:     "Create a key, failing if it already exists",
		ArgsUsage: "KEY VALUE",
		Action: func(c *cli.Context) error {
			args, err := requireArgs(c, 2)
			if err != nil {
				return err
			}

			ctx, cancel := commandContext(c)
			defer cancel()

			resp, err := newClient(c).Post(ctx, "/keys", map[string]string{"key": args[0], "value": args[1]})
			if err != nil {
				return fmt.Errorf("request failed: %w", err)
			}
			var entry Entry
			if err := connection.ParseResponse(resp, &entry); err != nil {
				return err
			}
			return render(c, &entry)
		},
	}
}

// DeleteCommand returns the delete command.
func DeleteCommand() *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Aliases:   []string{"del", "rm"},
		Usage:     "Delete a key and print its last value",
		ArgsUsage: "KEY",
		Action: func(c *cli.Context) error {
			args, err := requireArgs(c, 1)
			if err != nil {
				return err
			}

			ctx, cancel := commandContext(c)
			defer cancel()

			resp, err := newClient(c).Delete(ctx, keyPath(args[0]))
			if err != nil {
				return fmt.Errorf("request failed: %w", err)
			}
			var entry Entry
			if err := connection.ParseResponse(resp, &entry); err != nil {
				return err
			}
			return render(c, &entry)
		},
	}
}

// ListCommand returns the list command.
func ListCommand() *cli.Command {
	return &cli.Command{
		Name:    "list",
		Aliases: []string{"ls", "keys"},
		Usage:   "List all keys in sorted order",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "count",
				Usage: "Print only the number of keys",
			},
		},
		Action: func(c *cli.Context) error {
			ctx, cancel := commandContext(c)
			defer cancel()

			resp, err := newClient(c).Get(ctx, "/keys")
			if err != nil {
				return fmt.Errorf("request failed: %w", err)
			}
			list := KeyList{Keys: []string{}}
			if err := connection.ParseResponse(resp, &list); err != nil {
				return err
			}
			if c.Bool("count") {
				_, err := fmt.Fprintln(c.App.Writer, strconv.Itoa(list.Total))
				return err
			}
			return render(c, &list)
		},
	}
}

func requireArgs(c *cli.Context, n int) ([]string, error) {
	if c.NArg() != n {
		return nil, fmt.Errorf("%s requires %d argument(s): %s", c.Command.Name, n, c.Command.ArgsUsage)
	}
	return c.Args().Slice(), nil
}
