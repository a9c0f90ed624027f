package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	flag "github.com/spf13/pflag"

	"github.com/branchfs/branchfs/internal/ipc"
)

// CreateCmd implements `create <NAME> <STORAGE> [-p <PARENT>] [-s]`. The
// second argument is the storage directory whose daemon.sock is dialed;
// the command does not take a mount point.
func CreateCmd() *Command {
	flags := flag.NewFlagSet("create", flag.ContinueOnError)
	flags.BoolP("help", "h", false, "Show help")
	parent := flags.StringP("parent", "p", "main", "Parent branch")
	switchTo := flags.BoolP("switch", "s", false, "Switch the mount's view to the new branch")

	return &Command{
		Flags:   flags,
		Usage:   "create <NAME> <STORAGE> [-p <PARENT>] [-s]",
		Short:   "Create a branch",
		Long:    "Creates branch NAME under --parent (default main) in the daemon rooted at STORAGE.",
		Aliases: []string{},
		Exec: func(_ context.Context, _ io.Reader, stdout, _ io.Writer, args []string) error {
			if len(args) != 2 {
				return fmt.Errorf("usage: branchfs create <NAME> <STORAGE> [-p <PARENT>] [-s]")
			}
			name, storage := args[0], args[1]

			c, err := dialStorage(storage)
			if err != nil {
				return err
			}
			defer c.Close()

			resp, err := c.Call(ipc.Request{Op: "create", Name: name, Parent: *parent, Switch: *switchTo})
			if err != nil {
				return err
			}
			if !resp.OK {
				return errFromToken(resp.Error)
			}
			fprintln(stdout, name)
			return nil
		},
	}
}

func dialStorage(storage string) (*ipc.Client, error) {
	abs, err := filepath.Abs(storage)
	if err != nil {
		return nil, err
	}
	return ipc.Dial(filepath.Join(abs, "daemon.sock"))
}

// errFromToken turns a Kind string back into the stderr token text spec §6
// prescribes; the token itself already matches Kind's String form, so this
// just wraps it as an error value for the CLI's uniform error path.
func errFromToken(token string) error {
	return fmt.Errorf("%s", token)
}
