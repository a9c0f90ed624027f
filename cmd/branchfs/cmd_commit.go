package main

import (
	"context"
	"fmt"
	"io"

	flag "github.com/spf13/pflag"

	"github.com/branchfs/branchfs/internal/ipc"
)

// CommitCmd implements spec §6's `commit <NAME> <STORAGE>`.
func CommitCmd() *Command {
	flags := flag.NewFlagSet("commit", flag.ContinueOnError)
	flags.BoolP("help", "h", false, "Show help")

	return &Command{
		Flags:   flags,
		Usage:   "commit <NAME> <STORAGE>",
		Short:   "Commit a leaf branch into its parent",
		Long:    "Commits branch NAME into its parent (the base, if the parent is main) and destroys it.",
		Aliases: []string{},
		Exec: func(_ context.Context, _ io.Reader, _ io.Writer, _ io.Writer, args []string) error {
			if len(args) != 2 {
				return fmt.Errorf("usage: branchfs commit <NAME> <STORAGE>")
			}
			c, err := dialStorage(args[1])
			if err != nil {
				return err
			}
			defer c.Close()

			resp, err := c.Call(ipc.Request{Op: "commit", Name: args[0]})
			if err != nil {
				return err
			}
			if !resp.OK {
				return errFromToken(resp.Error)
			}
			return nil
		},
	}
}
