package main

import (
	"context"
	"fmt"
	"io"

	flag "github.com/spf13/pflag"

	"github.com/branchfs/branchfs/internal/ipc"
)

// ListCmd implements spec §6's `list <STORAGE>`: the branch tree in
// stable depth-first order, annotated with the current view and epoch.
func ListCmd() *Command {
	flags := flag.NewFlagSet("list", flag.ContinueOnError)
	flags.BoolP("help", "h", false, "Show help")

	return &Command{
		Flags:   flags,
		Usage:   "list <STORAGE>",
		Short:   "List branches",
		Long:    "Prints the branch tree, current view, and epoch for the daemon rooted at STORAGE.",
		Aliases: []string{},
		Exec: func(_ context.Context, _ io.Reader, stdout, _ io.Writer, args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("usage: branchfs list <STORAGE>")
			}
			c, err := dialStorage(args[0])
			if err != nil {
				return err
			}
			defer c.Close()

			resp, err := c.Call(ipc.Request{Op: "list"})
			if err != nil {
				return err
			}
			if !resp.OK {
				return errFromToken(resp.Error)
			}
			fprintf(stdout, "view: %s\nepoch: %d\n", resp.View, resp.Epoch)
			for _, b := range resp.Tree {
				parent := b.Parent
				if parent == "" {
					parent = "-"
				}
				fprintf(stdout, "  %s <- %s\n", b.Name, parent)
			}
			return nil
		},
	}
}
