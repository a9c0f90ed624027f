package main

import (
	"context"
	"fmt"
	"io"

	flag "github.com/spf13/pflag"

	"github.com/branchfs/branchfs/internal/ipc"
)

// AbortCmd implements spec §6's `abort <NAME> <STORAGE>`.
func AbortCmd() *Command {
	flags := flag.NewFlagSet("abort", flag.ContinueOnError)
	flags.BoolP("help", "h", false, "Show help")

	return &Command{
		Flags:   flags,
		Usage:   "abort <NAME> <STORAGE>",
		Short:   "Discard a leaf branch",
		Long:    "Discards branch NAME's delta and switches its parent's view accordingly.",
		Aliases: []string{},
		Exec: func(_ context.Context, _ io.Reader, _ io.Writer, _ io.Writer, args []string) error {
			if len(args) != 2 {
				return fmt.Errorf("usage: branchfs abort <NAME> <STORAGE>")
			}
			c, err := dialStorage(args[1])
			if err != nil {
				return err
			}
			defer c.Close()

			resp, err := c.Call(ipc.Request{Op: "abort", Name: args[0]})
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
