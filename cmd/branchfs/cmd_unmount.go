package main

import (
	"context"
	"fmt"
	"io"

	flag "github.com/spf13/pflag"

	"github.com/branchfs/branchfs/internal/ipc"
)

// UnmountCmd implements spec §6's `unmount <STORAGE>`: asks the daemon
// rooted at STORAGE to unmount and exit, and returns as soon as the daemon
// acknowledges the request; it does not wait for the daemon to finish.
func UnmountCmd() *Command {
	flags := flag.NewFlagSet("unmount", flag.ContinueOnError)
	flags.BoolP("help", "h", false, "Show help")

	return &Command{
		Flags:   flags,
		Usage:   "unmount <STORAGE>",
		Short:   "Stop a running mount daemon",
		Long:    "Signals the daemon rooted at STORAGE to unmount its filesystem and exit.",
		Aliases: []string{},
		Exec: func(_ context.Context, _ io.Reader, _ io.Writer, _ io.Writer, args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("usage: branchfs unmount <STORAGE>")
			}
			c, err := dialStorage(args[0])
			if err != nil {
				return err
			}
			defer c.Close()

			resp, err := c.Call(ipc.Request{Op: "unmount"})
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
