package main

import (
	"context"
	"fmt"
	"io"

	flag "github.com/spf13/pflag"
)

// Command is one administrative subcommand (spec §6's CLI surface),
// modeled on the agent-sandbox multicall dispatcher's Command shape: a
// flag set, help text, and an Exec closure over those flags.
type Command struct {
	Flags   *flag.FlagSet
	Usage   string
	Short   string
	Long    string
	Aliases []string
	Exec    func(ctx context.Context, stdin io.Reader, stdout, stderr io.Writer, args []string) error
}

func fprintln(w io.Writer, a ...interface{}) { fmt.Fprintln(w, a...) }
func fprintf(w io.Writer, format string, a ...interface{}) { fmt.Fprintf(w, format, a...) }

func fprintError(w io.Writer, err error) {
	fmt.Fprintf(w, "branchfs: %v\n", err)
}
