package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"
)

// ErrSilentExit signals a non-zero exit without an additional message —
// the command already printed what it needed to.
var ErrSilentExit = errors.New("silent exit")

func main() {
	os.Exit(Run(os.Stdin, os.Stdout, os.Stderr, os.Args))
}

func commands() []*Command {
	return []*Command{
		MountCmd(),
		UnmountCmd(),
		CreateCmd(),
		CommitCmd(),
		AbortCmd(),
		ListCmd(),
	}
}

// Run dispatches os.Args[1] to the matching Command, following the same
// subcommand-then-flags shape as the teacher's agent-sandbox CLI.
func Run(stdin *os.File, stdout, stderr *os.File, args []string) int {
	if len(args) < 2 {
		printUsage(stdout)
		return 1
	}
	name := args[1]

	for _, cmd := range commands() {
		if matches(cmd, name) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			installSignalHandler(cancel)

			if err := cmd.Flags.Parse(args[2:]); err != nil {
				fprintError(stderr, err)
				return 1
			}
			if help, _ := cmd.Flags.GetBool("help"); help {
				fprintln(stdout, cmd.Usage)
				fprintln(stdout, cmd.Long)
				return 0
			}
			err := cmd.Exec(ctx, stdin, stdout, stderr, cmd.Flags.Args())
			if err == nil {
				return 0
			}
			if errors.Is(err, ErrSilentExit) {
				return 1
			}
			fprintError(stderr, err)
			return 1
		}
	}

	fprintf(stderr, "branchfs: unknown command %q\n", name)
	printUsage(stderr)
	return 1
}

func matches(cmd *Command, name string) bool {
	first, _, _ := strings.Cut(cmd.Usage, " ")
	if first == name {
		return true
	}
	for _, a := range cmd.Aliases {
		if a == name {
			return true
		}
	}
	return false
}

func installSignalHandler(cancel context.CancelFunc) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
}

func printUsage(w *os.File) {
	fprintln(w, "usage: branchfs <command> [flags]")
	fprintln(w)
	for _, cmd := range commands() {
		fprintf(w, "  %-40s %s\n", cmd.Usage, cmd.Short)
	}
}
