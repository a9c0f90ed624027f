package main

import (
	"context"
	"io"
	"path/filepath"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/hanwen/go-fuse/v2/fs"

	"github.com/branchfs/branchfs/internal/branchfs"
	"github.com/branchfs/branchfs/internal/fsnode"
	"github.com/branchfs/branchfs/internal/ipc"
	"github.com/branchfs/branchfs/internal/mountutil"
)

// MountCmd implements spec §6's `mount --base <DIR> --storage <DIR> <MNT>`:
// foreground daemon that serves the FUSE tree and the admin socket until
// signaled.
func MountCmd() *Command {
	flags := flag.NewFlagSet("mount", flag.ContinueOnError)
	flags.BoolP("help", "h", false, "Show help")
	base := flags.String("base", "", "Base directory to overlay")
	storage := flags.String("storage", "", "Storage directory for branch state")

	return &Command{
		Flags:   flags,
		Usage:   "mount --base <DIR> --storage <DIR> <MNT>",
		Short:   "Mount a branching overlay filesystem",
		Long:    "Mounts MNT as a copy-on-write branching overlay of --base, keeping branch state under --storage. Runs in the foreground until interrupted.",
		Aliases: []string{},
		Exec: func(ctx context.Context, _ io.Reader, stdout, _ io.Writer, args []string) error {
			if len(args) != 1 || *base == "" || *storage == "" {
				fprintln(stdout, "usage: branchfs mount --base <DIR> --storage <DIR> <MNT>")
				return ErrSilentExit
			}
			mountpoint := args[0]

			reg, err := branchfs.NewRegistry(*storage)
			if err != nil {
				return err
			}

			inv := newFuseInvalidator()
			mount, err := reg.Open(*base, inv)
			if err != nil {
				return err
			}

			root := fsnode.NewRoot(mount)
			zero := 0 * time.Second
			server, err := fs.Mount(mountpoint, root, &fs.Options{
				EntryTimeout: &zero,
				AttrTimeout:  &zero,
			})
			if err != nil {
				return err
			}
			inv.server = server

			absStorage, err := filepath.Abs(*storage)
			if err != nil {
				return err
			}
			sockPath := filepath.Join(absStorage, "daemon.sock")
			srv, err := ipc.Listen(sockPath, mount)
			if err != nil {
				server.Unmount()
				return err
			}
			go srv.Serve()

			fprintln(stdout, "branchfs: mounted", mountpoint)

			select {
			case <-ctx.Done():
			case <-srv.Shutdown():
			}

			srv.Close()
			if err := server.Unmount(); err != nil {
				return err
			}
			if err := mountutil.WaitUnmounted(context.Background(), mountpoint); err != nil {
				return err
			}
			return reg.Unmount(mount.ID)
		},
	}
}
