//go:build linux
// +build linux

package vfs

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/leandrotsampa/demuxfs"
)

// Mount mounts root's dentry tree at mountPoint and blocks until the server
// is unmounted or the process receives SIGINT/SIGTERM.
func Mount(mountPoint string, root *demuxfs.Dentry, allowOther bool) error {
	opts := &fs.Options{
		MountOptions: fuse.MountOptions{
			Debug:      false,
			AllowOther: allowOther,
			Name:       "demuxfs",
			FsName:     "demuxfs",
		},
	}
	server, err := fs.Mount(mountPoint, &Node{d: root}, opts)
	if err != nil {
		return err
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCtx.Done()
		stop()
		_ = server.Unmount()
	}()

	server.Wait()
	return nil
}

// MountBackground mounts root's dentry tree at mountPoint without blocking.
// ctx cancellation unmounts; the returned func also unmounts explicitly
// (e.g. to remount after the Engine is replaced).
func MountBackground(ctx context.Context, mountPoint string, root *demuxfs.Dentry, allowOther bool) (unmount func(), err error) {
	opts := &fs.Options{
		MountOptions: fuse.MountOptions{
			Debug:      false,
			AllowOther: allowOther,
			Name:       "demuxfs",
			FsName:     "demuxfs",
		},
	}
	server, err := fs.Mount(mountPoint, &Node{d: root}, opts)
	if err != nil {
		return nil, err
	}

	go func() {
		<-ctx.Done()
		_ = server.Unmount()
	}()

	return func() { _ = server.Unmount() }, nil
}
