//go:build !linux
// +build !linux

package vfs

import (
	"context"
	"fmt"

	"github.com/leandrotsampa/demuxfs"
)

// Mount is unavailable on non-Linux builds because the vfs package depends
// on go-fuse's Linux-only FUSE transport.
func Mount(mountPoint string, root *demuxfs.Dentry, allowOther bool) error {
	return fmt.Errorf("demuxfs: vfs.Mount is only supported on linux builds")
}

// MountBackground is unavailable on non-Linux builds for the same reason.
func MountBackground(ctx context.Context, mountPoint string, root *demuxfs.Dentry, allowOther bool) (unmount func(), err error) {
	return nil, fmt.Errorf("demuxfs: vfs.MountBackground is only supported on linux builds")
}
