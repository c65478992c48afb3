//go:build linux
// +build linux

// Package vfs adapts a demuxfs.Engine's dentry tree to a read-only FUSE
// filesystem, so the live PSI/DSM-CC state it tracks can be browsed with
// ordinary file tools instead of a bespoke client.
//
// Grounded on snapetech-plexTuner's internal/vodfs package: one fs.Inode
// wrapper per dentry kind there (Root, MoviesDirNode, VirtualFileNode); here
// a single Node wraps any demuxfs.Dentry since the tree has exactly three
// uniform kinds (dir, file, symlink) rather than a handful of catalog-shaped
// ones.
package vfs

import (
	"context"
	"syscall"
	"time"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/leandrotsampa/demuxfs"
)

const attrTimeout = time.Second

// Node wraps one demuxfs.Dentry as a FUSE inode. Its own identity (the
// fs.Inode embedded field) is assigned by the kernel bridge the first time a
// Lookup reaches it; d is read fresh on every operation, so a table
// supersession that swaps a dentry's children out from under an open
// directory handle is reflected on the next Readdir rather than requiring a
// remount.
type Node struct {
	fs.Inode
	d *demuxfs.Dentry
}

var (
	_ fs.NodeLookuper    = (*Node)(nil)
	_ fs.NodeReaddirer   = (*Node)(nil)
	_ fs.NodeGetattrer   = (*Node)(nil)
	_ fs.NodeOpener      = (*Node)(nil)
	_ fs.NodeReader      = (*Node)(nil)
	_ fs.NodeReadlinker  = (*Node)(nil)
	_ fs.NodeGetxattrer  = (*Node)(nil)
	_ fs.NodeListxattrer = (*Node)(nil)
)

func stableAttr(d *demuxfs.Dentry) fs.StableAttr {
	var mode uint32
	switch d.Mode() {
	case demuxfs.ModeDir:
		mode = fuse.S_IFDIR
	case demuxfs.ModeSymlink:
		mode = fuse.S_IFLNK
	default:
		mode = fuse.S_IFREG
	}
	return fs.StableAttr{Mode: mode, Ino: d.Ino()}
}

// Lookup resolves name within n, walking the live dentry tree.
func (n *Node) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	child, err := n.d.Lookup(name)
	if err != nil {
		return nil, syscall.ENOENT
	}
	fillEntry(child, out)
	ch := n.NewInode(ctx, &Node{d: child}, stableAttr(child))
	return ch, 0
}

// Readdir lists n's children. Directory contents are materialized eagerly
// since a dentry's child count is small (spec-modeled table/section/event
// fan-out, not filesystem-scale directories).
func (n *Node) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	children := n.d.Children()
	entries := make([]fuse.DirEntry, len(children))
	for i, c := range children {
		var mode uint32
		switch c.Mode() {
		case demuxfs.ModeDir:
			mode = fuse.S_IFDIR
		case demuxfs.ModeSymlink:
			mode = fuse.S_IFLNK
		default:
			mode = fuse.S_IFREG
		}
		entries[i] = fuse.DirEntry{Name: c.Name(), Ino: c.Ino(), Mode: mode}
	}
	return fs.NewListDirStream(entries), 0
}

// Getattr reports mode, size, and timeout hints. Every leaf is immutable
// between reads (a table update replaces the dentry rather than mutating
// it), so long attr/entry timeouts would be safe; attrTimeout is kept short
// instead so a superseded table's old attributes don't linger in caches any
// longer than necessary.
func (n *Node) Getattr(ctx context.Context, fh fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	fillAttr(n.d, &out.Attr)
	out.SetTimeout(attrTimeout)
	return 0
}

func fillEntry(d *demuxfs.Dentry, out *fuse.EntryOut) {
	fillAttr(d, &out.Attr)
	out.SetEntryTimeout(attrTimeout)
	out.SetAttrTimeout(attrTimeout)
}

func fillAttr(d *demuxfs.Dentry, attr *fuse.Attr) {
	switch d.Mode() {
	case demuxfs.ModeDir:
		attr.Mode = fuse.S_IFDIR | 0555
	case demuxfs.ModeSymlink:
		attr.Mode = fuse.S_IFLNK | 0444
		attr.Size = uint64(len(d.SymlinkTarget()))
	default:
		attr.Mode = fuse.S_IFREG | 0444
		attr.Size = uint64(len(d.Content()))
	}
	attr.Ino = d.Ino()
}

// Open always succeeds; there's no per-handle state to allocate since Read
// goes straight to the dentry's content every call.
func (n *Node) Open(ctx context.Context, flags uint32) (fs.FileHandle, uint32, syscall.Errno) {
	return nil, fuse.FOPEN_KEEP_CACHE, 0
}

// Read serves directly out of the dentry's content slice.
func (n *Node) Read(ctx context.Context, fh fs.FileHandle, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	content := n.d.Content()
	if off < 0 || off >= int64(len(content)) {
		return fuse.ReadResultData(dest[:0]), 0
	}
	end := off + int64(len(dest))
	if end > int64(len(content)) {
		end = int64(len(content))
	}
	return fuse.ReadResultData(content[off:end]), 0
}

// Readlink returns the symlink's target, a path relative to its parent
// directory exactly as stored by the dentry (spec §3's "Current" pointers
// and PAT program symlinks are both relative).
func (n *Node) Readlink(ctx context.Context) ([]byte, syscall.Errno) {
	if n.d.Mode() != demuxfs.ModeSymlink {
		return nil, syscall.EINVAL
	}
	return []byte(n.d.SymlinkTarget()), 0
}

// Getxattr exposes the dentry's xattrs (e.g. "user.hex" on numeric leaves),
// following go-fuse's dest-buffer contract: ERANGE with the needed size when
// dest is too small.
func (n *Node) Getxattr(ctx context.Context, attr string, dest []byte) (uint32, syscall.Errno) {
	v, ok := n.d.Xattr(attr)
	if !ok {
		return 0, syscall.ENODATA
	}
	if len(dest) < len(v) {
		return uint32(len(v)), syscall.ERANGE
	}
	return uint32(copy(dest, v)), 0
}

// Listxattr returns the NUL-separated list of attribute names the dentry
// carries.
func (n *Node) Listxattr(ctx context.Context, dest []byte) (uint32, syscall.Errno) {
	var buf []byte
	for _, name := range n.d.XattrNames() {
		buf = append(buf, name...)
		buf = append(buf, 0)
	}
	if len(dest) < len(buf) {
		return uint32(len(buf)), syscall.ERANGE
	}
	return uint32(copy(dest, buf)), 0
}
