package demuxfs

import "fmt"

// versionDirName renders a version number as the "Vnn" name spec §4.6 and
// §6 specify (two-digit, zero-padded; version_number is 5 bits so nn never
// exceeds 1F).
func versionDirName(version uint8) string {
	return fmt.Sprintf("V%02X", version)
}

// createVersionDir creates (or, on idempotent re-delivery, returns) the
// Vnn child of tableDir for version, per spec §4.6
// fsutils_create_version_dir.
func createVersionDir(tableDir *Dentry, version uint8) *Dentry {
	return tableDir.MkdirChild(versionDirName(version))
}

// retargetCurrent repoints tableDir's Current symlink at the Vnn directory
// for version, atomically from a reader's perspective (spec §4.6: "create
// new symlink under a temp name, rename over the old" — modeled here as a
// single map-slot replacement under the dentry's own lock, since there is
// no separate filesystem namespace to stage the rename in).
func retargetCurrent(tableDir *Dentry, version uint8) {
	tableDir.RetargetSymlink("Current", versionDirName(version))
}

// migrateChildren implements fsutils_migrate_children (spec §4.6): every
// child of oldRoot that newRoot doesn't already have under the same name is
// reparented onto newRoot, preserving any external reference resolved into
// it before the supersession. Children newRoot recreated under its own name
// are left on oldRoot to be disposed with it.
func migrateChildren(oldRoot, newRoot *Dentry) {
	for _, child := range oldRoot.Children() {
		if _, err := newRoot.Lookup(child.Name()); err == nil {
			// newRoot already has a same-named child: the new version
			// recreated this leaf itself, so the old one is superseded
			// and stays behind for disposal.
			continue
		}

		detached := oldRoot.removeChild(child.Name())
		if detached == nil {
			continue
		}
		detached.mu.Lock()
		detached.parent = newRoot
		detached.mu.Unlock()
		if err := newRoot.addChild(detached); err != nil {
			// Lost a race against a same-named insert that happened
			// between the Lookup above and here; give the migrated
			// child back to oldRoot so it's still disposed of, not
			// leaked.
			detached.mu.Lock()
			detached.parent = oldRoot
			detached.mu.Unlock()
			_ = oldRoot.addChild(detached)
		}
	}
}

// supersede installs newRoot as the Vnn directory for version under
// tableDir, retargets Current, migrates over anything oldRoot held that
// newRoot doesn't, and disposes what's left of oldRoot. oldRoot may be nil
// for a table's first-ever version.
func supersede(tableDir *Dentry, version uint8, oldRoot, newRoot *Dentry) {
	if oldRoot != nil {
		migrateChildren(oldRoot, newRoot)
		tableDir.Dispose(oldRoot.Name())
	}
	retargetCurrent(tableDir, version)
}
