// Package demuxfs demultiplexes an ISDB-Tb MPEG-2 transport stream and
// projects its PSI/DSM-CC signalling tables as a versioned, cross-referenced
// dentry tree.
//
// An Engine consumes TS packets one at a time (Feed), reassembles PSI
// sections per PID, dispatches them to table parsers keyed by PID and table
// ID, and installs the parsed result under a Vnn version directory of the
// corresponding top-level table directory, retargeting a Current symlink.
// The tree is safe for concurrent read access from any number of goroutines
// while the single ingesting goroutine keeps calling Feed.
package demuxfs
