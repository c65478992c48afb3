package demuxfs

// reservedPlaceholderDirs are the top-level table directories spec §6
// reserves a PID for but this core ships no decoder for: BIT, SDTT, CDT,
// AIT, PCAT, NBIT/LDT, RST, DIT, ST. Their PIDs are never registered with
// the dispatcher (there is no parser to bind), so packets on them are
// simply dropped, exactly as an unrecognized PID would be; the directories
// are created eagerly so the tree exposes them as valid, empty mount
// points from the start rather than only once a decoder lands.
var reservedPlaceholderDirs = []string{
	"BIT", "SDTT", "CDT", "AIT", "PCAT", "NBIT", "RST", "DIT", "ST",
}

func createReservedPlaceholders(e *Engine) {
	for _, name := range reservedPlaceholderDirs {
		e.root.MkdirChild(name)
	}
}
