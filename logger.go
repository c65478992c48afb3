package demuxfs

import "github.com/asticode/go-astikit"

// We use a package-level logger because injecting one into every parser
// function (which must stay pure and panic-free per the error handling
// design) would mean threading it through every call in the dispatch chain.
// It's only ever used to report malformed wire data and dropped sections,
// never for control flow.
var logger = astikit.AdaptStdLogger(nil)

// SetLogger installs l as the destination for warning/error diagnostics
// emitted while feeding packets and parsing sections.
func SetLogger(l astikit.StdLogger) { logger = astikit.AdaptStdLogger(l) }
