package track

import "errors"

// errTruncated marks an opcode stream that ran out of bytes mid-argument.
// It never escapes this package: a truncated stream ends the track in
// place, matching spec.md §7's local-recovery policy for interpretation
// errors rather than aborting playback.
var errTruncated = errors.New("track: truncated opcode stream")
