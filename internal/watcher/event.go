package watcher

import "time"

// FileEvent describes one detected file. Size is the byte count observed at
// detection time; the readiness validator refreshes it once the file has
// stabilized. Events are consumed by exactly one pipeline pass and discarded.
type FileEvent struct {
	Path       string
	Category   string
	Size       int64
	DetectedAt time.Time
}
