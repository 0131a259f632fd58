// Package watcher bridges filesystem creation events into the upload
// pipeline's single consumer.
//
// One fsnotify watcher runs per watched category directory. Watcher callbacks
// filter directories and non-allow-listed extensions, build a FileEvent, and
// hand it to a buffered channel without ever blocking; if the queue is full
// the event is dropped and recovered by the next directory rescan. The
// consumer drains the queue through Next, which polls with a short timeout so
// shutdown is observed promptly.
//
// The queue is deliberately in-memory: the startup and periodic rescans are
// the recovery mechanism for anything lost to drops or restarts.
package watcher
