// Package daemon wires the watcher bridge, upload pipeline, and history
// ledger into a single-instance background service. A file lock in the log
// directory enforces one daemon per configuration.
package daemon
