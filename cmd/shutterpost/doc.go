// Package main hosts the Shutterpost CLI entrypoint and command graph.
//
// The Cobra-based command tree surfaces the daemon's state without talking to
// the daemon process directly: status and history read the shared SQLite
// upload ledger, the daemon lock file answers whether an instance is running,
// and configuration commands operate on the TOML file. That keeps the CLI
// usable whether or not shutterpostd is up.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
