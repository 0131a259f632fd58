// Package logging constructs the slog loggers used across the daemon and CLI.
//
// It provides console and JSON handlers, multi-writer output (stdout plus a
// log file under the configured log directory), typed attribute helpers, and
// standardized field names so pipeline, watcher, and collaborator logs stay
// greppable. Context helpers lift the pipeline identity (category, file,
// request ID) recorded by the services package into log attributes.
package logging
