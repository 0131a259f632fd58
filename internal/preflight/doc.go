// Package preflight verifies the runtime environment before the daemon
// starts processing uploads: directory access, free disk space, blog API
// connectivity, and captioning configuration. Checks never mutate state
// and report pass/fail results the daemon and the status CLI both render.
package preflight
