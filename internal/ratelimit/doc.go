// Package ratelimit implements upload admission control across four
// independent constraints: a minimum inter-upload delay, a trailing burst
// window, a rolling-hour counter, and a rolling-day counter.
//
// The limiter is a pure bookkeeping structure: ShouldAllow is a side-effect
// free check, RecordUpload must be called exactly once per publish attempt
// that reached the network, and WaitTime reports the single longest wait
// among the violated constraints. Hour and day counters reset lazily on the
// first check after a local calendar boundary is crossed; there is no
// background timer to race against.
package ratelimit
