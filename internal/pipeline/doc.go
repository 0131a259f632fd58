// Package pipeline drives each detected file through the upload workflow:
// readiness validation, optional conversion, rate-limit admission, optional
// captioning, publishing, and terminal disposition. A single consumer
// goroutine owns all pipeline state, so admission checks and the limiter's
// counters never interleave across in-flight uploads.
//
// Failure isolation is per file. A pass that fails, panics, or is rejected
// by the validator never stops the consumer loop; only a shutdown signal
// does that.
package pipeline
