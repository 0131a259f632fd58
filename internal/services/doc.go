// Package services holds shared plumbing for external collaborator clients:
// sentinel error markers with an upload-failure classification, and context
// annotations that flow pipeline identity (category, file, request ID) into
// structured logs.
//
// Collaborator clients live in subpackages (blogger, captioner) and wrap their
// failures with the markers defined here so the pipeline can surface a stable
// error kind in lifecycle events and history records.
package services
