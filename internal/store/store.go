// Package store persists pipeline stage artifacts so an interrupted run
// can resume where it stopped.
package store

import "errors"

// ErrNotFound is returned by Read when no artifact exists for the stage.
var ErrNotFound = errors.New("artifact not found")

// Store is the durable artifact store. Concurrent readers are fine;
// concurrent writers to the same stage are not supported and must be
// serialized by the caller (the controller writes one stage at a time).
type Store interface {
	// Read unmarshals the artifact for stage into out, which must be a
	// pointer. Returns ErrNotFound when the stage has no artifact.
	Read(stage string, out any) error

	// Write replaces the artifact for stage.
	Write(stage string, artifact any) error
}
