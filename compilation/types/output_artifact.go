package types

import (
	"bytes"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/exp/slices"
)

// OutputArtifact is an in-memory sink a toolchain writes a single named binary artifact into. It decouples a
// toolchain wanting to emit a file from the caller wanting the bytes in memory.
type OutputArtifact struct {
	// name is the fully qualified artifact name.
	name string

	// buffer accumulates bytes while the toolchain is writing.
	buffer bytes.Buffer

	// sealed holds the final bytes once the artifact has been sealed. Writes are rejected afterwards.
	sealed []byte

	// closed indicates the buffers were released and the artifact can no longer be read.
	closed bool

	// lock guards all fields above, as a toolchain may write from a goroutine other than the caller's.
	lock sync.Mutex
}

// NewOutputArtifact returns a new, empty OutputArtifact for the given artifact name.
func NewOutputArtifact(name string) *OutputArtifact {
	return &OutputArtifact{
		name: name,
	}
}

// Name returns the fully qualified artifact name.
func (o *OutputArtifact) Name() string {
	return o.name
}

// Write appends p to the artifact, implementing io.Writer.
func (o *OutputArtifact) Write(p []byte) (int, error) {
	o.lock.Lock()
	defer o.lock.Unlock()

	if o.closed {
		return 0, &ArtifactClosedError{Artifact: o.name}
	}
	if o.sealed != nil {
		return 0, errors.Errorf("output artifact '%s' is sealed and can no longer be written to", o.name)
	}
	return o.buffer.Write(p)
}

// Seal freezes the bytes written so far. Any subsequent Write fails. Sealing an already sealed or closed artifact is
// a no-op.
func (o *OutputArtifact) Seal() {
	o.lock.Lock()
	defer o.lock.Unlock()
	o.sealLocked()
}

func (o *OutputArtifact) sealLocked() {
	if o.closed || o.sealed != nil {
		return
	}
	o.sealed = slices.Clone(o.buffer.Bytes())
	if o.sealed == nil {
		o.sealed = []byte{}
	}
	o.buffer.Reset()
}

// Bytes seals the artifact, if it was not already, and returns a copy of its bytes. Returns an ArtifactClosedError if
// the artifact was closed.
func (o *OutputArtifact) Bytes() ([]byte, error) {
	o.lock.Lock()
	defer o.lock.Unlock()

	if o.closed {
		return nil, &ArtifactClosedError{Artifact: o.name}
	}
	o.sealLocked()
	return slices.Clone(o.sealed), nil
}

// Len returns the amount of bytes held by the artifact.
func (o *OutputArtifact) Len() int {
	o.lock.Lock()
	defer o.lock.Unlock()
	if o.sealed != nil {
		return len(o.sealed)
	}
	return o.buffer.Len()
}

// Closed indicates whether the artifact's buffers were released.
func (o *OutputArtifact) Closed() bool {
	o.lock.Lock()
	defer o.lock.Unlock()
	return o.closed
}

// Close releases the artifact's buffers. Reading the artifact afterwards fails.
func (o *OutputArtifact) Close() {
	o.lock.Lock()
	defer o.lock.Unlock()
	o.closed = true
	o.sealed = nil
	o.buffer = bytes.Buffer{}
}
