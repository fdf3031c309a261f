package platforms

import (
	"io"
	"sync"
)

// serializedToolchain wraps a Toolchain so that at most one Compile call runs at any time.
type serializedToolchain struct {
	toolchain Toolchain
	lock      sync.Mutex
}

// Serialized returns a Toolchain which forwards to the provided one, serializing Compile calls. Toolchains which
// declare themselves reentrant are returned unchanged.
func Serialized(toolchain Toolchain) Toolchain {
	if toolchain == nil || IsReentrant(toolchain) {
		return toolchain
	}
	if _, ok := toolchain.(*serializedToolchain); ok {
		return toolchain
	}
	return &serializedToolchain{toolchain: toolchain}
}

// IsReentrant indicates whether the toolchain declares concurrent Compile calls to be safe.
func IsReentrant(toolchain Toolchain) bool {
	if reentrant, ok := toolchain.(ReentrantToolchain); ok {
		return reentrant.Reentrant()
	}
	return false
}

// Name returns the name of the wrapped toolchain.
func (s *serializedToolchain) Name() string {
	return s.toolchain.Name()
}

// Compile forwards to the wrapped toolchain while holding the lock.
func (s *serializedToolchain) Compile(task *CompilationTask) (bool, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.toolchain.Compile(task)
}

// Reentrant always returns true, as the wrapper itself is safe for concurrent use.
func (s *serializedToolchain) Reentrant() bool {
	return true
}

// Close waits for a running Compile call to finish, then closes the wrapped toolchain if it is an io.Closer.
func (s *serializedToolchain) Close() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if closer, ok := s.toolchain.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
