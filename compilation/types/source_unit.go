package types

import (
	"os"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/exp/slices"
)

// SourceUnit represents one compilation input, either inline source text or a reference to a source file, along with
// the binary artifacts a toolchain produced from it. Its logical name is also the name of its primary artifact.
type SourceUnit struct {
	// name is the logical name of the unit, which doubles as the name of its primary artifact.
	name string

	// sourceCode holds inline source text. It is empty for file-backed units.
	sourceCode string

	// sourceFile is the path of the source file for file-backed units. It is empty for inline units.
	sourceFile string

	// destinationPath is the directory artifacts are persisted to. Once set, it never changes.
	destinationPath string

	// outputs maps artifact names to the sinks the toolchain wrote them into.
	outputs map[string]*OutputArtifact

	// lock guards destinationPath and outputs.
	lock sync.Mutex
}

// NewSourceUnit returns a SourceUnit for inline source text. If destinationPath is non-empty, artifacts produced from
// this unit are persisted under it.
func NewSourceUnit(name string, sourceCode string, destinationPath string) *SourceUnit {
	return &SourceUnit{
		name:            name,
		sourceCode:      sourceCode,
		destinationPath: destinationPath,
		outputs:         make(map[string]*OutputArtifact),
	}
}

// NewFileSourceUnit returns a SourceUnit for a source file. If destinationPath is non-empty, artifacts produced from
// this unit are persisted under it.
func NewFileSourceUnit(name string, sourceFile string, destinationPath string) *SourceUnit {
	return &SourceUnit{
		name:            name,
		sourceFile:      sourceFile,
		destinationPath: destinationPath,
		outputs:         make(map[string]*OutputArtifact),
	}
}

// Name returns the logical name of the unit, which is also the name of its primary artifact.
func (s *SourceUnit) Name() string {
	return s.name
}

// Namespace returns the namespace secondary artifacts produced from this unit are qualified with.
func (s *SourceUnit) Namespace() string {
	return ArtifactNamespace(s.name)
}

// IsFileSource indicates whether the unit is backed by a source file rather than inline text.
func (s *SourceUnit) IsFileSource() bool {
	return s.sourceFile != ""
}

// SourceFile returns the path of the source file for file-backed units, or an empty string otherwise.
func (s *SourceUnit) SourceFile() string {
	return s.sourceFile
}

// Validate verifies the unit can be compiled. A unit without a name yields a ConfigurationError, a file-backed unit
// whose file does not exist yields a SourceNotFoundError.
func (s *SourceUnit) Validate() error {
	if s.name == "" {
		return &ConfigurationError{Message: "source unit has no artifact name"}
	}
	if s.IsFileSource() {
		info, err := os.Stat(s.sourceFile)
		if err != nil {
			return &SourceNotFoundError{Name: s.name, Path: s.sourceFile, Err: err}
		}
		if info.IsDir() {
			return &SourceNotFoundError{Name: s.name, Path: s.sourceFile}
		}
	}
	return nil
}

// ReadSource returns the source text of the unit, reading it from disk for file-backed units.
func (s *SourceUnit) ReadSource() (string, error) {
	if !s.IsFileSource() {
		return s.sourceCode, nil
	}
	b, err := os.ReadFile(s.sourceFile)
	if err != nil {
		if os.IsNotExist(err) {
			return "", &SourceNotFoundError{Name: s.name, Path: s.sourceFile, Err: err}
		}
		return "", errors.WithStack(err)
	}
	return string(b), nil
}

// DestinationPath returns the directory artifacts of this unit are persisted to, or an empty string if they are kept
// in memory only.
func (s *SourceUnit) DestinationPath() string {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.destinationPath
}

// HasDestinationPath indicates whether artifacts of this unit are persisted to disk.
func (s *SourceUnit) HasDestinationPath() bool {
	return s.DestinationPath() != ""
}

// SetDestinationPathIfAbsent sets the destination path only if none was set yet.
func (s *SourceUnit) SetDestinationPathIfAbsent(destinationPath string) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.destinationPath == "" {
		s.destinationPath = destinationPath
	}
}

// AddOutput registers a sink for an artifact produced from this unit. A sink previously registered under the same name
// is closed and replaced.
func (s *SourceUnit) AddOutput(output *OutputArtifact) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if previous, ok := s.outputs[output.Name()]; ok && previous != output {
		previous.Close()
	}
	s.outputs[output.Name()] = output
}

// Output returns the sink registered for the given artifact name, if any.
func (s *SourceUnit) Output(artifactName string) (*OutputArtifact, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	output, ok := s.outputs[artifactName]
	return output, ok
}

// OutputNames returns the names of all artifacts produced from this unit, sorted.
func (s *SourceUnit) OutputNames() []string {
	s.lock.Lock()
	defer s.lock.Unlock()
	names := make([]string, 0, len(s.outputs))
	for name := range s.outputs {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// SealOutputs seals every artifact produced from this unit so their bytes can no longer change.
func (s *SourceUnit) SealOutputs() {
	s.lock.Lock()
	defer s.lock.Unlock()
	for _, output := range s.outputs {
		output.Seal()
	}
}

// Close releases the buffers of every artifact produced from this unit and forgets them, so the unit may be compiled
// again.
func (s *SourceUnit) Close() {
	s.lock.Lock()
	defer s.lock.Unlock()
	for _, output := range s.outputs {
		output.Close()
	}
	s.outputs = make(map[string]*OutputArtifact)
}
