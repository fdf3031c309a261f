package types

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestOutputArtifactWriteAndSeal verifies bytes written to an output artifact can be read back and that sealing
// rejects further writes.
func TestOutputArtifactWriteAndSeal(t *testing.T) {
	output := NewOutputArtifact("pkg.Token")
	assert.EqualValues(t, "pkg.Token", output.Name())

	n, err := output.Write([]byte{0x01, 0x02})
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	_, err = output.Write([]byte{0x03})
	require.NoError(t, err)
	assert.EqualValues(t, 3, output.Len())

	b, err := output.Bytes()
	require.NoError(t, err)
	assert.EqualValues(t, []byte{0x01, 0x02, 0x03}, b)

	// Reading seals the artifact
	_, err = output.Write([]byte{0x04})
	assert.Error(t, err)

	// The returned bytes are a copy
	b[0] = 0xFF
	b2, err := output.Bytes()
	require.NoError(t, err)
	assert.EqualValues(t, 0x01, b2[0])
}

// TestOutputArtifactEmpty verifies an artifact nothing was written to yields empty, non-nil bytes.
func TestOutputArtifactEmpty(t *testing.T) {
	output := NewOutputArtifact("Empty")
	b, err := output.Bytes()
	require.NoError(t, err)
	assert.NotNil(t, b)
	assert.Empty(t, b)
}

// TestOutputArtifactClose verifies a closed artifact can neither be read nor written.
func TestOutputArtifactClose(t *testing.T) {
	output := NewOutputArtifact("pkg.Token")
	_, err := output.Write([]byte{0x01})
	require.NoError(t, err)

	output.Close()
	assert.True(t, output.Closed())
	assert.EqualValues(t, 0, output.Len())

	_, err = output.Bytes()
	var closedErr *ArtifactClosedError
	require.True(t, errors.As(err, &closedErr))
	assert.EqualValues(t, "pkg.Token", closedErr.Artifact)

	_, err = output.Write([]byte{0x02})
	assert.True(t, errors.As(err, &closedErr))
}

// TestOutputArtifactConcurrentWrites verifies concurrent writers do not lose bytes.
func TestOutputArtifactConcurrentWrites(t *testing.T) {
	output := NewOutputArtifact("Concurrent")
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 64; j++ {
				_, err := output.Write([]byte{byte(j)})
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 16*64, output.Len())
}

// TestSourceUnitOutputs verifies outputs registered on a source unit can be listed, replaced and released.
func TestSourceUnitOutputs(t *testing.T) {
	unit := NewSourceUnit("pkg.Token", "contract Token {}", "")
	assert.EqualValues(t, "pkg", unit.Namespace())
	assert.False(t, unit.IsFileSource())
	assert.False(t, unit.HasDestinationPath())

	first := NewOutputArtifact("pkg.Token")
	unit.AddOutput(first)
	unit.AddOutput(NewOutputArtifact("pkg.Helper"))
	assert.EqualValues(t, []string{"pkg.Helper", "pkg.Token"}, unit.OutputNames())

	// Replacing an output closes the previous sink
	replacement := NewOutputArtifact("pkg.Token")
	unit.AddOutput(replacement)
	assert.True(t, first.Closed())
	output, ok := unit.Output("pkg.Token")
	require.True(t, ok)
	assert.Same(t, replacement, output)

	unit.Close()
	assert.True(t, replacement.Closed())
	assert.Empty(t, unit.OutputNames())
}

// TestSourceUnitDestinationPath verifies the destination path can only be set once.
func TestSourceUnitDestinationPath(t *testing.T) {
	unit := NewSourceUnit("Token", "", "")
	unit.SetDestinationPathIfAbsent("/tmp/a")
	unit.SetDestinationPathIfAbsent("/tmp/b")
	assert.EqualValues(t, "/tmp/a", unit.DestinationPath())
	assert.True(t, unit.HasDestinationPath())
}

// TestSourceUnitValidate verifies invalid source units are reported with the appropriate error type.
func TestSourceUnitValidate(t *testing.T) {
	var configErr *ConfigurationError
	err := NewSourceUnit("", "contract A {}", "").Validate()
	assert.True(t, errors.As(err, &configErr))

	var notFoundErr *SourceNotFoundError
	missing := NewFileSourceUnit("pkg.Missing", fmt.Sprintf("%s/missing.sol", t.TempDir()), "")
	err = missing.Validate()
	require.True(t, errors.As(err, &notFoundErr))
	assert.EqualValues(t, "pkg.Missing", notFoundErr.Name)

	_, err = missing.ReadSource()
	assert.True(t, errors.As(err, &notFoundErr))

	// Directories are not valid source files
	err = NewFileSourceUnit("pkg.Dir", t.TempDir(), "").Validate()
	assert.True(t, errors.As(err, &notFoundErr))

	assert.NoError(t, NewSourceUnit("pkg.Token", "contract Token {}", "").Validate())
}
