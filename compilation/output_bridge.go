package compilation

import (
	"io"

	"github.com/crytic/bytereactor/compilation/types"
)

// OutputBridge is the platforms.OutputProvider handed to toolchains. Every binary artifact a toolchain emits is
// captured in memory on the SourceUnit it was produced from. It never writes to disk.
type OutputBridge struct{}

// NewOutputBridge returns a new OutputBridge.
func NewOutputBridge() *OutputBridge {
	return &OutputBridge{}
}

// Output returns a fresh OutputArtifact registered on the unit under the given name. Only types.OutputKindArtifact is
// supported, any other kind yields a types.UnsupportedOutputKindError.
func (b *OutputBridge) Output(unit *types.SourceUnit, artifactName string, kind types.OutputKind) (io.Writer, error) {
	if kind != types.OutputKindArtifact {
		return nil, &types.UnsupportedOutputKindError{Artifact: artifactName, Kind: kind}
	}
	output := types.NewOutputArtifact(artifactName)
	unit.AddOutput(output)
	return output, nil
}
