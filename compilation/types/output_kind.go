package types

// OutputKind describes the kind of output a toolchain wishes to emit.
type OutputKind int

const (
	// OutputKindArtifact describes a compiled binary artifact. This is the only kind the output bridge accepts.
	OutputKindArtifact OutputKind = iota
	// OutputKindSource describes generated source code.
	OutputKindSource
	// OutputKindMetadata describes toolchain metadata, such as build info.
	OutputKindMetadata
	// OutputKindOther describes any other output.
	OutputKindOther
)

// String returns the name of the output kind.
func (k OutputKind) String() string {
	switch k {
	case OutputKindArtifact:
		return "artifact"
	case OutputKindSource:
		return "source"
	case OutputKindMetadata:
		return "metadata"
	default:
		return "other"
	}
}
