package types

import (
	"path"
	"path/filepath"
	"strings"
)

// ArtifactFileExtension is the file extension used when a binary artifact is persisted to disk.
const ArtifactFileExtension = ".artifact"

// ArtifactNameSeparator separates the namespace components of a fully qualified artifact name.
const ArtifactNameSeparator = "."

// ArtifactFilePath returns the path a binary artifact is persisted at under the provided destination directory:
// <destination>/<artifact name with separators replaced by path separators>.artifact
func ArtifactFilePath(destination string, artifactName string) string {
	components := strings.Split(artifactName, ArtifactNameSeparator)
	components[len(components)-1] += ArtifactFileExtension
	return filepath.Join(append([]string{destination}, components...)...)
}

// SourceRelativePath returns the forward-slash separated relative path a SourceUnit with the given logical name is
// presented to a toolchain at, using the provided file extension (e.g. "pkg.Token" -> "pkg/Token.sol").
func SourceRelativePath(name string, extension string) string {
	return path.Join(strings.Split(name, ArtifactNameSeparator)...) + extension
}

// ArtifactNamespace returns the namespace of a fully qualified artifact name, which is everything preceding the last
// separator. An unqualified name has an empty namespace.
func ArtifactNamespace(name string) string {
	if i := strings.LastIndex(name, ArtifactNameSeparator); i >= 0 {
		return name[:i]
	}
	return ""
}

// QualifyArtifactName joins a namespace and a simple artifact name into a fully qualified artifact name.
func QualifyArtifactName(namespace string, simpleName string) string {
	if namespace == "" {
		return simpleName
	}
	return namespace + ArtifactNameSeparator + simpleName
}
