package compilation

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/crytic/bytereactor/logging"
	"github.com/crytic/bytereactor/logging/colors"
	"github.com/crytic/bytereactor/utils"
	"github.com/pkg/errors"
	"golang.org/x/exp/slices"
)

// ArtifactHashCacheFileName is the name of the file used to store the artifact hashes of the last run.
const ArtifactHashCacheFileName = ".bytereactor-artifact-hash"

// ArtifactHashCache stores the hashes of a set of loaded artifacts.
type ArtifactHashCache struct {
	// Hash is the SHA-256 hash over every artifact of the set.
	Hash string `json:"hash"`

	// Artifacts maps each artifact name to the SHA-256 hash of its bytecode.
	Artifacts map[string]string `json:"artifacts,omitempty"`

	// Timestamp is when the hashes were computed.
	Timestamp time.Time `json:"timestamp"`
}

// HashableArtifact describes an artifact whose bytecode contributes to an artifact hash.
type HashableArtifact interface {
	// Name returns the fully qualified artifact name.
	Name() string
	// InitBytecode returns the unlinked init bytecode.
	InitBytecode() []byte
	// RuntimeBytecode returns the unlinked runtime bytecode.
	RuntimeBytecode() []byte
}

// hashArtifact returns the hex SHA-256 hash of an artifact's init and runtime bytecode.
func hashArtifact(artifact HashableArtifact) string {
	hasher := sha256.New()
	initBytecode := artifact.InitBytecode()
	// The init bytecode length separates both bytecodes
	_, _ = fmt.Fprintf(hasher, "%d:", len(initBytecode))
	hasher.Write(initBytecode)
	hasher.Write(artifact.RuntimeBytecode())
	return hex.EncodeToString(hasher.Sum(nil))
}

// NewArtifactHashCache hashes every provided artifact. The set hash does not depend on the order of artifacts.
func NewArtifactHashCache[T HashableArtifact](artifacts []T) *ArtifactHashCache {
	cache := &ArtifactHashCache{
		Artifacts: make(map[string]string, len(artifacts)),
		Timestamp: time.Now(),
	}
	for _, artifact := range artifacts {
		cache.Artifacts[artifact.Name()] = hashArtifact(artifact)
	}

	names := make([]string, 0, len(cache.Artifacts))
	for name := range cache.Artifacts {
		names = append(names, name)
	}
	slices.Sort(names)
	hasher := sha256.New()
	for _, name := range names {
		_, _ = fmt.Fprintf(hasher, "%s=%s\n", name, cache.Artifacts[name])
	}
	cache.Hash = hex.EncodeToString(hasher.Sum(nil))
	return cache
}

// ComputeArtifactHash computes the SHA-256 hash over the bytecode of all provided artifacts.
func ComputeArtifactHash[T HashableArtifact](artifacts []T) string {
	return NewArtifactHashCache(artifacts).Hash
}

// ChangedArtifacts returns the sorted names of artifacts in current whose hash differs from, or is missing in, the
// receiver.
func (c *ArtifactHashCache) ChangedArtifacts(current *ArtifactHashCache) []string {
	var changed []string
	for name, hash := range current.Artifacts {
		if previous, ok := c.Artifacts[name]; !ok || previous != hash {
			changed = append(changed, name)
		}
	}
	slices.Sort(changed)
	return changed
}

// LoadArtifactHashCache loads the artifact hash cache from the specified directory.
// Returns nil if the cache file does not exist or cannot be parsed.
func LoadArtifactHashCache(directory string) *ArtifactHashCache {
	data, err := os.ReadFile(filepath.Join(directory, ArtifactHashCacheFileName))
	if err != nil {
		return nil
	}
	var cache ArtifactHashCache
	if err = json.Unmarshal(data, &cache); err != nil || cache.Hash == "" {
		return nil
	}
	return &cache
}

// SaveArtifactHashCache writes the artifact hash cache to the specified directory, creating it if needed.
func SaveArtifactHashCache(directory string, cache *ArtifactHashCache) error {
	data, err := json.MarshalIndent(cache, "", "  ")
	if err != nil {
		return errors.Wrap(err, "could not marshal the artifact hash cache")
	}
	if err = utils.WriteFile(filepath.Join(directory, ArtifactHashCacheFileName), data); err != nil {
		return errors.Wrap(err, "could not write the artifact hash cache")
	}
	return nil
}

// NotifyArtifactHashStatus compares the hashes of the provided artifacts with those of the previous run stored in
// cacheDirectory, logs whether they changed and stores the new hashes.
func NotifyArtifactHashStatus[T HashableArtifact](artifacts []T, cacheDirectory string, logger *logging.Logger) {
	if len(artifacts) == 0 {
		return
	}

	current := NewArtifactHashCache(artifacts)
	previous := LoadArtifactHashCache(cacheDirectory)
	switch {
	case previous == nil:
		logger.Info(colors.Bold, "artifacts: ", colors.Reset,
			"compiled a ", colors.GreenBold, "new", colors.Reset, " set of build artifacts")
	case previous.Hash != current.Hash:
		changed := previous.ChangedArtifacts(current)
		msg := " set of build artifacts"
		if len(changed) > 0 {
			msg += fmt.Sprintf(" (changed: %s)", strings.Join(changed, ", "))
		}
		logger.Info(colors.Bold, "artifacts: ", colors.Reset,
			"compiled a ", colors.GreenBold, "new", colors.Reset, msg, logging.StructuredLogInfo{"changed": changed})
	default:
		logger.Warn(colors.Bold, "artifacts: ", colors.Reset,
			"compiled the ", colors.YellowBold, "same", colors.Reset,
			" build artifacts as previously (last run: ", formatDuration(time.Since(previous.Timestamp)), " ago)")
	}

	if err := SaveArtifactHashCache(cacheDirectory, current); err != nil {
		logger.Warn("Failed to save artifact hash cache", err)
	}
}

// formatDuration formats a duration into a human-readable string.
func formatDuration(d time.Duration) string {
	plural := func(n int, unit string) string {
		if n == 1 {
			return "1 " + unit
		}
		return fmt.Sprintf("%d %ss", n, unit)
	}
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%d seconds", int(d.Seconds()))
	case d < time.Hour:
		return plural(int(d.Minutes()), "minute")
	case d < 24*time.Hour:
		return plural(int(d.Hours()), "hour")
	default:
		return plural(int(d.Hours()/24), "day")
	}
}
