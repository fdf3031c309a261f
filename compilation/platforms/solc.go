package platforms

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os/exec"
	"path"
	"regexp"
	"strings"
	"sync"

	"github.com/Masterminds/semver"
	"github.com/crytic/bytereactor/compilation/types"
	"github.com/crytic/bytereactor/utils"
	"github.com/pkg/errors"
	"golang.org/x/exp/slices"
)

// SolcSourceExtension is the file extension source units are presented to solc with.
const SolcSourceExtension = ".sol"

// solcMinimumVersion is the first solc release which supports standard-JSON input.
const solcMinimumVersion = ">= 0.4.11"

// SolcCompilationConfig describes the solc toolchain, which compiles Solidity source units through the standard-JSON
// interface.
type SolcCompilationConfig struct {
	// Binary is the solc executable to invoke. Defaults to "solc" when empty.
	Binary string `json:"binary,omitempty"`

	// BasePath is passed to solc as --base-path, allowing imports to be resolved from the filesystem.
	BasePath string `json:"basePath,omitempty"`

	// Args are additional arguments passed to solc.
	Args []string `json:"args,omitempty"`

	// version caches the version reported by the binary.
	version *semver.Version

	// versionLock guards version.
	versionLock sync.Mutex
}

// NewSolcCompilationConfig returns a solc toolchain invoking the "solc" executable.
func NewSolcCompilationConfig() *SolcCompilationConfig {
	return &SolcCompilationConfig{
		Binary: "solc",
		Args:   []string{},
	}
}

// Platform returns the platform identifier of the config.
func (s *SolcCompilationConfig) Platform() string {
	return "solc"
}

// Name returns a short human-readable name of the toolchain.
func (s *SolcCompilationConfig) Name() string {
	return s.binary()
}

// Reentrant returns true, as every Compile call runs a separate solc process.
func (s *SolcCompilationConfig) Reentrant() bool {
	return true
}

func (s *SolcCompilationConfig) binary() string {
	if s.Binary == "" {
		return "solc"
	}
	return s.Binary
}

// GetSolcVersion runs the provided solc binary with --version and parses the version it reports.
func GetSolcVersion(binary string) (*semver.Version, error) {
	// Run solc --version to obtain our compiler version.
	out, err := exec.Command(binary, "--version").CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("error while executing %s:\nOUTPUT:\n%s\nERROR: %s\n", binary, string(out), err.Error())
	}

	// Parse the compiler version out of the output
	exp := regexp.MustCompile(`\d+\.\d+\.\d+`)
	versionStr := exp.FindString(string(out))
	if versionStr == "" {
		return nil, errors.Errorf("could not parse solc version using '%s --version'", binary)
	}

	// Parse our semver string and return it
	return semver.NewVersion(versionStr)
}

// Version returns the version of the configured solc binary, verifying it supports standard-JSON input.
func (s *SolcCompilationConfig) Version() (*semver.Version, error) {
	s.versionLock.Lock()
	defer s.versionLock.Unlock()
	if s.version != nil {
		return s.version, nil
	}

	v, err := GetSolcVersion(s.binary())
	if err != nil {
		return nil, err
	}
	constraint, err := semver.NewConstraint(solcMinimumVersion)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if !constraint.Check(v) {
		return nil, errors.Errorf("solc %s does not support standard-JSON input, version %s is required", v, solcMinimumVersion)
	}
	s.version = v
	return v, nil
}

// BuildStandardInput builds the standard-JSON input for the provided units, applying every SolcSettingsExtension.
// Extensions of other kinds are ignored.
func (s *SolcCompilationConfig) BuildStandardInput(units []*types.SourceUnit, extensions []Extension) (*SolcStandardInput, error) {
	input := &SolcStandardInput{
		Language: "Solidity",
		Sources:  make(map[string]SolcSource, len(units)),
		Settings: SolcSettings{
			OutputSelection: map[string]map[string][]string{
				"*": {
					"":  {"ast"},
					"*": {"abi", "evm.bytecode.object", "evm.bytecode.linkReferences", "evm.deployedBytecode.object", "evm.deployedBytecode.linkReferences"},
				},
			},
		},
	}

	for _, unit := range units {
		source, err := unit.ReadSource()
		if err != nil {
			return nil, err
		}
		sourcePath := types.SourceRelativePath(unit.Name(), SolcSourceExtension)
		if _, exists := input.Sources[sourcePath]; exists {
			return nil, &types.ConfigurationError{Message: fmt.Sprintf("source unit '%s' was submitted more than once", unit.Name())}
		}
		input.Sources[sourcePath] = SolcSource{Content: source}
	}

	for _, extension := range extensions {
		if solcExtension, ok := extension.(SolcSettingsExtension); ok {
			if err := solcExtension.ApplySolcSettings(&input.Settings); err != nil {
				return nil, errors.Wrapf(err, "could not apply extension '%s'", extension.ExtensionName())
			}
		}
	}
	return input, nil
}

// Compile compiles every unit of the task through a single solc invocation and emits one artifact per contract
// defined in a submitted source.
func (s *SolcCompilationConfig) Compile(task *CompilationTask) (bool, error) {
	// Ensure our solc binary is usable
	if _, err := s.Version(); err != nil {
		return false, err
	}

	input, err := s.BuildStandardInput(task.Units, task.Extensions)
	if err != nil {
		return false, err
	}
	inputBytes, err := json.Marshal(input)
	if err != nil {
		return false, errors.WithStack(err)
	}

	// Create our command
	args := []string{"--standard-json"}
	if s.BasePath != "" {
		args = append(args, "--base-path", s.BasePath)
	}
	args = append(args, s.Args...)
	cmd := exec.Command(s.binary(), args...)
	cmdStdout, _, cmdCombined, err := utils.RunCommandWithInput(cmd, inputBytes)
	if err != nil {
		return false, fmt.Errorf("error while executing %s:\n%s\n\nCommand Output:\n%s\n", s.binary(), err.Error(), string(cmdCombined))
	}

	// Our invocation succeeded, load the JSON
	var output SolcStandardOutput
	if err = json.Unmarshal(cmdStdout, &output); err != nil {
		return false, errors.Wrap(err, "could not parse solc standard-JSON output")
	}

	// Report every message, then bail if any of them is an error
	if task.Diagnostics != nil {
		for _, e := range output.Errors {
			task.Diagnostics.Report(e.Diagnostic())
		}
	}
	if output.HasErrors() {
		return false, nil
	}

	for _, unit := range task.Units {
		if err = s.emitArtifacts(task.Outputs, unit, &output); err != nil {
			return false, err
		}
	}
	return true, nil
}

// emitArtifacts writes an encoded types.CompiledArtifact for every contract defined in the unit's source.
func (s *SolcCompilationConfig) emitArtifacts(outputs OutputProvider, unit *types.SourceUnit, output *SolcStandardOutput) error {
	sourcePath := types.SourceRelativePath(unit.Name(), SolcSourceExtension)
	contracts := output.Contracts[sourcePath]

	// Determine contract kinds from the AST where it was provided
	var contractKinds map[string]types.ContractKind
	if source, ok := output.Sources[sourcePath]; ok && source.AST != nil {
		contractKinds = source.AST.ContractKinds()
	}

	// Emit contracts in a stable order
	contractNames := make([]string, 0, len(contracts))
	for contractName := range contracts {
		contractNames = append(contractNames, contractName)
	}
	slices.Sort(contractNames)

	for _, contractName := range contractNames {
		contract := contracts[contractName]
		artifact, err := s.buildArtifact(unit, sourcePath, contractName, &contract)
		if err != nil {
			return err
		}
		if kind, ok := contractKinds[contractName]; ok && kind != "" {
			artifact.Kind = kind
		} else {
			artifact.Kind = types.InferContractKind(artifact.RuntimeBytecode)
		}

		b, err := artifact.MarshalBinary()
		if err != nil {
			return err
		}
		w, err := outputs.Output(unit, artifact.Name, types.OutputKindArtifact)
		if err != nil {
			return err
		}
		if _, err = w.Write(b); err != nil {
			return errors.Wrapf(err, "could not write artifact '%s'", artifact.Name)
		}
	}
	return nil
}

// buildArtifact converts a single standard-JSON contract output into a types.CompiledArtifact.
func (s *SolcCompilationConfig) buildArtifact(unit *types.SourceUnit, sourcePath string, contractName string, contract *SolcContractOutput) (*types.CompiledArtifact, error) {
	name := SolcArtifactName(sourcePath, contractName)

	// Ensure every placeholder belongs to the library its link reference names before the placeholders are stripped
	if err := checkLibraryPlaceholders(contract.EVM.Bytecode.Object, contract.EVM.Bytecode.LinkReferences); err != nil {
		return nil, errors.Wrapf(err, "invalid init bytecode for contract '%s'", contractName)
	}
	if err := checkLibraryPlaceholders(contract.EVM.DeployedBytecode.Object, contract.EVM.DeployedBytecode.LinkReferences); err != nil {
		return nil, errors.Wrapf(err, "invalid runtime bytecode for contract '%s'", contractName)
	}

	// Decode our init and runtime bytecode
	initBytecode, err := hex.DecodeString(types.StripLibraryPlaceholders(contract.EVM.Bytecode.Object))
	if err != nil {
		return nil, fmt.Errorf("unable to parse init bytecode for contract '%s': %v", contractName, err)
	}
	runtimeBytecode, err := hex.DecodeString(types.StripLibraryPlaceholders(contract.EVM.DeployedBytecode.Object))
	if err != nil {
		return nil, fmt.Errorf("unable to parse runtime bytecode for contract '%s': %v", contractName, err)
	}

	abi := []byte(contract.Abi)
	if len(abi) == 0 || string(abi) == "null" {
		abi = []byte("[]")
	}

	return &types.CompiledArtifact{
		Name:                  name,
		SourceUnit:            unit.Name(),
		Abi:                   abi,
		InitBytecode:          initBytecode,
		RuntimeBytecode:       runtimeBytecode,
		InitLinkReferences:    convertLinkReferences(contract.EVM.Bytecode.LinkReferences),
		RuntimeLinkReferences: convertLinkReferences(contract.EVM.DeployedBytecode.LinkReferences),
	}, nil
}

// SolcArtifactName returns the fully qualified artifact name of a contract defined in the given source path: the
// directory components of the path form the namespace (e.g. "pkg/Token.sol", "Math" -> "pkg.Math").
func SolcArtifactName(sourcePath string, contractName string) string {
	dir := path.Dir(sourcePath)
	if dir == "." || dir == "/" {
		return contractName
	}
	namespace := strings.ReplaceAll(strings.Trim(dir, "/"), "/", types.ArtifactNameSeparator)
	return types.QualifyArtifactName(namespace, contractName)
}

// checkLibraryPlaceholders verifies the hex encoded bytecode carries the placeholder of the referenced library at every
// link reference offset. Regions holding a placeholder of the pre-0.5 format ("__Name____") are not checked.
func checkLibraryPlaceholders(hexBytecode string, references map[string]map[string][]SolcLinkOffset) error {
	hexBytecode = strings.TrimPrefix(hexBytecode, "0x")
	for sourcePath, libraries := range references {
		for libraryName, offsets := range libraries {
			placeholder := types.GenerateLibraryPlaceholder(sourcePath + ":" + libraryName)
			for _, offset := range offsets {
				start := 2 * offset.Start
				end := start + len(placeholder)
				if offset.Start < 0 || end > len(hexBytecode) {
					return errors.Errorf("link reference to '%s' at offset %d lies outside of the bytecode", libraryName, offset.Start)
				}
				region := hexBytecode[start:end]
				if strings.HasPrefix(region, "__$") && region != placeholder {
					return errors.Errorf("link reference to '%s' at offset %d holds placeholder %s", libraryName, offset.Start, region)
				}
			}
		}
	}
	return nil
}

// convertLinkReferences flattens standard-JSON link references into types.LinkReference values, ordered by offset.
func convertLinkReferences(references map[string]map[string][]SolcLinkOffset) []types.LinkReference {
	var result []types.LinkReference
	for sourcePath, libraries := range references {
		for libraryName, offsets := range libraries {
			for _, offset := range offsets {
				result = append(result, types.LinkReference{
					Artifact: SolcArtifactName(sourcePath, libraryName),
					Start:    offset.Start,
					Length:   offset.Length,
				})
			}
		}
	}
	slices.SortFunc(result, func(a, b types.LinkReference) int {
		return a.Start - b.Start
	})
	return result
}
