package cmd

// DefaultProjectConfigFilename describes the default config filename for a given project folder.
const DefaultProjectConfigFilename = "bytereactor.json"

// DefaultCompilationPlatform describes the default compilation platform to use if one is not provided
const DefaultCompilationPlatform = "solc"

// DefaultArtifactHashDirectory is the directory, relative to the project config, the artifact hash of the last
// compile run is kept in.
const DefaultArtifactHashDirectory = ".bytereactor"
