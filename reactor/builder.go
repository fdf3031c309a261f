package reactor

import (
	"fmt"

	"github.com/crytic/bytereactor/compilation"
	"github.com/crytic/bytereactor/compilation/platforms"
	"github.com/crytic/bytereactor/compilation/types"
	"github.com/crytic/bytereactor/loader"
	"github.com/crytic/bytereactor/logging"
	"github.com/crytic/bytereactor/reactor/config"
)

// Builder configures and creates a Reactor.
type Builder struct {
	reportLevel     compilation.ReportLevel
	destinationPath string
	loadingContext  *loader.LoadingContext
	extensions      []platforms.Extension
	toolchain       platforms.Toolchain
	logger          *logging.Logger
	registry        *loader.CacheRegistry
}

// NewBuilder returns a Builder reporting warnings and errors, compiling with solc, keeping artifacts in memory and
// sharing the process-wide loader.CacheRegistry.
func NewBuilder() *Builder {
	return &Builder{
		reportLevel: compilation.DefaultReportLevel,
		extensions:  make([]platforms.Extension, 0),
	}
}

// WithReportLevel sets the minimum severity of toolchain diagnostics which are logged.
func (b *Builder) WithReportLevel(level compilation.ReportLevel) *Builder {
	b.reportLevel = level
	return b
}

// WithCompilerDestinationPath sets the directory artifacts are persisted to for requests without a destination path
// of their own. Such artifacts are no longer cached.
func (b *Builder) WithCompilerDestinationPath(destinationPath string) *Builder {
	b.destinationPath = destinationPath
	return b
}

// WithLoadingContext sets the loading context artifacts are loaded under when none is provided per call.
func (b *Builder) WithLoadingContext(lc *loader.LoadingContext) *Builder {
	b.loadingContext = lc
	return b
}

// WithExtension adds an extension passed to the toolchain on every compilation.
func (b *Builder) WithExtension(extension platforms.Extension) *Builder {
	b.extensions = append(b.extensions, extension)
	return b
}

// WithExtensions adds several extensions passed to the toolchain on every compilation.
func (b *Builder) WithExtensions(extensions ...platforms.Extension) *Builder {
	for _, extension := range extensions {
		b.WithExtension(extension)
	}
	return b
}

// WithToolchain sets the toolchain source units are compiled with. Toolchains which do not declare themselves
// reentrant are serialized.
func (b *Builder) WithToolchain(toolchain platforms.Toolchain) *Builder {
	b.toolchain = toolchain
	return b
}

// WithLogger sets the logger the reactor and its diagnostics are logged to.
func (b *Builder) WithLogger(logger *logging.Logger) *Builder {
	b.logger = logger
	return b
}

// WithCacheRegistry sets the scopes and cache the reactor works with. Reactors sharing a registry share cached
// artifacts.
func (b *Builder) WithCacheRegistry(registry *loader.CacheRegistry) *Builder {
	b.registry = registry
	return b
}

// Build validates the configuration and returns a new Reactor.
func (b *Builder) Build() (*Reactor, error) {
	if _, err := b.reportLevel.MarshalText(); err != nil {
		return nil, &types.ConfigurationError{Message: err.Error()}
	}
	for i, extension := range b.extensions {
		if extension == nil {
			return nil, &types.ConfigurationError{Message: fmt.Sprintf("extension %d is nil", i)}
		}
	}

	toolchain := b.toolchain
	if toolchain == nil {
		toolchain = platforms.NewSolcCompilationConfig()
	}
	registry := b.registry
	if registry == nil {
		registry = loader.DefaultCacheRegistry()
	}
	baseLogger := b.logger
	if baseLogger == nil {
		baseLogger = logging.GlobalLogger
	}

	return &Reactor{
		toolchain:       platforms.Serialized(toolchain),
		extensions:      append([]platforms.Extension(nil), b.extensions...),
		destinationPath: b.destinationPath,
		loadingContext:  b.loadingContext,
		registry:        registry,
		bridge:          compilation.NewOutputBridge(),
		diagnostics:     compilation.NewDiagnosticLogger(b.reportLevel, baseLogger.NewSubLogger("module", "compiler")),
		logger:          baseLogger.NewSubLogger("module", "reactor"),
	}, nil
}

// NewReactorFromConfig returns a Reactor configured by the provided project config, compiling with the toolchain of
// its compilation platform.
func NewReactorFromConfig(projectConfig *config.ProjectConfig) (*Reactor, error) {
	if projectConfig == nil {
		return nil, &types.ConfigurationError{Message: "project config is nil"}
	}
	if err := projectConfig.Validate(); err != nil {
		return nil, err
	}
	toolchain, err := projectConfig.Compilation.GetPlatformConfig()
	if err != nil {
		return nil, err
	}

	builder := NewBuilder().
		WithReportLevel(projectConfig.Reactor.ReportLevel).
		WithCompilerDestinationPath(projectConfig.Reactor.CompilerDestinationPath).
		WithExtensions(projectConfig.Reactor.Extensions.Extensions()...).
		WithToolchain(toolchain)
	if projectConfig.Reactor.LoadingContext != "" {
		builder.WithLoadingContext(loader.NewLoadingContext(projectConfig.Reactor.LoadingContext, nil))
	}
	return builder.Build()
}
