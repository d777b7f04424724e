// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/thresh/thresh/internal/blueprint"
	"github.com/thresh/thresh/internal/config"
	"github.com/thresh/thresh/internal/container"
	"github.com/thresh/thresh/internal/distro"
	"github.com/thresh/thresh/internal/issue"
	"github.com/thresh/thresh/internal/logging"
	"github.com/thresh/thresh/internal/metadata"
	"github.com/thresh/thresh/internal/procexec"
	"github.com/thresh/thresh/internal/provision"
	"github.com/thresh/thresh/internal/rootfs"
)

// LockDirName is the directory under the data dir holding lease lock files.
const LockDirName = "locks"

var errBaseRequired = errors.New("base is required and no default_base is configured")

type (
	// Service is the facade the CLI talks to. It is safe for concurrent use;
	// provision and destroy calls for the same name are serialized by a lease.
	Service struct {
		cfg      *config.Config
		paths    config.Paths
		logger   *log.Logger
		backend  container.Backend
		registry *distro.Registry
		catalog  *blueprint.Catalog
		cache    *rootfs.Cache
		store    *metadata.Store
		leases   *provision.Leases
		pipeline *provision.Pipeline
	}

	// Option configures a Service under construction.
	Option func(*settings)

	settings struct {
		runtime    config.RuntimeKind
		executor   procexec.Executor
		backend    container.Backend
		logger     *log.Logger
		downloader rootfs.Downloader
		clock      provision.Clock
		bundled    fs.FS
	}

	// ProvisionOptions tunes one Provision call.
	ProvisionOptions struct {
		// Verbose streams command output to the logger.
		Verbose bool
		// ResumeFrom skips every stage before it on an existing environment.
		ResumeFrom provision.StageID
	}

	// Requirements reports whether the host can run environments.
	Requirements struct {
		RuntimeAvailable  bool   `json:"runtimeAvailable"`
		RuntimeName       string `json:"runtimeName"`
		RuntimeVersion    string `json:"runtimeVersion,omitempty"`
		Platform          string `json:"platform"`
		Details           string `json:"details,omitempty"`
		DistributionCount int    `json:"distributionCount"`
	}

	// Distribution is a registry entry with its cache state.
	Distribution struct {
		Key    string      `json:"key"`
		Info   distro.Info `json:"info"`
		Cached bool        `json:"cached"`
	}
)

// WithRuntime overrides the config file's runtime selection.
func WithRuntime(kind config.RuntimeKind) Option {
	return func(s *settings) {
		s.runtime = kind
	}
}

// WithExecutor sets the process executor handed to the backend.
func WithExecutor(x procexec.Executor) Option {
	return func(s *settings) {
		s.executor = x
	}
}

// WithBackend replaces runtime selection with a ready backend.
func WithBackend(b container.Backend) Option {
	return func(s *settings) {
		s.backend = b
	}
}

// WithLogger sets the logger shared by every component.
func WithLogger(l *log.Logger) Option {
	return func(s *settings) {
		s.logger = l
	}
}

// WithDownloader replaces the rootfs HTTP downloader.
func WithDownloader(d rootfs.Downloader) Option {
	return func(s *settings) {
		s.downloader = d
	}
}

// WithClock replaces the clock used for metadata timestamps.
func WithClock(c provision.Clock) Option {
	return func(s *settings) {
		s.clock = c
	}
}

// WithBundledBlueprints replaces the embedded blueprint set.
func WithBundledBlueprints(fsys fs.FS) Option {
	return func(s *settings) {
		s.bundled = fsys
	}
}

// New wires a Service from cfg. A nil cfg means config.DefaultConfig().
func New(cfg *config.Config, opts ...Option) (*Service, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	var set settings
	for _, opt := range opts {
		opt(&set)
	}
	logger := logging.OrDiscard(set.logger)

	paths, err := cfg.ResolvePaths()
	if err != nil {
		return nil, fmt.Errorf("resolve data paths: %w", err)
	}

	store := metadata.NewStore(paths.MetadataDir)

	backend := set.backend
	if backend == nil {
		kind, err := ResolveRuntime(set.runtime, cfg)
		if err != nil {
			return nil, err
		}
		backend, err = container.New(kind,
			container.WithExecutor(set.executor),
			container.WithLogger(logger),
			container.WithBlueprintLookup(store.BlueprintName))
		if err != nil {
			return nil, err
		}
	}

	registry := distro.New(distro.WithConfig(cfg), distro.WithLogger(logger))

	catalogOpts := []blueprint.CatalogOption{blueprint.WithCatalogLogger(logger)}
	if set.bundled != nil {
		catalogOpts = append(catalogOpts, blueprint.WithBundledFS(set.bundled))
	}

	cacheOpts := []rootfs.Option{rootfs.WithLogger(logger)}
	if set.downloader != nil {
		cacheOpts = append(cacheOpts, rootfs.WithDownloader(set.downloader))
	}
	cache := rootfs.New(paths.CacheDir, cacheOpts...)

	pipelineOpts := []provision.Option{
		provision.WithLogger(logger),
		provision.WithInstallDir(paths.InstallDir),
		provision.WithTempDir(paths.TempDir),
	}
	if set.clock != nil {
		pipelineOpts = append(pipelineOpts, provision.WithClock(set.clock))
	}

	return &Service{
		cfg:      cfg,
		paths:    paths,
		logger:   logger,
		backend:  backend,
		registry: registry,
		catalog:  blueprint.NewCatalog(paths.BlueprintsDir, catalogOpts...),
		cache:    cache,
		store:    store,
		leases:   provision.NewLeases(filepath.Join(paths.DataDir, LockDirName), logger),
		pipeline: provision.New(backend, registry, cache, store, pipelineOpts...),
	}, nil
}

// Paths returns the resolved data locations.
func (s *Service) Paths() config.Paths { return s.paths }

// Backend returns the active runtime backend.
func (s *Service) Backend() container.Backend { return s.backend }

// Cache returns the rootfs cache.
func (s *Service) Cache() *rootfs.Cache { return s.cache }

// ListEnvironments returns the environments the runtime reports. Only
// thresh-managed ones are listed unless includeAll is set.
func (s *Service) ListEnvironments(ctx context.Context, includeAll bool) ([]container.Environment, error) {
	envs, err := s.backend.ListEnvironments(ctx, includeAll)
	if err != nil {
		return nil, issue.WrapWithContext(err, "list environments", s.backend.RuntimeName())
	}
	return envs, nil
}

// Provision builds environment name from bp. The base distribution is
// resolved before any external command runs. An existing environment is
// refused unless resuming from a stage after base; resuming from a later
// stage requires the environment to exist.
func (s *Service) Provision(ctx context.Context, name string, bp *blueprint.Blueprint, opts ProvisionOptions) (*provision.Result, error) {
	if err := ValidateName(name); err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("provision environment").
			WithResource(name).
			WithSuggestion("Use letters, digits, '.', '_' and '-' only").
			Wrap(err).
			BuildError()
	}
	if bp == nil {
		return nil, errors.New("provision environment: no blueprint given")
	}
	bp = s.withDefaultBase(bp)
	if err := bp.Validate(); err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("validate blueprint").
			WithResource(bp.Name).
			WithIssue(issue.BlueprintInvalidId).
			Wrap(err).
			BuildError()
	}
	if bp.Base == "" {
		return nil, issue.NewErrorContext().
			WithOperation("validate blueprint").
			WithResource(bp.Name).
			WithIssue(issue.BlueprintInvalidId).
			WithSuggestion("Set base in the blueprint, or run 'thresh config set default_base <key>'").
			Wrap(&blueprint.InvalidBlueprintError{Source: bp.Name, Errs: []error{errBaseRequired}}).
			BuildError()
	}
	if opts.ResumeFrom != "" {
		if _, err := provision.ParseStageID(string(opts.ResumeFrom)); err != nil {
			return nil, err
		}
	}
	if !s.registry.Has(bp.Base) {
		return nil, issue.NewErrorContext().
			WithOperation("provision environment").
			WithResource(name).
			WithSuggestion("Run 'thresh distros' to list supported distributions").
			Wrap(s.registry.NotFound(bp.Base)).
			BuildError()
	}
	if !s.backend.IsAvailable(ctx) {
		return nil, issue.NewErrorContext().
			WithOperation("provision environment").
			WithResource(name).
			WithIssue(issue.RuntimeNotAvailableId).
			Wrap(container.ErrNoRuntime).
			BuildError()
	}

	release, err := s.leases.Acquire(ctx, name)
	if err != nil {
		return nil, err
	}
	defer release()

	exists := s.backend.EnvironmentExists(ctx, name)
	switch {
	case exists && (opts.ResumeFrom == "" || opts.ResumeFrom == provision.StageBase):
		return nil, issue.NewErrorContext().
			WithOperation("provision environment").
			WithSuggestion(fmt.Sprintf("Remove it first: thresh destroy %s", name)).
			WithSuggestion(fmt.Sprintf("Or continue a failed run from a later stage: thresh up %s --name %s --resume-from packages", bp.Name, name)).
			Wrap(&issue.AlreadyExistsError{Kind: issue.KindEnvironment, Name: name}).
			BuildError()
	case opts.ResumeFrom != "" && opts.ResumeFrom != provision.StageBase && !exists:
		return nil, issue.NewErrorContext().
			WithOperation("resume provisioning").
			WithSuggestion("Resume from the base stage, or drop --resume-from").
			Wrap(s.notFound(ctx, name)).
			BuildError()
	}

	res, err := s.pipeline.Run(ctx, provision.Request{
		Name:       name,
		Blueprint:  bp,
		Verbose:    opts.Verbose,
		ResumeFrom: opts.ResumeFrom,
	})
	if err == nil {
		return res, nil
	}

	var stageErr *provision.StageError
	if errors.As(err, &stageErr) && !errors.Is(err, context.Canceled) {
		ec := issue.NewErrorContext().
			WithOperation("provision environment").
			WithResource(name).
			WithIssue(issue.StageFailedId).
			WithSuggestion(fmt.Sprintf("Resume after fixing the blueprint: thresh up %s --name %s --resume-from %s", bp.Name, name, stageErr.Stage))
		if id := issue.Classify(stageErr.Err); id != 0 {
			ec = ec.WithIssue(id)
		}
		if container.IsTransientError(stageErr.Err) {
			ec = ec.WithSuggestion("The runtime reported a transient failure; retrying may succeed")
		}
		return res, ec.Wrap(err).BuildError()
	}
	return res, issue.WrapWithContext(err, "provision environment", name)
}

// Destroy removes environment name and its metadata.
func (s *Service) Destroy(ctx context.Context, name string) error {
	if err := ValidateName(name); err != nil {
		return issue.WrapWithContext(err, "destroy environment", name)
	}
	release, err := s.leases.Acquire(ctx, name)
	if err != nil {
		return err
	}
	defer release()

	env, err := s.backend.FindEnvironment(ctx, name)
	if err != nil {
		return issue.WrapWithContext(err, "destroy environment", name)
	}
	if env == nil {
		return issue.NewErrorContext().
			WithOperation("destroy environment").
			WithSuggestion("Run 'thresh list' to see environments").
			Wrap(s.notFound(ctx, name)).
			BuildError()
	}

	s.logger.Info("removing environment", "name", name, "id", env.BackendIdentifier)
	if err := s.backend.Remove(ctx, name); err != nil {
		return issue.WrapWithContext(err, "destroy environment", name)
	}
	if err := s.store.Delete(name); err != nil {
		s.logger.Warn("could not remove metadata", "name", name, "error", err)
	}
	return nil
}

// Start boots a stopped environment.
func (s *Service) Start(ctx context.Context, name string) error {
	return s.lifecycle(ctx, "start environment", name, s.backend.Start)
}

// Stop halts a running environment.
func (s *Service) Stop(ctx context.Context, name string) error {
	return s.lifecycle(ctx, "stop environment", name, s.backend.Stop)
}

func (s *Service) lifecycle(ctx context.Context, op, name string, fn func(context.Context, string) error) error {
	if err := ValidateName(name); err != nil {
		return issue.WrapWithContext(err, op, name)
	}
	env, err := s.backend.FindEnvironment(ctx, name)
	if err != nil {
		return issue.WrapWithContext(err, op, name)
	}
	if env == nil {
		return issue.NewErrorContext().
			WithOperation(op).
			WithSuggestion("Run 'thresh list' to see environments").
			Wrap(s.notFound(ctx, name)).
			BuildError()
	}
	if err := fn(ctx, name); err != nil {
		return issue.WrapWithContext(err, op, name)
	}
	return nil
}

// GetBlueprint loads a blueprint from a file path or the catalog.
func (s *Service) GetBlueprint(nameOrPath string) (*blueprint.Blueprint, error) {
	bp, err := s.catalog.Resolve(nameOrPath)
	if err == nil {
		return bp, nil
	}
	ec := issue.NewErrorContext().
		WithOperation("load blueprint").
		WithResource(nameOrPath)
	if errors.Is(err, blueprint.ErrInvalidBlueprint) {
		ec = ec.WithIssue(issue.BlueprintInvalidId)
	} else {
		ec = ec.WithSuggestion("Run 'thresh blueprints' to list available blueprints")
	}
	return nil, ec.Wrap(err).BuildError()
}

// ListBlueprints returns the catalog, user blueprints overlaying bundled ones.
func (s *Service) ListBlueprints() []blueprint.Entry {
	return s.catalog.Entries()
}

// CheckRequirements checks the active runtime.
func (s *Service) CheckRequirements(ctx context.Context) Requirements {
	info := s.backend.RuntimeInfo(ctx)
	return Requirements{
		RuntimeAvailable:  info.Available,
		RuntimeName:       s.backend.RuntimeName(),
		RuntimeVersion:    info.Version,
		Platform:          s.backend.PlatformName(),
		Details:           info.Details,
		DistributionCount: info.ContainerCount,
	}
}

// Distributions lists the registry sorted by key.
func (s *Service) Distributions() []Distribution {
	keys := s.registry.Keys()
	out := make([]Distribution, 0, len(keys))
	for _, k := range keys {
		info, _ := s.registry.Resolve(k)
		d := Distribution{Key: k, Info: info}
		if info.Source == distro.SourceVendor {
			if _, err := os.Stat(s.cache.Path(k, info)); err == nil {
				d.Cached = true
			}
		}
		out = append(out, d)
	}
	return out
}

// withDefaultBase fills an empty base from the config's default_base.
func (s *Service) withDefaultBase(bp *blueprint.Blueprint) *blueprint.Blueprint {
	if bp.Base != "" || s.cfg.DefaultBase == "" {
		return bp
	}
	clone := *bp
	clone.Base = s.cfg.DefaultBase
	s.logger.Debug("blueprint has no base, using default", "base", clone.Base)
	return &clone
}

func (s *Service) notFound(ctx context.Context, name string) error {
	nf := &issue.NotFoundError{Kind: issue.KindEnvironment, Name: name}
	if envs, err := s.backend.ListEnvironments(ctx, false); err == nil {
		for _, e := range envs {
			nf.Valid = append(nf.Valid, e.Name)
		}
	}
	return nf
}
