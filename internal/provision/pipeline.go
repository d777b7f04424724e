// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/thresh/thresh/internal/blueprint"
	"github.com/thresh/thresh/internal/container"
	"github.com/thresh/thresh/internal/distro"
	"github.com/thresh/thresh/internal/logging"
	"github.com/thresh/thresh/internal/metadata"
)

const (
	StageBase        StageID = "base"
	StagePackages    StageID = "packages"
	StageSetup       StageID = "setup"
	StageEnvironment StageID = "environment"
	StagePostInstall StageID = "postInstall"

	StatusSucceeded StageStatus = "succeeded"
	StatusSkipped   StageStatus = "skipped"
	StatusFailed    StageStatus = "failed"
)

// ErrUnknownStage is returned for a ResumeFrom value that names no stage.
var ErrUnknownStage = errors.New("unknown stage")

type (
	// StageID names a pipeline stage.
	StageID string

	// StageStatus is the outcome of one stage.
	StageStatus string

	// RootfsCache provides local rootfs archives.
	RootfsCache interface {
		Ensure(ctx context.Context, key string, info distro.Info) (string, error)
	}

	// MetadataStore records successful provisions.
	MetadataStore interface {
		Save(m metadata.EnvironmentMetadata) error
	}

	// Clock supplies the creation timestamp.
	Clock interface {
		Now() time.Time
	}

	// Request describes one provisioning run.
	Request struct {
		// Name is the environment name, without the backend prefix.
		Name      string
		Blueprint *blueprint.Blueprint
		// Verbose streams command output to the logger.
		Verbose bool
		// ResumeFrom skips every stage before it. Empty runs all stages.
		ResumeFrom StageID
	}

	// StageResult is what happened in one stage.
	StageResult struct {
		Stage    StageID       `json:"stage"`
		Status   StageStatus   `json:"status"`
		Err      error         `json:"-"`
		Duration time.Duration `json:"duration"`
	}

	// Result is the outcome of a run. On failure it holds the stages that
	// ran up to and including the failed one.
	Result struct {
		Name         string        `json:"name"`
		Blueprint    string        `json:"blueprint"`
		Distribution distro.Info   `json:"distribution"`
		Stages       []StageResult `json:"stages"`
		CreatedAt    time.Time     `json:"createdAt"`
		Duration     time.Duration `json:"duration"`
	}

	// StageError reports the stage that stopped a run.
	StageError struct {
		Stage StageID
		Err   error
	}

	// Pipeline runs the provisioning stages against a backend.
	Pipeline struct {
		backend    container.Backend
		registry   *distro.Registry
		cache      RootfsCache
		store      MetadataStore
		logger     *log.Logger
		clock      Clock
		installDir string
		tempDir    string
	}

	// Option configures a Pipeline.
	Option func(*Pipeline)

	systemClock struct{}
)

// Stages lists every stage in execution order.
var Stages = []StageID{StageBase, StagePackages, StageSetup, StageEnvironment, StagePostInstall}

// Error implements the error interface.
func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s failed: %v", e.Stage, e.Err)
}

// Unwrap returns the stage's cause.
func (e *StageError) Unwrap() error { return e.Err }

// String returns the string representation of the StageID.
func (s StageID) String() string { return string(s) }

// Index returns the 1-based position of s, or 0 for unknown stages.
func (s StageID) Index() int {
	for i, id := range Stages {
		if id == s {
			return i + 1
		}
	}
	return 0
}

// ParseStageID maps a user supplied stage name to a StageID.
func ParseStageID(s string) (StageID, error) {
	for _, id := range Stages {
		if string(id) == s {
			return id, nil
		}
	}
	return "", fmt.Errorf("%w %q (valid: base, packages, setup, environment, postInstall)", ErrUnknownStage, s)
}

// Succeeded reports whether no stage failed.
func (r *Result) Succeeded() bool { return r.Failed() == nil }

// Failed returns the failed stage, or nil.
func (r *Result) Failed() *StageResult {
	for i := range r.Stages {
		if r.Stages[i].Status == StatusFailed {
			return &r.Stages[i]
		}
	}
	return nil
}

func (systemClock) Now() time.Time { return time.Now() }

// WithLogger sets the progress logger.
func WithLogger(l *log.Logger) Option {
	return func(p *Pipeline) {
		p.logger = l
	}
}

// WithClock replaces the wall clock used for CreatedAt.
func WithClock(c Clock) Option {
	return func(p *Pipeline) {
		p.clock = c
	}
}

// WithInstallDir sets where runtimes that keep per-environment disks store
// them. Each environment gets <dir>/<name>.
func WithInstallDir(dir string) Option {
	return func(p *Pipeline) {
		p.installDir = dir
	}
}

// WithTempDir sets where store-installed distributions are exported.
func WithTempDir(dir string) Option {
	return func(p *Pipeline) {
		p.tempDir = dir
	}
}

// New creates a pipeline.
func New(backend container.Backend, registry *distro.Registry, cache RootfsCache, store MetadataStore, opts ...Option) *Pipeline {
	p := &Pipeline{
		backend:  backend,
		registry: registry,
		cache:    cache,
		store:    store,
		clock:    systemClock{},
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = logging.OrDiscard(p.logger)
	return p
}

// Run executes the stages for req. The base distribution is resolved before
// any external command runs, so an unknown base fails without side effects.
// On a stage failure Run returns the partial Result and a *StageError.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	if req.Blueprint == nil {
		return nil, errors.New("no blueprint given")
	}
	startIdx := 1
	if req.ResumeFrom != "" {
		if startIdx = req.ResumeFrom.Index(); startIdx == 0 {
			return nil, fmt.Errorf("%w %q", ErrUnknownStage, req.ResumeFrom)
		}
	}

	key := distro.Normalize(req.Blueprint.Base)
	info, ok := p.registry.Resolve(key)
	if !ok {
		return nil, p.registry.NotFound(req.Blueprint.Base)
	}

	r := &run{
		p:      p,
		req:    req,
		key:    key,
		info:   info,
		logger: p.logger.With("env", req.Name),
	}
	res := &Result{
		Name:         req.Name,
		Blueprint:    req.Blueprint.Name,
		Distribution: info,
	}

	started := time.Now()
	r.logger.Info("provisioning environment", "blueprint", req.Blueprint.Name, "base", info.FullName())

	for i, stage := range r.stages() {
		n := i + 1
		if n < startIdx {
			res.Stages = append(res.Stages, StageResult{Stage: stage.id, Status: StatusSkipped})
			r.logger.Infof("[%d/%d] %s [SKIP: resuming from %s]", n, len(Stages), stage.title, req.ResumeFrom)
			continue
		}
		if err := ctx.Err(); err != nil {
			res.Duration = time.Since(started)
			return res, &StageError{Stage: stage.id, Err: err}
		}

		if reason := stage.skip(); reason != "" {
			res.Stages = append(res.Stages, StageResult{Stage: stage.id, Status: StatusSkipped})
			r.logger.Infof("[%d/%d] %s [SKIP]", n, len(Stages), reason)
			continue
		}

		r.logger.Infof("[%d/%d] %s", n, len(Stages), stage.title)
		stageStart := time.Now()
		err := stage.run(ctx)
		sr := StageResult{Stage: stage.id, Status: StatusSucceeded, Err: err, Duration: time.Since(stageStart)}
		if err != nil {
			sr.Status = StatusFailed
			res.Stages = append(res.Stages, sr)
			res.Duration = time.Since(started)
			r.logger.Error(fmt.Sprintf("[%d/%d] %s failed", n, len(Stages), stage.id), "error", err)
			return res, &StageError{Stage: stage.id, Err: err}
		}
		r.logger.Debug(fmt.Sprintf("[%d/%d] done", n, len(Stages)), "elapsed", sr.Duration.Round(time.Millisecond))
		res.Stages = append(res.Stages, sr)
	}

	res.CreatedAt = p.clock.Now().UTC()
	res.Duration = time.Since(started)
	if err := p.store.Save(metadata.EnvironmentMetadata{
		EnvironmentName:    req.Name,
		BlueprintName:      req.Blueprint.Name,
		CreatedAt:          res.CreatedAt,
		Base:               req.Blueprint.Base,
		Description:        req.Blueprint.Description,
		DistributionSource: info.Source.String(),
	}); err != nil {
		return res, fmt.Errorf("save metadata for %s: %w", req.Name, err)
	}
	r.logger.Info("environment provisioned", "name", req.Name, "elapsed", res.Duration.Round(time.Millisecond))
	return res, nil
}

// installPath returns the per-environment install directory.
func (p *Pipeline) installPath(name string) string {
	if p.installDir == "" {
		return name
	}
	return filepath.Join(p.installDir, name)
}
