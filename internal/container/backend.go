// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/thresh/thresh/internal/procexec"
)

const (
	// IdentifierPrefix is prepended to environment names to form the
	// runtime-facing identifier.
	IdentifierPrefix = "thresh-"

	// BlueprintSystem is reported for environments thresh did not create.
	BlueprintSystem = "system"
	// BlueprintUnknown is reported when no metadata names the blueprint.
	BlueprintUnknown = "unknown"

	// ImportTimeout bounds archive imports.
	ImportTimeout = 300 * time.Second
	// ExecTimeout bounds commands run inside an environment.
	ExecTimeout = 300 * time.Second
	// StoreInstallTimeout bounds store installs.
	StoreInstallTimeout = 600 * time.Second
	// ExportTimeout bounds exports of store-installed distributions.
	ExportTimeout = 300 * time.Second
	// UnregisterTimeout bounds removal of temporary store distributions.
	UnregisterTimeout = 60 * time.Second

	StatusRunning    Status = "Running"
	StatusStopped    Status = "Stopped"
	StatusInstalling Status = "Installing"
	StatusTerminated Status = "Terminated"
	StatusUnknown    Status = "Unknown"
)

// ErrNoRuntime is returned by lifecycle operations when no runtime tool was
// detected.
var ErrNoRuntime = errors.New("no container runtime available")

type (
	// Status is the runtime-reported state of an environment.
	Status string

	// Environment is a runtime-observed environment. It is a snapshot, not
	// authoritative state.
	Environment struct {
		Name              string `json:"name"`
		BackendIdentifier string `json:"backendIdentifier"`
		Status            Status `json:"status"`
		BlueprintName     string `json:"blueprintName"`
		Version           string `json:"version"`
	}

	// RuntimeInfo describes the active runtime.
	RuntimeInfo struct {
		Available      bool   `json:"available"`
		Runtime        string `json:"runtime"`
		Platform       string `json:"platform"`
		Version        string `json:"version,omitempty"`
		Details        string `json:"details,omitempty"`
		ContainerCount int    `json:"containerCount"`
		// Raw is the unparsed version output, kept for diagnostics.
		Raw string `json:"-"`
	}

	// BlueprintNameLookup recovers the blueprint an environment was built
	// from. It returns "" when unknown.
	BlueprintNameLookup func(name string) string

	// Backend is the capability set shared by every runtime. Lifecycle
	// operations return nil on success.
	Backend interface {
		RuntimeName() string
		PlatformName() string
		IsAvailable(ctx context.Context) bool
		RuntimeInfo(ctx context.Context) RuntimeInfo
		ListEnvironments(ctx context.Context, includeAll bool) ([]Environment, error)
		// FindEnvironment returns nil, nil when the environment is absent.
		FindEnvironment(ctx context.Context, name string) (*Environment, error)
		Start(ctx context.Context, name string) error
		Stop(ctx context.Context, name string) error
		Remove(ctx context.Context, name string) error
		ImportEnvironment(ctx context.Context, name, source, installPath string) error
		ExecuteCommand(ctx context.Context, name, shellCommand string) procexec.Result
		// StreamCommand is ExecuteCommand with onLine called per output line.
		StreamCommand(ctx context.Context, name, shellCommand string, onLine func(string)) procexec.Result
		EnvironmentExists(ctx context.Context, name string) bool
	}

	// StoreInstaller is implemented by backends that can install
	// distributions from the host's distribution store.
	StoreInstaller interface {
		InstallFromStore(ctx context.Context, storeName string) error
		Export(ctx context.Context, distributionName, archivePath string) error
		Unregister(ctx context.Context, distributionName string) error
	}

	// Option configures a backend.
	Option func(*options)

	options struct {
		executor procexec.Executor
		logger   *log.Logger
		lookup   BlueprintNameLookup
		detector Detector
	}
)

// WithExecutor sets the executor used for every external command.
func WithExecutor(x procexec.Executor) Option {
	return func(o *options) {
		o.executor = x
	}
}

// WithLogger sets the logger used for degraded-path diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithBlueprintLookup sets how blueprint names are recovered for listings.
func WithBlueprintLookup(fn BlueprintNameLookup) Option {
	return func(o *options) {
		o.lookup = fn
	}
}

// WithDetector replaces the containerd tool detector.
func WithDetector(d Detector) Option {
	return func(o *options) {
		o.detector = d
	}
}

// BackendIdentifier returns the runtime-facing identifier for name.
func BackendIdentifier(name string) string {
	return IdentifierPrefix + name
}

// NameFromIdentifier strips the thresh prefix. ok is false for identifiers
// thresh did not create, in which case name is the identifier unchanged.
func NameFromIdentifier(id string) (name string, ok bool) {
	if strings.HasPrefix(id, IdentifierPrefix) {
		return strings.TrimPrefix(id, IdentifierPrefix), true
	}
	return id, false
}

// ParseStatus maps a runtime state string to a Status, case-insensitively.
func ParseStatus(s string) Status {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "running":
		return StatusRunning
	case "stopped":
		return StatusStopped
	case "installing":
		return StatusInstalling
	case "terminated":
		return StatusTerminated
	default:
		return StatusUnknown
	}
}

// String returns the string representation of the Status.
func (s Status) String() string { return string(s) }

// Equal reports whether e and other name the same environment.
func (e Environment) Equal(other Environment) bool {
	return e.Name == other.Name && e.BackendIdentifier == other.BackendIdentifier
}

// newEnvironment builds the listing entry for a runtime identifier.
func newEnvironment(id string, status Status, version string, lookup BlueprintNameLookup) Environment {
	name, managed := NameFromIdentifier(id)
	env := Environment{
		Name:              name,
		BackendIdentifier: id,
		Status:            status,
		BlueprintName:     BlueprintSystem,
		Version:           version,
	}
	if managed {
		env.BlueprintName = BlueprintUnknown
		if lookup != nil {
			if bp := lookup(name); bp != "" {
				env.BlueprintName = bp
			}
		}
	}
	return env
}

// findIn returns the managed environment called name, or nil.
func findIn(envs []Environment, name string) *Environment {
	for i := range envs {
		if envs[i].Name == name && strings.HasPrefix(envs[i].BackendIdentifier, IdentifierPrefix) {
			return &envs[i]
		}
	}
	return nil
}

// resultErr turns a failed Result into an error.
func resultErr(res procexec.Result) error {
	if res.Success {
		return nil
	}
	if res.Err != nil {
		return res.Err
	}
	return errors.New("command failed")
}
