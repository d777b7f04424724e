// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/thresh/thresh/internal/blueprint"
	"github.com/thresh/thresh/internal/config"
	"github.com/thresh/thresh/internal/platform"
)

// MaxNameLength bounds environment names.
const MaxNameLength = 64

// ErrInvalidName is wrapped by InvalidNameError.
var ErrInvalidName = errors.New("invalid environment name")

// InvalidNameError is returned when an environment name cannot be used as a
// backend identifier or install directory.
type InvalidNameError struct {
	Name   string
	Reason string
}

// Error implements the error interface.
func (e *InvalidNameError) Error() string {
	return fmt.Sprintf("invalid environment name %q: %s", e.Name, e.Reason)
}

// Unwrap returns ErrInvalidName for errors.Is() compatibility.
func (e *InvalidNameError) Unwrap() error { return ErrInvalidName }

// ValidateName checks that name starts with a letter or digit, contains only
// letters, digits, '.', '_' and '-', and is not a reserved Windows device name.
func ValidateName(name string) error {
	switch {
	case name == "":
		return &InvalidNameError{Name: name, Reason: "must not be empty"}
	case len(name) > MaxNameLength:
		return &InvalidNameError{Name: name, Reason: fmt.Sprintf("must be at most %d characters", MaxNameLength)}
	case !isAlnum(rune(name[0])):
		return &InvalidNameError{Name: name, Reason: "must start with a letter or digit"}
	case platform.IsWindowsReservedName(name):
		return &InvalidNameError{Name: name, Reason: "is a reserved device name on Windows"}
	}
	for _, r := range name {
		if !isAlnum(r) && r != '.' && r != '_' && r != '-' {
			return &InvalidNameError{Name: name, Reason: fmt.Sprintf("contains %q", r)}
		}
	}
	return nil
}

// DefaultName derives an environment name from a blueprint argument: the
// file name without its blueprint extension, or the catalog name itself.
func DefaultName(nameOrPath string) string {
	base := filepath.Base(nameOrPath)
	for _, ext := range blueprint.Extensions {
		if strings.HasSuffix(strings.ToLower(base), ext) {
			return base[:len(base)-len(ext)]
		}
	}
	return base
}

// ResolveRuntime applies runtime-selection precedence:
//  1. explicit override (e.g. a --runtime flag)
//  2. the config file's runtime key
//  3. auto detection
func ResolveRuntime(override config.RuntimeKind, cfg *config.Config) (config.RuntimeKind, error) {
	if override != "" {
		kind := config.RuntimeKind(strings.ToLower(string(override)))
		if ok, errs := kind.IsValid(); !ok {
			return "", errs[0]
		}
		return kind, nil
	}
	if cfg != nil && cfg.Runtime != "" {
		if ok, errs := cfg.Runtime.IsValid(); !ok {
			return "", fmt.Errorf("invalid runtime in config: %w", errs[0])
		}
		return cfg.Runtime, nil
	}
	return config.RuntimeAuto, nil
}

func isAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}
