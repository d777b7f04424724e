// SPDX-License-Identifier: MPL-2.0

package blueprint

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// ErrInvalidBlueprint is the sentinel error wrapped by InvalidBlueprintError.
var ErrInvalidBlueprint = errors.New("invalid blueprint")

type (
	// Blueprint is a declarative environment template.
	Blueprint struct {
		Name        string `json:"name"`
		Description string `json:"description,omitempty"`
		// Base is a distribution key, matched case-insensitively.
		Base string `json:"base"`
		// Packages keep their order; duplicates are passed through.
		Packages    []string          `json:"packages,omitempty"`
		Scripts     Scripts           `json:"scripts,omitzero"`
		Environment map[string]string `json:"environment,omitempty"`
	}

	// Scripts are bash scripts run after package installation.
	Scripts struct {
		Setup       string `json:"setup,omitempty"`
		PostInstall string `json:"postInstall,omitempty"`
	}

	// InvalidBlueprintError lists every problem found in a blueprint.
	InvalidBlueprintError struct {
		// Source is the file path or blueprint name.
		Source string
		Errs   []error
	}
)

// Error implements the error interface.
func (e *InvalidBlueprintError) Error() string {
	msgs := make([]string, len(e.Errs))
	for i, err := range e.Errs {
		msgs[i] = err.Error()
	}
	src := e.Source
	if src == "" {
		src = "blueprint"
	}
	return fmt.Sprintf("invalid blueprint %s: %s", src, strings.Join(msgs, "; "))
}

// Unwrap exposes the sentinel and every individual problem.
func (e *InvalidBlueprintError) Unwrap() []error {
	return append([]error{ErrInvalidBlueprint}, e.Errs...)
}

// HasPackages reports whether any package is listed.
func (b *Blueprint) HasPackages() bool { return len(b.Packages) > 0 }

// EnvironmentKeys returns the environment variable names, sorted.
func (b *Blueprint) EnvironmentKeys() []string {
	keys := make([]string, 0, len(b.Environment))
	for k := range b.Environment {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// IsValid checks the fields the provisioning pipeline depends on: name is
// required, package names cannot look like options, environment keys must
// be shell variable names and scripts must parse as bash. An empty base is
// allowed here; the engine fills it from the configured default_base.
func (b *Blueprint) IsValid() (bool, []error) {
	var errs []error
	if strings.TrimSpace(b.Name) == "" {
		errs = append(errs, errors.New("name is required"))
	}
	for i, p := range b.Packages {
		switch {
		case strings.TrimSpace(p) == "":
			errs = append(errs, fmt.Errorf("packages[%d] is empty", i))
		case strings.HasPrefix(p, "-"):
			errs = append(errs, fmt.Errorf("packages[%d] %q looks like a command-line option", i, p))
		}
	}
	for _, k := range b.EnvironmentKeys() {
		if !syntax.ValidName(k) {
			errs = append(errs, fmt.Errorf("environment key %q is not a valid shell variable name", k))
		}
	}
	for _, s := range []struct{ name, body string }{
		{"scripts.setup", b.Scripts.Setup},
		{"scripts.postInstall", b.Scripts.PostInstall},
	} {
		if err := checkScript(s.name, s.body); err != nil {
			errs = append(errs, err)
		}
	}
	return len(errs) == 0, errs
}

// Validate is IsValid as a single error.
func (b *Blueprint) Validate() error {
	if ok, errs := b.IsValid(); !ok {
		return &InvalidBlueprintError{Source: b.Name, Errs: errs}
	}
	return nil
}

func checkScript(name, body string) error {
	if strings.TrimSpace(body) == "" {
		return nil
	}
	parser := syntax.NewParser(syntax.Variant(syntax.LangBash))
	if _, err := parser.Parse(strings.NewReader(body), name); err != nil {
		return fmt.Errorf("%s does not parse: %w", name, err)
	}
	return nil
}
