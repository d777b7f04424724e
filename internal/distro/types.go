// SPDX-License-Identifier: MPL-2.0

package distro

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// SourceVendor distributions are downloaded as a rootfs archive.
	SourceVendor Source = "vendor"
	// SourceManagedStore distributions are installed through the host's
	// distribution store (wsl --install) and re-exported.
	SourceManagedStore Source = "managed-store"

	PackageManagerApt    PackageManager = "apt"
	PackageManagerApk    PackageManager = "apk"
	PackageManagerDnf    PackageManager = "dnf"
	PackageManagerYum    PackageManager = "yum"
	PackageManagerPacman PackageManager = "pacman"
	PackageManagerZypper PackageManager = "zypper"
)

// ErrInvalidDistribution is the sentinel error wrapped by InvalidDistributionError.
var ErrInvalidDistribution = errors.New("invalid distribution")

type (
	// Source says how a distribution's root filesystem is obtained.
	Source string

	// PackageManager names the package manager a distribution ships.
	PackageManager string

	// Commands is the update/install pair for a package manager.
	Commands struct {
		// Binary is the executable whose presence identifies the manager.
		Binary  string
		Update  string
		Install string
	}

	// Info is a registry entry.
	Info struct {
		// Name is the distribution family (e.g., "ubuntu").
		Name string `json:"name"`
		// Version is the release (e.g., "22.04").
		Version string `json:"version"`
		// RootfsURL is empty for ManagedStore distributions.
		RootfsURL string `json:"rootfsUrl,omitempty"`
		// PackageManager determines the update/install command pair.
		PackageManager PackageManager `json:"packageManager"`
		// Source is vendor or managed-store.
		Source Source `json:"source"`
		// StoreInstallName is the store identifier, required for ManagedStore.
		StoreInstallName string `json:"storeInstallName,omitempty"`
		// Description is shown in listings.
		Description string `json:"description,omitempty"`
		// Custom marks user-registered entries.
		Custom bool `json:"custom,omitempty"`
	}

	// InvalidDistributionError is returned when an Info fails validation.
	InvalidDistributionError struct {
		Key    string
		Reason string
	}
)

// packageManagerCommands holds the update/install pair for each manager.
var packageManagerCommands = map[PackageManager]Commands{
	PackageManagerApt:    {Binary: "apt-get", Update: "apt-get update -qq", Install: "apt-get install -y -qq"},
	PackageManagerApk:    {Binary: "apk", Update: "apk update -q", Install: "apk add --no-cache"},
	PackageManagerDnf:    {Binary: "dnf", Update: "dnf check-update -q || true", Install: "dnf install -y -q"},
	PackageManagerYum:    {Binary: "yum", Update: "yum check-update -q || true", Install: "yum install -y -q"},
	PackageManagerPacman: {Binary: "pacman", Update: "pacman -Sy --noconfirm", Install: "pacman -S --noconfirm"},
	PackageManagerZypper: {Binary: "zypper", Update: "zypper refresh -q", Install: "zypper install -y"},
}

// DetectionOrder is the order in which package managers are looked for inside
// an environment whose manager is not known up front.
var DetectionOrder = []PackageManager{
	PackageManagerApt,
	PackageManagerApk,
	PackageManagerDnf,
	PackageManagerYum,
	PackageManagerPacman,
	PackageManagerZypper,
}

// ParsePackageManager maps a user supplied name to a PackageManager.
// Unrecognized names map to apt.
func ParsePackageManager(s string) PackageManager {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "apk":
		return PackageManagerApk
	case "dnf":
		return PackageManagerDnf
	case "yum":
		return PackageManagerYum
	case "pacman":
		return PackageManagerPacman
	case "zypper":
		return PackageManagerZypper
	default:
		return PackageManagerApt
	}
}

// Commands returns the update/install pair, falling back to apt.
func (p PackageManager) Commands() Commands {
	if c, ok := packageManagerCommands[p]; ok {
		return c
	}
	return packageManagerCommands[PackageManagerApt]
}

// String returns the string representation of the PackageManager.
func (p PackageManager) String() string { return string(p) }

// String returns the string representation of the Source.
func (s Source) String() string { return string(s) }

// FullName returns "<name>-<version>".
func (i Info) FullName() string {
	return i.Name + "-" + i.Version
}

// Validate checks the fields the pipeline depends on.
func (i Info) Validate(key string) error {
	switch i.Source {
	case SourceVendor:
		if strings.TrimSpace(i.RootfsURL) == "" {
			return &InvalidDistributionError{Key: key, Reason: "vendor distributions need a rootfs URL"}
		}
	case SourceManagedStore:
		if strings.TrimSpace(i.StoreInstallName) == "" {
			return &InvalidDistributionError{Key: key, Reason: "store distributions need a store install name"}
		}
	default:
		return &InvalidDistributionError{Key: key, Reason: fmt.Sprintf("unknown source %q", i.Source)}
	}
	if _, ok := packageManagerCommands[i.PackageManager]; !ok {
		return &InvalidDistributionError{Key: key, Reason: fmt.Sprintf("unknown package manager %q", i.PackageManager)}
	}
	return nil
}

// Error implements the error interface.
func (e *InvalidDistributionError) Error() string {
	return fmt.Sprintf("invalid distribution %q: %s", e.Key, e.Reason)
}

// Unwrap returns ErrInvalidDistribution for errors.Is() compatibility.
func (e *InvalidDistributionError) Unwrap() error { return ErrInvalidDistribution }
