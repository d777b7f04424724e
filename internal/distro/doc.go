// SPDX-License-Identifier: MPL-2.0

// Package distro is the catalog of base distributions an environment can be
// built from. It maps a case-insensitive key such as "ubuntu-22.04" to where
// the root filesystem comes from and which package manager it ships.
package distro
