// SPDX-License-Identifier: MPL-2.0

// Package engine is the front-end facade over the provisioning engine. It
// wires the runtime backend, distribution registry, rootfs cache, blueprint
// catalog and metadata store from a config.Config and exposes the operations
// the CLI needs, with errors wrapped for display.
package engine
