// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable error handling with user-friendly messages.
//
// It defines the error taxonomy shared by the provisioning engine (not found,
// already exists, external tool failure, transport failure, unsupported
// operation), the ActionableError wrapper used at the CLI boundary, and a
// catalog of Markdown guidance rendered with glamour.
package issue
