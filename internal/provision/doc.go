// SPDX-License-Identifier: MPL-2.0

// Package provision turns a blueprint into a running, configured environment.
//
// A Pipeline runs five stages strictly in order: install the base
// distribution, install packages, run the setup script, write environment
// variables to /etc/profile and run the post-install script. Empty stages are
// skipped. The first failing stage stops the run; stages that already
// completed are left in place and reported in the partial Result:
//
//	p := provision.New(backend, registry, cache, store)
//	res, err := p.Run(ctx, provision.Request{Name: "demo", Blueprint: bp})
//	// on failure, res.Stages shows which stages ran and err is a *StageError
//
// Leases serialize provisioning and destruction of the same environment name
// inside the process and across processes.
package provision
