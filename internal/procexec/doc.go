// SPDX-License-Identifier: MPL-2.0

// Package procexec runs external commands for the provisioning engine.
//
// Every call to wsl, nerdctl, docker, ctr or a shell inside an environment goes
// through an Executor. Commands run with a timeout, their output is captured
// line by line, and a timed out command has its whole process tree killed.
// Failures never panic or escape as spawn errors: they come back as a Result
// with Success set to false.
package procexec
