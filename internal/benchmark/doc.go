// SPDX-License-Identifier: MPL-2.0

// Package benchmark holds benchmarks for the hot paths used to build PGO
// profiles:
//   - blueprint parsing and schema validation in every supported format
//   - runtime listing parsers for WSL, nerdctl/docker and ctr output
//   - provisioning command generation
//   - distribution registry construction and lookup
//
// To generate a profile, run:
//
//	go test -run '^$' -bench . -cpuprofile default.pgo ./internal/benchmark
package benchmark
