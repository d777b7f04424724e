// SPDX-License-Identifier: MPL-2.0

// Command thresh provisions disposable development environments from
// blueprints.
package main

import "github.com/thresh/thresh/cmd/thresh"

func main() {
	cmd.Execute()
}
