// SPDX-License-Identifier: MPL-2.0

//go:build windows

package procexec

import (
	"os/exec"
	"strconv"
)

// killProcessTreeOnCancel kills the command and its descendants with
// taskkill when the command's context ends.
func killProcessTreeOnCancel(cmd *exec.Cmd) {
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		kill := exec.Command("taskkill", "/T", "/F", "/PID", strconv.Itoa(cmd.Process.Pid)) //nolint:noctx // must outlive the canceled context
		if err := kill.Run(); err != nil {
			return cmd.Process.Kill()
		}
		return nil
	}
}
