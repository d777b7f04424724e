// SPDX-License-Identifier: MPL-2.0

//go:build !windows

package procexec

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// killProcessTreeOnCancel starts the command in its own process group and
// kills the whole group when the command's context ends.
func killProcessTreeOnCancel(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		if err := unix.Kill(-cmd.Process.Pid, unix.SIGKILL); err != nil {
			return cmd.Process.Kill()
		}
		return nil
	}
}
