//go:build !unix

package ffmpeg

import (
	"os"
	"os/exec"
)

const (
	sigTerm = 0
	sigKill = 1
)

func setProcessGroup(*exec.Cmd) {}

// signalGroup falls back to killing the leader; there is no group to signal.
func signalGroup(cmd *exec.Cmd, _ int) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	if err := cmd.Process.Kill(); err != nil && err != os.ErrProcessDone {
		return err
	}
	return nil
}
