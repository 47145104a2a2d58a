//go:build !unix

package vcs

import "os/exec"

// killGroup leaves cmd alone; WaitDelay still bounds the wait.
func killGroup(cmd *exec.Cmd) {}
