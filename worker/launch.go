package worker

import (
	"context"
	"fmt"
	"os"
	"os/exec"
)

// Launcher starts one worker instance and returns once it has been
// started (not once it finishes). The THREADED_EXECUTION toggle selects
// between the two implementations below — everything downstream of launch
// (the Worker type itself) is identical either way.
type Launcher interface {
	Launch(ctx context.Context) error
}

// ThreadLauncher runs the worker in-process as a goroutine. Cheaper to
// start and easier to debug; workers share a single address space and a
// panic in one strategy can take down the others.
type ThreadLauncher struct {
	Run func(ctx context.Context)
}

// Launch starts the worker's run loop on a new goroutine.
func (l ThreadLauncher) Launch(ctx context.Context) error {
	if l.Run == nil {
		return fmt.Errorf("worker: ThreadLauncher has no Run function")
	}
	go l.Run(ctx)
	return nil
}

// ProcessLauncher execs a separate worker binary as a subprocess,
// isolating each worker's memory and crash domain at the cost of process
// startup overhead.
type ProcessLauncher struct {
	BinaryPath string
	Args       []string
	Env        []string
}

// Launch starts the worker subprocess, inheriting the current process's
// stdout/stderr for log visibility.
func (l ProcessLauncher) Launch(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, l.BinaryPath, l.Args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = append(os.Environ(), l.Env...)
	return cmd.Start()
}

// SelectLauncher returns a ProcessLauncher or ThreadLauncher depending on
// threaded, the resolved value of the THREADED_EXECUTION env var.
func SelectLauncher(threaded bool, binaryPath string, args, env []string, run func(ctx context.Context)) Launcher {
	if threaded {
		return ThreadLauncher{Run: run}
	}
	return ProcessLauncher{BinaryPath: binaryPath, Args: args, Env: env}
}
