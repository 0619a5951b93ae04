package toolrunner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

// stopGracePeriod is how long Stop waits after SIGTERM before killing.
const stopGracePeriod = 5 * time.Second

// Handle controls a background process started via a Starter. Stop must
// be called on every exit path; it is idempotent.
type Handle interface {
	// Stop terminates the process, waiting briefly for a clean exit
	// before killing it. Calling Stop on an already-exited process is
	// not an error.
	Stop() error

	// Output returns the combined stdout/stderr captured so far.
	Output() []byte

	// Running reports whether the process has not yet exited.
	Running() bool
}

type execHandle struct {
	name string
	cmd  *exec.Cmd

	mu      sync.Mutex
	buf     bytes.Buffer
	stopped bool
	waited  bool
	waitErr error
	done    chan struct{}
}

// Start launches the command in the background and begins capturing its
// combined output. The returned Handle must be stopped by the caller.
func (r *ExecRunner) Start(ctx context.Context, cmd Command) (Handle, error) {
	exe := cmd.executable()
	if exe == "" {
		return nil, ErrNoExecutable
	}

	ec := exec.CommandContext(ctx, exe, cmd.argv()...)
	ec.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		ec.Env = append(os.Environ(), cmd.Env...)
	}
	// Child processes of the tool can inherit the output pipes and hold
	// them open past the tool's own exit; cap how long Wait blocks on them.
	ec.WaitDelay = stopGracePeriod

	h := &execHandle{name: cmd.Name, cmd: ec, done: make(chan struct{})}
	ec.Stdout = &lockedWriter{h: h}
	ec.Stderr = &lockedWriter{h: h}

	if err := ec.Start(); err != nil {
		return nil, fmt.Errorf("toolrunner: failed to start %s: %w", cmd.Name, err)
	}
	r.logger.Debug("started background tool", "name", cmd.Name, "pid", ec.Process.Pid)

	go func() {
		err := ec.Wait()
		h.mu.Lock()
		h.waited = true
		h.waitErr = err
		h.mu.Unlock()
		close(h.done)
	}()

	return h, nil
}

func (h *execHandle) Stop() error {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return nil
	}
	h.stopped = true
	exited := h.waited
	h.mu.Unlock()

	if exited {
		return nil
	}

	// Ask nicely first; the dev server flushes its shutdown output on
	// SIGTERM.
	if err := h.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		// Process may have exited between the check and the signal.
		if errors.Is(err, os.ErrProcessDone) {
			return nil
		}
		return fmt.Errorf("toolrunner: failed to signal %s: %w", h.name, err)
	}

	select {
	case <-h.done:
		return nil
	case <-time.After(stopGracePeriod):
		if err := h.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			return fmt.Errorf("toolrunner: failed to kill %s: %w", h.name, err)
		}
		<-h.done
		return nil
	}
}

func (h *execHandle) Output() []byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]byte, h.buf.Len())
	copy(out, h.buf.Bytes())
	return out
}

func (h *execHandle) Running() bool {
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}

// lockedWriter serializes writes from the process's stdout and stderr
// pipes into the shared capture buffer.
type lockedWriter struct {
	h *execHandle
}

func (w *lockedWriter) Write(p []byte) (int, error) {
	w.h.mu.Lock()
	defer w.h.mu.Unlock()
	return w.h.buf.Write(p)
}
