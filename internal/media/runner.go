// Package media wraps the external ffmpeg engine: watermark encoding,
// thumbnail extraction, the worker pool that bounds engine load and the
// scratch workspace every job writes into.
package media

import (
	"context"
	"os/exec"
	"time"
)

// Runner executes the transcoding engine with the given arguments and
// returns its combined output.
type Runner interface {
	Run(ctx context.Context, args ...string) ([]byte, error)
}

// execRunner runs a local ffmpeg binary
type execRunner struct {
	binary string
}

// NewExecRunner creates a runner for the ffmpeg binary at path
func NewExecRunner(binary string) *execRunner {
	if binary == "" {
		binary = "ffmpeg"
	}
	return &execRunner{binary: binary}
}

// Run starts the process and waits for it. The process is killed when ctx is done.
func (r *execRunner) Run(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, r.binary, append([]string{"-hide_banner", "-nostdin"}, args...)...)
	cmd.WaitDelay = 5 * time.Second
	out, err := cmd.CombinedOutput()
	if err != nil && ctx.Err() != nil {
		return out, ctx.Err()
	}
	return out, err
}

// outputTail keeps the last part of the engine output for error messages
func outputTail(out []byte) string {
	const max = 512
	if len(out) > max {
		out = out[len(out)-max:]
	}
	return string(out)
}
