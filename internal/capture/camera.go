package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/dmitrijs2005/camvault/internal/common"
)

// Camera acquires one frame into dest. On error dest may hold partial
// output; the caller removes it.
type Camera interface {
	Capture(ctx context.Context, dest string) error
}

// CommandCamera runs an external still-capture program such as rpicam-jpeg.
// The output path is passed as "--output <dest>" after Args.
type CommandCamera struct {
	Command string
	Args    []string
	Timeout time.Duration
}

// DefaultCameraArgs are the rpicam-jpeg arguments for a 854x480 still with
// no preview window.
var DefaultCameraArgs = []string{"-t", "1", "--width", "854", "--height", "480", "--nopreview"}

func (c *CommandCamera) Capture(ctx context.Context, dest string) error {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	args := make([]string, 0, len(c.Args)+2)
	args = append(args, c.Args...)
	args = append(args, "--output", dest)

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.Command, args...)
	cmd.Stderr = &stderr
	// a killed camera may leave children holding stderr open
	cmd.WaitDelay = time.Second

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w: %s timed out after %s", common.ErrDevice, c.Command, c.Timeout)
		}
		if msg != "" {
			return fmt.Errorf("%w: %s: %v: %s", common.ErrDevice, c.Command, err, msg)
		}
		return fmt.Errorf("%w: %s: %v", common.ErrDevice, c.Command, err)
	}

	fi, err := os.Stat(dest)
	if err != nil {
		return fmt.Errorf("%w: %s produced no output: %v", common.ErrDevice, c.Command, err)
	}
	if fi.Size() == 0 {
		return fmt.Errorf("%w: %s produced an empty frame", common.ErrDevice, c.Command)
	}

	return nil
}
