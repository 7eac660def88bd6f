package capture

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/camvault/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// shellCamera runs script with "--output <dest>" as $1 and $2.
func shellCamera(t *testing.T, script string, timeout time.Duration) *CommandCamera {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	return &CommandCamera{Command: "sh", Args: []string{"-c", script, "camera"}, Timeout: timeout}
}

func TestCommandCamera_WritesOutput(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "frame.jpg")
	cam := shellCamera(t, `printf jpegdata > "$2"`, 5*time.Second)

	require.NoError(t, cam.Capture(context.Background(), dest))
	b, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "jpegdata", string(b))
}

func TestCommandCamera_NonZeroExit(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "frame.jpg")
	cam := shellCamera(t, `echo "no cameras available" >&2; exit 3`, 5*time.Second)

	err := cam.Capture(context.Background(), dest)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrDevice)
	assert.Contains(t, err.Error(), "exit status 3")
	assert.Contains(t, err.Error(), "no cameras available")
}

func TestCommandCamera_EmptyOutput(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "frame.jpg")
	cam := shellCamera(t, `: > "$2"`, 5*time.Second)

	err := cam.Capture(context.Background(), dest)
	assert.ErrorIs(t, err, common.ErrDevice)
	assert.Contains(t, err.Error(), "empty")
}

func TestCommandCamera_MissingOutput(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "frame.jpg")
	cam := shellCamera(t, `exit 0`, 5*time.Second)

	err := cam.Capture(context.Background(), dest)
	assert.ErrorIs(t, err, common.ErrDevice)
}

func TestCommandCamera_Timeout(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "frame.jpg")
	cam := shellCamera(t, `sleep 5`, 50*time.Millisecond)

	start := time.Now()
	err := cam.Capture(context.Background(), dest)
	assert.ErrorIs(t, err, common.ErrDevice)
	assert.Contains(t, err.Error(), "timed out")
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestCommandCamera_UnknownCommand(t *testing.T) {
	cam := &CommandCamera{Command: "camvault-no-such-camera-binary"}
	err := cam.Capture(context.Background(), filepath.Join(t.TempDir(), "x.jpg"))
	assert.ErrorIs(t, err, common.ErrDevice)
}
