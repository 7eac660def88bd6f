package capture

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/dmitrijs2005/camvault/internal/frames"
	"github.com/dmitrijs2005/camvault/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLive_OpenKeepsNewest(t *testing.T) {
	dir := t.TempDir()
	writeFrames(t, dir, 0, 3)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "."+frameAt(5)+".part"), nil, 0o600))

	l, err := OpenLive(context.Background(), dir, logging.NewNop())
	require.NoError(t, err)

	names, err := frames.List(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{frameAt(2)}, names)

	cur, ok := l.Current()
	assert.True(t, ok)
	assert.Equal(t, frameAt(2), cur)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestLive_PublishLeavesExactlyOne(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	l, err := OpenLive(ctx, dir, logging.NewNop())
	require.NoError(t, err)

	_, ok := l.Current()
	assert.False(t, ok)

	for i := 0; i < 10; i++ {
		tmp := l.TempPath(frameAt(i))
		stage(t, tmp)
		require.NoError(t, l.Publish(ctx, tmp, frameAt(i)))

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, frameAt(i), entries[0].Name())
	}
}

func TestLive_PublishFailureCleansTemp(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	l, err := OpenLive(ctx, dir, logging.NewNop())
	require.NoError(t, err)

	err = l.Publish(ctx, l.TempPath(frameAt(0)), frameAt(0))
	require.Error(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
