package frames

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValid(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{"canonical", "security_image_2024-01-01_00-00-00.jpg", true},
		{"traversal", "../secret.jpg", false},
		{"traversal with valid tail", "../security_image_2024-01-01_00-00-00.jpg", false},
		{"other extension", "photo.png", false},
		{"uppercase ext", "security_image_2024-01-01_00-00-00.JPG", false},
		{"short date", "security_image_24-01-01_00-00-00.jpg", false},
		{"trailing newline", "security_image_2024-01-01_00-00-00.jpg\n", false},
		{"temp name", ".security_image_2024-01-01_00-00-00.jpg.part", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Valid(tt.in))
		})
	}
}

func TestNameAndTime_RoundTrip(t *testing.T) {
	ts := time.Date(2024, 7, 9, 8, 5, 3, 0, time.Local)

	name := Name(ts)
	assert.Equal(t, "security_image_2024-07-09_08-05-03.jpg", name)
	assert.True(t, Valid(name))

	got, err := Time(name)
	require.NoError(t, err)
	assert.True(t, ts.Equal(got))
}

func TestTime_Invalid(t *testing.T) {
	_, err := Time("photo.png")
	require.Error(t, err)
}

func TestName_OrderFollowsTime(t *testing.T) {
	a := Name(time.Date(2024, 1, 9, 23, 59, 59, 0, time.UTC))
	b := Name(time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC))
	assert.Less(t, a, b)
}

func TestList_FiltersAndSorts(t *testing.T) {
	dir := t.TempDir()
	for _, n := range []string{
		"security_image_2024-01-02_00-00-00.jpg",
		"security_image_2024-01-01_00-00-00.jpg",
		"photo.png",
		".security_image_2024-01-03_00-00-00.jpg.part",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), []byte("x"), 0o600))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "security_image_2024-01-04_00-00-00.jpg"), 0o755))

	got, err := List(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"security_image_2024-01-01_00-00-00.jpg",
		"security_image_2024-01-02_00-00-00.jpg",
	}, got)
}

func TestList_MissingDir(t *testing.T) {
	got, err := List(filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, err)
	assert.Empty(t, got)
}
