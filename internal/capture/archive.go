package capture

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dmitrijs2005/camvault/internal/filex"
	"github.com/dmitrijs2005/camvault/internal/frames"
	"github.com/dmitrijs2005/camvault/internal/logging"
)

// ArchiveStore is the bounded archive directory. It keeps the frame names
// in an ordered in-memory index, loaded once at open and updated on every
// admission and eviction. Only the capture loop may use it.
type ArchiveStore struct {
	dir      string
	capacity int
	index    []string
	logger   logging.Logger
}

// OpenArchive prepares dir, clears leftover temporary files and loads the
// index. An archive found over capacity is trimmed from the oldest end.
func OpenArchive(ctx context.Context, dir string, capacity int, logger logging.Logger) (*ArchiveStore, error) {
	if capacity < 1 {
		return nil, fmt.Errorf("archive capacity must be positive, got %d", capacity)
	}

	abs, err := filex.EnsureDir(dir)
	if err != nil {
		return nil, err
	}

	a := &ArchiveStore{dir: abs, capacity: capacity, logger: logger.With("module", "archive")}
	removeStaleTemps(ctx, abs, a.logger)

	a.index, err = frames.List(abs)
	if err != nil {
		return nil, err
	}

	if over := len(a.index) - capacity; over > 0 {
		a.evict(ctx, a.index[:over])
	}

	attrs := []any{"dir", abs, "frames", len(a.index), "capacity", capacity}
	if len(a.index) > 0 {
		if oldest, err := frames.Time(a.index[0]); err == nil {
			attrs = append(attrs, "oldest", oldest.Format(time.RFC3339))
		}
	}
	a.logger.Info(ctx, "archive opened", attrs...)

	return a, nil
}

func (a *ArchiveStore) Dir() string { return a.dir }

// TempPath is where a frame named name is written before admission.
func (a *ArchiveStore) TempPath(name string) string {
	return filex.TempPath(a.dir, name)
}

// Len is the number of frames in the archive.
func (a *ArchiveStore) Len() int { return len(a.index) }

// Free is the number of frames that fit before eviction starts.
func (a *ArchiveStore) Free() int { return max(a.capacity-len(a.index), 0) }

// Names returns a copy of the index in ascending order.
func (a *ArchiveStore) Names() []string {
	out := make([]string, len(a.index))
	copy(out, a.index)
	return out
}

// Admit publishes the finished file tmp as name. The oldest frames are
// evicted first, so the directory never holds more than capacity frames.
// If an eviction fails the new frame is dropped instead. It returns the
// names evicted.
func (a *ArchiveStore) Admit(ctx context.Context, tmp, name string) ([]string, error) {
	if !frames.Valid(name) {
		_ = filex.RemoveIfExists(tmp)
		return nil, fmt.Errorf("refusing to admit %q", name)
	}

	i := sort.SearchStrings(a.index, name)
	replacing := i < len(a.index) && a.index[i] == name

	var evicted []string
	if !replacing {
		want := ArchiveEvictions(a.index, a.capacity)
		evicted = a.evict(ctx, want)
		if len(evicted) < len(want) {
			_ = filex.RemoveIfExists(tmp)
			return evicted, fmt.Errorf("archive full: %d of %d evictions failed, %s dropped",
				len(want)-len(evicted), len(want), name)
		}
	}

	if err := filex.Publish(tmp, filepath.Join(a.dir, name)); err != nil {
		_ = filex.RemoveIfExists(tmp)
		return evicted, err
	}

	if !replacing {
		a.insert(name)
	}

	return evicted, nil
}

// evict removes names from disk and from the index. A removal error is
// logged and the name stays indexed so the next admission retries it.
func (a *ArchiveStore) evict(ctx context.Context, names []string) []string {
	if len(names) == 0 {
		return nil
	}

	gone := make(map[string]bool, len(names))
	evicted := make([]string, 0, len(names))
	for _, name := range names {
		if err := filex.RemoveIfExists(filepath.Join(a.dir, name)); err != nil {
			a.logger.Warn(ctx, "cannot evict frame", "filename", name, "error", err)
			continue
		}
		gone[name] = true
		evicted = append(evicted, name)
	}

	kept := a.index[:0]
	for _, name := range a.index {
		if !gone[name] {
			kept = append(kept, name)
		}
	}
	a.index = kept

	return evicted
}

func (a *ArchiveStore) insert(name string) {
	i := sort.SearchStrings(a.index, name)
	a.index = append(a.index, "")
	copy(a.index[i+1:], a.index[i:])
	a.index[i] = name
}

// removeStaleTemps deletes temporary files left by an interrupted capture.
func removeStaleTemps(ctx context.Context, dir string, logger logging.Logger) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		logger.Warn(ctx, "cannot scan for stale temporary files", "dir", dir, "error", err)
		return
	}
	for _, e := range entries {
		n := e.Name()
		if !e.Type().IsRegular() || !strings.HasPrefix(n, ".") || !strings.HasSuffix(n, ".part") {
			continue
		}
		if err := filex.RemoveIfExists(filepath.Join(dir, n)); err != nil {
			logger.Warn(ctx, "cannot remove stale temporary file", "filename", n, "error", err)
		}
	}
}
