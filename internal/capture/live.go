package capture

import (
	"context"
	"path/filepath"

	"github.com/dmitrijs2005/camvault/internal/filex"
	"github.com/dmitrijs2005/camvault/internal/frames"
	"github.com/dmitrijs2005/camvault/internal/logging"
)

// LiveSlot is the single-frame live directory.
type LiveSlot struct {
	dir    string
	logger logging.Logger
}

// OpenLive prepares dir and reduces whatever it holds to the newest frame.
func OpenLive(ctx context.Context, dir string, logger logging.Logger) (*LiveSlot, error) {
	abs, err := filex.EnsureDir(dir)
	if err != nil {
		return nil, err
	}

	l := &LiveSlot{dir: abs, logger: logger.With("module", "live")}
	removeStaleTemps(ctx, abs, l.logger)

	names, err := frames.List(abs)
	if err != nil {
		return nil, err
	}
	if len(names) > 1 {
		l.removeAllBut(ctx, names, names[len(names)-1])
	}

	return l, nil
}

func (l *LiveSlot) Dir() string { return l.dir }

func (l *LiveSlot) TempPath(name string) string {
	return filex.TempPath(l.dir, name)
}

// Publish replaces the live frame with tmp under name. Older frames are
// removed before the rename, so the slot never shows two frames.
func (l *LiveSlot) Publish(ctx context.Context, tmp, name string) error {
	names, err := frames.List(l.dir)
	if err != nil {
		_ = filex.RemoveIfExists(tmp)
		return err
	}
	l.removeAllBut(ctx, names, name)

	if err := filex.Publish(tmp, filepath.Join(l.dir, name)); err != nil {
		_ = filex.RemoveIfExists(tmp)
		return err
	}
	return nil
}

// Current returns the live frame name, if any.
func (l *LiveSlot) Current() (string, bool) {
	names, err := frames.List(l.dir)
	if err != nil || len(names) == 0 {
		return "", false
	}
	return names[len(names)-1], true
}

func (l *LiveSlot) removeAllBut(ctx context.Context, names []string, keep string) {
	for _, name := range LiveEvictions(names, keep) {
		if err := filex.RemoveIfExists(filepath.Join(l.dir, name)); err != nil {
			l.logger.Warn(ctx, "cannot remove old live frame", "filename", name, "error", err)
		}
	}
}
