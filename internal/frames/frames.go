// Package frames implements the frame filename scheme shared by the capture
// loop and the media gateway. A frame name encodes its capture time, so
// lexicographic order is capture order.
package frames

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"time"
)

const (
	Prefix = "security_image_"
	Ext    = ".jpg"

	// Layout is the time layout embedded between Prefix and Ext.
	Layout = "2006-01-02_15-04-05"
)

var pattern = regexp.MustCompile(`^security_image_\d{4}-\d{2}-\d{2}_\d{2}-\d{2}-\d{2}\.jpg$`)

// Valid reports whether name is a well-formed frame filename. Anything that
// fails here must never reach the filesystem.
func Valid(name string) bool {
	return pattern.MatchString(name)
}

// Name returns the frame filename for a capture taken at t, in t's location.
func Name(t time.Time) string {
	return Prefix + t.Format(Layout) + Ext
}

// Time parses the capture time out of a frame filename.
func Time(name string) (time.Time, error) {
	if !Valid(name) {
		return time.Time{}, fmt.Errorf("not a frame name: %q", name)
	}
	raw := name[len(Prefix) : len(name)-len(Ext)]
	return time.ParseInLocation(Layout, raw, time.Local)
}

// List returns the frame filenames in dir in ascending order. Entries that
// are not regular files or do not match the pattern are ignored. A missing
// directory yields an empty list.
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() || !Valid(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	return names, nil
}
