package watch

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/hedisam/brunosync/server/internal/diagnostics"
)

// Change is one classified filesystem change.
type Change struct {
	Type diagnostics.WatcherEventType
	Path string
}

// Classifier turns raw fsnotify events into typed changes. Removed paths can no longer be stat'ed, so it remembers
// which paths are directories.
type Classifier struct {
	stat func(name string) (fs.FileInfo, error)

	mu   sync.Mutex
	dirs map[string]struct{}
}

func NewClassifier() *Classifier {
	return &Classifier{
		stat: os.Stat,
		dirs: make(map[string]struct{}),
	}
}

// RememberDir marks path as a directory.
func (c *Classifier) RememberDir(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dirs[filepath.Clean(path)] = struct{}{}
}

func (c *Classifier) IsDir(path string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.dirs[filepath.Clean(path)]
	return ok
}

// Classify maps an event to zero or more changes. event.Op is a bitmask and some systems send several operations at
// once; chmod on its own is not a change.
func (c *Classifier) Classify(event fsnotify.Event) []Change {
	path := filepath.Clean(event.Name)
	var changes []Change

	if event.Has(fsnotify.Create) {
		info, err := c.stat(path)
		switch {
		case err != nil:
			// created and gone again before we looked; the removal event follows
		case info.IsDir():
			c.RememberDir(path)
			changes = append(changes, Change{Type: diagnostics.EventAddDir, Path: path})
		default:
			changes = append(changes, Change{Type: diagnostics.EventAdd, Path: path})
		}
	}

	if event.Has(fsnotify.Write) && !c.IsDir(path) {
		changes = append(changes, Change{Type: diagnostics.EventChange, Path: path})
	}

	// a rename is a removal of the old name; the new name arrives as a create
	if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		if c.forgetDir(path) {
			changes = append(changes, Change{Type: diagnostics.EventUnlinkDir, Path: path})
		} else {
			changes = append(changes, Change{Type: diagnostics.EventUnlink, Path: path})
		}
	}

	return changes
}

// forgetDir drops path and everything below it from the known directories and reports whether path was one.
func (c *Classifier) forgetDir(path string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.dirs[path]
	if !ok {
		return false
	}
	prefix := path + string(filepath.Separator)
	for dir := range c.dirs {
		if dir == path || strings.HasPrefix(dir, prefix) {
			delete(c.dirs, dir)
		}
	}
	return true
}
