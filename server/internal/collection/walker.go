package collection

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

type DirWatcher interface {
	Add(dirPath string) error
}

type FileLoader interface {
	Load(ctx context.Context, path string, ts time.Time) error
}

// Skip reports whether a file or directory name is never part of a collection: temporary files created by editors,
// hidden entries and installed node modules.
func Skip(name string) bool {
	return strings.HasSuffix(name, "~") ||
		(name != "." && strings.HasPrefix(name, ".")) ||
		name == "node_modules"
}

// Walk walks dir, the collection root or a directory below it, recursively:
//  1. every directory is added to the watcher
//  2. every .bru file is handed to the loader
//
// Files found by a walk are loaded with a zero timestamp so any change event racing with the walk wins.
func Walk(ctx context.Context, log *logrus.Logger, c *Collection, dir string, watcher DirWatcher, loader FileLoader) error {
	logger := log.WithFields(logrus.Fields{
		"collection_uid": c.UID,
		"dir":            dir,
	})
	logger.Debug("Walking collection directory")

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if path != dir && Skip(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if path != c.Path && c.Ignored(c.Rel(path)) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			// the fsnotify module suggests not to add individual files to the watcher
			err = watcher.Add(path)
			if err != nil {
				return fmt.Errorf("add dir to watcher: %w", err)
			}
			return nil
		}

		if !d.Type().IsRegular() || filepath.Ext(path) != Ext {
			// skip symlinks and anything that is not a collection file
			return nil
		}

		err = loader.Load(ctx, path, time.Time{})
		if err != nil {
			logger.WithField("path", path).WithError(err).Error("Error loading collection file")
			return fmt.Errorf("load collection file: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	return nil
}
