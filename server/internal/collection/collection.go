package collection

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/tidwall/jsonc"
	"github.com/zeebo/blake3"
)

const (
	// ConfigFile marks a directory as a collection root.
	ConfigFile = "bruno.json"
	// RootFile holds collection level settings such as headers, auth and scripts.
	RootFile = "collection.bru"
	// FolderFile holds folder level settings.
	FolderFile = "folder.bru"
	// EnvironmentsDir holds one file per environment.
	EnvironmentsDir = "environments"
	// Ext is the extension of every request, folder, collection and environment file.
	Ext = ".bru"
)

var ErrNotCollection = errors.New("not a collection")

// Config is the content of bruno.json. It may contain comments and trailing commas.
type Config struct {
	Version string   `json:"version"`
	Name    string   `json:"name"`
	Type    string   `json:"type"`
	Ignore  []string `json:"ignore,omitempty"`
}

// Collection is a directory tree of request files sharing a root config.
type Collection struct {
	UID    string `json:"uid"`
	Name   string `json:"name"`
	Path   string `json:"pathname"`
	Config Config `json:"config"`
}

// UID derives a stable identity from a path: the same directory always yields the same uid.
func UID(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	sum := blake3.Sum256([]byte(filepath.Clean(path)))
	return hex.EncodeToString(sum[:8])
}

// Open loads the collection rooted at dir. It fails with ErrNotCollection when dir has no bruno.json.
func Open(dir string) (*Collection, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve collection path: %w", err)
	}

	data, err := os.ReadFile(filepath.Join(abs, ConfigFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", abs, ErrNotCollection)
		}
		return nil, fmt.Errorf("read collection config: %w", err)
	}

	var cfg Config
	if err = json.Unmarshal(jsonc.ToJSON(data), &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Join(abs, ConfigFile), err)
	}

	name := cfg.Name
	if name == "" {
		name = filepath.Base(abs)
	}

	return &Collection{
		UID:    UID(abs),
		Name:   name,
		Path:   abs,
		Config: cfg,
	}, nil
}

// Discover opens every collection that is a direct child of dir. A missing dir yields no collections.
func Discover(dir string) ([]*Collection, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read directory: %w", err)
	}

	var out []*Collection
	for entry := range slices.Values(entries) {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		c, err := Open(filepath.Join(dir, entry.Name()))
		if err != nil {
			if errors.Is(err, ErrNotCollection) {
				continue
			}
			return nil, err
		}
		out = append(out, c)
	}

	return out, nil
}

// Ignored reports whether rel, a slash separated path relative to the collection root, is excluded by the config.
func (c *Collection) Ignored(rel string) bool {
	for pattern := range slices.Values(c.Config.Ignore) {
		pattern = strings.Trim(pattern, "/")
		if rel == pattern || strings.HasPrefix(rel, pattern+"/") {
			return true
		}
	}
	return false
}

// Rel returns path relative to the collection root using forward slashes.
func (c *Collection) Rel(path string) string {
	rel, err := filepath.Rel(c.Path, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}
