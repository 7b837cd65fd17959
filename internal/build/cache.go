// Copyright 2026 The llar Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package build

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/llarhub/mapnik/pkgs/mod/module"
)

// Workspace directory layout:
//
//	workDir/
//	  <name>/                       # package-level dir (cacheDir)
//	    .cache.json                 # build cache: maps "version-packageID" to buildEntry
//	    <version>/
//	      .lock
//	      source/                   # fetched once per version
//	      build/<packageID>/
//	      package/<packageID>/      # install tree + conaninfo.json
const cacheFile = ".cache.json"

// buildEntry contains metadata about a single successful build.
type buildEntry struct {
	Settings  string    `json:"settings"`
	Options   string    `json:"options"`
	BuildTime time.Time `json:"build_time"`
}

// buildCache maps "version-packageID" keys to their build entries.
type buildCache struct {
	Cache map[string]*buildEntry `json:"cache"`
}

func cacheKey(version, packageID string) string {
	return version + "-" + packageID
}

func (c *buildCache) get(version, packageID string) (*buildEntry, bool) {
	entry, ok := c.Cache[cacheKey(version, packageID)]
	return entry, ok
}

func (c *buildCache) set(version, packageID string, entry *buildEntry) {
	if c.Cache == nil {
		c.Cache = make(map[string]*buildEntry)
	}
	c.Cache[cacheKey(version, packageID)] = entry
}

// cacheDir returns the package-level directory for cache storage: workDir/<escapedName>.
func (b *Builder) cacheDir(name string) (string, error) {
	escaped, err := module.EscapePath(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(b.workDir, escaped), nil
}

// loadCache reads the cache file for a package. A missing file yields an
// empty cache.
func (b *Builder) loadCache(name string) (*buildCache, error) {
	dir, err := b.cacheDir(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(dir, cacheFile))
	if errors.Is(err, fs.ErrNotExist) {
		return &buildCache{}, nil
	}
	if err != nil {
		return nil, err
	}
	var cache buildCache
	if err := json.Unmarshal(data, &cache); err != nil {
		return nil, err
	}
	return &cache, nil
}

// saveCache writes the cache file for a package.
func (b *Builder) saveCache(name string, cache *buildCache) error {
	dir, err := b.cacheDir(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cache, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, cacheFile), data, 0o644)
}
