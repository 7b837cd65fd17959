// Copyright 2026 The llar Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package env

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

// AppName names the per-user directories of the tool.
const AppName = "mapnik-ci"

// WorkDir returns the build workspace root, creating it if needed.
func WorkDir() (string, error) {
	dir := filepath.Join(xdg.CacheHome, AppName)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return dir, nil
}
