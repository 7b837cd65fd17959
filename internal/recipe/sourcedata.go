// Copyright 2026 The llar Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package recipe

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/llarhub/mapnik/pkgs/gnu"
	"github.com/llarhub/mapnik/pkgs/source"
	"gopkg.in/yaml.v3"
)

// SourceDataFile is the per-version source data file next to the recipe.
const SourceDataFile = "conandata.yml"

// SourceData holds the source archives pinned per version.
type SourceData struct {
	Sources map[string]source.Entry `yaml:"sources"`
}

// LoadSourceData parses the source data file at path.
// A missing file yields empty source data.
func LoadSourceData(path string) (*SourceData, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &SourceData{}, nil
		}
		return nil, fmt.Errorf("reading source data: %w", err)
	}
	var sd SourceData
	if err := yaml.Unmarshal(data, &sd); err != nil {
		return nil, fmt.Errorf("parsing source data %s: %w", path, err)
	}
	return &sd, nil
}

// SourceData loads the source data file next to the recipe.
func (d *Descriptor) SourceData() (*SourceData, error) {
	return LoadSourceData(filepath.Join(d.Dir(), SourceDataFile))
}

// Source returns the archive pinned for version.
func (s *SourceData) Source(version string) (source.Entry, bool) {
	e, ok := s.Sources[version]
	return e, ok
}

// Versions returns the pinned versions in ascending version order.
func (s *SourceData) Versions() []string {
	versions := make([]string, 0, len(s.Sources))
	for v := range s.Sources {
		versions = append(versions, v)
	}
	gnu.Sort(versions)
	return versions
}
