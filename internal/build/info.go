// Copyright 2026 The llar Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package build

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/llarhub/mapnik/formula"
	"github.com/opencontainers/go-digest"
)

// InfoFile is the metadata file written at the root of every package.
const InfoFile = "conaninfo.json"

// Info is the package metadata read by consumers and the resolver.
type Info struct {
	Reference string            `json:"reference"`
	PackageID string            `json:"package_id"`
	Settings  formula.Settings  `json:"settings"`
	Options   map[string]string `json:"options"`
	Requires  []string          `json:"requires"`
	CppInfo   *formula.CppInfo  `json:"cpp_info"`
}

// PackageID identifies a binary package by its settings, options and
// dependencies.
func PackageID(s formula.Settings, opts *formula.Options, requires []string) string {
	canonical := "settings:" + s.String() +
		"|options:" + opts.String() +
		"|requires:" + strings.Join(requires, ",")
	return digest.FromString(canonical).Encoded()[:16]
}

func writeInfo(packageDir string, info *Info) error {
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(packageDir, InfoFile), data, 0o644)
}

// ReadInfo reads the metadata of the package in packageDir.
func ReadInfo(packageDir string) (*Info, error) {
	return readInfo(packageDir)
}

func readInfo(packageDir string) (*Info, error) {
	data, err := os.ReadFile(filepath.Join(packageDir, InfoFile))
	if err != nil {
		return nil, err
	}
	var info Info
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, err
	}
	return &info, nil
}
