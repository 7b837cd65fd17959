// Copyright 2026 The llar Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package packager

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/llarhub/mapnik/formula"
)

// Build is one configuration of the matrix.
type Build struct {
	Settings formula.Settings
	Options  map[string]string
	// Cell labels the varying axes, e.g. "x86_64-libstdc++11|True".
	Cell string
}

// OptionPairs returns the options as sorted "name=value" pairs.
func (b Build) OptionPairs() []string {
	pairs := make([]string, 0, len(b.Options))
	for k, v := range b.Options {
		pairs = append(pairs, k+"="+v)
	}
	sort.Strings(pairs)
	return pairs
}

func (b Build) String() string {
	pairs := b.OptionPairs()
	if len(pairs) == 0 {
		return b.Settings.String()
	}
	return b.Settings.String() + " " + strings.Join(pairs, ",")
}

// CommonBuildOptions shapes the matrix produced by AddCommonBuilds.
type CommonBuildOptions struct {
	// SharedOptionName is the "name:shared" option to vary, or empty.
	SharedOptionName string
	// PureC drops the C++ standard library axis.
	PureC bool
	// DLLWithStaticRuntime keeps shared builds against the static MSVC
	// runtime.
	DLLWithStaticRuntime bool
}

// compilerFamily is one compiler and the axes it contributes.
type compilerFamily struct {
	name     string
	versions []string
	os       []string
	libcxx   []string
}

func (cfg Config) families() []compilerFamily {
	fams := []compilerFamily{
		{name: "gcc", versions: cfg.GCCVersions, os: []string{"Linux", "FreeBSD"}, libcxx: []string{"libstdc++", "libstdc++11"}},
		{name: "clang", versions: cfg.ClangVersions, os: []string{"Linux", "FreeBSD"}, libcxx: []string{"libstdc++", "libc++"}},
		{name: "apple-clang", versions: cfg.AppleClangVersions, os: []string{"Macos"}, libcxx: []string{"libc++"}},
		{name: "msvc", versions: cfg.MSVCVersions, os: []string{"Windows"}},
	}
	var out []compilerFamily
	for _, f := range fams {
		if len(f.versions) > 0 && slices.Contains(f.os, cfg.OS) {
			out = append(out, f)
		}
	}
	if len(out) > 0 {
		return out
	}
	// nothing requested for this OS: build with its default compiler
	for _, f := range fams {
		if slices.Contains(f.os, cfg.OS) {
			f.versions = []string{""}
			return []compilerFamily{f}
		}
	}
	return nil
}

func msvcRuntimes(buildType string) []string {
	if buildType == "Debug" {
		return []string{"MTd", "MDd"}
	}
	return []string{"MT", "MD"}
}

// CommonBuilds expands the compiler, version, architecture, build type,
// runtime and shared axes of cfg.
func CommonBuilds(cfg Config, o CommonBuildOptions) ([]Build, error) {
	var builds []Build
	for _, fam := range cfg.families() {
		for _, version := range fam.versions {
			for _, buildType := range cfg.BuildTypes {
				m := formula.Matrix{Require: map[string][]string{
					formula.SettingArch: cfg.Archs,
				}}
				switch {
				case fam.name == "msvc":
					m.Require[formula.SettingCompilerRuntime] = msvcRuntimes(buildType)
				case !o.PureC:
					m.Require[formula.SettingCompilerLibcxx] = fam.libcxx
				}
				if !o.PureC && len(cfg.CppStds) > 0 {
					m.Require[formula.SettingCompilerCppStd] = cfg.CppStds
				}
				if o.SharedOptionName != "" {
					m.Options = map[string][]string{o.SharedOptionName: {formula.False, formula.True}}
				}

				builds = slices.Grow(builds, m.CombinationCount())
				for _, cell := range m.Expand() {
					s := formula.Settings{
						OS:              cfg.OS,
						Compiler:        fam.name,
						CompilerVersion: version,
						BuildType:       buildType,
					}
					for k, v := range cell.Settings {
						if err := s.Set(k, v); err != nil {
							return nil, fmt.Errorf("matrix cell %s: %w", cell, err)
						}
					}
					if !o.DLLWithStaticRuntime && staticRuntime(s) && cell.Options[o.SharedOptionName] == formula.True {
						continue
					}
					builds = append(builds, Build{Settings: s, Options: cell.Options, Cell: cell.String()})
				}
			}
		}
	}
	return builds, nil
}

func staticRuntime(s formula.Settings) bool {
	return strings.HasPrefix(s.CompilerRuntime, "MT")
}
