// Copyright 2026 The llar Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package mapnik is the build recipe of the Mapnik mapping toolkit.
package mapnik

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"slices"

	"github.com/llarhub/mapnik/formula"
	"github.com/llarhub/mapnik/pkgs/buildsys/cmake"
	"github.com/llarhub/mapnik/pkgs/source"
)

const sourceSubfolder = "source_subfolder"

// MinCppStd is the lowest C++ standard mapnik compiles with.
const MinCppStd = 14

// Recipe builds mapnik for one configuration.
type Recipe struct {
	// cm is set by the first Build or Package call and reused after.
	cm *cmake.CMake
}

var _ formula.Factory = New

// New returns a fresh recipe instance.
func New() formula.Recipe {
	return &Recipe{}
}

// ConfigOptions drops fPIC on Windows.
func (r *Recipe) ConfigOptions(c *formula.Context) {
	if c.Settings.OS == "Windows" {
		c.Options.Remove("fPIC")
	}
}

// Configure drops fPIC for shared builds.
func (r *Recipe) Configure(c *formula.Context) {
	if c.Options.Bool("shared") {
		c.Options.Remove("fPIC")
	}
}

// dependency is a pinned requirement, optionally gated by a boolean option.
type dependency struct {
	name, version string
	option        string
}

var dependencies = []dependency{
	{name: "boost", version: "1.78.0"},
	{name: "freetype", version: "2.11.1"},
	{name: "harfbuzz", version: "4.2.1"},
	{name: "icu", version: "71.1"},
	{name: "mapbox-geometry", version: "2.0.3"},
	{name: "mapbox-variant", version: "1.2.0"},
	{name: "polylabel", version: "1.1.0"},
	{name: "protozero", version: "1.7.1"},
	{name: "libjpeg", version: "9d", option: "with_jpeg"},
	{name: "libpng", version: "1.6.37", option: "with_png"},
	{name: "libtiff", version: "4.3.0", option: "with_tiff"},
	{name: "libwebp", version: "1.2.2", option: "with_webp"},
	{name: "libxml2", version: "2.9.13", option: "with_libxml2"},
	{name: "cairo", version: "1.17.4", option: "with_cairo"},
	{name: "proj", version: "9.0.0", option: "with_proj"},
}

// Requirements pins the dependencies enabled by the options.
func (r *Recipe) Requirements(c *formula.Context, reqs *formula.Requirements) {
	for _, d := range dependencies {
		if d.option != "" && !c.Options.Bool(d.option) {
			continue
		}
		reqs.Require(d.name, d.version)
	}
}

// Validate rejects a cppstd below MinCppStd.
func (r *Recipe) Validate(c *formula.Context) error {
	return formula.CheckMinCppStd(c.Settings, MinCppStd)
}

// Source fetches the pinned release into source_subfolder.
func (r *Recipe) Source(ctx context.Context, c *formula.Context) error {
	if c.Source.IsZero() {
		return &formula.SourceFetchError{Err: fmt.Errorf("no source pinned for %s", c.Ref)}
	}
	err := source.Get(ctx, c.Source, filepath.Join(c.SourceDir, sourceSubfolder), source.Options{
		StripRoot: true,
		Logger:    c.Log(),
	})
	if err != nil {
		return &formula.SourceFetchError{URL: c.Source.URLs[0], Err: err}
	}
	return nil
}

// -----------------------------------------------------------------------------

// mirrored maps recipe options to the CMake switches that follow them.
var mirrored = []struct {
	option, define string
}{
	{"with_jpeg", "USE_JPEG"},
	{"with_png", "USE_PNG"},
	{"with_tiff", "USE_TIFF"},
	{"with_webp", "USE_WEBP"},
	{"with_libxml2", "USE_LIBXML2"},
	{"with_cairo", "USE_CAIRO"},
	{"with_proj", "USE_PROJ"},
	{"grid_renderer", "USE_GRID_RENDERER"},
	{"svg_renderer", "USE_SVG_RENDERER"},
	{"bigint", "USE_BIGINT"},
	{"memory_mapped_file", "USE_MEMORY_MAPPED_FILE"},
	{"threadsafe", "USE_MULTITHREADED"},
}

// fixed holds the switches that do not depend on options.
var fixed = map[string]bool{
	"INSTALL_DEPENDENCIES": false,

	"USE_EXTERNAL_MAPBOX_GEOMETRY":  true,
	"USE_EXTERNAL_MAPBOX_POLYLABEL": true,
	"USE_EXTERNAL_MAPBOX_PROTOZERO": true,
	"USE_EXTERNAL_MAPBOX_VARIANT":   true,

	"USE_NO_ATEXIT":    false,
	"USE_NO_DLCLOSE":   false,
	"USE_DEBUG_OUTPUT": false,
	"USE_LOG":          false,
	"USE_STATS":        false,

	// TODO: add options
	"USE_PLUGIN_INPUT_CSV":      false,
	"USE_PLUGIN_INPUT_GDAL":     false,
	"USE_PLUGIN_INPUT_GEOBUF":   false,
	"USE_PLUGIN_INPUT_GEOJSON":  false,
	"USE_PLUGIN_INPUT_OGR":      false,
	"USE_PLUGIN_INPUT_PGRASTER": false,
	"USE_PLUGIN_INPUT_POSTGIS":  false,
	"USE_PLUGIN_INPUT_RASTER":   false,
	"USE_PLUGIN_INPUT_SHAPE":    false,
	"USE_PLUGIN_INPUT_SQLITE":   false,
	"USE_PLUGIN_INPUT_TOPOJSON": false,

	"BUILD_DEMO_VIEWER": false,
	"BUILD_DEMO_CPP":    false,

	"BUILD_BENCHMARK": false,

	// TODO: add options
	"BUILD_UTILITY_GEOMETRY_TO_WKB": false,
	"BUILD_UTILITY_MAPNIK_INDEX":    false,
	"BUILD_UTILITY_MAPNIK_RENDER":   false,
	"BUILD_UTILITY_OGRINDEX":        false,
	"BUILD_UTILITY_PGSQL2SQLITE":    false,
	"BUILD_UTILITY_SHAPEINDEX":      false,
	"BUILD_UTILITY_SVG2PNG":         false,
}

// Definitions derives the mapnik CMake switches from opts.
func Definitions(opts *formula.Options) map[string]bool {
	defs := make(map[string]bool, len(fixed)+len(mirrored))
	for k, v := range fixed {
		defs[k] = v
	}
	for _, m := range mirrored {
		defs[m.define] = opts.Bool(m.option)
	}
	return defs
}

// cmake returns the configured CMake of this configuration, running the
// configure step on first use.
func (r *Recipe) cmake(ctx context.Context, c *formula.Context) (*cmake.CMake, error) {
	if r.cm != nil {
		return r.cm, nil
	}

	src := filepath.Join(c.SourceDir, sourceSubfolder)
	if _, err := os.Stat(filepath.Join(c.SourceDir, "CMakeLists.txt")); err == nil {
		src = c.SourceDir
	}
	cm := cmake.New(src, c.BuildDir, c.PackageDir)
	cm.Stdout, cm.Stderr = c.Out(), c.Err()
	if c.Settings.BuildType != "" {
		cm.BuildType(c.Settings.BuildType)
	}
	cm.Parallel(runtime.NumCPU())

	deps := make([]string, 0, len(c.Deps))
	for name := range c.Deps {
		deps = append(deps, name)
	}
	slices.Sort(deps)
	for _, name := range deps {
		cm.Use(c.Deps[name])
	}

	cm.DefineBool("BUILD_SHARED_LIBS", c.Options.Bool("shared"))
	if c.Options.Has("fPIC") {
		cm.DefineBool("CMAKE_POSITION_INDEPENDENT_CODE", c.Options.Bool("fPIC"))
	}
	for k, v := range Definitions(c.Options) {
		cm.DefineBool(k, v)
	}

	c.Log().Info("configuring", "source", src, "build", c.BuildDir)
	if err := cm.Configure(ctx); err != nil {
		return nil, err
	}
	r.cm = cm
	return cm, nil
}

// Build configures once and compiles.
func (r *Recipe) Build(ctx context.Context, c *formula.Context) error {
	cm, err := r.cmake(ctx, c)
	if err != nil {
		return err
	}
	return cm.Build(ctx)
}

// Package installs the build and the license into the package dir.
func (r *Recipe) Package(ctx context.Context, c *formula.Context) error {
	licenses := filepath.Join(c.PackageDir, "licenses")
	if err := copyFile(filepath.Join(c.SourceDir, sourceSubfolder, "COPYING"), filepath.Join(licenses, "COPYING")); err != nil {
		return &formula.PackageError{Ref: c.Ref, Err: err}
	}
	cm, err := r.cmake(ctx, c)
	if err != nil {
		return &formula.PackageError{Ref: c.Ref, Err: err}
	}
	if err := cm.Install(ctx); err != nil {
		return &formula.PackageError{Ref: c.Ref, Err: err}
	}
	return nil
}

// PackageInfo describes the mapnik components for consumers.
func (r *Recipe) PackageInfo(c *formula.Context, info *formula.CppInfo) {
	info.SetProperty(formula.PropCMakeFileName, "mapnik")
	info.SetProperty(formula.PropCMakeTargetName, "mapnik::mapnik")

	var prefix, suffix string
	if c.Settings.IsMSVC() {
		prefix = "lib"
	}
	if c.Settings.BuildType == "Debug" {
		suffix = "d"
	}

	lib := info.Component("_mapnik")
	lib.SetProperty(formula.PropCMakeTargetName, "mapnik::mapnik")
	lib.Libs = []string{prefix + "mapnik" + suffix}
	lib.Requires = []string{"mapnik_core", "mapnik_agg"}

	core := info.Component("mapnik_core")
	core.SetProperty(formula.PropCMakeTargetName, "mapnik::core")
	core.LibDirs = []string{}
	core.FrameworkDirs = []string{}

	agg := info.Component("mapnik_agg")
	agg.SetProperty(formula.PropCMakeTargetName, "mapnik::agg")
	agg.LibDirs = []string{}
	agg.FrameworkDirs = []string{}
	agg.Requires = []string{"mapnik_core"}

	for _, gen := range []string{"cmake_find_package", "cmake_find_package_multi"} {
		lib.SetName(gen, "mapnik")
		core.SetName(gen, "core")
		agg.SetName(gen, "agg")
	}
}

// copyFile copies src to dst. A missing src is not an error.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	defer in.Close()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
