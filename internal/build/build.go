// Copyright 2026 The llar Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package build runs the lifecycle of a recipe for one configuration inside
// the local workspace.
package build

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/llarhub/mapnik/formula"
	"github.com/llarhub/mapnik/internal/env"
	"github.com/llarhub/mapnik/internal/recipe"
	"github.com/llarhub/mapnik/pkgs/mod/module"
)

// Policy decides whether a configuration already in the workspace is
// built again.
type Policy string

const (
	PolicyMissing Policy = "missing" // build only configurations not in the cache
	PolicyAlways  Policy = "always"
)

// ParsePolicy parses a build policy name. The empty string means missing.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "", PolicyMissing:
		return PolicyMissing, nil
	case PolicyAlways:
		return PolicyAlways, nil
	}
	return "", fmt.Errorf("unknown build policy %q", s)
}

// Remote is a package repository dependencies are fetched from when the
// workspace has no compatible build. *remote.Client implements it.
type Remote interface {
	Find(ctx context.Context, ref module.Reference, s formula.Settings) (string, error)
	Download(ctx context.Context, ref module.Reference, packageID, dest string) error
}

// Options configures a Builder.
type Options struct {
	WorkDir string // defaults to env.WorkDir()
	Policy  Policy
	Remote  Remote // optional
	Logger  hclog.Logger
	Stdout  io.Writer
	Stderr  io.Writer
}

// Builder builds package configurations in a workspace directory.
type Builder struct {
	workDir string
	policy  Policy
	remote  Remote
	logger  hclog.Logger
	stdout  io.Writer
	stderr  io.Writer
}

// NewBuilder returns a Builder for opts.
func NewBuilder(opts Options) (*Builder, error) {
	workDir := opts.WorkDir
	if workDir == "" {
		dir, err := env.WorkDir()
		if err != nil {
			return nil, err
		}
		workDir = dir
	}
	policy, err := ParsePolicy(string(opts.Policy))
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Builder{
		workDir: workDir,
		policy:  policy,
		remote:  opts.Remote,
		logger:  logger,
		stdout:  opts.Stdout,
		stderr:  opts.Stderr,
	}, nil
}

// WorkDir returns the workspace root.
func (b *Builder) WorkDir() string {
	return b.workDir
}

// Target is one configuration of a package.
type Target struct {
	Descriptor *recipe.Descriptor
	Recipe     formula.Factory
	Version    string
	Settings   formula.Settings

	// Options overrides declared option values. Keys may carry a
	// "name:" package prefix; overrides for other packages are ignored.
	Options map[string]string
}

// Result describes the package of a built configuration.
type Result struct {
	Ref        module.Reference
	PackageID  string
	PackageDir string
	Cached     bool
	Info       *Info
}

// Create runs the recipe lifecycle for t and returns the resulting package.
// A configuration that fails leaves no package directory behind.
func (b *Builder) Create(ctx context.Context, t Target) (*Result, error) {
	d := t.Descriptor
	ref := module.Reference{Name: d.Name, Version: t.Version}
	if err := ref.Validate(); err != nil {
		return nil, err
	}
	logger := b.logger.With("ref", ref.String())

	sd, err := d.SourceData()
	if err != nil {
		return nil, err
	}
	entry, _ := sd.Source(t.Version)

	c := &formula.Context{
		Ref:       ref,
		Settings:  t.Settings,
		Options:   d.NewOptions(),
		Source:    entry,
		RecipeDir: d.Dir(),
		Logger:    logger,
		Stdout:    b.stdout,
		Stderr:    b.stderr,
	}
	r := t.Recipe()

	r.ConfigOptions(c)
	if err := applyOptions(c, d, t.Options); err != nil {
		return nil, err
	}
	r.Configure(c)
	var reqs formula.Requirements
	r.Requirements(c, &reqs)
	if err := r.Validate(c); err != nil {
		return nil, err
	}

	c.Deps = make(map[string]string)
	var requires []string
	for _, dep := range reqs.Refs() {
		dir, err := b.resolve(ctx, dep, c.Settings)
		if err != nil {
			return nil, err
		}
		c.Deps[dep.Name] = dir
		requires = append(requires, dep.String())
	}

	id := PackageID(c.Settings, c.Options, requires)
	logger = logger.With("package_id", id)
	c.Logger = logger

	base, err := b.packageRoot(ref)
	if err != nil {
		return nil, err
	}
	c.SourceDir = filepath.Join(base, "source")
	c.BuildDir = filepath.Join(base, "build", id)
	c.PackageDir = filepath.Join(base, "package", id)
	result := &Result{Ref: ref, PackageID: id, PackageDir: c.PackageDir}

	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, err
	}
	unlock, err := lockFile(filepath.Join(base, ".lock"))
	if err != nil {
		return nil, fmt.Errorf("locking %s: %w", base, err)
	}
	defer unlock()

	// Double-check the cache after acquiring the lock, another process
	// may have built the configuration meanwhile.
	cache, err := b.loadCache(ref.Name)
	if err != nil {
		return nil, err
	}
	if b.policy == PolicyMissing {
		if _, ok := cache.get(ref.Version, id); ok {
			if info, err := readInfo(c.PackageDir); err == nil {
				logger.Info("package in cache")
				result.Cached = true
				result.Info = info
				return result, nil
			}
		}
	}

	if err := b.source(ctx, r, c, d); err != nil {
		return nil, err
	}

	info, err := b.build(ctx, r, c, requires)
	if err != nil {
		if rerr := os.RemoveAll(c.PackageDir); rerr != nil {
			logger.Warn("failed to remove package directory", "error", rerr)
		}
		return nil, err
	}
	result.Info = info

	cache.set(ref.Version, id, &buildEntry{
		Settings:  c.Settings.String(),
		Options:   c.Options.String(),
		BuildTime: time.Now(),
	})
	if err := b.saveCache(ref.Name, cache); err != nil {
		return nil, err
	}
	logger.Info("package created", "dir", c.PackageDir)
	return result, nil
}

// source fetches the sources of c.Ref once per version.
func (b *Builder) source(ctx context.Context, r formula.Recipe, c *formula.Context, d *recipe.Descriptor) error {
	marker := filepath.Join(c.SourceDir, ".fetched")
	if _, err := os.Stat(marker); err == nil {
		c.Log().Debug("sources already fetched", "dir", c.SourceDir)
		return nil
	}
	if err := os.RemoveAll(c.SourceDir); err != nil {
		return err
	}
	if err := os.MkdirAll(c.SourceDir, 0o755); err != nil {
		return err
	}
	if err := exportSources(d, c.SourceDir); err != nil {
		return err
	}
	c.Log().Info("fetching sources")
	if err := r.Source(ctx, c); err != nil {
		return err
	}
	return os.WriteFile(marker, nil, 0o644)
}

// build runs build, package and package info into a fresh package
// directory.
func (b *Builder) build(ctx context.Context, r formula.Recipe, c *formula.Context, requires []string) (*Info, error) {
	for _, dir := range []string{c.BuildDir, c.PackageDir} {
		if err := os.RemoveAll(dir); err != nil {
			return nil, err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	c.Log().Info("building")
	if err := r.Build(ctx, c); err != nil {
		return nil, err
	}
	c.Log().Info("packaging")
	if err := r.Package(ctx, c); err != nil {
		return nil, err
	}

	cppInfo := formula.NewCppInfo()
	r.PackageInfo(c, cppInfo)
	if err := cppInfo.Check(); err != nil {
		return nil, &formula.PackageError{Ref: c.Ref, Err: err}
	}
	info := &Info{
		Reference: c.Ref.String(),
		PackageID: filepath.Base(c.PackageDir),
		Settings:  c.Settings,
		Options:   c.Options.Values(),
		Requires:  slices.Clone(requires),
		CppInfo:   cppInfo,
	}
	if err := writeInfo(c.PackageDir, info); err != nil {
		return nil, &formula.PackageError{Ref: c.Ref, Err: err}
	}
	return info, nil
}

// packageRoot returns workDir/<name>/<version>.
func (b *Builder) packageRoot(ref module.Reference) (string, error) {
	return packageRoot(b.workDir, ref)
}

func packageRoot(workDir string, ref module.Reference) (string, error) {
	name, err := module.EscapePath(ref.Name)
	if err != nil {
		return "", err
	}
	version, err := module.EscapePath(ref.Version)
	if err != nil {
		return "", err
	}
	return filepath.Join(workDir, name, version), nil
}

// PackagePath returns the directory of package packageID of ref inside the
// workspace rooted at workDir.
func PackagePath(workDir string, ref module.Reference, packageID string) (string, error) {
	root, err := packageRoot(workDir, ref)
	if err != nil {
		return "", err
	}
	id, err := module.EscapePath(packageID)
	if err != nil {
		return "", err
	}
	return filepath.Join(root, "package", id), nil
}

// applyOptions applies user overrides between ConfigOptions and Configure.
func applyOptions(c *formula.Context, d *recipe.Descriptor, overrides map[string]string) error {
	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, key := range keys {
		name := key
		if pkg, opt, ok := strings.Cut(key, ":"); ok {
			if pkg != d.Name {
				c.Log().Debug("ignoring option of another package", "option", key)
				continue
			}
			name = opt
		}
		if !d.HasOption(name) {
			return fmt.Errorf("%s: unknown option %q", d.Name, name)
		}
		if !c.Options.Has(name) {
			c.Log().Debug("option removed by recipe", "option", name)
			continue
		}
		if err := c.Options.Set(name, overrides[key]); err != nil {
			return err
		}
	}
	return nil
}

// exportSources copies the files named by the recipe's exports_sources
// patterns into dir.
func exportSources(d *recipe.Descriptor, dir string) error {
	for _, pattern := range d.ExportsSources {
		matches, err := filepath.Glob(filepath.Join(d.Dir(), pattern))
		if err != nil {
			return fmt.Errorf("exports_sources %q: %w", pattern, err)
		}
		for _, src := range matches {
			rel, err := filepath.Rel(d.Dir(), src)
			if err != nil {
				return err
			}
			if err := copyFile(src, filepath.Join(dir, rel)); err != nil {
				return err
			}
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	fi, err := in.Stat()
	if err != nil {
		return err
	}
	if fi.IsDir() {
		return errors.New("exporting directories is not supported: " + src)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, fi.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
