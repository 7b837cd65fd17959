// Copyright 2026 The llar Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package formula defines the contract between a package recipe and the
// builder that drives it through one build configuration.
package formula

import (
	"context"
	"io"
	"os"
	"slices"

	"github.com/hashicorp/go-hclog"
	"github.com/llarhub/mapnik/pkgs/mod/module"
	"github.com/llarhub/mapnik/pkgs/source"
)

// Recipe is implemented by every package recipe. The builder calls the
// methods once per configuration, in declaration order.
type Recipe interface {
	// ConfigOptions adjusts the declared options from settings alone.
	ConfigOptions(c *Context)
	// Configure adjusts options after user overrides were applied.
	Configure(c *Context)
	// Requirements declares the dependencies of this configuration.
	Requirements(c *Context, reqs *Requirements)
	// Validate rejects configurations the package cannot be built for.
	Validate(c *Context) error

	Source(ctx context.Context, c *Context) error
	Build(ctx context.Context, c *Context) error
	Package(ctx context.Context, c *Context) error

	// PackageInfo publishes consumer metadata.
	PackageInfo(c *Context, info *CppInfo)
}

// Factory returns a fresh recipe instance. Instances keep per-configuration
// state and are never reused across configurations.
type Factory func() Recipe

// -----------------------------------------------------------------------------

// Requirements collects the dependencies of a package.
type Requirements struct {
	refs []module.Reference
}

// Require declares that the package being built depends on name at version.
func (r *Requirements) Require(name, version string) {
	r.refs = append(r.refs, module.Reference{Name: name, Version: version})
}

// Refs returns the collected dependencies in declaration order.
func (r *Requirements) Refs() []module.Reference {
	return slices.Clone(r.refs)
}

// -----------------------------------------------------------------------------

// Context carries everything a recipe may look at while building one
// configuration.
type Context struct {
	Ref      module.Reference
	Settings Settings
	Options  *Options

	// Source is the source archive pinned for Ref.Version.
	Source source.Entry

	RecipeDir  string // directory holding the recipe files
	SourceDir  string // extracted sources
	BuildDir   string
	PackageDir string

	// Deps maps each resolved dependency name to its package directory.
	Deps map[string]string

	Logger hclog.Logger
	Stdout io.Writer
	Stderr io.Writer
}

// Log returns the context logger, or a null logger.
func (c *Context) Log() hclog.Logger {
	if c.Logger == nil {
		return hclog.NewNullLogger()
	}
	return c.Logger
}

// Out returns the writer for tool output.
func (c *Context) Out() io.Writer {
	if c.Stdout == nil {
		return os.Stdout
	}
	return c.Stdout
}

// Err returns the writer for tool diagnostics.
func (c *Context) Err() io.Writer {
	if c.Stderr == nil {
		return os.Stderr
	}
	return c.Stderr
}
