// Copyright 2026 The llar Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package driver computes the package reference of a recipe checkout and
// hands it to the multi-configuration packager.
package driver

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/hashicorp/go-hclog"
	"github.com/llarhub/mapnik/formula"
	"github.com/llarhub/mapnik/internal/build"
	"github.com/llarhub/mapnik/internal/packager"
	"github.com/llarhub/mapnik/internal/recipe"
	"github.com/llarhub/mapnik/internal/remote"
	"github.com/llarhub/mapnik/internal/vcs"
	"github.com/llarhub/mapnik/pkgs/mod/module"
)

// Fixed behavior of CI runs: build only missing binaries, never check
// credentials up front and run containers as root.
var ciPolicy = packager.Policy{
	BuildPolicy:          string(build.PolicyMissing),
	SkipCheckCredentials: true,
	DockerRunOptions:     "-u 0:0",
}

// Options configures Run.
type Options struct {
	RecipePath string
	Args       []string // positional arguments; Args[0] overrides the version
	CI         CI
	Packager   packager.Config
	Recipe     formula.Factory

	VCS     vcs.VCS // consulted when neither Args nor CI give a branch
	WorkDir string  // workspace root, see build.Options
	Logger  hclog.Logger
	Stdout  io.Writer
	Stderr  io.Writer
}

// Inspect returns the value of a recipe attribute.
func Inspect(attribute, recipePath string) (any, error) {
	return recipe.Inspect(attribute, recipePath)
}

// HasSharedOption reports whether the recipe declares an option named
// "shared".
func HasSharedOption(recipePath string) (bool, error) {
	v, err := Inspect("options", recipePath)
	if err != nil {
		return false, err
	}
	options, _ := v.(map[string][]string)
	_, ok := options["shared"]
	return ok, nil
}

// Plan is what the driver computed before handing off to the packager.
type Plan struct {
	Ref              module.Reference
	SharedOptionName string
}

// MakePlan computes the reference and shared option name of the recipe.
func MakePlan(ctx context.Context, opts Options) (*Plan, error) {
	v, err := Inspect("name", opts.RecipePath)
	if err != nil {
		return nil, err
	}
	name, _ := v.(string)

	branch := RepoBranch(opts.CI)
	if len(opts.Args) == 0 && branch == "" && opts.VCS != nil {
		b, err := opts.VCS.CurrentBranch(ctx, filepath.Dir(opts.RecipePath))
		if err != nil {
			return nil, fmt.Errorf("no version given and no branch to derive it from: %w", err)
		}
		branch = b
	}
	ref := module.Reference{Name: name, Version: Version(opts.Args, branch)}
	if err := ref.Validate(); err != nil {
		return nil, err
	}

	shared, err := HasSharedOption(opts.RecipePath)
	if err != nil {
		return nil, err
	}
	plan := &Plan{Ref: ref}
	if shared {
		plan.SharedOptionName = name + ":shared"
	}
	return plan, nil
}

// Run builds and publishes the full matrix of the recipe.
func Run(ctx context.Context, opts Options) error {
	logger := opts.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	recipePath, err := filepath.Abs(opts.RecipePath)
	if err != nil {
		return err
	}
	opts.RecipePath = recipePath

	plan, err := MakePlan(ctx, opts)
	if err != nil {
		return err
	}
	logger.Info("computed reference", "ref", plan.Ref.String(), "shared_option", plan.SharedOptionName)

	var client *remote.Client
	if opts.Packager.Upload != "" {
		client = &remote.Client{
			BaseURL:  opts.Packager.Upload,
			Username: opts.Packager.Username,
			Password: opts.Packager.Password,
			Logger:   logger.Named("remote"),
		}
	}
	runner, err := newRunner(opts, client, logger)
	if err != nil {
		return err
	}
	var popts []packager.Option
	popts = append(popts, packager.WithLogger(logger.Named("packager")))
	if client != nil {
		popts = append(popts, packager.WithUploader(client))
	}

	p := packager.New(opts.Packager, ciPolicy, runner, popts...)
	if err := p.AddCommonBuilds(plan.Ref, packager.CommonBuildOptions{
		SharedOptionName:     plan.SharedOptionName,
		PureC:                false,
		DLLWithStaticRuntime: true,
	}); err != nil {
		return err
	}
	return p.Run(ctx)
}

// newRunner returns the runner for opts. Dependencies missing from the
// workspace are fetched from client when it is not nil.
func newRunner(opts Options, client *remote.Client, logger hclog.Logger) (packager.Runner, error) {
	bopts := build.Options{
		WorkDir: opts.WorkDir,
		Policy:  build.Policy(ciPolicy.BuildPolicy),
		Logger:  logger.Named("build"),
		Stdout:  opts.Stdout,
		Stderr:  opts.Stderr,
	}
	if client != nil {
		bopts.Remote = client
	}
	b, err := build.NewBuilder(bopts)
	if err != nil {
		return nil, err
	}
	if opts.Packager.UseDocker {
		return &packager.DockerRunner{
			Image:       opts.Packager.DockerImage,
			RunOptions:  ciPolicy.DockerRunOptions,
			ProjectDir:  filepath.Dir(opts.RecipePath),
			WorkDir:     b.WorkDir(),
			BuildPolicy: ciPolicy.BuildPolicy,
			RecipeFile:  filepath.Base(opts.RecipePath),
			Remote:      opts.Packager.Upload,
			Stderr:      opts.Stderr,
			Logger:      logger.Named("docker"),
		}, nil
	}

	d, err := recipe.Load(opts.RecipePath)
	if err != nil {
		return nil, err
	}
	if opts.Recipe == nil {
		return nil, fmt.Errorf("no recipe implementation for %s", d.Name)
	}
	return &packager.LocalRunner{Descriptor: d, Recipe: opts.Recipe, Builder: b}, nil
}
