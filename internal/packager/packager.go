// Copyright 2026 The llar Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package packager expands a build matrix for a package reference, builds
// every configuration and uploads the resulting packages.
package packager

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/llarhub/mapnik/pkgs/mod/module"
)

// Policy is the fixed behavior of a packager run.
type Policy struct {
	BuildPolicy          string // "missing" or "always"
	SkipCheckCredentials bool
	DockerRunOptions     string
}

// Uploader publishes packages. *remote.Client implements it.
type Uploader interface {
	CheckCredentials(ctx context.Context) error
	Exists(ctx context.Context, ref module.Reference, packageID string) (bool, error)
	Upload(ctx context.Context, ref module.Reference, packageID, packageDir string) error
}

// Packager runs a matrix of builds of one reference.
type Packager struct {
	cfg      Config
	policy   Policy
	runner   Runner
	uploader Uploader
	logger   hclog.Logger

	ref    module.Reference
	builds []Build
}

// Option configures a Packager.
type Option func(*Packager)

// WithUploader uploads every successful package through u.
func WithUploader(u Uploader) Option {
	return func(p *Packager) {
		p.uploader = u
	}
}

// WithLogger sets the logger.
func WithLogger(l hclog.Logger) Option {
	return func(p *Packager) {
		p.logger = l
	}
}

// New returns a packager executing builds through runner.
func New(cfg Config, policy Policy, runner Runner, opts ...Option) *Packager {
	p := &Packager{cfg: cfg, policy: policy, runner: runner, logger: hclog.NewNullLogger()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// AddCommonBuilds adds the standard matrix of ref for the configured
// compilers.
func (p *Packager) AddCommonBuilds(ref module.Reference, o CommonBuildOptions) error {
	if err := ref.Validate(); err != nil {
		return err
	}
	if p.ref != (module.Reference{}) && p.ref != ref {
		return fmt.Errorf("packager already holds builds of %s", p.ref)
	}
	builds, err := CommonBuilds(p.cfg, o)
	if err != nil {
		return err
	}
	p.ref = ref
	p.builds = append(p.builds, builds...)
	return nil
}

// Builds returns the queued configurations.
func (p *Packager) Builds() []Build {
	return append([]Build(nil), p.builds...)
}

// Failure is one configuration that did not produce a package.
type Failure struct {
	Build Build
	Err   error
}

// MatrixError lists the failed configurations of a run.
type MatrixError struct {
	Ref      module.Reference
	Total    int
	Failures []Failure
}

func (e *MatrixError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d of %d configurations failed", e.Ref, len(e.Failures), e.Total)
	for _, f := range e.Failures {
		fmt.Fprintf(&b, "\n  %s: %v", f.Build, f.Err)
	}
	return b.String()
}

func (e *MatrixError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f.Err
	}
	return errs
}

// Run builds every queued configuration. A failing configuration does not
// stop its siblings; all failures are reported in a *MatrixError.
func (p *Packager) Run(ctx context.Context) error {
	if len(p.builds) == 0 {
		p.logger.Warn("no builds to run", "os", p.cfg.OS)
		return nil
	}
	if p.uploader != nil && !p.policy.SkipCheckCredentials {
		if err := p.uploader.CheckCredentials(ctx); err != nil {
			return fmt.Errorf("checking credentials: %w", err)
		}
	}

	merr := &MatrixError{Ref: p.ref, Total: len(p.builds)}
	for i, b := range p.builds {
		if err := ctx.Err(); err != nil {
			merr.Failures = append(merr.Failures, Failure{Build: b, Err: err})
			continue
		}
		logger := p.logger.With("build", fmt.Sprintf("%d/%d", i+1, len(p.builds)))
		logger.Info("building configuration", "ref", p.ref.String(), "cell", b.Cell, "config", b.String())
		if err := p.runOne(ctx, logger, b); err != nil {
			logger.Error("configuration failed", "error", err)
			merr.Failures = append(merr.Failures, Failure{Build: b, Err: err})
		}
	}
	if len(merr.Failures) > 0 {
		return merr
	}
	return nil
}

func (p *Packager) runOne(ctx context.Context, logger hclog.Logger, b Build) error {
	res, err := p.runner.Run(ctx, p.ref, b)
	if err != nil {
		return err
	}
	if p.uploader == nil {
		return nil
	}
	exists, err := p.uploader.Exists(ctx, p.ref, res.PackageID)
	if err != nil {
		return fmt.Errorf("upload: %w", err)
	}
	if exists && p.policy.BuildPolicy != "always" {
		logger.Info("package already uploaded", "package_id", res.PackageID)
		return nil
	}
	if err := p.uploader.Upload(ctx, p.ref, res.PackageID, res.PackageDir); err != nil {
		return err
	}
	return nil
}

// ExitCode maps the result of Run to a process exit status.
func ExitCode(err error) int {
	var merr *MatrixError
	switch {
	case err == nil:
		return 0
	case errors.As(err, &merr):
		return 1
	}
	return 2
}
