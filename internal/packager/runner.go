// Copyright 2026 The llar Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package packager

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/llarhub/mapnik/formula"
	"github.com/llarhub/mapnik/internal/build"
	"github.com/llarhub/mapnik/internal/recipe"
	"github.com/llarhub/mapnik/pkgs/mod/module"
)

// Runner executes one configuration and returns its package.
type Runner interface {
	Run(ctx context.Context, ref module.Reference, b Build) (*build.Result, error)
}

// LocalRunner builds configurations in-process.
type LocalRunner struct {
	Descriptor *recipe.Descriptor
	Recipe     formula.Factory
	Builder    *build.Builder
}

func (r *LocalRunner) Run(ctx context.Context, ref module.Reference, b Build) (*build.Result, error) {
	if ref.Name != r.Descriptor.Name {
		return nil, fmt.Errorf("reference %s does not match recipe %s", ref, r.Descriptor.Name)
	}
	return r.Builder.Create(ctx, build.Target{
		Descriptor: r.Descriptor,
		Recipe:     r.Recipe,
		Version:    ref.Version,
		Settings:   b.Settings,
		Options:    b.Options,
	})
}

// Paths inside the build container.
const (
	containerProject = "/project"
	containerCache   = "/cache"
)

// DockerRunner builds each configuration in a fresh container running
// "mapnik-ci create". The recipe directory and the host workspace are
// mounted into the container.
type DockerRunner struct {
	Docker      string // docker executable, "docker" if empty
	Image       string
	RunOptions  string // extra "docker run" flags, split on white space
	ProjectDir  string // recipe directory on the host
	WorkDir     string // workspace root on the host
	BuildPolicy string
	RecipeFile  string // recipe file name inside ProjectDir
	// Remote is the package repository the container fetches dependencies
	// from. Its credentials are forwarded from the host environment.
	Remote string

	Stderr io.Writer
	Logger hclog.Logger
}

// Args returns the docker command line for one configuration.
func (r *DockerRunner) Args(ref module.Reference, b Build) []string {
	args := []string{"run", "--rm"}
	args = append(args, strings.Fields(r.RunOptions)...)
	args = append(args,
		"-v", r.ProjectDir+":"+containerProject,
		"-v", r.WorkDir+":"+containerCache+"/mapnik-ci",
		"-e", "XDG_CACHE_HOME="+containerCache,
	)
	if r.Remote != "" {
		args = append(args, "-e", "CONAN_LOGIN_USERNAME", "-e", "CONAN_PASSWORD")
	}
	args = append(args,
		"-w", containerProject,
		r.Image,
		"mapnik-ci", "create", "--json",
		"--version", ref.Version,
	)
	if r.Remote != "" {
		args = append(args, "--remote", r.Remote)
	}
	if r.RecipeFile != "" {
		args = append(args, "--recipe", r.RecipeFile)
	}
	if r.BuildPolicy != "" {
		args = append(args, "--build", r.BuildPolicy)
	}
	for _, kv := range b.Settings.Pairs() {
		args = append(args, "-s", kv)
	}
	for _, kv := range b.OptionPairs() {
		args = append(args, "-o", kv)
	}
	return args
}

// CreateOutput is the JSON line "mapnik-ci create --json" prints.
type CreateOutput struct {
	Reference string `json:"reference"`
	PackageID string `json:"package_id"`
	Cached    bool   `json:"cached"`
}

func (r *DockerRunner) Run(ctx context.Context, ref module.Reference, b Build) (*build.Result, error) {
	if r.Image == "" {
		return nil, fmt.Errorf("no docker image configured")
	}
	docker := r.Docker
	if docker == "" {
		docker = "docker"
	}
	args := r.Args(ref, b)
	if r.Logger != nil {
		r.Logger.Debug("running container", "args", args)
	}

	var stdout bytes.Buffer
	cmd := exec.CommandContext(ctx, docker, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = r.Stderr
	if err := cmd.Run(); err != nil {
		return nil, &formula.BuildToolError{Tool: docker, Args: args, Err: err}
	}

	out, err := parseCreateOutput(stdout.Bytes())
	if err != nil {
		return nil, err
	}
	dir, err := build.PackagePath(r.WorkDir, ref, out.PackageID)
	if err != nil {
		return nil, err
	}
	return &build.Result{Ref: ref, PackageID: out.PackageID, PackageDir: dir, Cached: out.Cached}, nil
}

// parseCreateOutput decodes the last JSON line of data.
func parseCreateOutput(data []byte) (*CreateOutput, error) {
	var last string
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); strings.HasPrefix(line, "{") {
			last = line
		}
	}
	if last == "" {
		return nil, fmt.Errorf("container printed no package result")
	}
	var out CreateOutput
	if err := json.Unmarshal([]byte(last), &out); err != nil {
		return nil, fmt.Errorf("decoding package result: %w", err)
	}
	if out.PackageID == "" {
		return nil, fmt.Errorf("package result without package id")
	}
	return &out, nil
}
