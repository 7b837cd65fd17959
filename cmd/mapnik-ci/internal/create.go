// Copyright 2026 The llar Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package internal

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/llarhub/mapnik/formula"
	"github.com/llarhub/mapnik/internal/build"
	"github.com/llarhub/mapnik/internal/packager"
	"github.com/llarhub/mapnik/internal/recipe"
	"github.com/llarhub/mapnik/internal/remote"
	"github.com/spf13/cobra"
)

var (
	createVersion  string
	createSettings []string
	createOptions  []string
	createBuild    string
	createJSON     bool
	createWorkDir  string
	createRemote   string
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Build one configuration of the recipe",
	Long: `Create runs the recipe for a single configuration and stores the
package in the workspace. Configurations already in the workspace are
reused unless --build=always is given.`,
	Args: cobra.NoArgs,
	RunE: runCreate,
}

func init() {
	createCmd.Flags().StringVar(&createVersion, "version", "", "Package version to build")
	createCmd.Flags().StringArrayVarP(&createSettings, "settings", "s", nil, "Setting as key=value (repeatable)")
	createCmd.Flags().StringArrayVarP(&createOptions, "options", "o", nil, "Option as [name:]option=value (repeatable)")
	createCmd.Flags().StringVar(&createBuild, "build", string(build.PolicyMissing), "Build policy (missing, always)")
	createCmd.Flags().BoolVar(&createJSON, "json", false, "Print the package result as JSON on stdout")
	createCmd.Flags().StringVar(&createWorkDir, "workdir", "", "Workspace directory (default $XDG_CACHE_HOME/mapnik-ci)")
	createCmd.Flags().StringVar(&createRemote, "remote", "", "Package repository to fetch missing dependencies from")
	createCmd.MarkFlagRequired("version")
	rootCmd.AddCommand(createCmd)
}

func parseOptions(pairs []string) (map[string]string, error) {
	opts := make(map[string]string, len(pairs))
	for _, kv := range pairs {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("invalid option %q: expected name=value", kv)
		}
		opts[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return opts, nil
}

func runCreate(cmd *cobra.Command, args []string) error {
	logger, err := newLogger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	settings, err := formula.ParseSettings(createSettings)
	if err != nil {
		return err
	}
	options, err := parseOptions(createOptions)
	if err != nil {
		return err
	}
	policy, err := build.ParsePolicy(createBuild)
	if err != nil {
		return err
	}
	d, err := recipe.Load(recipeFile)
	if err != nil {
		return err
	}
	factory, err := recipeFor(d.Name)
	if err != nil {
		return err
	}

	// With --json, stdout carries only the result line.
	stdout := cmd.OutOrStdout()
	toolOut := stdout
	if createJSON {
		toolOut = cmd.ErrOrStderr()
	}
	bopts := build.Options{
		WorkDir: createWorkDir,
		Policy:  policy,
		Logger:  logger.Named("build"),
		Stdout:  toolOut,
		Stderr:  cmd.ErrOrStderr(),
	}
	if createRemote != "" {
		cfg := packager.ConfigFromEnv(os.Getenv)
		bopts.Remote = &remote.Client{
			BaseURL:  createRemote,
			Username: cfg.Username,
			Password: cfg.Password,
			Logger:   logger.Named("remote"),
		}
	}
	b, err := build.NewBuilder(bopts)
	if err != nil {
		return err
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	res, err := b.Create(ctx, build.Target{
		Descriptor: d,
		Recipe:     factory,
		Version:    createVersion,
		Settings:   settings,
		Options:    options,
	})
	if err != nil {
		return err
	}

	if createJSON {
		return json.NewEncoder(stdout).Encode(packager.CreateOutput{
			Reference: res.Ref.String(),
			PackageID: res.PackageID,
			Cached:    res.Cached,
		})
	}
	status := "built"
	if res.Cached {
		status = "cached"
	}
	fmt.Fprintf(stdout, "%s:%s %s %s\n", res.Ref, res.PackageID, status, res.PackageDir)
	return nil
}
