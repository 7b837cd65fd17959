// Copyright 2026 The llar Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package internal

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/hashicorp/go-hclog"
	"github.com/llarhub/mapnik/formula"
	"github.com/llarhub/mapnik/internal/driver"
	"github.com/llarhub/mapnik/internal/env"
	"github.com/llarhub/mapnik/internal/packager"
	"github.com/llarhub/mapnik/internal/recipe"
	"github.com/llarhub/mapnik/internal/vcs"
	"github.com/llarhub/mapnik/recipes/mapnik"
	"github.com/spf13/cobra"
)

const logLevelEnv = "MAPNIK_CI_LOG_LEVEL"

var (
	recipeFile string
	logLevel   string
	logJSON    bool
)

var rootCmd = &cobra.Command{
	Use:   "mapnik-ci [version]",
	Short: "mapnik-ci builds and publishes mapnik packages",
	Long: `mapnik-ci builds the recipe in the current directory for every
configuration of the compiler matrix described by the CONAN_* environment,
and uploads the packages when CONAN_UPLOAD is set.

The package version is the first argument, or the last path segment of the
branch being built.`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runRoot,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&recipeFile, "recipe", recipe.DefaultFile, "Path of the recipe descriptor")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", defaultLogLevel(os.Getenv), "Log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Log in JSON format")
}

// recipes maps descriptor names to their implementations.
var recipes = map[string]formula.Factory{
	"mapnik": mapnik.New,
}

func recipeFor(name string) (formula.Factory, error) {
	f, ok := recipes[name]
	if !ok {
		return nil, fmt.Errorf("no recipe implementation for package %q", name)
	}
	return f, nil
}

func defaultLogLevel(getenv func(string) string) string {
	if l := getenv(logLevelEnv); l != "" {
		return l
	}
	return "info"
}

func newLogger(w io.Writer) (hclog.Logger, error) {
	level := hclog.LevelFromString(logLevel)
	if level == hclog.NoLevel {
		return nil, fmt.Errorf("invalid log level %q", logLevel)
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:       env.AppName,
		Level:      level,
		JSONFormat: logJSON,
		Output:     w,
	}), nil
}

// signalContext is cancelled on interrupt so the running tool stops.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

func runRoot(cmd *cobra.Command, args []string) error {
	logger, err := newLogger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	v, err := driver.Inspect("name", recipeFile)
	if err != nil {
		return err
	}
	name, _ := v.(string)
	factory, err := recipeFor(name)
	if err != nil {
		return err
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	return driver.Run(ctx, driver.Options{
		RecipePath: recipeFile,
		Args:       args,
		CI:         driver.CIFromEnv(os.Getenv),
		Packager:   packager.ConfigFromEnv(os.Getenv),
		Recipe:     factory,
		VCS:        vcs.NewGitVCS(),
		Logger:     logger,
		Stdout:     cmd.OutOrStdout(),
		Stderr:     cmd.ErrOrStderr(),
	})
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		log.Print(err)
		os.Exit(packager.ExitCode(err))
	}
}
