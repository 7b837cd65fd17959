// Copyright 2026 The llar Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cmake wraps the cmake configure/build/install workflow.
package cmake

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"github.com/llarhub/mapnik/formula"
	"github.com/llarhub/mapnik/pkgs/buildsys"
)

type defineValue struct {
	value    string
	typeName string
}

// CMake drives CMake-based builds. Environment changes made through Env and
// Use stay on the instance and only reach the cmake child processes.
type CMake struct {
	sourceDir  string
	buildDir   string
	installDir string
	buildType  string
	parallel   int
	defines    map[string]defineValue
	env        map[string]string

	// Stdout and Stderr receive the tool output; nil discards it.
	Stdout io.Writer
	Stderr io.Writer
}

var _ buildsys.BuildSystem = (*CMake)(nil)

// New returns a ready-to-use CMake.
func New(sourceDir, buildDir, installDir string) *CMake {
	return &CMake{
		sourceDir:  sourceDir,
		buildDir:   buildDir,
		installDir: installDir,
		defines:    make(map[string]defineValue),
		env:        make(map[string]string),
	}
}

// BuildType sets CMAKE_BUILD_TYPE (e.g. "Release", "Debug").
func (c *CMake) BuildType(name string) *CMake {
	c.buildType = name
	return c
}

// Parallel sets the number of parallel build jobs; 0 leaves it to cmake.
func (c *CMake) Parallel(n int) *CMake {
	c.parallel = n
	return c
}

// Define adds a -D<key>:STRING=<value> definition.
func (c *CMake) Define(key, value string) *CMake {
	c.defines[key] = defineValue{value: value, typeName: "STRING"}
	return c
}

// DefineBool adds a -D<key>:BOOL=ON/OFF definition.
func (c *CMake) DefineBool(key string, value bool) *CMake {
	v := "OFF"
	if value {
		v = "ON"
	}
	c.defines[key] = defineValue{value: v, typeName: "BOOL"}
	return c
}

// Definitions returns the current definitions as key -> value.
func (c *CMake) Definitions() map[string]string {
	out := make(map[string]string, len(c.defines))
	for k, d := range c.defines {
		out[k] = d.value
	}
	return out
}

// Env sets an environment variable for the cmake child processes.
func (c *CMake) Env(key, value string) {
	c.env[key] = value
}

func (c *CMake) getenv(key string) string {
	if v, ok := c.env[key]; ok {
		return v
	}
	return os.Getenv(key)
}

// Use makes headers, libraries and pkg-config files of a dependency
// installed at root visible to CMake and the compilers.
func (c *CMake) Use(root string) {
	includeDir := filepath.Join(root, "include")
	libDir := filepath.Join(root, "lib")
	pkgconfigDir := filepath.Join(libDir, "pkgconfig")

	if exists(pkgconfigDir) {
		c.prependPath("PKG_CONFIG_PATH", pkgconfigDir)
	}
	c.prependPath("CMAKE_PREFIX_PATH", root)
	if exists(includeDir) {
		c.prependPath("CMAKE_INCLUDE_PATH", includeDir)
	}
	if exists(libDir) {
		c.prependPath("CMAKE_LIBRARY_PATH", libDir)
	}

	if runtime.GOOS == "windows" {
		if exists(includeDir) {
			c.prependPath("INCLUDE", includeDir)
		}
		if exists(libDir) {
			c.prependPath("LIB", libDir)
		}
	} else {
		if exists(includeDir) {
			c.appendFlag("CPPFLAGS", "-I"+includeDir)
		}
		if exists(libDir) {
			c.appendFlag("LDFLAGS", "-L"+libDir)
		}
	}
}

// ConfigureArgs returns the arguments Configure passes to cmake.
func (c *CMake) ConfigureArgs(args ...string) []string {
	if c.installDir != "" {
		c.Define("CMAKE_INSTALL_PREFIX", c.installDir)
	}
	if c.buildType != "" {
		c.Define("CMAKE_BUILD_TYPE", c.buildType)
	}
	cmakeArgs := []string{"-S", c.sourceDir, "-B", c.buildDir}
	cmakeArgs = append(cmakeArgs, c.definesArgs()...)
	return append(cmakeArgs, args...)
}

// Configure runs "cmake -S <source> -B <build>" with all configured options.
// Extra args are appended at the end.
func (c *CMake) Configure(ctx context.Context, args ...string) error {
	if err := os.MkdirAll(c.buildDir, 0o755); err != nil {
		return err
	}
	return c.run(ctx, c.ConfigureArgs(args...))
}

// BuildArgs returns the arguments Build passes to cmake.
func (c *CMake) BuildArgs(args ...string) []string {
	cmdArgs := []string{"--build", c.buildDir}
	if c.buildType != "" {
		cmdArgs = append(cmdArgs, "--config", c.buildType)
	}
	if c.parallel > 0 {
		cmdArgs = append(cmdArgs, "--parallel", strconv.Itoa(c.parallel))
	}
	return append(cmdArgs, args...)
}

// Build runs "cmake --build <build>".
func (c *CMake) Build(ctx context.Context, args ...string) error {
	return c.run(ctx, c.BuildArgs(args...))
}

// Install runs "cmake --install <build>".
func (c *CMake) Install(ctx context.Context, args ...string) error {
	cmdArgs := []string{"--install", c.buildDir}
	if c.buildType != "" {
		cmdArgs = append(cmdArgs, "--config", c.buildType)
	}
	if c.installDir != "" {
		cmdArgs = append(cmdArgs, "--prefix", c.installDir)
	}
	return c.run(ctx, append(cmdArgs, args...))
}

func (c *CMake) definesArgs() []string {
	if len(c.defines) == 0 {
		return nil
	}
	keys := make([]string, 0, len(c.defines))
	for k := range c.defines {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	args := make([]string, 0, len(keys))
	for _, k := range keys {
		def := c.defines[k]
		if def.typeName != "" {
			args = append(args, "-D"+k+":"+def.typeName+"="+def.value)
			continue
		}
		args = append(args, "-D"+k+"="+def.value)
	}
	return args
}

// tailSize bounds the diagnostic output kept for a failed tool run.
const tailSize = 8 << 10

func (c *CMake) run(ctx context.Context, args []string) error {
	var tail tailBuffer
	cmd := exec.CommandContext(ctx, "cmake", args...)
	cmd.Stdout = io.MultiWriter(writerOr(c.Stdout), &tail)
	cmd.Stderr = io.MultiWriter(writerOr(c.Stderr), &tail)
	if len(c.env) > 0 {
		cmd.Env = mergeEnv(os.Environ(), c.env)
	}
	if err := cmd.Run(); err != nil {
		return &formula.BuildToolError{
			Tool:   "cmake",
			Args:   args,
			Output: strings.TrimSpace(tail.String()),
			Err:    err,
		}
	}
	return nil
}

func writerOr(w io.Writer) io.Writer {
	if w == nil {
		return io.Discard
	}
	return w
}

// tailBuffer keeps the last tailSize bytes written to it.
type tailBuffer struct {
	buf bytes.Buffer
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	n := len(p)
	t.buf.Write(p)
	if over := t.buf.Len() - tailSize; over > 0 {
		t.buf.Next(over)
	}
	return n, nil
}

func (t *tailBuffer) String() string { return t.buf.String() }

func mergeEnv(base []string, override map[string]string) []string {
	envMap := make(map[string]string, len(base))
	for _, kv := range base {
		if k, v, ok := strings.Cut(kv, "="); ok {
			envMap[k] = v
		}
	}
	for k, v := range override {
		envMap[k] = v
	}
	keys := make([]string, 0, len(envMap))
	for k := range envMap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+envMap[k])
	}
	return out
}

// prependPath prepends a value to a path list using the platform separator.
func (c *CMake) prependPath(key, value string) {
	current := c.getenv(key)
	if current == "" {
		c.env[key] = value
		return
	}
	c.env[key] = value + string(os.PathListSeparator) + current
}

// appendFlag appends a flag to a space-separated variable.
func (c *CMake) appendFlag(key, flag string) {
	current := c.getenv(key)
	if current == "" {
		c.env[key] = flag
		return
	}
	c.env[key] = strings.TrimSpace(current + " " + flag)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
