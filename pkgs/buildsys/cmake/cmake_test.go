// Copyright 2026 The llar Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cmake

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/llarhub/mapnik/formula"
)

func TestUseSetsEnv(t *testing.T) {
	tempDir := t.TempDir()
	includeDir := filepath.Join(tempDir, "include")
	libDir := filepath.Join(tempDir, "lib")
	pkgconfigDir := filepath.Join(libDir, "pkgconfig")

	for _, dir := range []string{includeDir, libDir, pkgconfigDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}

	for _, key := range []string{
		"PKG_CONFIG_PATH",
		"CMAKE_PREFIX_PATH",
		"CMAKE_INCLUDE_PATH",
		"CMAKE_LIBRARY_PATH",
		"INCLUDE",
		"LIB",
		"CPPFLAGS",
		"LDFLAGS",
	} {
		t.Setenv(key, "")
	}

	c := New("src", "build", "")
	c.Use(tempDir)

	expectEq := map[string]string{
		"PKG_CONFIG_PATH":    pkgconfigDir,
		"CMAKE_PREFIX_PATH":  tempDir,
		"CMAKE_INCLUDE_PATH": includeDir,
		"CMAKE_LIBRARY_PATH": libDir,
	}
	for k, v := range expectEq {
		if got := c.env[k]; got != v {
			t.Fatalf("%s = %q, want %q", k, got, v)
		}
	}

	if runtime.GOOS == "windows" {
		if got := c.env["INCLUDE"]; got != includeDir {
			t.Fatalf("INCLUDE = %q, want %q", got, includeDir)
		}
	} else {
		if got := c.env["CPPFLAGS"]; got != "-I"+includeDir {
			t.Fatalf("CPPFLAGS = %q, want %q", got, "-I"+includeDir)
		}
		if got := c.env["LDFLAGS"]; got != "-L"+libDir {
			t.Fatalf("LDFLAGS = %q, want %q", got, "-L"+libDir)
		}
	}

	// The process environment is left alone.
	if got := os.Getenv("CMAKE_PREFIX_PATH"); got != "" {
		t.Errorf("process CMAKE_PREFIX_PATH = %q, want empty", got)
	}
}

func TestUsePrependsInOrder(t *testing.T) {
	t.Setenv("CMAKE_PREFIX_PATH", "/usr/local")
	a, b := t.TempDir(), t.TempDir()

	c := New("src", "build", "")
	c.Use(a)
	c.Use(b)

	sep := string(os.PathListSeparator)
	want := b + sep + a + sep + "/usr/local"
	if got := c.env["CMAKE_PREFIX_PATH"]; got != want {
		t.Errorf("CMAKE_PREFIX_PATH = %q, want %q", got, want)
	}
}

func TestConfigureArgs(t *testing.T) {
	c := New("src", "build", "pkg")
	c.BuildType("Release")
	c.DefineBool("USE_JPEG", true).DefineBool("USE_LOG", false).Define("FOO", "BAR")

	want := []string{
		"-S", "src", "-B", "build",
		"-DCMAKE_BUILD_TYPE:STRING=Release",
		"-DCMAKE_INSTALL_PREFIX:STRING=pkg",
		"-DFOO:STRING=BAR",
		"-DUSE_JPEG:BOOL=ON",
		"-DUSE_LOG:BOOL=OFF",
		"--fresh",
	}
	if diff := cmp.Diff(want, c.ConfigureArgs("--fresh")); diff != "" {
		t.Errorf("ConfigureArgs mismatch (-want +got):\n%s", diff)
	}

	defs := c.Definitions()
	if defs["USE_JPEG"] != "ON" || defs["USE_LOG"] != "OFF" {
		t.Errorf("Definitions() = %v", defs)
	}
}

func TestBuildArgs(t *testing.T) {
	c := New("src", "build", "pkg")
	if diff := cmp.Diff([]string{"--build", "build"}, c.BuildArgs()); diff != "" {
		t.Errorf("BuildArgs mismatch (-want +got):\n%s", diff)
	}
	c.BuildType("Debug").Parallel(8)
	want := []string{"--build", "build", "--config", "Debug", "--parallel", "8", "--verbose"}
	if diff := cmp.Diff(want, c.BuildArgs("--verbose")); diff != "" {
		t.Errorf("BuildArgs mismatch (-want +got):\n%s", diff)
	}
}

func TestMergeEnv(t *testing.T) {
	got := mergeEnv([]string{"A=1", "B=2"}, map[string]string{"B": "3", "C": "4"})
	want := []string{"A=1", "B=3", "C=4"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mergeEnv mismatch (-want +got):\n%s", diff)
	}
}

func TestTailBuffer(t *testing.T) {
	var tb tailBuffer
	tb.Write([]byte(strings.Repeat("a", tailSize)))
	tb.Write([]byte("end"))
	got := tb.String()
	if len(got) != tailSize {
		t.Fatalf("len = %d, want %d", len(got), tailSize)
	}
	if !strings.HasSuffix(got, "end") {
		t.Errorf("tail lost the last write")
	}
}

func TestFailureIsBuildToolError(t *testing.T) {
	if _, err := exec.LookPath("cmake"); err != nil {
		t.Skip("cmake not found in PATH")
	}
	c := New(filepath.Join(t.TempDir(), "does-not-exist"), filepath.Join(t.TempDir(), "build"), "")
	err := c.Configure(context.Background())
	var toolErr *formula.BuildToolError
	if !errors.As(err, &toolErr) {
		t.Fatalf("Configure error = %v, want *formula.BuildToolError", err)
	}
	if toolErr.Tool != "cmake" || toolErr.Output == "" {
		t.Errorf("unexpected error details: %+v", toolErr)
	}
}

func TestConfigureBuildInstallE2E(t *testing.T) {
	if _, err := exec.LookPath("cmake"); err != nil {
		t.Skip("cmake not found in PATH")
	}

	tmp := t.TempDir()
	installDir := filepath.Join(tmp, "install")
	buildDir := filepath.Join(tmp, "build")
	sourceDir, err := filepath.Abs(filepath.Join("testdata", "project"))
	if err != nil {
		t.Fatal(err)
	}

	c := New(sourceDir, buildDir, installDir)
	c.Env("CUSTOM", "VAL")
	c.BuildType("Release")
	c.Define("FOO", "BAR")
	c.DefineBool("ENABLE", true)
	c.DefineBool("DISABLE", false)

	ctx := context.Background()
	if err := c.Configure(ctx); err != nil {
		t.Fatalf("configure: %v", err)
	}
	if err := c.Build(ctx); err != nil {
		t.Fatalf("build: %v", err)
	}
	if err := c.Install(ctx); err != nil {
		t.Fatalf("install: %v", err)
	}

	if _, err := os.Stat(filepath.Join(installDir, "include", "dummy.h")); err != nil {
		t.Fatalf("installed header missing: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(buildDir, "CMakeCache.txt"))
	if err != nil {
		t.Fatalf("read cache: %v", err)
	}
	content := string(data)
	for _, snippet := range []string{
		"FOO:STRING=BAR",
		"ENABLE:BOOL=ON",
		"DISABLE:BOOL=OFF",
		"CMAKE_BUILD_TYPE:STRING=Release",
	} {
		if !strings.Contains(content, snippet) {
			t.Fatalf("cache missing %q", snippet)
		}
	}
}
