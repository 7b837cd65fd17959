// Copyright 2026 The llar Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package packager

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/llarhub/mapnik/formula"
	"github.com/llarhub/mapnik/internal/recipe"
)

func TestDockerRunnerArgs(t *testing.T) {
	r := &DockerRunner{
		Image:       "conanio/gcc11",
		RunOptions:  "-u 0:0",
		ProjectDir:  "/src/mapnik",
		WorkDir:     "/home/ci/.cache/mapnik-ci",
		BuildPolicy: "missing",
	}
	b := Build{
		Settings: formula.Settings{OS: "Linux", Compiler: "gcc", CompilerVersion: "11", BuildType: "Release"},
		Options:  map[string]string{"mapnik:shared": "True"},
	}
	want := []string{
		"run", "--rm", "-u", "0:0",
		"-v", "/src/mapnik:/project",
		"-v", "/home/ci/.cache/mapnik-ci:/cache/mapnik-ci",
		"-e", "XDG_CACHE_HOME=/cache",
		"-w", "/project",
		"conanio/gcc11",
		"mapnik-ci", "create", "--json",
		"--version", "3.1.0",
		"--build", "missing",
		"-s", "build_type=Release",
		"-s", "compiler=gcc",
		"-s", "compiler.version=11",
		"-s", "os=Linux",
		"-o", "mapnik:shared=True",
	}
	if diff := cmp.Diff(want, r.Args(ref, b)); diff != "" {
		t.Errorf("Args() mismatch (-want +got):\n%s", diff)
	}
}

func TestDockerRunnerArgsRemote(t *testing.T) {
	r := &DockerRunner{
		Image:      "conanio/gcc11",
		ProjectDir: "/src/mapnik",
		WorkDir:    "/ws",
		Remote:     "https://pkgs.example.com/conan",
	}
	b := Build{Settings: formula.Settings{OS: "Linux"}}
	want := []string{
		"run", "--rm",
		"-v", "/src/mapnik:/project",
		"-v", "/ws:/cache/mapnik-ci",
		"-e", "XDG_CACHE_HOME=/cache",
		"-e", "CONAN_LOGIN_USERNAME",
		"-e", "CONAN_PASSWORD",
		"-w", "/project",
		"conanio/gcc11",
		"mapnik-ci", "create", "--json",
		"--version", "3.1.0",
		"--remote", "https://pkgs.example.com/conan",
		"-s", "os=Linux",
	}
	if diff := cmp.Diff(want, r.Args(ref, b)); diff != "" {
		t.Errorf("Args() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseCreateOutput(t *testing.T) {
	out, err := parseCreateOutput([]byte("building...\n{\"reference\":\"mapnik/3.1.0\",\"package_id\":\"abc\",\"cached\":true}\n"))
	if err != nil {
		t.Fatalf("parseCreateOutput() error = %v", err)
	}
	if out.PackageID != "abc" || !out.Cached {
		t.Errorf("out = %+v", out)
	}
	for _, bad := range []string{"", "no json here\n", "{\"reference\":\"x\"}\n", "{broken\n"} {
		if _, err := parseCreateOutput([]byte(bad)); err == nil {
			t.Errorf("parseCreateOutput(%q) succeeded", bad)
		}
	}
}

func TestDockerRunnerRun(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs a POSIX shell")
	}
	dir := t.TempDir()
	fake := filepath.Join(dir, "docker")
	script := "#!/bin/sh\necho 'pulling image' >&2\necho '{\"reference\":\"mapnik/3.1.0\",\"package_id\":\"0123456789abcdef\"}'\n"
	if err := os.WriteFile(fake, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	workDir := filepath.Join(dir, "ws")
	r := &DockerRunner{Docker: fake, Image: "img", ProjectDir: dir, WorkDir: workDir}

	res, err := r.Run(context.Background(), ref, Build{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if want := filepath.Join(workDir, "mapnik", "3.1.0", "package", "0123456789abcdef"); res.PackageDir != want {
		t.Errorf("PackageDir = %q, want %q", res.PackageDir, want)
	}

	failing := filepath.Join(dir, "docker-fail")
	if err := os.WriteFile(failing, []byte("#!/bin/sh\nexit 3\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	r.Docker = failing
	_, err = r.Run(context.Background(), ref, Build{})
	var bte *formula.BuildToolError
	if !errors.As(err, &bte) {
		t.Errorf("Run() error = %v, want BuildToolError", err)
	}

	r.Image = ""
	if _, err := r.Run(context.Background(), ref, Build{}); err == nil {
		t.Error("Run() without image succeeded")
	}
}

func TestLocalRunnerRejectsOtherPackages(t *testing.T) {
	r := &LocalRunner{Descriptor: &recipe.Descriptor{Name: "zlib"}}
	if _, err := r.Run(context.Background(), ref, Build{}); err == nil {
		t.Error("Run() built mapnik with the zlib recipe")
	}
}
