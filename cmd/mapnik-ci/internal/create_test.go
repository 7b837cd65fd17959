// Copyright 2026 The llar Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package internal

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/llarhub/mapnik/formula"
	"github.com/llarhub/mapnik/internal/packager"
	"github.com/llarhub/mapnik/internal/recipe"
)

type demoRecipe struct{}

func (demoRecipe) ConfigOptions(c *formula.Context)                            {}
func (demoRecipe) Configure(c *formula.Context)                                {}
func (demoRecipe) Requirements(c *formula.Context, reqs *formula.Requirements) {}
func (demoRecipe) Validate(c *formula.Context) error                           { return nil }
func (demoRecipe) Source(ctx context.Context, c *formula.Context) error        { return nil }
func (demoRecipe) Build(ctx context.Context, c *formula.Context) error         { return nil }
func (demoRecipe) PackageInfo(c *formula.Context, info *formula.CppInfo)       {}

func (demoRecipe) Package(ctx context.Context, c *formula.Context) error {
	return os.WriteFile(filepath.Join(c.PackageDir, "COPYING"), []byte("demo"), 0o644)
}

const demoDescriptor = `
name = "demo"
option "shared" {
  values  = [true, false]
  default = false
}
`

func setupDemo(t *testing.T) (recipePath, workDir string) {
	t.Helper()
	recipes["demo"] = func() formula.Recipe { return demoRecipe{} }
	t.Cleanup(func() { delete(recipes, "demo") })

	recipePath = filepath.Join(t.TempDir(), recipe.DefaultFile)
	if err := os.WriteFile(recipePath, []byte(demoDescriptor), 0o644); err != nil {
		t.Fatal(err)
	}
	return recipePath, t.TempDir()
}

func TestCreateJSON(t *testing.T) {
	recipePath, workDir := setupDemo(t)
	args := []string{
		"create", "--recipe", recipePath, "--workdir", workDir, "--json",
		"--version", "1.0.0",
		"-s", "os=Linux", "-s", "arch=x86_64", "-s", "compiler=gcc", "-s", "build_type=Release",
		"-o", "demo:shared=True",
	}

	out, _, err := execute(t, args...)
	if err != nil {
		t.Fatalf("create error = %v", err)
	}
	var first packager.CreateOutput
	if err := json.Unmarshal([]byte(out), &first); err != nil {
		t.Fatalf("decoding %q: %v", out, err)
	}
	if first.Reference != "demo/1.0.0" || first.PackageID == "" || first.Cached {
		t.Errorf("first create = %+v", first)
	}
	info := filepath.Join(workDir, "demo", "1.0.0", "package", first.PackageID, "conaninfo.json")
	if _, err := os.Stat(info); err != nil {
		t.Errorf("package info missing: %v", err)
	}

	out, _, err = execute(t, args...)
	if err != nil {
		t.Fatalf("second create error = %v", err)
	}
	var second packager.CreateOutput
	if err := json.Unmarshal([]byte(out), &second); err != nil {
		t.Fatal(err)
	}
	if !second.Cached || second.PackageID != first.PackageID {
		t.Errorf("second create = %+v, want cached %s", second, first.PackageID)
	}
}

func TestCreateText(t *testing.T) {
	recipePath, workDir := setupDemo(t)
	out, _, err := execute(t, "create", "--recipe", recipePath, "--workdir", workDir, "--version", "2.0")
	if err != nil {
		t.Fatalf("create error = %v", err)
	}
	if !strings.HasPrefix(out, "demo/2.0:") || !strings.Contains(out, " built ") {
		t.Errorf("output = %q", out)
	}
}

func TestCreateErrors(t *testing.T) {
	recipePath, workDir := setupDemo(t)
	tests := []struct {
		name string
		args []string
	}{
		{"bad setting", []string{"-s", "os"}},
		{"unknown setting", []string{"-s", "color=blue"}},
		{"bad option", []string{"-o", "shared"}},
		{"unknown option", []string{"-o", "demo:lto=True"}},
		{"bad policy", []string{"--build", "never"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"create", "--recipe", recipePath, "--workdir", workDir, "--version", "1.0.0"}, tt.args...)
			if _, _, err := execute(t, args...); err == nil {
				t.Errorf("create %v succeeded", tt.args)
			}
		})
	}
}
