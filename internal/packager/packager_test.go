// Copyright 2026 The llar Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package packager

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/llarhub/mapnik/formula"
	"github.com/llarhub/mapnik/internal/build"
	"github.com/llarhub/mapnik/pkgs/mod/module"
)

type fakeRunner struct {
	ran  []Build
	fail func(Build) error
}

func (r *fakeRunner) Run(ctx context.Context, ref module.Reference, b Build) (*build.Result, error) {
	r.ran = append(r.ran, b)
	if r.fail != nil {
		if err := r.fail(b); err != nil {
			return nil, err
		}
	}
	id := fmt.Sprintf("%016d", len(r.ran))
	return &build.Result{Ref: ref, PackageID: id, PackageDir: "/pkg/" + id}, nil
}

type fakeUploader struct {
	credErr  error
	checked  bool
	existing map[string]bool
	uploaded []string
}

func (u *fakeUploader) CheckCredentials(ctx context.Context) error {
	u.checked = true
	return u.credErr
}

func (u *fakeUploader) Exists(ctx context.Context, ref module.Reference, id string) (bool, error) {
	return u.existing[id], nil
}

func (u *fakeUploader) Upload(ctx context.Context, ref module.Reference, id, dir string) error {
	u.uploaded = append(u.uploaded, ref.String()+"@"+id)
	return nil
}

var linuxCfg = Config{
	GCCVersions: []string{"11"},
	Archs:       []string{"x86_64"},
	BuildTypes:  []string{"Release", "Debug"},
	OS:          "Linux",
}

var ciPolicy = Policy{BuildPolicy: "missing", SkipCheckCredentials: true, DockerRunOptions: "-u 0:0"}

var ref = module.Reference{Name: "mapnik", Version: "3.1.0"}

func TestRunAllSucceed(t *testing.T) {
	runner := &fakeRunner{}
	up := &fakeUploader{}
	p := New(linuxCfg, ciPolicy, runner, WithUploader(up))
	if err := p.AddCommonBuilds(ref, CommonBuildOptions{SharedOptionName: "mapnik:shared", DLLWithStaticRuntime: true}); err != nil {
		t.Fatal(err)
	}
	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(runner.ran) != 8 {
		t.Errorf("ran %d builds, want 8", len(runner.ran))
	}
	if up.checked {
		t.Error("credentials checked although the policy skips it")
	}
	if len(up.uploaded) != 8 {
		t.Errorf("uploaded %d packages, want 8", len(up.uploaded))
	}
	if ExitCode(nil) != 0 {
		t.Error("ExitCode(nil) != 0")
	}
}

func TestRunCollectsFailures(t *testing.T) {
	boom := errors.New("boom")
	runner := &fakeRunner{fail: func(b Build) error {
		if b.Settings.BuildType == "Debug" && b.Options["mapnik:shared"] == formula.True {
			return &formula.BuildToolError{Tool: "cmake", Err: boom}
		}
		return nil
	}}
	p := New(linuxCfg, ciPolicy, runner)
	if err := p.AddCommonBuilds(ref, CommonBuildOptions{SharedOptionName: "mapnik:shared"}); err != nil {
		t.Fatal(err)
	}
	err := p.Run(context.Background())

	var merr *MatrixError
	if !errors.As(err, &merr) {
		t.Fatalf("Run() error = %v, want *MatrixError", err)
	}
	if len(runner.ran) != 8 {
		t.Errorf("siblings stopped: ran %d builds, want 8", len(runner.ran))
	}
	if merr.Total != 8 || len(merr.Failures) != 2 {
		t.Errorf("MatrixError = %d failures of %d, want 2 of 8", len(merr.Failures), merr.Total)
	}
	if !errors.Is(err, boom) {
		t.Error("MatrixError does not unwrap to the build error")
	}
	var bte *formula.BuildToolError
	if !errors.As(err, &bte) {
		t.Error("MatrixError does not expose the BuildToolError")
	}
	if ExitCode(err) == 0 {
		t.Error("ExitCode() = 0 for failed builds")
	}
}

func TestRunChecksCredentials(t *testing.T) {
	runner := &fakeRunner{}
	up := &fakeUploader{credErr: errors.New("denied")}
	policy := ciPolicy
	policy.SkipCheckCredentials = false
	p := New(linuxCfg, policy, runner, WithUploader(up))
	if err := p.AddCommonBuilds(ref, CommonBuildOptions{}); err != nil {
		t.Fatal(err)
	}
	if err := p.Run(context.Background()); err == nil {
		t.Fatal("Run() succeeded with rejected credentials")
	}
	if !up.checked {
		t.Error("credentials not checked")
	}
	if len(runner.ran) != 0 {
		t.Errorf("ran %d builds after a credential failure", len(runner.ran))
	}
}

func TestRunSkipsExistingUploads(t *testing.T) {
	runner := &fakeRunner{}
	up := &fakeUploader{existing: map[string]bool{"0000000000000001": true}}
	p := New(linuxCfg, ciPolicy, runner, WithUploader(up))
	if err := p.AddCommonBuilds(ref, CommonBuildOptions{}); err != nil {
		t.Fatal(err)
	}
	if err := p.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	// two libcxx x two build types, the first one already uploaded
	if len(up.uploaded) != 3 {
		t.Errorf("uploaded %v, want 3 packages", up.uploaded)
	}
}

func TestRunCancelled(t *testing.T) {
	runner := &fakeRunner{}
	p := New(linuxCfg, ciPolicy, runner)
	if err := p.AddCommonBuilds(ref, CommonBuildOptions{}); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := p.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
	if len(runner.ran) != 0 {
		t.Errorf("ran %d builds after cancellation", len(runner.ran))
	}
}

func TestAddCommonBuildsValidation(t *testing.T) {
	p := New(linuxCfg, ciPolicy, &fakeRunner{})
	if err := p.AddCommonBuilds(module.Reference{Name: "mapnik"}, CommonBuildOptions{}); err == nil {
		t.Error("reference without version accepted")
	}
	if err := p.AddCommonBuilds(ref, CommonBuildOptions{}); err != nil {
		t.Fatal(err)
	}
	if err := p.AddCommonBuilds(module.Reference{Name: "other", Version: "1.0"}, CommonBuildOptions{}); err == nil {
		t.Error("builds of a second reference accepted")
	}
	if n := len(p.Builds()); n != 4 {
		t.Errorf("Builds() has %d entries, want 4", n)
	}
}

func TestRunNothingToBuild(t *testing.T) {
	p := New(Config{OS: "Plan9"}, ciPolicy, &fakeRunner{})
	if err := p.AddCommonBuilds(ref, CommonBuildOptions{}); err != nil {
		t.Fatal(err)
	}
	if err := p.Run(context.Background()); err != nil {
		t.Errorf("Run() error = %v", err)
	}
}
