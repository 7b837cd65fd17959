// Copyright 2026 The llar Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package build

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/llarhub/mapnik/formula"
	"github.com/llarhub/mapnik/pkgs/mod/module"
)

// resolve returns the package directory of a build of ref that is binary
// compatible with s. Workspace builds come first; otherwise the package is
// downloaded from the remote into the workspace.
func (b *Builder) resolve(ctx context.Context, ref module.Reference, s formula.Settings) (string, error) {
	root, err := b.packageRoot(ref)
	if err != nil {
		return "", &formula.DependencyResolutionError{Ref: ref, Err: err}
	}
	dir, err := b.findLocal(filepath.Join(root, "package"), s)
	if err != nil {
		return "", &formula.DependencyResolutionError{Ref: ref, Err: err}
	}
	if dir != "" {
		return dir, nil
	}
	if b.remote == nil {
		return "", &formula.DependencyResolutionError{
			Ref: ref,
			Err: fmt.Errorf("no package built for %q in %s", s.String(), b.workDir),
		}
	}

	dir, err = b.download(ctx, root, ref, s)
	if err != nil {
		return "", &formula.DependencyResolutionError{Ref: ref, Err: err}
	}
	return dir, nil
}

func (b *Builder) findLocal(dir string, s formula.Settings) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", err
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		pkgDir := filepath.Join(dir, e.Name())
		info, err := readInfo(pkgDir)
		if err != nil {
			b.logger.Debug("skipping package without metadata", "dir", pkgDir, "error", err)
			continue
		}
		if info.Settings.BinaryCompatible(s) {
			return pkgDir, nil
		}
	}
	return "", nil
}

// download fetches a compatible package of ref from the remote into the
// workspace under the lock of ref.
func (b *Builder) download(ctx context.Context, root string, ref module.Reference, s formula.Settings) (string, error) {
	id, err := b.remote.Find(ctx, ref, s)
	if err != nil {
		return "", err
	}
	if id == "" {
		return "", fmt.Errorf("no package for %q in the workspace or the remote", s.String())
	}
	dir, err := PackagePath(b.workDir, ref, id)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(root, 0o755); err != nil {
		return "", err
	}
	unlock, err := lockFile(filepath.Join(root, ".lock"))
	if err != nil {
		return "", fmt.Errorf("locking %s: %w", root, err)
	}
	defer unlock()

	b.logger.Info("fetching dependency", "ref", ref.String(), "package_id", id)
	if err := b.remote.Download(ctx, ref, id, dir); err != nil {
		return "", err
	}
	info, err := readInfo(dir)
	if err != nil {
		return "", fmt.Errorf("downloaded package %s: %w", id, err)
	}
	if !info.Settings.BinaryCompatible(s) {
		return "", fmt.Errorf("downloaded package %s was built for %q", id, info.Settings.String())
	}
	return dir, nil
}
