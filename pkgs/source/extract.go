// Copyright 2026 The llar Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package source

import (
	"archive/tar"
	"archive/zip"
	"compress/bzip2"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/ulikunitz/xz"
)

// Format is an archive container/compression pair.
type Format string

const (
	TarGz  Format = "tar.gz"
	TarBz2 Format = "tar.bz2"
	TarXz  Format = "tar.xz"
	Tar    Format = "tar"
	Zip    Format = "zip"
)

// FormatOf returns the archive format implied by a file name.
func FormatOf(name string) (Format, error) {
	name = strings.ToLower(name)
	switch {
	case strings.HasSuffix(name, ".tar.gz"), strings.HasSuffix(name, ".tgz"):
		return TarGz, nil
	case strings.HasSuffix(name, ".tar.bz2"), strings.HasSuffix(name, ".tbz2"):
		return TarBz2, nil
	case strings.HasSuffix(name, ".tar.xz"), strings.HasSuffix(name, ".txz"):
		return TarXz, nil
	case strings.HasSuffix(name, ".tar"):
		return Tar, nil
	case strings.HasSuffix(name, ".zip"):
		return Zip, nil
	}
	return "", fmt.Errorf("unsupported archive format: %s", name)
}

// Extract unpacks the archive read from r into dest.
// With stripRoot, the archive must hold exactly one top-level directory,
// whose contents land directly in dest.
func Extract(r io.ReaderAt, format Format, dest string, stripRoot bool) error {
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return err
	}
	s := &stripper{enabled: stripRoot}
	if format == Zip {
		return extractZip(r, dest, s)
	}

	var tr io.Reader = io.NewSectionReader(r, 0, 1<<62)
	switch format {
	case TarGz:
		gz, err := gzip.NewReader(tr)
		if err != nil {
			return fmt.Errorf("creating gzip reader: %w", err)
		}
		defer gz.Close()
		tr = gz
	case TarBz2:
		tr = bzip2.NewReader(tr)
	case TarXz:
		x, err := xz.NewReader(tr)
		if err != nil {
			return fmt.Errorf("creating xz reader: %w", err)
		}
		tr = x
	case Tar:
	default:
		return fmt.Errorf("unsupported archive format: %s", format)
	}
	return extractTar(tar.NewReader(tr), dest, s)
}

// stripper removes the common leading directory of archive entries.
type stripper struct {
	enabled bool
	root    string
}

// rel returns the path of name relative to dest, or "" if the entry is the
// stripped root itself.
func (s *stripper) rel(name string, isDir bool) (string, error) {
	name = strings.TrimPrefix(path.Clean(strings.ReplaceAll(name, "\\", "/")), "./")
	if name == "." || name == "" {
		return "", nil
	}
	if !filepath.IsLocal(filepath.FromSlash(name)) {
		return "", fmt.Errorf("illegal path in archive: %q", name)
	}
	if !s.enabled {
		return name, nil
	}
	root, rest, found := strings.Cut(name, "/")
	if !found && !isDir {
		return "", fmt.Errorf("cannot strip root: %q is a top-level file", name)
	}
	if s.root == "" {
		s.root = root
	} else if s.root != root {
		return "", fmt.Errorf("cannot strip root: multiple top-level entries (%q, %q)", s.root, root)
	}
	return rest, nil
}

// target returns the destination of rel inside dest. No existing path
// component below dest may be a symlink, so nothing is written through one.
func target(dest, rel string) (string, error) {
	if !filepath.IsLocal(filepath.FromSlash(rel)) {
		return "", fmt.Errorf("illegal path in archive: %q", rel)
	}
	cur := dest
	for _, elem := range strings.Split(rel, "/") {
		cur = filepath.Join(cur, elem)
		fi, err := os.Lstat(cur)
		if errors.Is(err, fs.ErrNotExist) {
			break
		}
		if err != nil {
			return "", err
		}
		if fi.Mode()&fs.ModeSymlink != 0 {
			return "", fmt.Errorf("illegal path in archive: %q passes through symlink %q", rel, cur)
		}
	}
	return filepath.Join(dest, filepath.FromSlash(rel)), nil
}

// checkLink rejects symlinks whose target leaves dest.
func checkLink(dest, dst, linkname string) error {
	if filepath.IsAbs(linkname) {
		return fmt.Errorf("illegal symlink in archive: %q -> %q", dst, linkname)
	}
	rel, err := filepath.Rel(dest, filepath.Join(filepath.Dir(dst), filepath.FromSlash(linkname)))
	if err != nil || !filepath.IsLocal(rel) {
		return fmt.Errorf("illegal symlink in archive: %q -> %q escapes the destination", dst, linkname)
	}
	return nil
}

func extractTar(tr *tar.Reader, dest string, s *stripper) error {
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading tar entry: %w", err)
		}
		switch hdr.Typeflag {
		case tar.TypeXGlobalHeader, tar.TypeXHeader:
			continue
		}

		rel, err := s.rel(hdr.Name, hdr.Typeflag == tar.TypeDir)
		if err != nil {
			return err
		}
		if rel == "" {
			continue
		}
		dst, err := target(dest, rel)
		if err != nil {
			return err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(dst, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := writeFile(dst, tr, hdr.FileInfo().Mode().Perm()); err != nil {
				return err
			}
		case tar.TypeSymlink:
			if err := checkLink(dest, dst, hdr.Linkname); err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
				return err
			}
			if err := os.Symlink(hdr.Linkname, dst); err != nil {
				return err
			}
		default:
			// devices, fifos and hard links never appear in source releases
		}
	}
}

func extractZip(r io.ReaderAt, dest string, s *stripper) error {
	size, err := sizeOf(r)
	if err != nil {
		return err
	}
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return fmt.Errorf("opening zip: %w", err)
	}
	for _, f := range zr.File {
		isDir := f.FileInfo().IsDir()
		rel, err := s.rel(f.Name, isDir)
		if err != nil {
			return err
		}
		if rel == "" {
			continue
		}
		dst, err := target(dest, rel)
		if err != nil {
			return err
		}
		if isDir {
			if err := os.MkdirAll(dst, 0o755); err != nil {
				return err
			}
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return err
		}
		err = writeFile(dst, rc, f.Mode().Perm())
		rc.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

func writeFile(dst string, r io.Reader, perm fs.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	if perm == 0 {
		perm = 0o644
	}
	f, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func sizeOf(r io.ReaderAt) (int64, error) {
	switch v := r.(type) {
	case interface{ Stat() (fs.FileInfo, error) }:
		fi, err := v.Stat()
		if err != nil {
			return 0, err
		}
		return fi.Size(), nil
	case interface{ Size() int64 }:
		return v.Size(), nil
	}
	return 0, fmt.Errorf("cannot determine archive size")
}
