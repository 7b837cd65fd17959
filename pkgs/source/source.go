// Copyright 2026 The llar Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package source downloads, verifies and unpacks pinned source archives.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/opencontainers/go-digest"
	"gopkg.in/yaml.v3"
)

// Entry is one pinned source archive. URLs are mirrors tried in order.
type Entry struct {
	URLs   []string `yaml:"url"`
	SHA256 string   `yaml:"sha256"`
}

// UnmarshalYAML accepts "url" as either a single string or a list.
func (e *Entry) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		URL    yaml.Node `yaml:"url"`
		SHA256 string    `yaml:"sha256"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	e.SHA256 = raw.SHA256
	e.URLs = nil
	switch raw.URL.Kind {
	case yaml.ScalarNode:
		e.URLs = []string{raw.URL.Value}
	case yaml.SequenceNode:
		if err := raw.URL.Decode(&e.URLs); err != nil {
			return err
		}
	case 0:
	default:
		return fmt.Errorf("line %d: url must be a string or a list of strings", raw.URL.Line)
	}
	return nil
}

// IsZero reports whether the entry names no archive.
func (e Entry) IsZero() bool {
	return len(e.URLs) == 0
}

// Options controls Get.
type Options struct {
	// StripRoot removes the single top-level directory of the archive.
	StripRoot bool
	Client    *http.Client
	Logger    hclog.Logger
}

var defaultClient = &http.Client{Timeout: 10 * time.Minute}

// Get downloads the archive of e, verifies its checksum and extracts it
// into dest. Mirrors are tried in order until one succeeds.
func Get(ctx context.Context, e Entry, dest string, opts Options) error {
	if e.IsZero() {
		return fmt.Errorf("no source url")
	}
	logger := opts.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	if e.SHA256 == "" {
		logger.Warn("no sha256 pinned for source archive, skipping verification", "url", e.URLs[0])
	}

	parent := filepath.Dir(dest)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return err
	}
	var errs []error
	for _, u := range e.URLs {
		err := getStaged(ctx, u, e.SHA256, dest, opts, logger)
		if err == nil {
			return nil
		}
		logger.Warn("source mirror failed", "url", u, "error", err)
		errs = append(errs, fmt.Errorf("%s: %w", u, err))
	}
	return errors.Join(errs...)
}

// getStaged extracts one mirror into a scratch directory next to dest and
// moves the result into dest only when the whole archive was unpacked.
func getStaged(ctx context.Context, rawURL, sha256, dest string, opts Options, logger hclog.Logger) error {
	staging, err := os.MkdirTemp(filepath.Dir(dest), ".fetch-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(staging)
	if err := getOne(ctx, rawURL, sha256, staging, opts, logger); err != nil {
		return err
	}
	return moveInto(staging, dest)
}

// moveInto moves the entries of src into dest, replacing entries of the
// same name.
func moveInto(src, dest string) error {
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return err
	}
	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	for _, e := range entries {
		to := filepath.Join(dest, e.Name())
		if err := os.RemoveAll(to); err != nil {
			return err
		}
		if err := os.Rename(filepath.Join(src, e.Name()), to); err != nil {
			return err
		}
	}
	return nil
}

func getOne(ctx context.Context, rawURL, sha256, dest string, opts Options, logger hclog.Logger) error {
	format, err := FormatOf(archiveName(rawURL))
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp("", "mapnik-ci-src-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	logger.Info("downloading source", "url", rawURL)
	got, err := download(ctx, rawURL, tmp, opts.Client)
	if err != nil {
		return err
	}
	if sha256 != "" {
		want, err := digest.Parse(digest.SHA256.String() + ":" + strings.ToLower(sha256))
		if err != nil {
			return fmt.Errorf("invalid sha256 %q: %w", sha256, err)
		}
		if got != want {
			return fmt.Errorf("checksum mismatch: got %s, want %s", got, want)
		}
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return err
	}

	logger.Debug("extracting source", "dest", dest, "format", format, "strip_root", opts.StripRoot)
	return Extract(tmp, format, dest, opts.StripRoot)
}

// download copies the archive at rawURL to w and returns its digest.
// Plain paths and file:// URLs are read from the local file system.
func download(ctx context.Context, rawURL string, w io.Writer, client *http.Client) (digest.Digest, error) {
	var body io.ReadCloser
	u, err := url.Parse(rawURL)
	switch {
	case err == nil && (u.Scheme == "http" || u.Scheme == "https"):
		if client == nil {
			client = defaultClient
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return "", err
		}
		resp, err := client.Do(req)
		if err != nil {
			return "", fmt.Errorf("fetch: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return "", fmt.Errorf("unexpected status: %d", resp.StatusCode)
		}
		body = resp.Body
	case err == nil && u.Scheme == "file":
		if body, err = os.Open(u.Path); err != nil {
			return "", err
		}
	default:
		if body, err = os.Open(rawURL); err != nil {
			return "", err
		}
	}
	defer body.Close()

	digester := digest.Canonical.Digester()
	if _, err := io.Copy(io.MultiWriter(w, digester.Hash()), body); err != nil {
		return "", fmt.Errorf("download: %w", err)
	}
	return digester.Digest(), nil
}

// archiveName returns the last path element of rawURL without query.
func archiveName(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil && u.Path != "" {
		return path.Base(u.Path)
	}
	return path.Base(rawURL)
}
