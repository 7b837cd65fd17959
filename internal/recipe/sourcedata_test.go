// Copyright 2026 The llar Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package recipe

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLoadSourceData(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, SourceDataFile)
	content := `sources:
  "3.1.0":
    url: "https://example.com/mapnik-3.1.0.tar.bz2"
    sha256: "abc"
  "3.0.24":
    url:
      - "https://a.example.com/mapnik-3.0.24.tar.bz2"
      - "https://b.example.com/mapnik-3.0.24.tar.bz2"
  "3.1.0-rc1":
    url: "https://example.com/mapnik-3.1.0-rc1.tar.bz2"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	sd, err := LoadSourceData(path)
	if err != nil {
		t.Fatalf("LoadSourceData() error = %v", err)
	}
	if diff := cmp.Diff([]string{"3.0.24", "3.1.0", "3.1.0-rc1"}, sd.Versions()); diff != "" {
		t.Errorf("Versions() mismatch (-want +got):\n%s", diff)
	}

	e, ok := sd.Source("3.0.24")
	if !ok {
		t.Fatal("3.0.24 not found")
	}
	if len(e.URLs) != 2 {
		t.Errorf("URLs = %v, want two mirrors", e.URLs)
	}
	e, _ = sd.Source("3.1.0")
	if e.SHA256 != "abc" {
		t.Errorf("SHA256 = %q, want abc", e.SHA256)
	}
	if _, ok := sd.Source("9.9.9"); ok {
		t.Error("Source(9.9.9) found")
	}
}

func TestLoadSourceDataMissing(t *testing.T) {
	sd, err := LoadSourceData(filepath.Join(t.TempDir(), SourceDataFile))
	if err != nil {
		t.Fatalf("LoadSourceData() error = %v", err)
	}
	if len(sd.Versions()) != 0 {
		t.Errorf("Versions() = %v, want none", sd.Versions())
	}
}

func TestLoadSourceDataInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), SourceDataFile)
	if err := os.WriteFile(path, []byte("sources:\n  \"1.0\":\n    url: {a: b}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadSourceData(path); err == nil {
		t.Error("LoadSourceData() succeeded, want error")
	}
}
