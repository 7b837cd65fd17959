// Copyright 2026 The llar Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package build

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSaveAndLoadCache(t *testing.T) {
	b := newBuilder(t, t.TempDir(), PolicyMissing)

	now := time.Now().Truncate(time.Second)
	cache := &buildCache{}
	cache.set("1.0.0", "abcd", &buildEntry{Settings: "os=Linux", Options: "shared=False", BuildTime: now})

	if err := b.saveCache("demo", cache); err != nil {
		t.Fatalf("saveCache failed: %v", err)
	}
	loaded, err := b.loadCache("demo")
	if err != nil {
		t.Fatalf("loadCache failed: %v", err)
	}
	entry, ok := loaded.get("1.0.0", "abcd")
	if !ok {
		t.Fatal("entry missing after reload")
	}
	if entry.Settings != "os=Linux" || entry.Options != "shared=False" {
		t.Errorf("entry = %+v", entry)
	}
	if !entry.BuildTime.Truncate(time.Second).Equal(now) {
		t.Errorf("BuildTime mismatch: got %v, want %v", entry.BuildTime, now)
	}
	if _, ok := loaded.get("1.0.1", "abcd"); ok {
		t.Error("unexpected entry for another version")
	}
}

func TestLoadCache_NotExist(t *testing.T) {
	b := newBuilder(t, t.TempDir(), PolicyMissing)
	cache, err := b.loadCache("demo")
	if err != nil {
		t.Fatalf("loadCache failed: %v", err)
	}
	if len(cache.Cache) != 0 {
		t.Errorf("cache = %v, want empty", cache.Cache)
	}
}

func TestLoadCache_InvalidJSON(t *testing.T) {
	workDir := t.TempDir()
	b := newBuilder(t, workDir, PolicyMissing)
	if err := os.MkdirAll(filepath.Join(workDir, "demo"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(workDir, "demo", cacheFile), []byte("invalid json"), 0o644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}
	if _, err := b.loadCache("demo"); err == nil {
		t.Fatal("expected error for invalid JSON, got nil")
	}
}

func TestCacheDirRejectsBadNames(t *testing.T) {
	b := newBuilder(t, t.TempDir(), PolicyMissing)
	if _, err := b.cacheDir("../escape"); err == nil {
		t.Error("cacheDir accepted a path outside the workspace")
	}
}
