// Copyright 2026 The llar Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package recipe

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/llarhub/mapnik/formula"
)

func TestInspect(t *testing.T) {
	path := writeRecipe(t, t.TempDir(), testRecipe)

	tests := []struct {
		attribute string
		check     func(any) bool
	}{
		{"name", func(v any) bool { return v == "demo" }},
		{"license", func(v any) bool { return v == "MIT" }},
		{"options", func(v any) bool {
			m, ok := v.(map[string][]string)
			_, shared := m["shared"]
			return ok && shared
		}},
		{"unknown", func(v any) bool { return v == nil }},
	}
	for _, tt := range tests {
		t.Run(tt.attribute, func(t *testing.T) {
			v, err := Inspect(tt.attribute, path)
			if err != nil {
				t.Fatalf("Inspect() error = %v", err)
			}
			if !tt.check(v) {
				t.Errorf("Inspect(%q) = %#v", tt.attribute, v)
			}
		})
	}
}

func TestInspectRestoresWorkingDirectory(t *testing.T) {
	before, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}

	good := writeRecipe(t, t.TempDir(), testRecipe)
	if _, err := Inspect("name", good); err != nil {
		t.Fatalf("Inspect() error = %v", err)
	}
	if after, _ := os.Getwd(); after != before {
		t.Errorf("working directory after success = %q, want %q", after, before)
	}

	bad := writeRecipe(t, t.TempDir(), `name = `)
	_, err = Inspect("name", bad)
	var ie *formula.InspectionError
	if !errors.As(err, &ie) {
		t.Fatalf("Inspect() error = %v, want InspectionError", err)
	}
	if after, _ := os.Getwd(); after != before {
		t.Errorf("working directory after failure = %q, want %q", after, before)
	}
}

func TestInspectMissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope", DefaultFile)
	_, err := Inspect("name", path)
	var ie *formula.InspectionError
	if !errors.As(err, &ie) {
		t.Fatalf("Inspect() error = %v, want InspectionError", err)
	}
	if ie.Attribute != "name" {
		t.Errorf("Attribute = %q, want name", ie.Attribute)
	}
}
