// Copyright 2026 The llar Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package module defines the package Reference type along with support code.
package module

import (
	"fmt"
	"path/filepath"
	"strings"
)

// A Reference identifies one version of a package, rendered as "name/version".
// It is the publish key of a package and is never mutated once built.
type Reference struct {
	Name    string // Package name (e.g., "mapnik")
	Version string // Version string (e.g., "4.0.0", "9d")
}

// String returns the "name/version" form of the reference.
func (r Reference) String() string {
	return r.Name + "/" + r.Version
}

// Validate reports whether both parts of the reference are present and
// contain no separator.
func (r Reference) Validate() error {
	if r.Name == "" || r.Version == "" {
		return fmt.Errorf("invalid reference %q: name and version are required", r.String())
	}
	if strings.ContainsAny(r.Name, "/@:") || strings.ContainsAny(r.Version, "/@:") {
		return fmt.Errorf("invalid reference %q: unexpected separator", r.String())
	}
	return nil
}

// ParseReference parses "name/version".
func ParseReference(s string) (Reference, error) {
	name, version, ok := strings.Cut(s, "/")
	if !ok {
		return Reference{}, fmt.Errorf("invalid reference %q: expected name/version", s)
	}
	ref := Reference{Name: name, Version: version}
	if err := ref.Validate(); err != nil {
		return Reference{}, err
	}
	return ref, nil
}

// EscapePath returns the escaped form of the given package name as a valid
// file system path. It fails if the name is invalid.
func EscapePath(path string) (escaped string, err error) {
	return filepath.Localize(path)
}
