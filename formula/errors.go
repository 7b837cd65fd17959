// Copyright 2026 The llar Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package formula

import (
	"fmt"
	"strings"

	"github.com/llarhub/mapnik/pkgs/mod/module"
)

// InspectionError reports that a recipe could not be loaded or inspected.
// It is fatal to the whole driver.
type InspectionError struct {
	Path      string
	Attribute string
	Err       error
}

func (e *InspectionError) Error() string {
	if e.Attribute == "" {
		return fmt.Sprintf("inspect %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("inspect %s: attribute %q: %v", e.Path, e.Attribute, e.Err)
}

func (e *InspectionError) Unwrap() error { return e.Err }

// DependencyResolutionError reports a declared dependency that cannot be
// resolved for one build configuration.
type DependencyResolutionError struct {
	Ref module.Reference
	Err error
}

func (e *DependencyResolutionError) Error() string {
	return fmt.Sprintf("cannot resolve dependency %s: %v", e.Ref, e.Err)
}

func (e *DependencyResolutionError) Unwrap() error { return e.Err }

// UnsupportedCompilerStandardError reports a configured language standard
// below the recipe minimum.
type UnsupportedCompilerStandardError struct {
	Have string
	Min  int
}

func (e *UnsupportedCompilerStandardError) Error() string {
	return fmt.Sprintf("current cppstd (%s) is lower than the required C++ standard (%d)", e.Have, e.Min)
}

// SourceFetchError reports a failure to download or extract sources.
type SourceFetchError struct {
	URL string
	Err error
}

func (e *SourceFetchError) Error() string {
	return fmt.Sprintf("fetch source %s: %v", e.URL, e.Err)
}

func (e *SourceFetchError) Unwrap() error { return e.Err }

// BuildToolError reports a non-zero exit of an external build tool.
// Output holds the tail of the tool's combined output.
type BuildToolError struct {
	Tool   string
	Args   []string
	Output string
	Err    error
}

func (e *BuildToolError) Error() string {
	msg := fmt.Sprintf("%s %s: %v", e.Tool, strings.Join(e.Args, " "), e.Err)
	if e.Output != "" {
		msg += "\n" + e.Output
	}
	return msg
}

func (e *BuildToolError) Unwrap() error { return e.Err }

// PackageError reports a failure while assembling the package layout.
type PackageError struct {
	Ref module.Reference
	Err error
}

func (e *PackageError) Error() string {
	return fmt.Sprintf("package %s: %v", e.Ref, e.Err)
}

func (e *PackageError) Unwrap() error { return e.Err }
