// Copyright 2026 The llar Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package recipe

import (
	"fmt"
	"strings"

	"golang.org/x/mod/semver"
)

// ToolVersion is the version of this tool checked against a recipe's
// required_version.
const ToolVersion = "1.0.0"

// CheckRequiredVersion reports whether version satisfies constraint.
// Supported forms are ">=X", ">X", "<=X", "<X", "==X" and a bare "X".
func CheckRequiredVersion(constraint, version string) error {
	constraint = strings.TrimSpace(constraint)
	op, want := "==", constraint
	for _, p := range []string{">=", "<=", "==", ">", "<"} {
		if strings.HasPrefix(constraint, p) {
			op, want = p, strings.TrimSpace(constraint[len(p):])
			break
		}
	}
	w, v := canonical(want), canonical(version)
	if !semver.IsValid(w) {
		return fmt.Errorf("invalid required_version %q", constraint)
	}
	if !semver.IsValid(v) {
		return fmt.Errorf("invalid tool version %q", version)
	}
	c := semver.Compare(v, w)
	ok := false
	switch op {
	case ">=":
		ok = c >= 0
	case "<=":
		ok = c <= 0
	case ">":
		ok = c > 0
	case "<":
		ok = c < 0
	case "==":
		ok = c == 0
	}
	if !ok {
		return fmt.Errorf("recipe requires tool version %s, have %s", constraint, version)
	}
	return nil
}

func canonical(v string) string {
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return v
}
