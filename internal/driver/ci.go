// Copyright 2026 The llar Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package driver

import "strings"

// CI is the GitHub Actions context of a run, read once at start up.
type CI struct {
	Ref       string // GITHUB_REF
	EventName string // GITHUB_EVENT_NAME
	BaseRef   string // GITHUB_BASE_REF
}

// CIFromEnv reads the CI context through getenv.
func CIFromEnv(getenv func(string) string) CI {
	return CI{
		Ref:       getenv("GITHUB_REF"),
		EventName: getenv("GITHUB_EVENT_NAME"),
		BaseRef:   getenv("GITHUB_BASE_REF"),
	}
}

// RepoBranch returns the branch the CI run builds. Pull requests build
// their base branch.
func RepoBranch(ci CI) string {
	if ci.EventName == "pull_request" {
		return ci.BaseRef
	}
	if branch, ok := strings.CutPrefix(ci.Ref, "refs/heads/"); ok {
		return branch
	}
	return ci.Ref
}

// Version returns args[0] when present, otherwise the last "/" separated
// segment of branch.
func Version(args []string, branch string) string {
	if len(args) > 0 {
		return args[0]
	}
	return branch[strings.LastIndex(branch, "/")+1:]
}
